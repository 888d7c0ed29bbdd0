package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Amr-9/VanityMint/internal/keystore"
	"github.com/Amr-9/VanityMint/internal/ui"
	"github.com/Amr-9/VanityMint/pkg/generator"
	"github.com/Amr-9/VanityMint/pkg/generator/cpu"
	"github.com/Amr-9/VanityMint/pkg/generator/solana"
)

const updateRate = 33 * time.Millisecond

type searchOptions struct {
	prefix        string
	maxAttempts   uint64
	workers       int
	out           string
	passphraseEnv string
	encrypt       bool
	hide          bool
	showSecret    bool

	passphrase []byte
}

func newSearchCmd(a *app) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search for a keypair whose address starts with a prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("max-attempts") {
				opts.maxAttempts = a.cfg.SearchMaxAttempts
			}
			if !cmd.Flags().Changed("workers") {
				opts.workers = a.cfg.SearchWorkers
			}
			return runSearch(a, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.prefix, "prefix", "", "address prefix (prompted when empty)")
	f.Uint64Var(&opts.maxAttempts, "max-attempts", 0, "attempt cap, 0 for unbounded")
	f.IntVar(&opts.workers, "workers", 0, "search workers, 0 for every core")
	f.StringVarP(&opts.out, "out", "o", "", "write the keypair to this file")
	f.StringVar(&opts.passphraseEnv, "passphrase-env", "", "encrypt --out with the passphrase in this environment variable")
	f.BoolVar(&opts.encrypt, "encrypt", false, "encrypt --out with a passphrase read from the terminal")
	f.BoolVar(&opts.hide, "hide", false, "mark the --out file hidden (Windows)")
	f.BoolVar(&opts.showSecret, "show-secret", false, "print the secret key")
	return cmd
}

func runSearch(a *app, opts *searchOptions) error {
	if err := raisePriority(); err != nil {
		a.logger.Debug("could not raise process priority", zap.Error(err))
	}

	passphrase, err := resolvePassphrase(opts)
	if err != nil {
		return err
	}
	opts.passphrase = passphrase

	console := ui.NewConsole(os.Stdin, os.Stdout)
	interactive := opts.prefix == ""
	if interactive {
		console.ClearScreen()
		console.PrintWelcomeBanner(version)
	}

	workers := opts.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	for {
		prefix := opts.prefix
		if interactive {
			var ok bool
			if prefix, ok = console.PromptPrefix(); !ok {
				return nil
			}
		} else if err := solana.ValidatePrefix(prefix); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		err := searchOnce(ctx, a, console, &generator.Config{
			Prefix:      prefix,
			MaxAttempts: opts.maxAttempts,
			Workers:     workers,
		}, opts)
		stop()

		if !interactive {
			return err
		}
		if err != nil && !errors.Is(err, generator.ErrSearchExhausted) && !errors.Is(err, context.Canceled) {
			return err
		}
		if !console.AskToContinue() {
			return nil
		}
		fmt.Println()
	}
}

// searchOnce runs one search with a live progress line until a match, the
// attempt cap or ctx cancellation. It returns generator.ErrSearchExhausted
// when the cap is hit and an error wrapping context.Canceled when ctx ends.
func searchOnce(ctx context.Context, a *app, console *ui.Console, config *generator.Config, opts *searchOptions) error {
	gen := cpu.NewCPUGenerator(config.Workers)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	difficulty := solana.EstimateDifficulty(config.Prefix)
	console.PrintSearchInfo(config, difficulty)

	resultChan, err := gen.Start(ctx, config)
	if err != nil {
		return err
	}

	startTime := time.Now()
	ticker := time.NewTicker(updateRate)
	defer ticker.Stop()
	frame := 0

	cancelled := func() error {
		console.ClearLine()
		console.PrintError(fmt.Sprintf("Cancelled │ %s attempts │ %s",
			ui.FormatNumber(gen.Stats().Attempts),
			ui.FormatDuration(time.Since(startTime))))
		return fmt.Errorf("search cancelled: %w", context.Canceled)
	}

	for {
		select {
		case result, ok := <-resultChan:
			if !ok {
				// Workers also stop on cancellation; only a live context means the cap was hit.
				if ctx.Err() != nil {
					return cancelled()
				}
				console.ClearLine()
				stopErr := generator.StopReason(gen)
				if errors.Is(stopErr, generator.ErrSearchExhausted) {
					console.PrintExhausted(gen.Stats().Attempts)
				} else {
					console.PrintError(stopErr.Error())
				}
				return stopErr
			}
			console.ClearLine()
			defer result.Keypair.Wipe()

			saved, err := saveResult(result, opts)
			if err != nil {
				console.PrintError(fmt.Sprintf("Save failed: %v", err))
			}
			console.PrintSuccess(result, saved, opts.showSecret)
			a.logger.Debug("vanity address found",
				zap.String("address", result.Address),
				zap.Uint64("attempts", result.Attempts),
				zap.Duration("elapsed", result.Elapsed),
			)
			return nil

		case <-ticker.C:
			console.PrintProgress(gen.Stats(), difficulty, frame)
			frame++

		case <-ctx.Done():
			return cancelled()
		}
	}
}

// resolvePassphrase returns the --out encryption passphrase, or nil when the
// keypair is written in plain Solana CLI format.
func resolvePassphrase(opts *searchOptions) ([]byte, error) {
	if opts.out == "" {
		return nil, nil
	}
	if opts.passphraseEnv != "" {
		passphrase := os.Getenv(opts.passphraseEnv)
		if passphrase == "" {
			return nil, fmt.Errorf("%s is empty", opts.passphraseEnv)
		}
		return []byte(passphrase), nil
	}
	if !opts.encrypt {
		return nil, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("--encrypt needs a terminal, use --passphrase-env instead")
	}
	fmt.Fprint(os.Stderr, "    Passphrase: ")
	passphrase, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	if len(passphrase) == 0 {
		return nil, errors.New("passphrase must not be empty")
	}
	return passphrase, nil
}

// saveResult writes the keypair when --out is set and returns the path.
func saveResult(result generator.Result, opts *searchOptions) (string, error) {
	if opts.out == "" {
		return "", nil
	}

	var err error
	if opts.passphrase != nil {
		err = keystore.WriteEncrypted(opts.out, result.Keypair, opts.passphrase)
	} else {
		err = keystore.WriteKeypair(opts.out, result.Keypair)
	}
	if err != nil {
		return "", err
	}

	if opts.hide {
		keystore.HideFile(opts.out)
	}
	return opts.out, nil
}
