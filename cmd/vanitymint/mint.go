package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Amr-9/VanityMint/internal/service"
	"github.com/Amr-9/VanityMint/internal/ui"
	"github.com/Amr-9/VanityMint/pkg/pinning"
)

type mintOptions struct {
	name        string
	symbol      string
	decimals    int
	supply      string
	icon        string
	prefix      string
	owner       string
	maxAttempts uint64
}

func newMintCmd(a *app) *cobra.Command {
	opts := &mintOptions{}

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Create an SPL token whose mint address starts with a prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("max-attempts") {
				opts.maxAttempts = a.cfg.SearchMaxAttempts
			}
			return runMint(cmd.Context(), a, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.name, "name", "", "token name")
	f.StringVar(&opts.symbol, "symbol", "", "token symbol")
	f.IntVar(&opts.decimals, "decimals", 9, "token decimals (0-9)")
	f.StringVar(&opts.supply, "supply", "", "initial supply in whole tokens")
	f.StringVar(&opts.icon, "icon", "", "path to the token icon image")
	f.StringVar(&opts.prefix, "prefix", "", "mint address prefix")
	f.StringVar(&opts.owner, "owner", "", "recipient of the initial supply (defaults to the authority)")
	f.Uint64Var(&opts.maxAttempts, "max-attempts", 0, "search attempt cap, 0 for unbounded")
	for _, name := range []string{"name", "symbol", "supply", "icon"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func runMint(parent context.Context, a *app, opts *mintOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := loadSession(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}

	svc, closePinner, err := newTokenService(ctx, a.cfg, a.logger, service.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = closePinner() }()

	icon, err := os.Open(opts.icon)
	if err != nil {
		return fmt.Errorf("failed to open icon: %w", err)
	}
	defer icon.Close()

	console := ui.NewConsole(os.Stdin, os.Stdout)
	receipt, err := svc.CreateToken(ctx, sess, service.Input{
		Name:        opts.name,
		Symbol:      opts.symbol,
		Decimals:    opts.decimals,
		Supply:      opts.supply,
		Prefix:      opts.prefix,
		MaxAttempts: opts.maxAttempts,
		Owner:       opts.owner,
		Icon: pinning.Icon{
			Filename:    filepath.Base(opts.icon),
			ContentType: iconContentType(opts.icon),
			Body:        icon,
		},
	})
	if err != nil {
		msg := service.UserMessage(err)
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			msg = ve.Error()
		}
		console.PrintError(msg)
		return err
	}

	console.PrintMintReceipt(receipt)
	return nil
}

func iconContentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
