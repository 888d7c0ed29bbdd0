// Command vanitymint searches for Solana vanity addresses and creates SPL
// tokens whose mint lives at one.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Amr-9/VanityMint/internal/config"
	"github.com/Amr-9/VanityMint/internal/logger"
)

const version = "1.0"

// app holds what every subcommand needs after the root pre-run.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "vanitymint",
		Short:        "Solana vanity mint addresses and SPL token creation",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			a.cfg = cfg
			a.logger = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.AddCommand(
		newSearchCmd(a),
		newMintCmd(a),
		newServeCmd(a),
	)
	return root
}
