package main

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/Amr-9/VanityMint/internal/authority"
	"github.com/Amr-9/VanityMint/internal/config"
	"github.com/Amr-9/VanityMint/internal/service"
	"github.com/Amr-9/VanityMint/pkg/generator"
	"github.com/Amr-9/VanityMint/pkg/generator/cpu"
	"github.com/Amr-9/VanityMint/pkg/mint"
	"github.com/Amr-9/VanityMint/pkg/pinning"
)

// closer releases a dependency on exit.
type closer func() error

// newPinner builds the configured asset pinning backend.
func newPinner(ctx context.Context, cfg *config.Config) (pinning.Pinner, closer, error) {
	switch cfg.PinningBackend {
	case config.PinningGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		p, err := pinning.NewGCSPinner(client, cfg.GCSBucket, cfg.GCSPrefix)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return p, client.Close, nil
	default:
		p, err := pinning.NewPinataClient(cfg.PinataAPIKey, cfg.PinataSecretAPIKey,
			pinning.WithGatewayURL(cfg.PinataGatewayURL))
		if err != nil {
			return nil, nil, err
		}
		return p, func() error { return nil }, nil
	}
}

// newTokenService wires pinning, the Solana ledger and the CPU search into a
// TokenService.
func newTokenService(ctx context.Context, cfg *config.Config, log *zap.Logger, opts service.Options) (*service.TokenService, closer, error) {
	pinner, closePinner, err := newPinner(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	ledger := mint.NewSolanaLedger(cfg.SolanaRPCURL, log.Named("ledger"),
		mint.WithConfirmTimeout(cfg.MintConfirmTimeout))
	submitter := mint.NewSubmitter(ledger, log.Named("submitter"),
		mint.WithAttempts(cfg.MintAttempts),
		mint.WithMinDelay(cfg.MintMinDelay))

	opts.Workers = cfg.SearchWorkers
	newGenerator := func() generator.Generator {
		return cpu.NewCPUGenerator(cfg.SearchWorkers)
	}

	svc := service.NewTokenService(pinner, submitter, newGenerator, opts, log.Named("service"))
	return svc, closePinner, nil
}

// loadSession resolves the configured mint authority. A missing authority
// yields a session without a signer, so create requests fail their
// precondition instead of the process refusing to start.
func loadSession(ctx context.Context, cfg *config.Config, log *zap.Logger) (service.Session, error) {
	sess := service.Session{Cluster: cfg.SolanaCluster}

	signer, err := authority.Load(ctx, authority.Config{
		Keypair:    cfg.MintAuthorityKeypair,
		SecretName: cfg.MintAuthoritySecret,
	}, log)
	switch {
	case errors.Is(err, authority.ErrNotConfigured):
		log.Warn("no mint authority configured, token creation disabled")
		return sess, nil
	case err != nil:
		return sess, fmt.Errorf("failed to load mint authority: %w", err)
	}

	sess.Signer = signer
	return sess, nil
}
