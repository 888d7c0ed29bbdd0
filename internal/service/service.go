// Package service runs the create-token flow: validate the form, pin the
// token assets, search for a vanity mint address and submit the mint.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Amr-9/VanityMint/internal/logger"
	"github.com/Amr-9/VanityMint/pkg/generator"
	"github.com/Amr-9/VanityMint/pkg/generator/solana"
	"github.com/Amr-9/VanityMint/pkg/mint"
	"github.com/Amr-9/VanityMint/pkg/pinning"
)

// Signer is a connected wallet able to sign transactions.
type Signer interface {
	Account() types.Account
}

// Session carries the caller's wallet and target cluster for one flow.
type Session struct {
	Signer  Signer
	Cluster string
}

func (s Session) hasSigner() bool {
	if s.Signer == nil {
		return false
	}
	return len(s.Signer.Account().PrivateKey) > 0
}

// Input is the submitted token form.
type Input struct {
	Name        string
	Symbol      string
	Decimals    int
	Supply      string
	Prefix      string
	MaxAttempts uint64 // 0 uses the service default
	Owner       string // Recipient of the initial supply; empty means the signer
	Icon        pinning.Icon
}

// Receipt describes a completed flow.
type Receipt struct {
	FlowID         string        `json:"flowId"`
	MintAddress    string        `json:"mintAddress"`
	Signature      string        `json:"signature"`
	Amount         uint64        `json:"amount"`
	Decimals       int           `json:"decimals"`
	SubmitAttempts int           `json:"submitAttempts"`
	SearchAttempts uint64        `json:"searchAttempts"`
	SearchElapsed  time.Duration `json:"searchElapsedNs"`
	ImageURI       string        `json:"imageUri"`
	MetadataURI    string        `json:"metadataUri"`
	TxURL          string        `json:"txUrl"`
	MintURL        string        `json:"mintUrl"`
}

// Submitter is the retrying mint submission.
type Submitter interface {
	Submit(ctx context.Context, req mint.Request) (mint.Outcome, error)
}

// GeneratorFactory returns a fresh generator for one search.
type GeneratorFactory func() generator.Generator

// Options tunes a TokenService.
type Options struct {
	Workers            int           // Search workers; 0 uses every core
	DefaultMaxAttempts uint64        // Cap applied when Input.MaxAttempts is 0
	LimitMaxAttempts   uint64        // Upper bound for caller-supplied caps; 0 = none
	StatsInterval      time.Duration // How often search progress is logged
}

// TokenService runs the create-token flow.
type TokenService struct {
	pinner       pinning.Pinner
	submitter    Submitter
	newGenerator GeneratorFactory
	opts         Options
	logger       *zap.Logger
}

// NewTokenService creates a TokenService.
func NewTokenService(pinner pinning.Pinner, submitter Submitter, newGenerator GeneratorFactory, opts Options, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = 2 * time.Second
	}
	return &TokenService{
		pinner:       pinner,
		submitter:    submitter,
		newGenerator: newGenerator,
		opts:         opts,
		logger:       logger,
	}
}

// CreateToken runs validate, precondition, upload, search and submit in
// order. The first failure aborts the remaining steps.
func (s *TokenService) CreateToken(ctx context.Context, sess Session, in Input) (*Receipt, error) {
	amount, err := ValidateInput(in)
	if err != nil {
		return nil, err
	}
	if !sess.hasSigner() {
		return nil, fmt.Errorf("%w: no signing wallet in session", ErrPrecondition)
	}
	if s.pinner == nil || s.submitter == nil {
		return nil, errors.New("service: token creation is not configured")
	}

	flowID := uuid.NewString()
	log := s.logger.With(zap.String("flow_id", flowID), zap.String("symbol", in.Symbol))
	log.Info("create token started", zap.String("prefix", in.Prefix), zap.Uint64("amount", amount))

	assets, err := pinning.UploadTokenAssets(ctx, s.pinner, in.Name, in.Symbol, in.Icon)
	if err != nil {
		log.Error("asset upload failed", zap.Error(err))
		return nil, err
	}
	log.Info("assets uploaded", zap.String("metadata_uri", assets.MetadataURI))

	found, err := s.search(ctx, log, in.Prefix, in.MaxAttempts)
	if err != nil {
		return nil, err
	}

	outcome, err := s.submitter.Submit(ctx, mint.Request{
		Name:      in.Name,
		Symbol:    in.Symbol,
		URI:       assets.MetadataURI,
		Decimals:  uint8(in.Decimals),
		Amount:    amount,
		Owner:     in.Owner,
		Mint:      found.Keypair,
		Authority: sess.Signer.Account(),
	})
	found.Keypair.Wipe()
	if err != nil {
		log.Error("mint submission failed",
			zap.String("mint", logger.MaskShort(found.Address)),
			zap.Int("attempts", outcome.Attempts),
			zap.Error(err),
		)
		return nil, err
	}

	log.Info("create token completed",
		zap.String("mint", outcome.MintAddress),
		zap.String("signature", logger.MaskShort(outcome.Signature)),
	)

	return &Receipt{
		FlowID:         flowID,
		MintAddress:    outcome.MintAddress,
		Signature:      outcome.Signature,
		Amount:         amount,
		Decimals:       in.Decimals,
		SubmitAttempts: outcome.Attempts,
		SearchAttempts: found.Attempts,
		SearchElapsed:  found.Elapsed,
		ImageURI:       assets.ImageURI,
		MetadataURI:    assets.MetadataURI,
		TxURL:          mint.ExplorerTxURL(outcome.Signature, sess.Cluster),
		MintURL:        mint.ExplorerAddressURL(outcome.MintAddress, sess.Cluster),
	}, nil
}

// SearchAddress runs only the address search. The caller owns the returned
// keypair.
func (s *TokenService) SearchAddress(ctx context.Context, prefix string, maxAttempts uint64) (generator.Result, error) {
	if err := solana.ValidatePrefix(prefix); err != nil {
		return generator.Result{}, fieldErr("prefix", "%v", err)
	}
	return s.search(ctx, s.logger, prefix, maxAttempts)
}

func (s *TokenService) search(ctx context.Context, log *zap.Logger, prefix string, maxAttempts uint64) (generator.Result, error) {
	if maxAttempts == 0 {
		maxAttempts = s.opts.DefaultMaxAttempts
	}
	if s.opts.LimitMaxAttempts > 0 && (maxAttempts == 0 || maxAttempts > s.opts.LimitMaxAttempts) {
		maxAttempts = s.opts.LimitMaxAttempts
	}

	gen := s.newGenerator()
	cfg := &generator.Config{Prefix: prefix, MaxAttempts: maxAttempts, Workers: s.opts.Workers}

	log.Info("address search started",
		zap.String("generator", gen.Name()),
		zap.String("prefix", prefix),
		zap.Uint64("max_attempts", maxAttempts),
		zap.Uint64("difficulty", solana.EstimateDifficulty(prefix)),
	)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.opts.StatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				st := gen.Stats()
				log.Debug("address search progress",
					zap.Uint64("attempts", st.Attempts),
					zap.Float64("rate", st.HashRate),
				)
			}
		}
	}()

	res, err := generator.Search(ctx, gen, cfg)
	close(done)
	if err != nil {
		var ibe *solana.InvalidBase58Error
		if errors.As(err, &ibe) {
			return generator.Result{}, fieldErr("prefix", "%v", err)
		}
		log.Warn("address search stopped", zap.Uint64("attempts", gen.Stats().Attempts), zap.Error(err))
		return generator.Result{}, err
	}

	log.Info("address search matched",
		zap.String("address", res.Address),
		zap.Uint64("attempts", res.Attempts),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// ValidateInput checks the form and returns the raw mint amount.
func ValidateInput(in Input) (uint64, error) {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return 0, fieldErr("name", "is required")
	case len(in.Name) > mint.MaxNameLen:
		return 0, fieldErr("name", "must be at most %d bytes", mint.MaxNameLen)
	}

	symbol := strings.TrimSpace(in.Symbol)
	switch {
	case symbol == "":
		return 0, fieldErr("symbol", "is required")
	case len(in.Symbol) > mint.MaxSymbolLen:
		return 0, fieldErr("symbol", "must be at most %d bytes", mint.MaxSymbolLen)
	}

	if in.Decimals < 0 || in.Decimals > mint.MaxDecimals {
		return 0, fieldErr("decimals", "must be between 0 and %d", mint.MaxDecimals)
	}

	amount, err := mint.ScaleAmount(in.Supply, uint8(in.Decimals))
	if err != nil {
		return 0, fieldErr("supply", "%s", strings.TrimPrefix(err.Error(), mint.ErrInvalidRequest.Error()+": "))
	}

	if err := solana.ValidatePrefix(in.Prefix); err != nil {
		return 0, fieldErr("prefix", "%v", err)
	}

	if in.Owner != "" {
		if err := mint.ValidateAddress(in.Owner); err != nil {
			return 0, fieldErr("owner", "%v", err)
		}
	}

	if in.Icon.Body == nil {
		return 0, fieldErr("icon", "is required")
	}

	return amount, nil
}
