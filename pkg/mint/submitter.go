package mint

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Retry defaults.
const (
	DefaultAttempts = 5
	DefaultMinDelay = 500 * time.Millisecond
)

// Submitter wraps a Ledger with a bounded, fixed-delay retry policy.
type Submitter struct {
	ledger   Ledger
	attempts int
	minDelay time.Duration
	logger   *zap.Logger
}

// SubmitterOption configures a Submitter.
type SubmitterOption func(*Submitter)

// WithAttempts sets the total attempt budget (values below 1 are ignored).
func WithAttempts(n int) SubmitterOption {
	return func(s *Submitter) {
		if n >= 1 {
			s.attempts = n
		}
	}
}

// WithMinDelay sets the fixed delay between attempts.
func WithMinDelay(d time.Duration) SubmitterOption {
	return func(s *Submitter) {
		if d >= 0 {
			s.minDelay = d
		}
	}
}

// NewSubmitter creates a Submitter for ledger.
func NewSubmitter(ledger Ledger, logger *zap.Logger, opts ...SubmitterOption) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Submitter{
		ledger:   ledger,
		attempts: DefaultAttempts,
		minDelay: DefaultMinDelay,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attempts returns the configured attempt budget.
func (s *Submitter) Attempts() int {
	return s.attempts
}

// Submit validates req and calls the ledger until it succeeds, a permanent
// error occurs, the context ends or the attempt budget is spent.
//
// Before each retry the signature of the previous attempt, if any, is checked
// so a transaction that landed late is reported instead of minted twice.
func (s *Submitter) Submit(ctx context.Context, req Request) (Outcome, error) {
	if !req.HasAuthority() {
		return Outcome{}, ErrMissingAuthority
	}
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}

	mintAddress := req.Mint.Address()
	var (
		calls     int
		lastSig   string
		signature string
	)

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		if lastSig != "" {
			if landed, err := s.alreadyLanded(ctx, lastSig); err != nil {
				return backoff.Permanent(err)
			} else if landed {
				signature = lastSig
				return nil
			}
		}

		calls++
		sig, err := s.ledger.CreateAndMint(ctx, req)
		if sig != "" {
			lastSig = sig
		}
		if err != nil {
			if IsPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		signature = sig
		return nil
	}

	notify := func(err error, next time.Duration) {
		s.logger.Warn("mint attempt failed, retrying",
			zap.String("mint", mintAddress),
			zap.Int("attempt", calls),
			zap.Int("budget", s.attempts),
			zap.Duration("retry_in", next),
			zap.Error(err),
		)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.minDelay), uint64(s.attempts-1)),
		ctx,
	)

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		s.logger.Error("mint submission failed",
			zap.String("mint", mintAddress),
			zap.Int("attempts", calls),
			zap.String("last_signature", lastSig),
			zap.Error(err),
		)
		return Outcome{MintAddress: mintAddress, Attempts: calls},
			&SubmissionError{Attempts: calls, LastSignature: lastSig, Err: err}
	}

	s.logger.Info("mint submission confirmed",
		zap.String("mint", mintAddress),
		zap.String("signature", signature),
		zap.Int("attempts", calls),
	)
	return Outcome{Signature: signature, MintAddress: mintAddress, Attempts: calls}, nil
}

// alreadyLanded checks a previous signature when the ledger supports it.
// Lookup failures are treated as "not landed"; on-chain execution errors are
// returned so the caller stops.
func (s *Submitter) alreadyLanded(ctx context.Context, signature string) (bool, error) {
	checker, ok := s.ledger.(StatusChecker)
	if !ok {
		return false, nil
	}
	confirmed, err := checker.Confirmed(ctx, signature)
	if err != nil {
		if IsPermanent(err) {
			return false, err
		}
		s.logger.Debug("status pre-check failed", zap.String("signature", signature), zap.Error(err))
		return false, nil
	}
	return confirmed, nil
}
