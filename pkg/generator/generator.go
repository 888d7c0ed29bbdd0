// Package generator defines the interface for vanity address generation.
// A Generator searches for a Solana keypair whose base58 address starts with
// a requested prefix, optionally bounded by an attempt cap.
package generator

import (
	"context"
	"errors"
	"time"

	"github.com/Amr-9/VanityMint/pkg/generator/solana"
)

var (
	// ErrSearchExhausted is returned when the attempt cap is reached without a match.
	ErrSearchExhausted = errors.New("vanity search exhausted without a match")

	// ErrKeySource means keypair generation kept failing and the search gave up.
	ErrKeySource = errors.New("keypair source failing")
)

// Config holds the configuration for vanity address generation.
type Config struct {
	Prefix      string // Desired address prefix (case-sensitive, empty accepts the first keypair)
	MaxAttempts uint64 // Attempt cap across all workers (0 = unbounded)
	Workers     int    // Number of concurrent workers
}

// Validate checks that the prefix can ever match a Solana address.
func (c *Config) Validate() error {
	return solana.ValidatePrefix(c.Prefix)
}

// Result contains a successfully found vanity keypair.
type Result struct {
	Keypair  solana.Keypair
	Address  string        // Base58 address of Keypair
	Attempts uint64        // Attempts made across all workers when the match was found
	Elapsed  time.Duration // Time from Start to the match
}

// Stats holds real-time performance statistics.
type Stats struct {
	Attempts    uint64  // Total number of keypairs generated
	HashRate    float64 // Current keypairs per second
	ElapsedSecs float64 // Time elapsed since start
}

// Generator defines the contract for address generation backends.
type Generator interface {
	// Start begins the vanity address search with the given configuration.
	// The returned channel receives the result when found. It is closed
	// without a value when the search stops without a match, either because
	// the context was cancelled or MaxAttempts was reached.
	Start(ctx context.Context, config *Config) (<-chan Result, error)

	// Stats returns the current performance statistics.
	// This method is safe to call concurrently from any goroutine.
	Stats() Stats

	// Name returns the implementation name (e.g., "CPU").
	Name() string
}

// Failer is implemented by generators that can stop a search on an internal
// error. Err returns that error for the most recent Start, or nil.
type Failer interface {
	Err() error
}

// StopReason is the error for a result channel closed without a value while
// the context is still live. It is the generator's failure if it reports one,
// otherwise ErrSearchExhausted.
func StopReason(gen Generator) error {
	if f, ok := gen.(Failer); ok {
		if err := f.Err(); err != nil {
			return err
		}
	}
	return ErrSearchExhausted
}

// Search runs gen to completion and waits for its outcome.
// It returns ErrSearchExhausted when the cap is reached and ctx.Err() when
// the context is cancelled first.
func Search(ctx context.Context, gen Generator, config *Config) (Result, error) {
	if err := config.Validate(); err != nil {
		return Result{}, err
	}

	resultChan, err := gen.Start(ctx, config)
	if err != nil {
		return Result{}, err
	}

	select {
	case result, ok := <-resultChan:
		if ok {
			return result, nil
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		return Result{}, StopReason(gen)
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
