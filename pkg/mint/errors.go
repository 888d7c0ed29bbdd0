package mint

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for mint operations.
var (
	// ErrInvalidRequest marks a request rejected before any network call.
	ErrInvalidRequest = errors.New("invalid mint request")

	// ErrMissingAuthority means no signing authority was attached.
	ErrMissingAuthority = errors.New("mint authority not available")

	// ErrSubmissionFailed is the terminal error after the retry budget is spent
	// or a permanent failure is hit.
	ErrSubmissionFailed = errors.New("mint submission failed")

	// ErrPermanent marks a ledger failure that retrying cannot fix.
	ErrPermanent = errors.New("permanent ledger failure")

	// ErrNotConfirmed means the transaction was sent but did not reach the
	// requested commitment before the confirmation timeout.
	ErrNotConfirmed = errors.New("transaction not confirmed")
)

// Substrings of RPC and simulation errors that no retry can fix.
var permanentMarkers = []string{
	"insufficient funds",
	"insufficient lamports",
	"no record of a prior credit",
	"already in use",
	"invalid account data",
	"custom program error",
}

// SubmissionError is returned by Submitter.Submit when no attempt succeeded.
// LastSignature is set when at least one transaction reached the network, in
// which case the mint may still land after the call returns.
type SubmissionError struct {
	Attempts      int
	LastSignature string
	Err           error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %v", ErrSubmissionFailed, e.Attempts, e.Err)
}

// Unwrap exposes both ErrSubmissionFailed and the last ledger error.
func (e *SubmissionError) Unwrap() []error {
	return []error{ErrSubmissionFailed, e.Err}
}

// SentSignature returns the signature of a transaction that was sent during a
// failed submission, if err carries one.
func SentSignature(err error) (string, bool) {
	var se *SubmissionError
	if errors.As(err, &se) && se.LastSignature != "" {
		return se.LastSignature, true
	}
	return "", false
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Permanent wraps err so the submitter stops retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsPermanent classifies err as non-retryable.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermanent) || errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrMissingAuthority) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
