package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Amr-9/VanityMint/pkg/generator"
	"github.com/Amr-9/VanityMint/pkg/mint"
	"github.com/Amr-9/VanityMint/pkg/pinning"
)

var (
	// ErrValidation marks user input that failed validation.
	ErrValidation = errors.New("validation failed")

	// ErrPrecondition means the session cannot run the flow, e.g. no
	// signing wallet is connected.
	ErrPrecondition = errors.New("precondition failed")
)

// ValidationError names the offending form field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Is lets errors.Is match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func fieldErr(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Kind classifies a flow error for callers that need a coarse category.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindPrecondition
	KindExhausted
	KindUpload
	KindSubmission
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition"
	case KindExhausted:
		return "search_exhausted"
	case KindUpload:
		return "upload_failed"
	case KindSubmission:
		return "submission_failed"
	case KindCancelled:
		return "cancelled"
	default:
		return "internal"
	}
}

// KindOf classifies err. Submission failures caused by cancellation are
// reported as KindSubmission since a transaction may already be in flight.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrValidation), errors.Is(err, mint.ErrInvalidRequest):
		return KindValidation
	case errors.Is(err, ErrPrecondition), errors.Is(err, mint.ErrMissingAuthority):
		return KindPrecondition
	case errors.Is(err, generator.ErrSearchExhausted):
		return KindExhausted
	case errors.Is(err, pinning.ErrUploadFailed):
		return KindUpload
	case errors.Is(err, mint.ErrSubmissionFailed):
		return KindSubmission
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindInternal
	}
}

// UserMessage returns a short message safe to show to an end user.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindValidation:
		var ve *ValidationError
		if errors.As(err, &ve) {
			return ve.Error()
		}
		return "the request is invalid"
	case KindPrecondition:
		return "connect a wallet first"
	case KindExhausted:
		return "no matching address found within the attempt limit; try a shorter prefix"
	case KindUpload:
		return "uploading the token assets failed"
	case KindSubmission:
		return "creating the token failed"
	case KindCancelled:
		return "the operation was cancelled"
	default:
		return "internal error"
	}
}
