package mint

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Amr-9/VanityMint/pkg/generator/solana"
)

// fakeLedger records calls and delegates to createFunc.
type fakeLedger struct {
	calls      int
	createFunc func(call int) (string, error)
}

func (f *fakeLedger) CreateAndMint(ctx context.Context, req Request) (string, error) {
	f.calls++
	return f.createFunc(f.calls)
}

// checkingLedger also implements StatusChecker.
type checkingLedger struct {
	fakeLedger
	confirmed map[string]bool
	checks    int
}

func (c *checkingLedger) Confirmed(ctx context.Context, signature string) (bool, error) {
	c.checks++
	return c.confirmed[signature], nil
}

func validRequest(t *testing.T) Request {
	t.Helper()
	kp, err := solana.GenerateKeypair()
	require.NoError(t, err)
	return Request{
		Name:      "Coffee",
		Symbol:    "CAFE",
		URI:       "https://gateway.example/ipfs/Qm123",
		Decimals:  3,
		Amount:    1_000_000,
		Mint:      kp,
		Authority: types.NewAccount(),
	}
}

func newTestSubmitter(ledger Ledger, attempts int) *Submitter {
	return NewSubmitter(ledger, zap.NewNop(), WithAttempts(attempts), WithMinDelay(time.Millisecond))
}

func TestSubmit_FailsTwiceThenSucceeds(t *testing.T) {
	ledger := &fakeLedger{createFunc: func(call int) (string, error) {
		if call < 3 {
			return "", errors.New("blockhash not found")
		}
		return "sig-3", nil
	}}

	req := validRequest(t)
	out, err := newTestSubmitter(ledger, 5).Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 3, ledger.calls)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, "sig-3", out.Signature)
	assert.Equal(t, req.Mint.Address(), out.MintAddress)
}

func TestSubmit_AlwaysFails(t *testing.T) {
	ledger := &fakeLedger{createFunc: func(int) (string, error) {
		return "", errors.New("connection reset by peer")
	}}

	out, err := newTestSubmitter(ledger, 3).Submit(context.Background(), validRequest(t))
	require.ErrorIs(t, err, ErrSubmissionFailed)

	assert.Equal(t, 3, ledger.calls)
	assert.Equal(t, 3, out.Attempts)
	assert.Empty(t, out.Signature)

	_, sent := SentSignature(err)
	assert.False(t, sent, "nothing reached the network")
}

func TestSubmit_ExhaustedAfterSendReportsLastSignature(t *testing.T) {
	ledger := &checkingLedger{confirmed: map[string]bool{}}
	ledger.createFunc = func(call int) (string, error) {
		if call == 3 {
			return "", errors.New("connection reset by peer")
		}
		return fmt.Sprintf("sig-%d", call), ErrNotConfirmed
	}

	out, err := newTestSubmitter(ledger, 3).Submit(context.Background(), validRequest(t))
	require.ErrorIs(t, err, ErrSubmissionFailed)
	assert.NotErrorIs(t, err, ErrNotConfirmed)
	assert.Empty(t, out.Signature)

	sig, sent := SentSignature(err)
	require.True(t, sent)
	assert.Equal(t, "sig-2", sig)

	var se *SubmissionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 3, se.Attempts)
}

func TestSubmit_KthAttemptSucceeds(t *testing.T) {
	const budget = 5
	for k := 1; k <= budget; k++ {
		k := k
		ledger := &fakeLedger{createFunc: func(call int) (string, error) {
			if call < k {
				return "", errors.New("timeout")
			}
			return "ok", nil
		}}

		_, err := newTestSubmitter(ledger, budget).Submit(context.Background(), validRequest(t))
		require.NoError(t, err, "k=%d", k)
		assert.Equal(t, k, ledger.calls, "k=%d", k)
	}
}

func TestSubmit_PermanentErrorStopsRetrying(t *testing.T) {
	ledger := &fakeLedger{createFunc: func(int) (string, error) {
		return "", errors.New("Transaction simulation failed: Attempt to debit an account but found no record of a prior credit.")
	}}

	_, err := newTestSubmitter(ledger, 5).Submit(context.Background(), validRequest(t))
	require.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Equal(t, 1, ledger.calls)
}

func TestSubmit_MissingAuthorityIsNotRetried(t *testing.T) {
	ledger := &fakeLedger{createFunc: func(int) (string, error) { return "sig", nil }}

	req := validRequest(t)
	req.Authority = types.Account{}

	_, err := newTestSubmitter(ledger, 5).Submit(context.Background(), req)
	require.ErrorIs(t, err, ErrMissingAuthority)
	assert.NotErrorIs(t, err, ErrSubmissionFailed)
	assert.Equal(t, 0, ledger.calls)
}

func TestSubmit_InvalidRequestMakesNoCalls(t *testing.T) {
	ledger := &fakeLedger{createFunc: func(int) (string, error) { return "sig", nil }}

	req := validRequest(t)
	req.Name = "  "

	_, err := newTestSubmitter(ledger, 5).Submit(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, 0, ledger.calls)
}

func TestSubmit_LateConfirmationIsNotResubmitted(t *testing.T) {
	ledger := &checkingLedger{confirmed: map[string]bool{"sig-1": true}}
	ledger.createFunc = func(call int) (string, error) {
		return "sig-1", ErrNotConfirmed
	}

	out, err := newTestSubmitter(ledger, 5).Submit(context.Background(), validRequest(t))
	require.NoError(t, err)

	assert.Equal(t, 1, ledger.calls)
	assert.Equal(t, 1, ledger.checks)
	assert.Equal(t, "sig-1", out.Signature)
}

func TestSubmit_UnconfirmedSignatureIsRetried(t *testing.T) {
	ledger := &checkingLedger{confirmed: map[string]bool{}}
	ledger.createFunc = func(call int) (string, error) {
		if call == 1 {
			return "sig-1", ErrNotConfirmed
		}
		return "sig-2", nil
	}

	out, err := newTestSubmitter(ledger, 5).Submit(context.Background(), validRequest(t))
	require.NoError(t, err)

	assert.Equal(t, 2, ledger.calls)
	assert.Equal(t, "sig-2", out.Signature)
}

func TestSubmit_ContextCancelledBetweenRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ledger := &fakeLedger{createFunc: func(int) (string, error) {
		cancel()
		return "", errors.New("node is behind")
	}}

	s := NewSubmitter(ledger, zap.NewNop(), WithAttempts(5), WithMinDelay(time.Hour))
	_, err := s.Submit(ctx, validRequest(t))
	require.ErrorIs(t, err, ErrSubmissionFailed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, ledger.calls)
}

func TestNewSubmitter_Defaults(t *testing.T) {
	s := NewSubmitter(&fakeLedger{}, nil, WithAttempts(0), WithMinDelay(-time.Second))
	assert.Equal(t, DefaultAttempts, s.Attempts())
	assert.Equal(t, DefaultMinDelay, s.minDelay)
}
