package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Amr-9/VanityMint/pkg/generator"
	"github.com/Amr-9/VanityMint/pkg/generator/cpu"
	"github.com/Amr-9/VanityMint/pkg/mint"
	"github.com/Amr-9/VanityMint/pkg/pinning"
)

type fakePinner struct {
	calls   []string
	failOn  string
	fileURI string
	jsonURI string
}

func (f *fakePinner) PinFile(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	f.calls = append(f.calls, "file:"+name)
	if f.failOn == "file" {
		return "", fmt.Errorf("%w: boom", pinning.ErrUploadFailed)
	}
	return f.fileURI, nil
}

func (f *fakePinner) PinJSON(ctx context.Context, name string, v any) (string, error) {
	f.calls = append(f.calls, "json:"+name)
	if f.failOn == "json" {
		return "", fmt.Errorf("%w: boom", pinning.ErrUploadFailed)
	}
	return f.jsonURI, nil
}

type fakeSubmitter struct {
	calls      int
	last       mint.Request
	submitFunc func(req mint.Request) (mint.Outcome, error)
}

func (f *fakeSubmitter) Submit(ctx context.Context, req mint.Request) (mint.Outcome, error) {
	f.calls++
	f.last = req
	return f.submitFunc(req)
}

type staticSigner struct{ acc types.Account }

func (s staticSigner) Account() types.Account { return s.acc }

type fakeGenerator struct {
	starts    int
	startFunc func(ctx context.Context, cfg *generator.Config) (<-chan generator.Result, error)
}

func (f *fakeGenerator) Start(ctx context.Context, cfg *generator.Config) (<-chan generator.Result, error) {
	f.starts++
	return f.startFunc(ctx, cfg)
}

func (f *fakeGenerator) Stats() generator.Stats { return generator.Stats{} }
func (f *fakeGenerator) Name() string           { return "fake" }

func validInput() Input {
	return Input{
		Name:     "Coffee",
		Symbol:   "CAFE",
		Decimals: 3,
		Supply:   "1000",
		Prefix:   "",
		Icon:     pinning.Icon{Filename: "icon.png", ContentType: "image/png", Body: strings.NewReader("png")},
	}
}

func okSubmitter() *fakeSubmitter {
	return &fakeSubmitter{submitFunc: func(req mint.Request) (mint.Outcome, error) {
		return mint.Outcome{Signature: "5igSig", MintAddress: req.Mint.Address(), Attempts: 1}, nil
	}}
}

func newService(p pinning.Pinner, sub Submitter, gen GeneratorFactory) *TokenService {
	if gen == nil {
		gen = func() generator.Generator { return cpu.NewCPUGenerator(1) }
	}
	return NewTokenService(p, sub, gen, Options{StatsInterval: time.Millisecond}, zap.NewNop())
}

func devnetSession() Session {
	return Session{Signer: staticSigner{acc: types.NewAccount()}, Cluster: "devnet"}
}

func TestCreateToken_Success(t *testing.T) {
	p := &fakePinner{fileURI: "https://gw/ipfs/img", jsonURI: "https://gw/ipfs/meta"}
	sub := okSubmitter()
	sess := devnetSession()

	rec, err := newService(p, sub, nil).CreateToken(context.Background(), sess, validInput())
	require.NoError(t, err)

	assert.Equal(t, []string{"file:icon.png", "json:metadata.json"}, p.calls)
	assert.Equal(t, 1, sub.calls)
	assert.Equal(t, uint64(1_000_000), sub.last.Amount)
	assert.Equal(t, uint8(3), sub.last.Decimals)
	assert.Equal(t, "https://gw/ipfs/meta", sub.last.URI)
	assert.Equal(t, sess.Signer.Account().PublicKey, sub.last.Authority.PublicKey)

	assert.NotEmpty(t, rec.FlowID)
	assert.Equal(t, "5igSig", rec.Signature)
	assert.Equal(t, uint64(1), rec.SearchAttempts)
	assert.Equal(t, "https://explorer.solana.com/tx/5igSig?cluster=devnet", rec.TxURL)
	assert.Equal(t, "https://explorer.solana.com/address/"+rec.MintAddress+"?cluster=devnet", rec.MintURL)
	assert.Equal(t, "https://gw/ipfs/img", rec.ImageURI)
}

func TestCreateToken_PrefixedMint(t *testing.T) {
	sub := okSubmitter()
	in := validInput()
	in.Prefix = "A"

	rec, err := newService(&fakePinner{}, sub, nil).CreateToken(context.Background(), devnetSession(), in)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rec.MintAddress, "A"), rec.MintAddress)
}

func TestCreateToken_ValidationStopsEverything(t *testing.T) {
	tests := map[string]func(in *Input){
		"name":     func(in *Input) { in.Name = " " },
		"symbol":   func(in *Input) { in.Symbol = "TOOLONGSYMBOL" },
		"decimals": func(in *Input) { in.Decimals = 12 },
		"supply":   func(in *Input) { in.Supply = "-1" },
		"prefix":   func(in *Input) { in.Prefix = "0x" },
		"owner":    func(in *Input) { in.Owner = "nope" },
		"icon":     func(in *Input) { in.Icon.Body = nil },
	}

	for field, mutate := range tests {
		t.Run(field, func(t *testing.T) {
			p := &fakePinner{}
			sub := okSubmitter()
			in := validInput()
			mutate(&in)

			_, err := newService(p, sub, nil).CreateToken(context.Background(), devnetSession(), in)
			require.ErrorIs(t, err, ErrValidation)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, field, ve.Field)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.Empty(t, p.calls)
			assert.Zero(t, sub.calls)
		})
	}
}

func TestCreateToken_NoWallet(t *testing.T) {
	p := &fakePinner{}
	sub := okSubmitter()

	for name, sess := range map[string]Session{
		"nil signer":   {Cluster: "devnet"},
		"empty signer": {Signer: staticSigner{}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := newService(p, sub, nil).CreateToken(context.Background(), sess, validInput())
			require.ErrorIs(t, err, ErrPrecondition)
			assert.Equal(t, KindPrecondition, KindOf(err))
			assert.Empty(t, p.calls)
			assert.Zero(t, sub.calls)
		})
	}
}

func TestCreateToken_UploadFailureSkipsSearchAndSubmit(t *testing.T) {
	gen := &fakeGenerator{}
	sub := okSubmitter()

	_, err := newService(&fakePinner{failOn: "json"}, sub, func() generator.Generator { return gen }).
		CreateToken(context.Background(), devnetSession(), validInput())

	require.ErrorIs(t, err, pinning.ErrUploadFailed)
	assert.Equal(t, KindUpload, KindOf(err))
	assert.Zero(t, gen.starts)
	assert.Zero(t, sub.calls)
}

func TestCreateToken_SearchExhaustedSkipsSubmit(t *testing.T) {
	gen := &fakeGenerator{startFunc: func(ctx context.Context, cfg *generator.Config) (<-chan generator.Result, error) {
		ch := make(chan generator.Result)
		close(ch)
		return ch, nil
	}}
	sub := okSubmitter()

	_, err := newService(&fakePinner{}, sub, func() generator.Generator { return gen }).
		CreateToken(context.Background(), devnetSession(), validInput())

	require.ErrorIs(t, err, generator.ErrSearchExhausted)
	assert.Equal(t, KindExhausted, KindOf(err))
	assert.Zero(t, sub.calls)
}

func TestCreateToken_SubmissionFailure(t *testing.T) {
	sub := &fakeSubmitter{submitFunc: func(req mint.Request) (mint.Outcome, error) {
		return mint.Outcome{Attempts: 3}, fmt.Errorf("%w after 3 attempt(s): timeout", mint.ErrSubmissionFailed)
	}}

	_, err := newService(&fakePinner{}, sub, nil).CreateToken(context.Background(), devnetSession(), validInput())
	require.ErrorIs(t, err, mint.ErrSubmissionFailed)
	assert.Equal(t, KindSubmission, KindOf(err))
	assert.Equal(t, "creating the token failed", UserMessage(err))
}

func TestSearchAddress_AppliesLimits(t *testing.T) {
	var got *generator.Config
	gen := &fakeGenerator{startFunc: func(ctx context.Context, cfg *generator.Config) (<-chan generator.Result, error) {
		got = cfg
		ch := make(chan generator.Result)
		close(ch)
		return ch, nil
	}}
	s := NewTokenService(nil, nil, func() generator.Generator { return gen },
		Options{DefaultMaxAttempts: 100, LimitMaxAttempts: 1000, Workers: 3}, nil)

	_, err := s.SearchAddress(context.Background(), "ab", 0)
	require.ErrorIs(t, err, generator.ErrSearchExhausted)
	assert.Equal(t, uint64(100), got.MaxAttempts)
	assert.Equal(t, 3, got.Workers)

	_, _ = s.SearchAddress(context.Background(), "ab", 1_000_000)
	assert.Equal(t, uint64(1000), got.MaxAttempts)
}

func TestSearchAddress_InvalidPrefix(t *testing.T) {
	s := newService(nil, nil, nil)
	_, err := s.SearchAddress(context.Background(), "I0", 10)
	require.ErrorIs(t, err, ErrValidation)
}

func TestSearchAddress_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newService(nil, nil, nil)
	_, err := s.SearchAddress(ctx, "zzzzzzzzzz", 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, KindCancelled, KindOf(err))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("x")))
	assert.Equal(t, KindValidation, KindOf(fmt.Errorf("wrap: %w", mint.ErrInvalidRequest)))
	assert.Equal(t, KindPrecondition, KindOf(mint.ErrMissingAuthority))
	assert.Equal(t, "search_exhausted", KindExhausted.String())
	assert.Equal(t, "name: is required", UserMessage(fieldErr("name", "is required")))
}
