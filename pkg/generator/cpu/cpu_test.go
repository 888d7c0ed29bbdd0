package cpu

import (
	"context"
	"crypto/ed25519"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/VanityMint/pkg/generator"
	"github.com/Amr-9/VanityMint/pkg/generator/solana"
)

// keypairWithAddress builds a keypair whose Address() is exactly addr.
// Only the public half is meaningful.
func keypairWithAddress(t *testing.T, addr string) solana.Keypair {
	t.Helper()
	pub, err := base58.Decode(addr)
	require.NoError(t, err)
	return solana.Keypair{PublicKey: ed25519.PublicKey(pub), PrivateKey: make(ed25519.PrivateKey, ed25519.PrivateKeySize)}
}

// sequenceSource replays keypairs in order, then repeats the last one.
type sequenceSource struct {
	mu    sync.Mutex
	keys  []solana.Keypair
	calls int
}

func (s *sequenceSource) NewKeypair() (solana.Keypair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.keys) {
		i = len(s.keys) - 1
	}
	s.calls++
	return s.keys[i], nil
}

func TestSearch_SecondKeypairMatches(t *testing.T) {
	first := keypairWithAddress(t, "XY"+strings.Repeat("2", 40))
	second := keypairWithAddress(t, "AB"+strings.Repeat("2", 40))
	src := &sequenceSource{keys: []solana.Keypair{first, second}}

	gen := NewCPUGeneratorWithSource(1, src)
	result, err := generator.Search(context.Background(), gen, &generator.Config{Prefix: "AB"})
	require.NoError(t, err)

	assert.Equal(t, uint64(2), result.Attempts)
	assert.Equal(t, second.Address(), result.Address)
	assert.True(t, strings.HasPrefix(result.Address, "AB"))
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, uint64(2), gen.Stats().Attempts)
}

func TestSearch_EmptyPrefixReturnsFirstKeypair(t *testing.T) {
	gen := NewCPUGenerator(1)
	result, err := generator.Search(context.Background(), gen, &generator.Config{})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), result.Attempts)
	assert.Len(t, result.Keypair.PrivateKey, ed25519.PrivateKeySize)
	assert.Equal(t, result.Keypair.Address(), result.Address)
}

func TestSearch_RealKeysMatchPrefix(t *testing.T) {
	// Single-character prefixes resolve in ~58 attempts on average.
	for _, prefix := range []string{"A", "z", "9"} {
		gen := NewCPUGenerator(2)
		result, err := generator.Search(context.Background(), gen, &generator.Config{Prefix: prefix})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(result.Address, prefix), "address %s lacks prefix %s", result.Address, prefix)

		// The accepted secret signs for the returned address.
		msg := []byte("vanity")
		sig := ed25519.Sign(result.Keypair.PrivateKey, msg)
		assert.True(t, ed25519.Verify(result.Keypair.PublicKey, msg, sig))
	}
}

func TestSearch_ExhaustedAtCap(t *testing.T) {
	never := keypairWithAddress(t, "XY"+strings.Repeat("2", 40))
	src := &sequenceSource{keys: []solana.Keypair{never}}

	gen := NewCPUGeneratorWithSource(4, src)
	_, err := generator.Search(context.Background(), gen, &generator.Config{Prefix: "AB", MaxAttempts: 100})
	require.ErrorIs(t, err, generator.ErrSearchExhausted)

	assert.Equal(t, uint64(100), gen.Stats().Attempts)
	assert.Equal(t, 100, src.calls)
}

func TestSearch_Cancelled(t *testing.T) {
	gen := NewCPUGenerator(2)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// A full-length prefix is valid but practically unreachable.
	_, err := generator.Search(ctx, gen, &generator.Config{Prefix: strings.Repeat("z", 12)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Greater(t, gen.Stats().Attempts, uint64(0))
}

func TestSearch_InvalidPrefix(t *testing.T) {
	gen := NewCPUGenerator(1)
	_, err := generator.Search(context.Background(), gen, &generator.Config{Prefix: "0OIl"})

	var invalid *solana.InvalidBase58Error
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, '0', invalid.Char)
}

func TestSearch_NeverRepeatsSecrets(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		result, err := generator.Search(context.Background(), NewCPUGenerator(1), &generator.Config{})
		require.NoError(t, err)

		secret := string(result.Keypair.PrivateKey)
		assert.False(t, seen[secret], "secret repeated on iteration %d", i)
		seen[secret] = true
	}
}

func TestStart_KeygenErrorsCountAsAttempts(t *testing.T) {
	src := solana.KeySourceFunc(func() (solana.Keypair, error) {
		return solana.Keypair{}, errors.New("entropy unavailable")
	})
	gen := NewCPUGeneratorWithSource(1, src)

	_, err := generator.Search(context.Background(), gen, &generator.Config{MaxAttempts: 5})
	require.ErrorIs(t, err, generator.ErrSearchExhausted)
	assert.Equal(t, uint64(5), gen.Stats().Attempts)
}

func TestStart_PersistentKeygenFailureStopsUnboundedSearch(t *testing.T) {
	src := solana.KeySourceFunc(func() (solana.Keypair, error) {
		return solana.Keypair{}, errors.New("entropy unavailable")
	})
	gen := NewCPUGeneratorWithSource(4, src)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := generator.Search(ctx, gen, &generator.Config{})
	require.ErrorIs(t, err, generator.ErrKeySource)
	assert.NotErrorIs(t, err, generator.ErrSearchExhausted)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "entropy unavailable")
	assert.Equal(t, err, gen.Err())
}

func TestStart_IntermittentKeygenFailureKeepsSearching(t *testing.T) {
	var calls atomic.Int64
	src := solana.KeySourceFunc(func() (solana.Keypair, error) {
		// Fails in runs just short of the limit.
		if calls.Add(1)%MaxKeygenFailures != 0 {
			return solana.Keypair{}, errors.New("entropy unavailable")
		}
		return solana.GenerateKeypair()
	})
	gen := NewCPUGeneratorWithSource(1, src)

	result, err := generator.Search(context.Background(), gen, &generator.Config{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Address)
	assert.NoError(t, gen.Err())
}

func TestStart_ResetsFailureBetweenSearches(t *testing.T) {
	var broken atomic.Bool
	broken.Store(true)
	src := solana.KeySourceFunc(func() (solana.Keypair, error) {
		if broken.Load() {
			return solana.Keypair{}, errors.New("entropy unavailable")
		}
		return solana.GenerateKeypair()
	})
	gen := NewCPUGeneratorWithSource(1, src)

	_, err := generator.Search(context.Background(), gen, &generator.Config{})
	require.ErrorIs(t, err, generator.ErrKeySource)

	broken.Store(false)
	_, err = generator.Search(context.Background(), gen, &generator.Config{})
	require.NoError(t, err)
	assert.NoError(t, gen.Err())
}

func TestName(t *testing.T) {
	assert.Equal(t, "CPU", NewCPUGenerator(0).Name())
}
