package solana

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolanaMatcher_Matches(t *testing.T) {
	tests := []struct {
		prefix  string
		address string
		want    bool
	}{
		{"", "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", true},
		{"7x", "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", true},
		{"7X", "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", false},
		{"KX", "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", false},
		{"7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsUx", "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", false},
	}

	for _, tt := range tests {
		got := NewSolanaMatcher(tt.prefix).Matches(tt.address)
		assert.Equal(t, tt.want, got, "prefix=%q", tt.prefix)
	}
}

func TestInvalidBase58Chars(t *testing.T) {
	assert.True(t, IsValidBase58("abc123XYZ"))
	assert.False(t, IsValidBase58("abc0"))
	assert.Equal(t, []rune{'0', 'O', 'I', 'l'}, InvalidBase58Chars("a0bOcIdl"))
	assert.Empty(t, InvalidBase58Chars(""))
}

func TestValidatePrefix(t *testing.T) {
	require.NoError(t, ValidatePrefix(""))
	require.NoError(t, ValidatePrefix("D26"))
	require.Error(t, ValidatePrefix("hello"))
	require.Error(t, ValidatePrefix(strings.Repeat("a", MaxAddressLen+1)))
}

func TestEstimateDifficulty(t *testing.T) {
	assert.Equal(t, uint64(1), EstimateDifficulty(""))
	assert.Equal(t, uint64(58), EstimateDifficulty("A"))
	assert.Equal(t, uint64(58*58*58), EstimateDifficulty("abc"))
	assert.Equal(t, ^uint64(0), EstimateDifficulty(strings.Repeat("z", 20)))
}

func TestKeypairFromSecret_RoundTrip(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)

	restored, err := KeypairFromBase58(kp.SecretBase58())
	require.NoError(t, err)
	assert.Equal(t, kp.Address(), restored.Address())
	assert.Equal(t, kp.PrivateKey, restored.PrivateKey)

	_, err = KeypairFromSecret(kp.PrivateKey[:32])
	require.Error(t, err)

	tampered := append([]byte{}, kp.PrivateKey...)
	tampered[40] ^= 0xff
	_, err = KeypairFromSecret(tampered)
	require.Error(t, err)
}

func TestKeypair_Wipe(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)
	kp.Wipe()
	assert.Equal(t, make([]byte, 64), []byte(kp.PrivateKey))
	assert.False(t, kp.IsZero())
	assert.True(t, Keypair{}.IsZero())
}
