// Package solana holds the Solana-specific pieces of the vanity search:
// ed25519 keypairs, their base58 address form and prefix matching.
package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// Keypair is an ed25519 key pair. PrivateKey is the 64-byte seed||pub form
// used by the Solana CLI and SDKs.
type Keypair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// Address returns the base58 encoding of the public key.
func (k Keypair) Address() string {
	return base58.Encode(k.PublicKey)
}

// SecretBase58 returns the 64-byte private key in base58 (Phantom import format).
func (k Keypair) SecretBase58() string {
	return base58.Encode(k.PrivateKey)
}

// IsZero reports whether the keypair carries no key material.
func (k Keypair) IsZero() bool {
	return len(k.PublicKey) == 0 && len(k.PrivateKey) == 0
}

// Wipe zeroes the private key in place.
func (k Keypair) Wipe() {
	for i := range k.PrivateKey {
		k.PrivateKey[i] = 0
	}
}

// KeypairFromSecret rebuilds a keypair from a 64-byte private key.
func KeypairFromSecret(secret []byte) (Keypair, error) {
	if len(secret) != ed25519.PrivateKeySize {
		return Keypair{}, fmt.Errorf("unexpected secret key length: got %d, want %d", len(secret), ed25519.PrivateKeySize)
	}
	priv := ed25519.NewKeyFromSeed(secret[:ed25519.SeedSize])
	pub := priv.Public().(ed25519.PublicKey)
	if !pub.Equal(ed25519.PublicKey(secret[ed25519.SeedSize:])) {
		return Keypair{}, fmt.Errorf("secret key public half does not match its seed")
	}
	return Keypair{PublicKey: pub, PrivateKey: priv}, nil
}

// KeypairFromBase58 decodes a base58 64-byte private key.
func KeypairFromBase58(s string) (Keypair, error) {
	secret, err := base58.Decode(s)
	if err != nil {
		return Keypair{}, fmt.Errorf("decode base58 secret: %w", err)
	}
	return KeypairFromSecret(secret)
}

// KeySource produces fresh keypairs for the search loop.
type KeySource interface {
	NewKeypair() (Keypair, error)
}

// KeySourceFunc adapts a function to KeySource.
type KeySourceFunc func() (Keypair, error)

// NewKeypair calls f.
func (f KeySourceFunc) NewKeypair() (Keypair, error) {
	return f()
}

// RandomKeySource generates keypairs from crypto/rand.
var RandomKeySource KeySource = KeySourceFunc(GenerateKeypair)

// GenerateKeypair returns a new uniformly random keypair.
func GenerateKeypair() (Keypair, error) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{PublicKey: pubKey, PrivateKey: privKey}, nil
}
