// Package authority loads the wallet that pays for and signs mint
// transactions.
package authority

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	smpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

// ErrNotConfigured means no authority source was provided.
var ErrNotConfigured = errors.New("mint authority not configured")

// Signer is a loaded signing wallet.
type Signer struct {
	account types.Account
	source  string
}

// Account returns the account used to sign transactions.
func (s *Signer) Account() types.Account {
	if s == nil {
		return types.Account{}
	}
	return s.account
}

// PublicKey returns the wallet address.
func (s *Signer) PublicKey() common.PublicKey {
	return s.Account().PublicKey
}

// Source describes where the key came from, without secret material.
func (s *Signer) Source() string {
	if s == nil {
		return ""
	}
	return s.source
}

// Config selects the key source. Keypair wins over SecretName.
type Config struct {
	// Keypair is a keypair file path, an inline JSON byte array or a base58
	// encoded 64-byte secret.
	Keypair string
	// SecretName is a Secret Manager version resource, e.g.
	// projects/<id>/secrets/<name>/versions/latest.
	SecretName string
}

// Load resolves cfg into a Signer. It returns ErrNotConfigured when cfg is
// empty.
func Load(ctx context.Context, cfg Config, logger *zap.Logger) (*Signer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		s   *Signer
		err error
	)
	switch {
	case strings.TrimSpace(cfg.Keypair) != "":
		s, err = FromKeypair(cfg.Keypair)
	case strings.TrimSpace(cfg.SecretName) != "":
		s, err = FromSecretManager(ctx, cfg.SecretName)
	default:
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, err
	}

	logger.Info("mint authority loaded",
		zap.String("source", s.source),
		zap.String("pubkey", s.PublicKey().ToBase58()),
	)
	return s, nil
}

// FromKeypair accepts a file path, inline JSON array or base58 secret.
func FromKeypair(value string) (*Signer, error) {
	v := strings.TrimSpace(value)
	if strings.HasPrefix(v, "[") {
		return fromBytesJSON([]byte(v), "inline")
	}
	if _, err := os.Stat(v); err == nil {
		return FromFile(v)
	}
	return FromBase58(v)
}

// FromFile reads a Solana CLI keypair file ([u8;64] JSON).
func FromFile(path string) (*Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}
	return fromBytesJSON(data, "file:"+path)
}

// FromBase58 decodes a base58 64-byte secret key.
func FromBase58(secret string) (*Signer, error) {
	key, err := base58.Decode(strings.TrimSpace(secret))
	if err != nil {
		return nil, fmt.Errorf("decode base58 secret: %w", err)
	}
	if err := checkPair(key); err != nil {
		return nil, err
	}
	acc, err := types.AccountFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("AccountFromBytes: %w", err)
	}
	return &Signer{account: acc, source: "base58"}, nil
}

// FromSecretManager loads a keypair JSON stored in Secret Manager.
func FromSecretManager(ctx context.Context, name string) (*Signer, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("secretmanager.NewClient: %w", err)
	}
	defer client.Close()

	resp, err := client.AccessSecretVersion(ctx, &smpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("access secret version %s: %w", name, err)
	}
	return fromBytesJSON(resp.GetPayload().GetData(), "secretmanager:"+name)
}

func fromBytesJSON(data []byte, source string) (*Signer, error) {
	key, err := DecodeKeypairJSON(data)
	if err != nil {
		return nil, err
	}
	acc, err := types.AccountFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("AccountFromBytes: %w", err)
	}
	return &Signer{account: acc, source: source}, nil
}

// DecodeKeypairJSON parses a Solana CLI keypair, a JSON array of 64
// integers in 0..255, and checks that the public half matches the seed.
func DecodeKeypairJSON(data []byte) ([]byte, error) {
	var ints []int
	if err := json.Unmarshal(bytes.TrimSpace(data), &ints); err != nil {
		return nil, fmt.Errorf("unmarshal keypair json: %w", err)
	}
	if len(ints) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("unexpected secret key length: got %d, want %d", len(ints), ed25519.PrivateKeySize)
	}

	key := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("keypair byte %d out of range: %d", i, v)
		}
		key[i] = byte(v)
	}
	if err := checkPair(key); err != nil {
		return nil, err
	}
	return key, nil
}

func checkPair(key []byte) error {
	if len(key) != ed25519.PrivateKeySize {
		return fmt.Errorf("unexpected secret key length: got %d, want %d", len(key), ed25519.PrivateKeySize)
	}
	derived := ed25519.NewKeyFromSeed(key[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], key[ed25519.SeedSize:]) {
		return errors.New("keypair public key does not match its seed")
	}
	return nil
}
