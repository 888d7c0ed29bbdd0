// Package keystore writes found keypairs to disk, either in the Solana CLI
// keypair format or sealed with a passphrase.
package keystore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	"github.com/Amr-9/VanityMint/pkg/generator/solana"
)

// ErrWrongPassphrase is returned when a sealed keypair cannot be opened.
var ErrWrongPassphrase = errors.New("keystore: wrong passphrase or corrupted file")

const fileVersion = 1

// scrypt cost parameters for new files. Existing files carry their own.
var (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// WriteKeypair writes kp as a Solana CLI keypair file (JSON array of the 64
// secret key bytes), readable only by the owner.
func WriteKeypair(path string, kp solana.Keypair) error {
	if kp.IsZero() {
		return errors.New("keystore: empty keypair")
	}
	data, err := json.Marshal(byteInts(kp.PrivateKey))
	if err != nil {
		return err
	}
	return writePrivate(path, data)
}

// ReadKeypair reads a Solana CLI keypair file.
func ReadKeypair(path string) (solana.Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return solana.Keypair{}, fmt.Errorf("read keypair: %w", err)
	}
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return solana.Keypair{}, fmt.Errorf("parse keypair: %w", err)
	}
	secret := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return solana.Keypair{}, fmt.Errorf("parse keypair: byte %d out of range", i)
		}
		secret[i] = byte(v)
	}
	return solana.KeypairFromSecret(secret)
}

// sealedFile is the on-disk form of an encrypted keypair.
type sealedFile struct {
	Version    int    `json:"version"`
	Address    string `json:"address"`
	KDF        string `json:"kdf"`
	N          int    `json:"n"`
	R          int    `json:"r"`
	P          int    `json:"p"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// WriteEncrypted seals kp's secret key with a key derived from passphrase
// (scrypt) using NaCl secretbox. The address is stored in clear.
func WriteEncrypted(path string, kp solana.Keypair, passphrase []byte) error {
	if kp.IsZero() {
		return errors.New("keystore: empty keypair")
	}
	if len(passphrase) == 0 {
		return errors.New("keystore: empty passphrase")
	}

	f := sealedFile{
		Version: fileVersion,
		Address: kp.Address(),
		KDF:     "scrypt",
		N:       scryptN,
		R:       scryptR,
		P:       scryptP,
		Salt:    make([]byte, 16),
		Nonce:   make([]byte, 24),
	}
	if _, err := rand.Read(f.Salt); err != nil {
		return fmt.Errorf("keystore: salt: %w", err)
	}
	if _, err := rand.Read(f.Nonce); err != nil {
		return fmt.Errorf("keystore: nonce: %w", err)
	}

	key, err := deriveKey(passphrase, f)
	if err != nil {
		return err
	}
	var nonce [24]byte
	copy(nonce[:], f.Nonce)
	f.Ciphertext = secretbox.Seal(nil, kp.PrivateKey, &nonce, key)

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return writePrivate(path, data)
}

// ReadEncrypted opens a file written by WriteEncrypted.
func ReadEncrypted(path string, passphrase []byte) (solana.Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return solana.Keypair{}, fmt.Errorf("read keystore: %w", err)
	}

	var f sealedFile
	if err := json.Unmarshal(data, &f); err != nil {
		return solana.Keypair{}, fmt.Errorf("parse keystore: %w", err)
	}
	if f.Version != fileVersion || f.KDF != "scrypt" {
		return solana.Keypair{}, fmt.Errorf("keystore: unsupported format v%d/%s", f.Version, f.KDF)
	}
	if len(f.Nonce) != 24 {
		return solana.Keypair{}, fmt.Errorf("keystore: bad nonce length %d", len(f.Nonce))
	}

	key, err := deriveKey(passphrase, f)
	if err != nil {
		return solana.Keypair{}, err
	}
	var nonce [24]byte
	copy(nonce[:], f.Nonce)

	secret, ok := secretbox.Open(nil, f.Ciphertext, &nonce, key)
	if !ok {
		return solana.Keypair{}, ErrWrongPassphrase
	}

	kp, err := solana.KeypairFromSecret(secret)
	if err != nil {
		return solana.Keypair{}, fmt.Errorf("keystore: %w", err)
	}
	if f.Address != "" && kp.Address() != f.Address {
		return solana.Keypair{}, fmt.Errorf("keystore: address mismatch")
	}
	return kp, nil
}

func deriveKey(passphrase []byte, f sealedFile) (*[32]byte, error) {
	k, err := scrypt.Key(passphrase, f.Salt, f.N, f.R, f.P, 32)
	if err != nil {
		return nil, fmt.Errorf("keystore: derive key: %w", err)
	}
	var key [32]byte
	copy(key[:], k)
	return &key, nil
}

func writePrivate(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("keystore: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("keystore: write %s: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, 0o600)
}

func byteInts(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}
