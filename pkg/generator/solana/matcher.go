package solana

import (
	"fmt"
	"strings"
)

// Base58 alphabet (Bitcoin/Solana style - excludes 0, O, I, l)
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// MaxAddressLen is the longest base58 form of a 32-byte public key.
const MaxAddressLen = 44

// SolanaMatcher handles prefix matching for Solana addresses.
// Solana addresses are Base58-encoded and case-sensitive.
type SolanaMatcher struct {
	prefix string
}

// NewSolanaMatcher creates a new Solana address matcher.
func NewSolanaMatcher(prefix string) *SolanaMatcher {
	return &SolanaMatcher{prefix: prefix}
}

// Prefix returns the pattern the matcher was built with.
func (m *SolanaMatcher) Prefix() string {
	return m.prefix
}

// Matches reports whether address starts with the prefix.
// An empty prefix matches every address.
func (m *SolanaMatcher) Matches(address string) bool {
	return strings.HasPrefix(address, m.prefix)
}

// IsValidBase58 checks if a string contains only valid Base58 characters.
// Base58 excludes: 0 (zero), O (uppercase o), I (uppercase i), l (lowercase L)
func IsValidBase58(s string) bool {
	for _, c := range s {
		if !strings.ContainsRune(base58Alphabet, c) {
			return false
		}
	}
	return true
}

// InvalidBase58Chars returns any invalid Base58 characters in the input.
// Useful for providing helpful error messages to users.
func InvalidBase58Chars(s string) []rune {
	var invalid []rune
	for _, c := range s {
		if !strings.ContainsRune(base58Alphabet, c) {
			invalid = append(invalid, c)
		}
	}
	return invalid
}

// ValidatePrefix returns an error when prefix can never match an address.
func ValidatePrefix(prefix string) error {
	if invalid := InvalidBase58Chars(prefix); len(invalid) > 0 {
		return &InvalidBase58Error{Char: invalid[0]}
	}
	if len(prefix) > MaxAddressLen {
		return fmt.Errorf("prefix longer than %d characters can never match", MaxAddressLen)
	}
	return nil
}

// EstimateDifficulty returns the expected number of attempts for prefix,
// 58^len(prefix), saturating at the maximum uint64.
func EstimateDifficulty(prefix string) uint64 {
	difficulty := uint64(1)
	for i := 0; i < len(prefix); i++ {
		if difficulty > ^uint64(0)/58 {
			return ^uint64(0)
		}
		difficulty *= 58
	}
	return difficulty
}

// InvalidBase58Error represents an invalid Base58 character error
type InvalidBase58Error struct {
	Char rune
}

func (e *InvalidBase58Error) Error() string {
	return "invalid Base58 character: " + string(e.Char)
}
