// Package mint submits create-and-mint transactions for fungible SPL tokens
// carrying Metaplex metadata, with a bounded fixed-delay retry policy.
package mint

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"

	"github.com/Amr-9/VanityMint/pkg/generator/solana"
)

// Metaplex Token Metadata field limits.
const (
	MaxNameLen   = 32
	MaxSymbolLen = 10
	MaxURILen    = 200
)

// MaxDecimals is the largest precision accepted for a mint.
// SPL allows up to 255 but wallets and explorers assume at most 9.
const MaxDecimals = 9

// Request is a fully populated create-and-mint request.
type Request struct {
	Name                 string
	Symbol               string
	URI                  string         // Metadata JSON URI returned by the pinning service
	Decimals             uint8          // Fractional digits of the token
	Amount               uint64         // Raw on-chain amount (supply * 10^Decimals)
	Owner                string         // Recipient address; empty means the authority
	SellerFeeBasisPoints uint16         // Royalty in basis points (0 for fungible tokens)
	Mint                 solana.Keypair // Vanity keypair that becomes the mint account
	Authority            types.Account  // Fee payer, mint authority and update authority
}

// HasAuthority reports whether a signing authority is attached.
func (r *Request) HasAuthority() bool {
	return len(r.Authority.PrivateKey) > 0
}

// Validate checks the request before any network call is made.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return invalid("name is required")
	}
	if len(r.Name) > MaxNameLen {
		return invalid("name exceeds %d bytes", MaxNameLen)
	}
	if strings.TrimSpace(r.Symbol) == "" {
		return invalid("symbol is required")
	}
	if len(r.Symbol) > MaxSymbolLen {
		return invalid("symbol exceeds %d bytes", MaxSymbolLen)
	}
	if len(r.URI) > MaxURILen {
		return invalid("uri exceeds %d bytes", MaxURILen)
	}
	if r.Decimals > MaxDecimals {
		return invalid("decimals must be between 0 and %d", MaxDecimals)
	}
	if r.SellerFeeBasisPoints > 10000 {
		return invalid("seller fee basis points must be at most 10000")
	}
	if r.Mint.IsZero() || len(r.Mint.PrivateKey) != 64 {
		return invalid("mint keypair is required")
	}
	if r.Owner != "" {
		if err := ValidateAddress(r.Owner); err != nil {
			return invalid("owner: %v", err)
		}
	}
	return nil
}

// ValidateAddress checks that s is the base58 form of a 32-byte public key.
func ValidateAddress(s string) error {
	b, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid base58 address: %w", err)
	}
	if len(b) != 32 {
		return fmt.Errorf("address decodes to %d bytes, want 32", len(b))
	}
	return nil
}

// ScaleAmount converts a display supply such as "1000" or "2.5" into raw
// units for the given decimals. The supply must be positive, carry no more
// fractional digits than decimals, and fit in a uint64 once scaled.
func ScaleAmount(supply string, decimals uint8) (uint64, error) {
	s := strings.TrimSpace(supply)
	if s == "" {
		return 0, invalid("supply is required")
	}
	if decimals > MaxDecimals {
		return 0, invalid("decimals must be between 0 and %d", MaxDecimals)
	}

	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return 0, invalid("supply %q is not a number", supply)
	}
	if r.Sign() <= 0 {
		return 0, invalid("supply must be greater than zero")
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))
	if !r.IsInt() {
		return 0, invalid("supply %q has more than %d fractional digits", supply, decimals)
	}

	n := r.Num()
	if !n.IsUint64() {
		return 0, invalid("supply %q overflows the raw amount at %d decimals", supply, decimals)
	}
	return n.Uint64(), nil
}

// Outcome is the result of a successful submission.
type Outcome struct {
	Signature   string // Transaction signature (base58)
	MintAddress string // Address of the new mint account
	Attempts    int    // Ledger calls made, including the successful one
}
