package mint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"go.uber.org/zap"
)

// DevnetRPCEndpoint is the default Solana JSON-RPC endpoint.
const DevnetRPCEndpoint = rpc.DevnetRPCEndpoint

// Ledger performs one create-and-mint protocol call.
//
// A non-empty signature returned together with an error means the
// transaction was sent but its outcome is unknown.
type Ledger interface {
	CreateAndMint(ctx context.Context, req Request) (signature string, err error)
}

// StatusChecker reports whether a previously sent transaction landed.
type StatusChecker interface {
	Confirmed(ctx context.Context, signature string) (bool, error)
}

// SolanaLedger submits mint transactions over Solana JSON-RPC.
type SolanaLedger struct {
	rpc            *client.Client
	commitment     rpc.Commitment
	confirmTimeout time.Duration
	pollInterval   time.Duration
	logger         *zap.Logger
}

var (
	_ Ledger        = (*SolanaLedger)(nil)
	_ StatusChecker = (*SolanaLedger)(nil)
)

// LedgerOption configures a SolanaLedger.
type LedgerOption func(*SolanaLedger)

// WithConfirmTimeout bounds how long one attempt waits for confirmation.
func WithConfirmTimeout(d time.Duration) LedgerOption {
	return func(l *SolanaLedger) {
		if d > 0 {
			l.confirmTimeout = d
		}
	}
}

// WithPollInterval sets the signature status polling interval.
func WithPollInterval(d time.Duration) LedgerOption {
	return func(l *SolanaLedger) {
		if d > 0 {
			l.pollInterval = d
		}
	}
}

// WithCommitment sets the commitment a transaction must reach.
func WithCommitment(c rpc.Commitment) LedgerOption {
	return func(l *SolanaLedger) {
		if c != "" {
			l.commitment = c
		}
	}
}

// NewSolanaLedger creates a ledger client for rpcURL (devnet when empty).
func NewSolanaLedger(rpcURL string, logger *zap.Logger, opts ...LedgerOption) *SolanaLedger {
	u := strings.TrimSpace(rpcURL)
	if u == "" {
		u = DevnetRPCEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &SolanaLedger{
		rpc:            client.NewClient(u),
		commitment:     rpc.CommitmentConfirmed,
		confirmTimeout: 60 * time.Second,
		pollInterval:   time.Second,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateAndMint creates the mint account at req.Mint, attaches Metaplex
// metadata, creates the owner's associated token account and mints
// req.Amount into it, all in one transaction.
func (l *SolanaLedger) CreateAndMint(ctx context.Context, req Request) (string, error) {
	if !req.HasAuthority() {
		return "", ErrMissingAuthority
	}

	mintAcc, err := types.AccountFromBytes(req.Mint.PrivateKey)
	if err != nil {
		return "", Permanent(fmt.Errorf("mint keypair: %w", err))
	}
	authority := req.Authority

	owner := authority.PublicKey
	if req.Owner != "" {
		owner = common.PublicKeyFromString(req.Owner)
	}

	ata, _, err := common.FindAssociatedTokenAddress(owner, mintAcc.PublicKey)
	if err != nil {
		return "", Permanent(fmt.Errorf("FindAssociatedTokenAddress: %w", err))
	}
	metadataPubkey, err := token_metadata.GetTokenMetaPubkey(mintAcc.PublicKey)
	if err != nil {
		return "", Permanent(fmt.Errorf("GetTokenMetaPubkey: %w", err))
	}

	mintRent, err := l.rpc.GetMinimumBalanceForRentExemption(ctx, token.MintAccountSize)
	if err != nil {
		return "", fmt.Errorf("GetMinimumBalanceForRentExemption: %w", err)
	}
	recent, err := l.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("GetLatestBlockhash: %w", err)
	}

	tx, err := types.NewTransaction(types.NewTransactionParam{
		Signers: []types.Account{authority, mintAcc},
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        authority.PublicKey,
			RecentBlockhash: recent.Blockhash,
			Instructions:    buildInstructions(req, authority.PublicKey, mintAcc.PublicKey, owner, ata, metadataPubkey, mintRent),
		}),
	})
	if err != nil {
		return "", Permanent(fmt.Errorf("NewTransaction: %w", err))
	}

	sig, err := l.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("SendTransaction: %w", err)
	}

	l.logger.Info("mint transaction sent",
		zap.String("signature", sig),
		zap.String("mint", mintAcc.PublicKey.ToBase58()),
		zap.Uint64("amount", req.Amount),
	)

	if err := l.waitConfirmed(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

// Confirmed reports whether signature reached the configured commitment.
// An on-chain execution error is returned as a permanent error.
func (l *SolanaLedger) Confirmed(ctx context.Context, signature string) (bool, error) {
	status, err := l.rpc.GetSignatureStatus(ctx, signature)
	if err != nil {
		return false, fmt.Errorf("GetSignatureStatus: %w", err)
	}
	if status == nil {
		return false, nil
	}
	if status.Err != nil {
		return false, Permanent(fmt.Errorf("transaction %s failed: %v", signature, status.Err))
	}
	if status.ConfirmationStatus == nil {
		return false, nil
	}
	return reached(*status.ConfirmationStatus, l.commitment), nil
}

func (l *SolanaLedger) waitConfirmed(ctx context.Context, signature string) error {
	ctx, cancel := context.WithTimeout(ctx, l.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		confirmed, err := l.Confirmed(ctx, signature)
		if err != nil && IsPermanent(err) {
			return err
		}
		if confirmed {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s after %s", ErrNotConfirmed, signature, l.confirmTimeout)
		case <-ticker.C:
		}
	}
}

// reached reports whether got is at least as final as want.
func reached(got, want rpc.Commitment) bool {
	rank := map[rpc.Commitment]int{
		rpc.CommitmentProcessed: 1,
		rpc.CommitmentConfirmed: 2,
		rpc.CommitmentFinalized: 3,
	}
	return rank[got] >= rank[want] && rank[got] > 0
}

// buildInstructions assembles the create-and-mint instruction list.
func buildInstructions(req Request, authority, mint, owner, ata, metadata common.PublicKey, mintRent uint64) []types.Instruction {
	return []types.Instruction{
		system.CreateAccount(system.CreateAccountParam{
			From:     authority,
			New:      mint,
			Owner:    common.TokenProgramID,
			Lamports: mintRent,
			Space:    token.MintAccountSize,
		}),
		token.InitializeMint(token.InitializeMintParam{
			Decimals:   req.Decimals,
			Mint:       mint,
			MintAuth:   authority,
			FreezeAuth: &authority,
		}),
		token_metadata.CreateMetadataAccountV3(token_metadata.CreateMetadataAccountV3Param{
			Metadata:                metadata,
			Mint:                    mint,
			MintAuthority:           authority,
			UpdateAuthority:         authority,
			Payer:                   authority,
			UpdateAuthorityIsSigner: true,
			IsMutable:               true,
			Data: token_metadata.DataV2{
				Name:                 req.Name,
				Symbol:               req.Symbol,
				Uri:                  req.URI,
				SellerFeeBasisPoints: req.SellerFeeBasisPoints,
				Creators: &[]token_metadata.Creator{
					{
						Address:  authority,
						Verified: true,
						Share:    100,
					},
				},
			},
		}),
		associated_token_account.CreateAssociatedTokenAccount(associated_token_account.CreateAssociatedTokenAccountParam{
			Funder:                 authority,
			Owner:                  owner,
			Mint:                   mint,
			AssociatedTokenAccount: ata,
		}),
		token.MintTo(token.MintToParam{
			Mint:   mint,
			To:     ata,
			Auth:   authority,
			Amount: req.Amount,
		}),
	}
}
