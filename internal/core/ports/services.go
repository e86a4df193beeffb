package ports

import (
	"context"
	"encoding/json"
	"time"

	"wallet-withdrawal-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PINHasher handles transaction-PIN hashing (Argon2id).
type PINHasher interface {
	Hash(pin string) (string, error)
	Verify(pin string, hash string) (bool, error)
}

// TokenService handles session JWT operations. Tokens are minted by the
// auth collaborator; this core only validates them.
type TokenService interface {
	Generate(ownerID uuid.UUID, deviceID string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed session claims: the resolved owner and the
// device the session is bound to.
type TokenClaims struct {
	OwnerID  uuid.UUID
	DeviceID string
}

// PricingOracle fetches a conversion rate and network fee quote for an
// asset/amount pair. Pure request/response, no state.
type PricingOracle interface {
	Quote(ctx context.Context, assetID uuid.UUID, amount decimal.Decimal, currency string) (*domain.Quote, error)
}

// TransferOutcome classifies the result of an external transfer call.
type TransferOutcome int

const (
	// TransferIndeterminate means the rail did not confirm either way
	// (timeout, 5xx). The caller must retry, never treat as failed.
	TransferIndeterminate TransferOutcome = iota
	TransferSucceeded
	TransferFailed
)

// TransferResult carries the rail's answer plus its external reference.
type TransferResult struct {
	Outcome   TransferOutcome
	Reference string
	Reason    string
}

// BankRail performs fiat payouts to bank accounts.
type BankRail interface {
	Transfer(ctx context.Context, transactionID uuid.UUID, dest domain.BankTransferData, amount decimal.Decimal, currency, narration string) (TransferResult, error)
}

// ChainBroadcaster performs on-chain transfers to external wallets.
type ChainBroadcaster interface {
	Broadcast(ctx context.Context, transactionID uuid.UUID, dest domain.ExternalWalletData, assetID uuid.UUID, amount decimal.Decimal) (TransferResult, error)
}

// TerminalNotification is delivered on COMPLETED/FAILED only, never on
// intermediate states.
type TerminalNotification struct {
	TransactionID      uuid.UUID              `json:"transaction_id"`
	OwnerID            uuid.UUID              `json:"owner_id"`
	State              domain.WithdrawalState `json:"state"`
	Amount             decimal.Decimal        `json:"amount"`
	AssetID            uuid.UUID              `json:"asset_id"`
	DestinationSummary string                 `json:"destination_summary"`
	Reason             string                 `json:"reason,omitempty"`
}

// Notifier informs downstream consumers of terminal state transitions.
type Notifier interface {
	Notify(ctx context.Context, n TerminalNotification) error
}

// --- Service Ports (Business Logic) ---

// InitiateRequest holds validated input for withdrawal initiation.
type InitiateRequest struct {
	OwnerID          uuid.UUID
	AssetID          uuid.UUID
	Amount           decimal.Decimal
	Currency         string
	Narration        string
	DestinationEvent string
	DestinationData  json.RawMessage
}

// InitiateResult is returned to the client after a PENDING withdrawal is
// created. No funds have been touched yet.
type InitiateResult struct {
	TransactionID uuid.UUID
	Quote         domain.Quote
}

// Authorization is the client-supplied proof accompanying an Authorize
// call. ChallengeID/CodeVerifier are set when the session requires PKCE.
type Authorization struct {
	PIN          string
	ChallengeID  string
	CodeVerifier string
}

// AuthorizeRequest identifies the withdrawal being authorized by its owner.
type AuthorizeRequest struct {
	OwnerID       uuid.UUID
	TransactionID uuid.UUID
	Authorization Authorization
}

// WithdrawRequest is the single-phase convenience flow: initiation and
// authorization in one call.
type WithdrawRequest struct {
	InitiateRequest
	Authorization Authorization
}

// WithdrawalService is the core withdrawal state machine.
type WithdrawalService interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	// Authorize verifies credentials, debits the ledger exactly once and
	// enqueues execution. Acceptance is asynchronous (202-style).
	Authorize(ctx context.Context, req AuthorizeRequest) error
	Withdraw(ctx context.Context, req WithdrawRequest) (*InitiateResult, error)
	GetWithdrawal(ctx context.Context, ownerID, id uuid.UUID) (*domain.Withdrawal, error)
	ListWithdrawals(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]domain.Withdrawal, error)
	GetBalance(ctx context.Context, ownerID, assetID uuid.UUID) (*domain.Balance, *domain.Asset, error)
}

// AuthorizationVerifier validates authorization proofs. Stateless given the
// stored credential hash and challenge record.
type AuthorizationVerifier interface {
	// Verify checks the PIN and, when a challenge id is supplied, the PKCE
	// verifier. The challenge is consumed on this call, success or failure.
	Verify(ctx context.Context, ownerID uuid.UUID, auth Authorization) error
	CreateChallenge(ctx context.Context, codeChallenge string) (*domain.AuthChallenge, error)
}
