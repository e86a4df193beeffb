package ports

import (
	"context"
	"time"

	"wallet-withdrawal-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WithdrawalRepository defines persistence operations for withdrawals.
// Methods accepting pgx.Tx run inside transaction blocks so state
// transitions commit atomically with ledger mutations.
type WithdrawalRepository interface {
	Create(ctx context.Context, w *domain.Withdrawal) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Withdrawal, error)
	// MarkExecuting commits the PENDING -> AUTHORIZED -> EXECUTING advance,
	// stamping authorized_at. Fails if the row is not PENDING.
	MarkExecuting(ctx context.Context, tx pgx.Tx, id uuid.UUID, authorizedAt time.Time) error
	// Finalize moves a withdrawal to COMPLETED or FAILED, stamping
	// finalized_at. Fails if the row is already terminal.
	Finalize(ctx context.Context, tx pgx.Tx, id uuid.UUID, state domain.WithdrawalState, failureReason *string) error
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)
	// ListUnsettled returns non-terminal withdrawals past the initiation
	// window, ordered oldest first. Backs the reconciliation sweep.
	ListUnsettled(ctx context.Context, olderThan time.Time, limit int) ([]domain.Withdrawal, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]domain.Withdrawal, error)
}

// DebitResult reports which conditional-debit precondition held.
type DebitResult int

const (
	DebitApplied DebitResult = iota
	DebitInsufficientFunds
	DebitAlreadyApplied
)

// CreditResult reports the outcome of a reversal credit.
type CreditResult int

const (
	CreditApplied CreditResult = iota
	CreditAlreadyApplied
)

// LedgerRepository is the sole owner of balance mutation. Debits and
// credits are idempotent per transaction id and atomic per
// (owner_id, asset_id) pair.
type LedgerRepository interface {
	// ConditionalDebit decrements the available balance iff funds suffice
	// and the transaction id has not been debited before. The balance check
	// and decrement are one indivisible operation.
	ConditionalDebit(ctx context.Context, tx pgx.Tx, ownerID, assetID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID) (DebitResult, error)
	// Credit returns funds after a failed execution, keyed by the same
	// transaction id; re-invocation does not credit twice.
	Credit(ctx context.Context, tx pgx.Tx, ownerID, assetID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID) (CreditResult, error)
	GetBalance(ctx context.Context, ownerID, assetID uuid.UUID) (*domain.Balance, error)
}

// AssetRepository resolves known assets.
type AssetRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error)
}

// CredentialRepository reads the stored transaction-PIN hash. The record
// itself is owned by the external auth collaborator.
type CredentialRepository interface {
	GetPINHash(ctx context.Context, ownerID uuid.UUID) (string, error)
}

// ChallengeStore holds single-use PKCE challenges. Consume atomically
// retrieves and deletes a challenge; a second Consume returns nil.
type ChallengeStore interface {
	Put(ctx context.Context, challenge *domain.AuthChallenge, ttl time.Duration) error
	Consume(ctx context.Context, challengeID string) (*domain.AuthChallenge, error)
}

// TaskQueue carries execution tasks to the worker pool with at-least-once
// delivery.
type TaskQueue interface {
	Enqueue(ctx context.Context, transactionID uuid.UUID) error
	// Dequeue blocks up to timeout; ok is false when no task was available.
	Dequeue(ctx context.Context, timeout time.Duration) (id uuid.UUID, ok bool, err error)
}

// LeaseStore grants per-transaction execution leases so no two workers
// process the same withdrawal concurrently. A lease expires after its TTL
// if the holder crashes.
type LeaseStore interface {
	Acquire(ctx context.Context, transactionID uuid.UUID, ttl time.Duration) (bool, error)
	Release(ctx context.Context, transactionID uuid.UUID) error
}

// FailedAttemptStore counts failed authorization attempts per owner for
// the lockout policy.
type FailedAttemptStore interface {
	Increment(ctx context.Context, ownerID uuid.UUID, window time.Duration) (int64, error)
	Count(ctx context.Context, ownerID uuid.UUID) (int64, error)
	Reset(ctx context.Context, ownerID uuid.UUID) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
