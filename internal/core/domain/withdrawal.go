package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithdrawalState represents the lifecycle state of a withdrawal.
// States advance monotonically; the two terminal branches are final.
type WithdrawalState string

const (
	WithdrawalStatePending    WithdrawalState = "PENDING"
	WithdrawalStateAuthorized WithdrawalState = "AUTHORIZED"
	WithdrawalStateExecuting  WithdrawalState = "EXECUTING"
	WithdrawalStateCompleted  WithdrawalState = "COMPLETED"
	WithdrawalStateFailed     WithdrawalState = "FAILED"
)

// Quote is the pricing snapshot captured at initiation. It is immutable so
// the rate cannot drift between quoting and execution.
type Quote struct {
	Rate decimal.Decimal `json:"rate"`
	Fee  decimal.Decimal `json:"fee"`
}

// Withdrawal represents a single withdrawal attempt and its lifecycle.
type Withdrawal struct {
	ID            uuid.UUID       `json:"id"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	AssetID       uuid.UUID       `json:"asset_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Destination   Destination     `json:"destination"`
	Quote         Quote           `json:"quote"`
	State         WithdrawalState `json:"state"`
	Narration     string          `json:"narration,omitempty"`
	Attempts      int             `json:"attempts"`
	FailureReason *string         `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	AuthorizedAt  *time.Time      `json:"authorized_at,omitempty"`
	FinalizedAt   *time.Time      `json:"finalized_at,omitempty"`
}

// IsTerminal returns true if the withdrawal is in a final state.
func (w *Withdrawal) IsTerminal() bool {
	return w.State == WithdrawalStateCompleted || w.State == WithdrawalStateFailed
}

// CanTransition reports whether moving to the target state respects the
// PENDING -> AUTHORIZED -> EXECUTING -> COMPLETED | FAILED total order.
// FAILED is reachable from any non-terminal state (authorization failure,
// execution failure, reconciliation timeout).
func (w *Withdrawal) CanTransition(target WithdrawalState) bool {
	if w.IsTerminal() {
		return false
	}
	switch target {
	case WithdrawalStateAuthorized:
		return w.State == WithdrawalStatePending
	case WithdrawalStateExecuting:
		return w.State == WithdrawalStateAuthorized
	case WithdrawalStateCompleted:
		return w.State == WithdrawalStateExecuting
	case WithdrawalStateFailed:
		return true
	default:
		return false
	}
}
