package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryDirection distinguishes the original debit from its reversal credit.
// The pair (transaction_id, direction) is the ledger idempotency key.
type EntryDirection string

const (
	EntryDirectionDebit  EntryDirection = "DEBIT"
	EntryDirectionCredit EntryDirection = "CREDIT"
)

// LedgerEntry is an append-only record of a single balance mutation.
type LedgerEntry struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	AssetID       uuid.UUID       `json:"asset_id"`
	Amount        decimal.Decimal `json:"amount"`
	Direction     EntryDirection  `json:"direction"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Balance holds the available funds for one (owner, asset) pair.
type Balance struct {
	OwnerID   uuid.UUID       `json:"owner_id"`
	AssetID   uuid.UUID       `json:"asset_id"`
	Available decimal.Decimal `json:"available"`
	UpdatedAt time.Time       `json:"updated_at"`
}
