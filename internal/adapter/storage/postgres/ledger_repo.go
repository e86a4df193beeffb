package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-withdrawal-engine/internal/core/domain"
	"wallet-withdrawal-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LedgerRepo implements ports.LedgerRepository. Every balance mutation is
// recorded as a ledger entry keyed by (transaction_id, direction); a unique
// index on that pair backs the idempotency checks.
//
// Callers hold the withdrawal row lock while debiting or crediting, so the
// existence check and the mutation cannot interleave with a competing call
// for the same transaction.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// ConditionalDebit decrements the available balance iff funds suffice and
// this transaction has not been debited before. The balance predicate lives
// in the UPDATE itself, so check and decrement are one statement.
func (r *LedgerRepo) ConditionalDebit(ctx context.Context, tx pgx.Tx, ownerID, assetID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID) (ports.DebitResult, error) {
	applied, err := entryExists(ctx, tx, transactionID, domain.EntryDirectionDebit)
	if err != nil {
		return 0, err
	}
	if applied {
		return ports.DebitAlreadyApplied, nil
	}

	query := `UPDATE balances SET available = available - $3, updated_at = $4
		WHERE owner_id = $1 AND asset_id = $2 AND available >= $3`

	tag, err := tx.Exec(ctx, query, ownerID, assetID, amount, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("debit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.DebitInsufficientFunds, nil
	}

	if err := insertEntry(ctx, tx, transactionID, ownerID, assetID, amount, domain.EntryDirectionDebit); err != nil {
		return 0, err
	}
	return ports.DebitApplied, nil
}

// Credit returns funds after a failed execution. The credit is keyed by the
// same transaction id; a second invocation is a no-op.
func (r *LedgerRepo) Credit(ctx context.Context, tx pgx.Tx, ownerID, assetID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID) (ports.CreditResult, error) {
	applied, err := entryExists(ctx, tx, transactionID, domain.EntryDirectionCredit)
	if err != nil {
		return 0, err
	}
	if applied {
		return ports.CreditAlreadyApplied, nil
	}

	query := `INSERT INTO balances (owner_id, asset_id, available, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id, asset_id)
		DO UPDATE SET available = balances.available + EXCLUDED.available, updated_at = EXCLUDED.updated_at`

	if _, err := tx.Exec(ctx, query, ownerID, assetID, amount, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("credit balance: %w", err)
	}

	if err := insertEntry(ctx, tx, transactionID, ownerID, assetID, amount, domain.EntryDirectionCredit); err != nil {
		return 0, err
	}
	return ports.CreditApplied, nil
}

// GetBalance fetches the balance row for an (owner, asset) pair. Returns nil
// when the owner never held the asset.
func (r *LedgerRepo) GetBalance(ctx context.Context, ownerID, assetID uuid.UUID) (*domain.Balance, error) {
	query := `SELECT owner_id, asset_id, available, updated_at
		FROM balances WHERE owner_id = $1 AND asset_id = $2`

	b := &domain.Balance{}
	err := r.pool.QueryRow(ctx, query, ownerID, assetID).Scan(
		&b.OwnerID, &b.AssetID, &b.Available, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan balance: %w", err)
	}
	return b, nil
}

func entryExists(ctx context.Context, tx pgx.Tx, transactionID uuid.UUID, direction domain.EntryDirection) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE transaction_id = $1 AND direction = $2)`

	var exists bool
	if err := tx.QueryRow(ctx, query, transactionID, direction).Scan(&exists); err != nil {
		return false, fmt.Errorf("check ledger entry: %w", err)
	}
	return exists, nil
}

func insertEntry(ctx context.Context, tx pgx.Tx, transactionID, ownerID, assetID uuid.UUID, amount decimal.Decimal, direction domain.EntryDirection) error {
	query := `INSERT INTO ledger_entries (transaction_id, owner_id, asset_id, amount, direction, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := tx.Exec(ctx, query, transactionID, ownerID, assetID, amount, direction, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}
