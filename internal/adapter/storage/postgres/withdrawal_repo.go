package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-withdrawal-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const withdrawalColumns = `id, owner_id, asset_id, amount, currency, destination,
	quote_rate, quote_fee, state, narration, attempts, failure_reason,
	created_at, authorized_at, finalized_at`

// WithdrawalRepo implements ports.WithdrawalRepository. Destinations are
// stored as a JSONB document; the event tag inside selects the variant.
type WithdrawalRepo struct {
	pool Pool
}

// NewWithdrawalRepo creates a new WithdrawalRepo.
func NewWithdrawalRepo(pool Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

// Create inserts a new PENDING withdrawal.
func (r *WithdrawalRepo) Create(ctx context.Context, w *domain.Withdrawal) error {
	destJSON, err := json.Marshal(w.Destination)
	if err != nil {
		return fmt.Errorf("marshal destination: %w", err)
	}

	query := `INSERT INTO withdrawals (` + withdrawalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = r.pool.Exec(ctx, query,
		w.ID, w.OwnerID, w.AssetID, w.Amount, w.Currency, destJSON,
		w.Quote.Rate, w.Quote.Fee, w.State, w.Narration, w.Attempts,
		w.FailureReason, w.CreatedAt, w.AuthorizedAt, w.FinalizedAt,
	)
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}
	return nil
}

// GetByID fetches a withdrawal by UUID. Returns nil when not found.
func (r *WithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`
	return scanWithdrawal(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a withdrawal with a row lock inside tx.
func (r *WithdrawalRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1 FOR UPDATE`
	return scanWithdrawal(tx.QueryRow(ctx, query, id))
}

// MarkExecuting advances a PENDING withdrawal to EXECUTING, recording the
// authorization time. The state predicate makes the advance single-shot.
func (r *WithdrawalRepo) MarkExecuting(ctx context.Context, tx pgx.Tx, id uuid.UUID, authorizedAt time.Time) error {
	query := `UPDATE withdrawals SET state = $1, authorized_at = $2
		WHERE id = $3 AND state = $4`

	tag, err := tx.Exec(ctx, query,
		domain.WithdrawalStateExecuting, authorizedAt, id, domain.WithdrawalStatePending)
	if err != nil {
		return fmt.Errorf("mark executing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("withdrawal not pending: %s", id)
	}
	return nil
}

// Finalize moves a withdrawal into a terminal state. Rows already settled
// are left untouched and reported as an error.
func (r *WithdrawalRepo) Finalize(ctx context.Context, tx pgx.Tx, id uuid.UUID, state domain.WithdrawalState, failureReason *string) error {
	query := `UPDATE withdrawals SET state = $1, failure_reason = $2, finalized_at = $3
		WHERE id = $4 AND state NOT IN ($5, $6)`

	tag, err := tx.Exec(ctx, query,
		state, failureReason, time.Now().UTC(), id,
		domain.WithdrawalStateCompleted, domain.WithdrawalStateFailed)
	if err != nil {
		return fmt.Errorf("finalize withdrawal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("withdrawal already settled: %s", id)
	}
	return nil
}

// IncrementAttempts bumps the execution attempt counter and returns the new
// value.
func (r *WithdrawalRepo) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	query := `UPDATE withdrawals SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`

	var attempts int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	return attempts, nil
}

// ListUnsettled returns debited withdrawals older than the cutoff, oldest
// first. These are the reconciliation sweep's candidates.
func (r *WithdrawalRepo) ListUnsettled(ctx context.Context, olderThan time.Time, limit int) ([]domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals
		WHERE state IN ($1, $2) AND created_at < $3
		ORDER BY created_at ASC LIMIT $4`

	rows, err := r.pool.Query(ctx, query,
		domain.WithdrawalStateAuthorized, domain.WithdrawalStateExecuting, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list unsettled withdrawals: %w", err)
	}
	defer rows.Close()

	return collectWithdrawals(rows)
}

// ListByOwner returns an owner's withdrawals, newest first.
func (r *WithdrawalRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals
		WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	defer rows.Close()

	return collectWithdrawals(rows)
}

func collectWithdrawals(rows pgx.Rows) ([]domain.Withdrawal, error) {
	var list []domain.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawalRow(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate withdrawal rows: %w", err)
	}
	return list, nil
}

// scanWithdrawal scans a single row, mapping no-rows to nil.
func scanWithdrawal(row pgx.Row) (*domain.Withdrawal, error) {
	w, err := scanWithdrawalRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

func scanWithdrawalRow(row pgx.Row) (*domain.Withdrawal, error) {
	w := &domain.Withdrawal{}
	var destJSON []byte

	err := row.Scan(
		&w.ID, &w.OwnerID, &w.AssetID, &w.Amount, &w.Currency, &destJSON,
		&w.Quote.Rate, &w.Quote.Fee, &w.State, &w.Narration, &w.Attempts,
		&w.FailureReason, &w.CreatedAt, &w.AuthorizedAt, &w.FinalizedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan withdrawal: %w", err)
	}

	if err := json.Unmarshal(destJSON, &w.Destination); err != nil {
		return nil, fmt.Errorf("unmarshal destination: %w", err)
	}
	return w, nil
}
