package worker

import (
	"context"
	"fmt"

	"wallet-withdrawal-engine/internal/core/domain"
	"wallet-withdrawal-engine/internal/core/ports"

	"github.com/rs/zerolog"
)

// finalizer settles withdrawals into their terminal state. Completion and
// failure both commit the state flip and any ledger reversal in a single
// database transaction; the terminal notification goes out after commit.
type finalizer struct {
	withdrawalRepo ports.WithdrawalRepository
	ledgerRepo     ports.LedgerRepository
	notifier       ports.Notifier
	transactor     ports.DBTransactor
	log            zerolog.Logger
}

// complete moves a withdrawal to COMPLETED. The debit taken at authorization
// stands.
func (f *finalizer) complete(ctx context.Context, w *domain.Withdrawal) error {
	dbTx, err := f.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := f.withdrawalRepo.Finalize(ctx, dbTx, w.ID, domain.WithdrawalStateCompleted, nil); err != nil {
		return fmt.Errorf("finalize completed: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	f.notifyTerminal(ctx, w, domain.WithdrawalStateCompleted, "")

	f.log.Info().
		Str("tx_id", w.ID.String()).
		Str("owner_id", w.OwnerID.String()).
		Msg("withdrawal completed")

	return nil
}

// fail moves a withdrawal to FAILED and returns the debited funds. The
// reversal credit is keyed by the transaction id, so calling fail twice for
// the same withdrawal credits once.
func (f *finalizer) fail(ctx context.Context, w *domain.Withdrawal, reason string) error {
	dbTx, err := f.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := f.withdrawalRepo.Finalize(ctx, dbTx, w.ID, domain.WithdrawalStateFailed, &reason); err != nil {
		return fmt.Errorf("finalize failed: %w", err)
	}

	if _, err := f.ledgerRepo.Credit(ctx, dbTx, w.OwnerID, w.AssetID, w.Amount, w.ID); err != nil {
		return fmt.Errorf("reversal credit: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	f.notifyTerminal(ctx, w, domain.WithdrawalStateFailed, reason)

	f.log.Info().
		Str("tx_id", w.ID.String()).
		Str("owner_id", w.OwnerID.String()).
		Str("reason", reason).
		Msg("withdrawal failed, funds returned")

	return nil
}

func (f *finalizer) notifyTerminal(ctx context.Context, w *domain.Withdrawal, state domain.WithdrawalState, reason string) {
	n := ports.TerminalNotification{
		TransactionID:      w.ID,
		OwnerID:            w.OwnerID,
		State:              state,
		Amount:             w.Amount,
		AssetID:            w.AssetID,
		DestinationSummary: w.Destination.Summary(),
		Reason:             reason,
	}
	if err := f.notifier.Notify(ctx, n); err != nil {
		f.log.Warn().Err(err).
			Str("tx_id", w.ID.String()).
			Msg("terminal notification delivery failed")
	}
}
