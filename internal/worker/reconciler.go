package worker

import (
	"context"
	"time"

	"wallet-withdrawal-engine/internal/core/domain"
	"wallet-withdrawal-engine/internal/core/ports"

	"github.com/rs/zerolog"
)

const reasonReconciledTimeout = "RECONCILED_TIMEOUT"

// sweepBatchSize bounds how many stuck withdrawals one sweep touches.
const sweepBatchSize = 100

// Reconciler periodically sweeps for withdrawals that were debited but never
// settled: enqueue failures after commit, worker crashes mid-execution, lost
// queue entries. Stuck rows are re-enqueued until the attempts budget runs
// out, then failed with a full reversal.
type Reconciler struct {
	finalizer

	queue       ports.TaskQueue
	interval    time.Duration
	threshold   time.Duration
	maxAttempts int
	log         zerolog.Logger
}

// NewReconciler creates a new Reconciler.
func NewReconciler(
	withdrawalRepo ports.WithdrawalRepository,
	ledgerRepo ports.LedgerRepository,
	queue ports.TaskQueue,
	notifier ports.Notifier,
	transactor ports.DBTransactor,
	interval time.Duration,
	threshold time.Duration,
	maxAttempts int,
	log zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		finalizer: finalizer{
			withdrawalRepo: withdrawalRepo,
			ledgerRepo:     ledgerRepo,
			notifier:       notifier,
			transactor:     transactor,
			log:            log,
		},
		queue:       queue,
		interval:    interval,
		threshold:   threshold,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.SweepOnce(ctx); err != nil {
				r.log.Error().Err(err).Msg("reconciliation sweep failed")
			}
		}
	}
}

// SweepOnce inspects all unsettled withdrawals older than the threshold and
// either re-dispatches or fails them. Re-enqueueing a withdrawal that is
// still in the queue is harmless: workers discard settled duplicates.
func (r *Reconciler) SweepOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-r.threshold)

	stuck, err := r.withdrawalRepo.ListUnsettled(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return err
	}
	if len(stuck) == 0 {
		return nil
	}

	r.log.Info().
		Int("count", len(stuck)).
		Time("cutoff", cutoff).
		Msg("reconciling unsettled withdrawals")

	for i := range stuck {
		w := &stuck[i]
		if err := r.reconcile(ctx, w); err != nil {
			r.log.Error().Err(err).
				Str("tx_id", w.ID.String()).
				Msg("reconciliation of withdrawal failed")
		}
	}

	return nil
}

func (r *Reconciler) reconcile(ctx context.Context, w *domain.Withdrawal) error {
	// Only debited withdrawals are swept. A PENDING row carries no funds and
	// expires on its own terms.
	if w.State != domain.WithdrawalStateAuthorized && w.State != domain.WithdrawalStateExecuting {
		return nil
	}

	if w.Attempts >= r.maxAttempts {
		return r.fail(ctx, w, reasonReconciledTimeout)
	}

	attempts, err := r.withdrawalRepo.IncrementAttempts(ctx, w.ID)
	if err != nil {
		return err
	}
	w.Attempts = attempts

	if err := r.queue.Enqueue(ctx, w.ID); err != nil {
		return err
	}

	r.log.Info().
		Str("tx_id", w.ID.String()).
		Int("attempts", attempts).
		Msg("stuck withdrawal re-enqueued")

	return nil
}
