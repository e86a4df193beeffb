package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wallet-withdrawal-engine/internal/core/domain"
	"wallet-withdrawal-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	dequeueTimeout = 5 * time.Second

	reasonTransferRejected = "TRANSFER_REJECTED"
	reasonAttemptsExceeded = "MAX_ATTEMPTS_EXCEEDED"
	reasonUnknownVariant   = "UNSUPPORTED_DESTINATION"
)

// Executor drains the task queue and performs external transfers. Each task
// is processed under a per-transaction lease so concurrent workers never
// dispatch the same withdrawal twice.
type Executor struct {
	finalizer

	queue        ports.TaskQueue
	leases       ports.LeaseStore
	bank         ports.BankRail
	chain        ports.ChainBroadcaster
	concurrency  int
	maxAttempts  int
	retryBackoff time.Duration
	leaseTTL     time.Duration
	log          zerolog.Logger
}

// ExecutorConfig carries the executor's tuning knobs.
type ExecutorConfig struct {
	Concurrency  int
	MaxAttempts  int
	RetryBackoff time.Duration
	LeaseTTL     time.Duration
}

// NewExecutor creates a new Executor.
func NewExecutor(
	withdrawalRepo ports.WithdrawalRepository,
	ledgerRepo ports.LedgerRepository,
	queue ports.TaskQueue,
	leases ports.LeaseStore,
	bank ports.BankRail,
	chain ports.ChainBroadcaster,
	notifier ports.Notifier,
	transactor ports.DBTransactor,
	cfg ExecutorConfig,
	log zerolog.Logger,
) *Executor {
	return &Executor{
		finalizer: finalizer{
			withdrawalRepo: withdrawalRepo,
			ledgerRepo:     ledgerRepo,
			notifier:       notifier,
			transactor:     transactor,
			log:            log,
		},
		queue:        queue,
		leases:       leases,
		bank:         bank,
		chain:        chain,
		concurrency:  cfg.Concurrency,
		maxAttempts:  cfg.MaxAttempts,
		retryBackoff: cfg.RetryBackoff,
		leaseTTL:     cfg.LeaseTTL,
		log:          log,
	}
}

// Run blocks until ctx is cancelled, processing tasks with the configured
// concurrency.
func (e *Executor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < e.concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			e.loop(ctx, worker)
		}(i)
	}
	wg.Wait()
}

func (e *Executor) loop(ctx context.Context, worker int) {
	log := e.log.With().Int("worker", worker).Logger()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		id, ok, err := e.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("dequeue failed")
			// Avoid a hot loop when the queue backend is down.
			select {
			case <-ctx.Done():
				return
			case <-time.After(e.retryBackoff):
			}
			continue
		}
		if !ok {
			continue
		}

		if err := e.Process(ctx, id); err != nil {
			log.Error().Err(err).
				Str("tx_id", id.String()).
				Msg("task processing failed, left for reconciliation")
		}
	}
}

// Process executes one withdrawal task end to end. Tasks for terminal or
// still-pending withdrawals are discarded; at-least-once queue delivery makes
// duplicates normal, not errors.
func (e *Executor) Process(ctx context.Context, id uuid.UUID) error {
	acquired, err := e.leases.Acquire(ctx, id, e.leaseTTL)
	if err != nil {
		return fmt.Errorf("acquire lease: %w", err)
	}
	if !acquired {
		e.log.Debug().
			Str("tx_id", id.String()).
			Msg("lease held elsewhere, skipping task")
		return nil
	}
	defer func() {
		if err := e.leases.Release(ctx, id); err != nil {
			e.log.Warn().Err(err).
				Str("tx_id", id.String()).
				Msg("lease release failed")
		}
	}()

	w, err := e.withdrawalRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load withdrawal: %w", err)
	}
	if w == nil {
		e.log.Warn().
			Str("tx_id", id.String()).
			Msg("queued task references unknown withdrawal, discarding")
		return nil
	}
	if w.IsTerminal() {
		e.log.Debug().
			Str("tx_id", w.ID.String()).
			Str("state", string(w.State)).
			Msg("withdrawal already settled, discarding duplicate task")
		return nil
	}
	if w.State == domain.WithdrawalStatePending {
		e.log.Warn().
			Str("tx_id", w.ID.String()).
			Msg("unauthorized withdrawal in queue, discarding")
		return nil
	}

	return e.execute(ctx, w)
}

// execute dispatches the transfer and settles the outcome. Indeterminate
// outcomes retry with backoff; the per-row attempts counter bounds retries
// across process restarts.
func (e *Executor) execute(ctx context.Context, w *domain.Withdrawal) error {
	for {
		result, err := e.dispatch(ctx, w)
		if err == nil {
			switch result.Outcome {
			case ports.TransferSucceeded:
				return e.complete(ctx, w)
			case ports.TransferFailed:
				reason := reasonTransferRejected
				if result.Reason != "" {
					reason = result.Reason
				}
				return e.fail(ctx, w, reason)
			}
		}

		// Indeterminate: the rail may or may not have moved funds. Count the
		// attempt and retry; never invent a failure the rail did not report.
		attempts, incErr := e.withdrawalRepo.IncrementAttempts(ctx, w.ID)
		if incErr != nil {
			return fmt.Errorf("increment attempts: %w", incErr)
		}
		w.Attempts = attempts

		e.log.Warn().
			AnErr("transfer_err", err).
			Str("tx_id", w.ID.String()).
			Int("attempts", attempts).
			Msg("transfer outcome indeterminate")

		if attempts >= e.maxAttempts {
			return e.fail(ctx, w, reasonAttemptsExceeded)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.retryBackoff):
		}
	}
}

// dispatch routes the transfer to the rail matching the destination variant.
func (e *Executor) dispatch(ctx context.Context, w *domain.Withdrawal) (ports.TransferResult, error) {
	switch w.Destination.Event {
	case domain.DestinationBankTransfer:
		if w.Destination.Bank == nil {
			return ports.TransferResult{Outcome: ports.TransferFailed, Reason: reasonUnknownVariant}, nil
		}
		return e.bank.Transfer(ctx, w.ID, *w.Destination.Bank, w.Amount, w.Currency, w.Narration)

	case domain.DestinationExternalWallet:
		if w.Destination.Wallet == nil {
			return ports.TransferResult{Outcome: ports.TransferFailed, Reason: reasonUnknownVariant}, nil
		}
		return e.chain.Broadcast(ctx, w.ID, *w.Destination.Wallet, w.AssetID, w.Amount)

	default:
		return ports.TransferResult{Outcome: ports.TransferFailed, Reason: reasonUnknownVariant}, nil
	}
}
