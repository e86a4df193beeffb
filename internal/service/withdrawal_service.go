package service

import (
	"context"
	"fmt"
	"time"

	"wallet-withdrawal-engine/internal/core/domain"
	"wallet-withdrawal-engine/internal/core/ports"
	"wallet-withdrawal-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	enqueueRetries = 3
	defaultLimit   = 20
	maxLimit       = 100
)

const reasonInsufficientFunds = "INSUFFICIENT_FUNDS"

// WithdrawalServiceImpl implements ports.WithdrawalService. It owns the
// withdrawal state machine: funds move only inside Authorize, and only once
// per transaction id regardless of how many times Authorize is called.
type WithdrawalServiceImpl struct {
	withdrawalRepo ports.WithdrawalRepository
	ledgerRepo     ports.LedgerRepository
	assetRepo      ports.AssetRepository
	verifier       ports.AuthorizationVerifier
	oracle         ports.PricingOracle
	queue          ports.TaskQueue
	notifier       ports.Notifier
	transactor     ports.DBTransactor
	log            zerolog.Logger
}

// NewWithdrawalService creates a new WithdrawalServiceImpl.
func NewWithdrawalService(
	withdrawalRepo ports.WithdrawalRepository,
	ledgerRepo ports.LedgerRepository,
	assetRepo ports.AssetRepository,
	verifier ports.AuthorizationVerifier,
	oracle ports.PricingOracle,
	queue ports.TaskQueue,
	notifier ports.Notifier,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WithdrawalServiceImpl {
	return &WithdrawalServiceImpl{
		withdrawalRepo: withdrawalRepo,
		ledgerRepo:     ledgerRepo,
		assetRepo:      assetRepo,
		verifier:       verifier,
		oracle:         oracle,
		queue:          queue,
		notifier:       notifier,
		transactor:     transactor,
		log:            log,
	}
}

// Initiate validates the request, resolves the destination, snapshots a
// pricing quote and records a PENDING withdrawal. No funds are touched.
func (s *WithdrawalServiceImpl) Initiate(ctx context.Context, req ports.InitiateRequest) (*ports.InitiateResult, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	dest, err := domain.ResolveDestination(req.DestinationEvent, req.DestinationData)
	if err != nil {
		return nil, destinationError(err)
	}

	asset, err := s.assetRepo.GetByID(ctx, req.AssetID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load asset: %w", err))
	}
	if asset == nil {
		return nil, apperror.ErrUnknownAsset()
	}

	quote, err := s.oracle.Quote(ctx, req.AssetID, req.Amount, req.Currency)
	if err != nil {
		return nil, apperror.ErrQuoteUnavailable(err)
	}

	w := &domain.Withdrawal{
		ID:          uuid.New(),
		OwnerID:     req.OwnerID,
		AssetID:     req.AssetID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Destination: dest,
		Quote:       *quote,
		State:       domain.WithdrawalStatePending,
		Narration:   req.Narration,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.withdrawalRepo.Create(ctx, w); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create withdrawal: %w", err))
	}

	s.log.Info().
		Str("tx_id", w.ID.String()).
		Str("owner_id", w.OwnerID.String()).
		Str("amount", w.Amount.String()).
		Str("destination", w.Destination.Summary()).
		Msg("withdrawal initiated")

	return &ports.InitiateResult{TransactionID: w.ID, Quote: *quote}, nil
}

// Authorize verifies the authorization proof and, exactly once, debits the
// owner's balance and hands the withdrawal to the execution workers. A second
// call for the same transaction is rejected, never double-charged.
func (s *WithdrawalServiceImpl) Authorize(ctx context.Context, req ports.AuthorizeRequest) error {
	// Resolve the transaction before touching the verifier. Verification
	// consumes single-use challenges and counts failed attempts, so a request
	// that cannot be authorized anyway must not burn either.
	w, err := s.withdrawalRepo.GetByID(ctx, req.TransactionID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("load withdrawal: %w", err))
	}
	if w == nil || w.OwnerID != req.OwnerID {
		return apperror.ErrNotFound("Transaction")
	}
	if w.State != domain.WithdrawalStatePending {
		return apperror.ErrAlreadyAuthorized()
	}

	if err := s.verifier.Verify(ctx, req.OwnerID, req.Authorization); err != nil {
		return err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Re-read under lock. A concurrent Authorize may have advanced the row
	// between the optimistic check and here.
	w, err = s.withdrawalRepo.GetByIDForUpdate(ctx, dbTx, req.TransactionID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock withdrawal: %w", err))
	}
	if w == nil {
		return apperror.ErrNotFound("Transaction")
	}
	if w.State != domain.WithdrawalStatePending {
		return apperror.ErrAlreadyAuthorized()
	}

	result, err := s.ledgerRepo.ConditionalDebit(ctx, dbTx, w.OwnerID, w.AssetID, w.Amount, w.ID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("conditional debit: %w", err))
	}

	switch result {
	case ports.DebitInsufficientFunds:
		reason := reasonInsufficientFunds
		if err := s.withdrawalRepo.Finalize(ctx, dbTx, w.ID, domain.WithdrawalStateFailed, &reason); err != nil {
			return apperror.InternalError(fmt.Errorf("fail withdrawal: %w", err))
		}
		if err := dbTx.Commit(ctx); err != nil {
			return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		s.notifyTerminal(ctx, w, domain.WithdrawalStateFailed, reason)
		s.log.Info().
			Str("tx_id", w.ID.String()).
			Str("owner_id", w.OwnerID.String()).
			Msg("withdrawal failed: insufficient funds")
		return apperror.ErrInsufficientFunds()

	case ports.DebitAlreadyApplied:
		// The debit landed in a competing transaction. Treat like a replay.
		return apperror.ErrAlreadyAuthorized()
	}

	authorizedAt := time.Now().UTC()
	if err := s.withdrawalRepo.MarkExecuting(ctx, dbTx, w.ID, authorizedAt); err != nil {
		return apperror.InternalError(fmt.Errorf("mark executing: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// The debit is durable from here on. Enqueue failures must not undo it;
	// the reconciliation sweep re-dispatches anything that never reached the
	// queue.
	if err := s.enqueueWithRetry(ctx, w.ID); err != nil {
		s.log.Error().Err(apperror.ErrEnqueueInconsistency(err)).
			Str("tx_id", w.ID.String()).
			Msg("debit committed but execution task could not be enqueued")
	}

	s.log.Info().
		Str("tx_id", w.ID.String()).
		Str("owner_id", w.OwnerID.String()).
		Str("amount", w.Amount.String()).
		Msg("withdrawal authorized")

	return nil
}

// Withdraw is the single-call convenience flow: Initiate followed by
// Authorize on the freshly created transaction.
func (s *WithdrawalServiceImpl) Withdraw(ctx context.Context, req ports.WithdrawRequest) (*ports.InitiateResult, error) {
	res, err := s.Initiate(ctx, req.InitiateRequest)
	if err != nil {
		return nil, err
	}

	authReq := ports.AuthorizeRequest{
		OwnerID:       req.OwnerID,
		TransactionID: res.TransactionID,
		Authorization: req.Authorization,
	}
	if err := s.Authorize(ctx, authReq); err != nil {
		return nil, err
	}

	return res, nil
}

// GetWithdrawal returns a withdrawal owned by ownerID.
func (s *WithdrawalServiceImpl) GetWithdrawal(ctx context.Context, ownerID, id uuid.UUID) (*domain.Withdrawal, error) {
	w, err := s.withdrawalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load withdrawal: %w", err))
	}
	if w == nil || w.OwnerID != ownerID {
		return nil, apperror.ErrNotFound("Transaction")
	}
	return w, nil
}

// ListWithdrawals returns the owner's withdrawal history, newest first.
func (s *WithdrawalServiceImpl) ListWithdrawals(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]domain.Withdrawal, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.withdrawalRepo.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list withdrawals: %w", err))
	}
	return list, nil
}

// GetBalance returns the owner's balance for an asset. An owner who never
// held the asset gets a zero balance, not an error.
func (s *WithdrawalServiceImpl) GetBalance(ctx context.Context, ownerID, assetID uuid.UUID) (*domain.Balance, *domain.Asset, error) {
	asset, err := s.assetRepo.GetByID(ctx, assetID)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("load asset: %w", err))
	}
	if asset == nil {
		return nil, nil, apperror.ErrUnknownAsset()
	}

	bal, err := s.ledgerRepo.GetBalance(ctx, ownerID, assetID)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("load balance: %w", err))
	}
	if bal == nil {
		bal = &domain.Balance{
			OwnerID:   ownerID,
			AssetID:   assetID,
			Available: decimal.Zero,
		}
	}

	return bal, asset, nil
}

// enqueueWithRetry pushes the execution task, retrying transient failures.
func (s *WithdrawalServiceImpl) enqueueWithRetry(ctx context.Context, id uuid.UUID) error {
	var err error
	for attempt := 1; attempt <= enqueueRetries; attempt++ {
		if err = s.queue.Enqueue(ctx, id); err == nil {
			return nil
		}
		s.log.Warn().Err(err).
			Str("tx_id", id.String()).
			Int("attempt", attempt).
			Msg("enqueue execution task failed")
	}
	return err
}

// notifyTerminal delivers a best-effort terminal notification.
func (s *WithdrawalServiceImpl) notifyTerminal(ctx context.Context, w *domain.Withdrawal, state domain.WithdrawalState, reason string) {
	n := ports.TerminalNotification{
		TransactionID:      w.ID,
		OwnerID:            w.OwnerID,
		State:              state,
		Amount:             w.Amount,
		AssetID:            w.AssetID,
		DestinationSummary: w.Destination.Summary(),
		Reason:             reason,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn().Err(err).
			Str("tx_id", w.ID.String()).
			Msg("terminal notification delivery failed")
	}
}

// destinationError maps destination resolution failures to API errors.
func destinationError(err error) error {
	switch e := err.(type) {
	case *domain.UnsupportedDestinationError:
		return apperror.ErrUnsupportedDestinationType(e.Event)
	case *domain.DestinationError:
		return apperror.ErrInvalidDestination(e.Reason)
	default:
		return apperror.ErrInvalidDestination(err.Error())
	}
}
