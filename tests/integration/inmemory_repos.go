package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wallet-withdrawal-engine/internal/core/domain"
	"wallet-withdrawal-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- In-Memory Withdrawal Repo ---

type inMemoryWithdrawalRepo struct {
	mu          sync.RWMutex
	withdrawals map[uuid.UUID]*domain.Withdrawal
}

func newInMemoryWithdrawalRepo() *inMemoryWithdrawalRepo {
	return &inMemoryWithdrawalRepo{withdrawals: make(map[uuid.UUID]*domain.Withdrawal)}
}

func (r *inMemoryWithdrawalRepo) Create(ctx context.Context, w *domain.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.withdrawals[w.ID] = &cp
	return nil
}

func (r *inMemoryWithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.withdrawals[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWithdrawalRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Withdrawal, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryWithdrawalRepo) MarkExecuting(ctx context.Context, tx pgx.Tx, id uuid.UUID, authorizedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.withdrawals[id]
	if !ok || w.State != domain.WithdrawalStatePending {
		return fmt.Errorf("withdrawal not pending")
	}
	w.State = domain.WithdrawalStateExecuting
	w.AuthorizedAt = &authorizedAt
	return nil
}

func (r *inMemoryWithdrawalRepo) Finalize(ctx context.Context, tx pgx.Tx, id uuid.UUID, state domain.WithdrawalState, failureReason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.withdrawals[id]
	if !ok {
		return fmt.Errorf("withdrawal not found")
	}
	if w.IsTerminal() {
		return fmt.Errorf("withdrawal already settled")
	}
	now := time.Now().UTC()
	w.State = state
	w.FailureReason = failureReason
	w.FinalizedAt = &now
	return nil
}

func (r *inMemoryWithdrawalRepo) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.withdrawals[id]
	if !ok {
		return 0, fmt.Errorf("withdrawal not found")
	}
	w.Attempts++
	return w.Attempts, nil
}

func (r *inMemoryWithdrawalRepo) ListUnsettled(ctx context.Context, olderThan time.Time, limit int) ([]domain.Withdrawal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Withdrawal
	for _, w := range r.withdrawals {
		if (w.State == domain.WithdrawalStateAuthorized || w.State == domain.WithdrawalStateExecuting) && w.CreatedAt.Before(olderThan) {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *inMemoryWithdrawalRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]domain.Withdrawal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Withdrawal
	for _, w := range r.withdrawals {
		if w.OwnerID == ownerID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	entries  map[string]bool
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{
		balances: make(map[string]decimal.Decimal),
		entries:  make(map[string]bool),
	}
}

func balanceKey(ownerID, assetID uuid.UUID) string {
	return ownerID.String() + "|" + assetID.String()
}

func entryKey(transactionID uuid.UUID, direction domain.EntryDirection) string {
	return transactionID.String() + "|" + string(direction)
}

func (r *inMemoryLedgerRepo) seed(ownerID, assetID uuid.UUID, amount decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[balanceKey(ownerID, assetID)] = amount
}

func (r *inMemoryLedgerRepo) ConditionalDebit(ctx context.Context, tx pgx.Tx, ownerID, assetID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID) (ports.DebitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[entryKey(transactionID, domain.EntryDirectionDebit)] {
		return ports.DebitAlreadyApplied, nil
	}
	key := balanceKey(ownerID, assetID)
	available := r.balances[key]
	if available.LessThan(amount) {
		return ports.DebitInsufficientFunds, nil
	}
	r.balances[key] = available.Sub(amount)
	r.entries[entryKey(transactionID, domain.EntryDirectionDebit)] = true
	return ports.DebitApplied, nil
}

func (r *inMemoryLedgerRepo) Credit(ctx context.Context, tx pgx.Tx, ownerID, assetID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID) (ports.CreditResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[entryKey(transactionID, domain.EntryDirectionCredit)] {
		return ports.CreditAlreadyApplied, nil
	}
	key := balanceKey(ownerID, assetID)
	r.balances[key] = r.balances[key].Add(amount)
	r.entries[entryKey(transactionID, domain.EntryDirectionCredit)] = true
	return ports.CreditApplied, nil
}

func (r *inMemoryLedgerRepo) GetBalance(ctx context.Context, ownerID, assetID uuid.UUID) (*domain.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	available, ok := r.balances[balanceKey(ownerID, assetID)]
	if !ok {
		return nil, nil
	}
	return &domain.Balance{
		OwnerID:   ownerID,
		AssetID:   assetID,
		Available: available,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// --- In-Memory Asset Repo ---

type inMemoryAssetRepo struct {
	mu     sync.RWMutex
	assets map[uuid.UUID]*domain.Asset
}

func newInMemoryAssetRepo() *inMemoryAssetRepo {
	return &inMemoryAssetRepo{assets: make(map[uuid.UUID]*domain.Asset)}
}

func (r *inMemoryAssetRepo) add(a *domain.Asset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[a.ID] = a
}

func (r *inMemoryAssetRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[id]
	if !ok {
		return nil, nil
	}
	return a, nil
}

// --- In-Memory Credential Repo ---

type inMemoryCredentialRepo struct {
	mu     sync.RWMutex
	hashes map[uuid.UUID]string
}

func newInMemoryCredentialRepo() *inMemoryCredentialRepo {
	return &inMemoryCredentialRepo{hashes: make(map[uuid.UUID]string)}
}

func (r *inMemoryCredentialRepo) set(ownerID uuid.UUID, hash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hashes[ownerID] = hash
}

func (r *inMemoryCredentialRepo) GetPINHash(ctx context.Context, ownerID uuid.UUID) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hashes[ownerID], nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }

// --- Stub Rails ---

// scriptedRail answers bank transfers and chain broadcasts from a queue of
// scripted outcomes, defaulting to success once the script runs out.
type scriptedRail struct {
	mu      sync.Mutex
	script  []ports.TransferResult
	calls   int
	lastTxn uuid.UUID
}

func newScriptedRail(script ...ports.TransferResult) *scriptedRail {
	return &scriptedRail{script: script}
}

func (r *scriptedRail) next(transactionID uuid.UUID) ports.TransferResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.lastTxn = transactionID
	if len(r.script) == 0 {
		return ports.TransferResult{Outcome: ports.TransferSucceeded, Reference: "scripted-ok"}
	}
	result := r.script[0]
	r.script = r.script[1:]
	return result
}

func (r *scriptedRail) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *scriptedRail) Transfer(ctx context.Context, transactionID uuid.UUID, dest domain.BankTransferData, amount decimal.Decimal, currency, narration string) (ports.TransferResult, error) {
	return r.next(transactionID), nil
}

func (r *scriptedRail) Broadcast(ctx context.Context, transactionID uuid.UUID, dest domain.ExternalWalletData, assetID uuid.UUID, amount decimal.Decimal) (ports.TransferResult, error) {
	return r.next(transactionID), nil
}

// --- Capture Notifier ---

type captureNotifier struct {
	mu            sync.Mutex
	notifications []ports.TerminalNotification
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{}
}

func (n *captureNotifier) Notify(ctx context.Context, notification ports.TerminalNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
	return nil
}

func (n *captureNotifier) all() []ports.TerminalNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]ports.TerminalNotification, len(n.notifications))
	copy(out, n.notifications)
	return out
}
