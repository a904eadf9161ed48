package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"vtu-wallet/internal/core/domain"
	"vtu-wallet/internal/core/ports"
	"vtu-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
	byOwner map[uuid.UUID]uuid.UUID
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{
		wallets: make(map[uuid.UUID]*domain.Wallet),
		byOwner: make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[w.ID] = w
	r.byOwner[w.OwnerID] = w.ID
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byOwner[ownerID]
	if !ok {
		return nil, nil
	}
	cp := *r.wallets[id]
	return &cp, nil
}

func (r *inMemoryWalletRepo) EnsureForOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byOwner[ownerID]; ok {
		cp := *r.wallets[id]
		return &cp, nil
	}
	now := time.Now()
	w := &domain.Wallet{ID: uuid.New(), OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}
	r.wallets[w.ID] = w
	r.byOwner[ownerID] = w.ID
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) AddBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return 0, fmt.Errorf("wallet not found")
	}
	if w.Balance+delta < 0 {
		return 0, fmt.Errorf("balance would go negative")
	}
	w.Balance += delta
	w.UpdatedAt = time.Now()
	return w.Balance, nil
}

func (r *inMemoryWalletRepo) DebitIfSufficient(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return 0, false, fmt.Errorf("wallet not found")
	}
	if w.Balance < amount {
		return 0, false, nil
	}
	w.Balance -= amount
	w.UpdatedAt = time.Now()
	return w.Balance, true, nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction // keyed by reference
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{transactions: make(map[string]*domain.Transaction)}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.transactions[t.Reference]; exists {
		return apperror.ErrDuplicateReference()
	}
	cp := *t
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.transactions[t.Reference] = &cp
	t.ID = cp.ID
	return nil
}

func (r *inMemoryTransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transactions[reference]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// MarkTerminal mimics the conditional UPDATE: the transition is applied only
// while the stored row is still pending, under the repo mutex, so exactly
// one concurrent resolver can claim it.
func (r *inMemoryTransactionRepo) MarkTerminal(ctx context.Context, tx pgx.Tx, tr ports.TerminalTransition) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[tr.Reference]
	if !ok || t.Status != domain.TransactionStatusPending {
		return false, nil
	}
	t.Status = tr.Status
	if tr.ProviderRef != nil {
		t.ProviderRef = tr.ProviderRef
	}
	t.FailureReason = tr.FailureReason
	t.RequeryLog = append(t.RequeryLog, domain.RequeryEntry{
		Timestamp: time.Now(),
		Action:    tr.Action,
		Attempt:   t.Attempts,
	})
	t.UpdatedAt = time.Now()
	return true, nil
}

func (r *inMemoryTransactionRepo) SetBalanceAfter(ctx context.Context, tx pgx.Tx, reference string, balanceAfter int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[reference]
	if !ok {
		return fmt.Errorf("transaction not found")
	}
	t.BalanceAfter = balanceAfter
	t.UpdatedAt = time.Now()
	return nil
}

func (r *inMemoryTransactionRepo) RecordAttempt(ctx context.Context, reference string, action string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[reference]
	if !ok || t.Status != domain.TransactionStatusPending {
		return nil
	}
	t.Attempts++
	now := time.Now()
	t.LastAttemptAt = &now
	t.RequeryLog = append(t.RequeryLog, domain.RequeryEntry{
		Timestamp: now,
		Action:    action,
		Attempt:   t.Attempts,
	})
	t.UpdatedAt = now
	return nil
}

func (r *inMemoryTransactionRepo) FindPending(ctx context.Context, services []domain.ServiceKind, maxAttempts int) ([]domain.Transaction, error) {
	return r.filterPending(services, func(attempts int) bool { return attempts < maxAttempts })
}

func (r *inMemoryTransactionRepo) HasPending(ctx context.Context, services []domain.ServiceKind, maxAttempts int) (bool, error) {
	pending, err := r.FindPending(ctx, services, maxAttempts)
	return len(pending) > 0, err
}

func (r *inMemoryTransactionRepo) FindStuck(ctx context.Context, services []domain.ServiceKind, maxAttempts int) ([]domain.Transaction, error) {
	return r.filterPending(services, func(attempts int) bool { return attempts >= maxAttempts })
}

func (r *inMemoryTransactionRepo) filterPending(services []domain.ServiceKind, keep func(attempts int) bool) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Transaction
	for _, t := range r.transactions {
		if t.Status != domain.TransactionStatusPending || !keep(t.Attempts) {
			continue
		}
		for _, svc := range services {
			if t.Service == svc {
				out = append(out, *t)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *inMemoryTransactionRepo) ListByOwner(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []domain.Transaction
	for _, t := range r.transactions {
		if t.OwnerID != params.OwnerID {
			continue
		}
		if params.Status != nil && t.Status != *params.Status {
			continue
		}
		if params.Service != nil && t.Service != *params.Service {
			continue
		}
		matched = append(matched, *t)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	start := (params.Page - 1) * params.PageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// --- In-Memory Topup Record Repo ---

type inMemoryTopupRepo struct {
	mu      sync.RWMutex
	records map[string]*domain.TopupRecord
}

func newInMemoryTopupRepo() *inMemoryTopupRepo {
	return &inMemoryTopupRepo{records: make(map[string]*domain.TopupRecord)}
}

func (r *inMemoryTopupRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.TopupRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records[rec.Reference] = &cp
	return nil
}

func (r *inMemoryTopupRepo) GetByReference(ctx context.Context, reference string) (*domain.TopupRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[reference]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *inMemoryTopupRepo) SyncStatus(ctx context.Context, reference string, status domain.TransactionStatus, providerRef *string, failureReason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[reference]
	if !ok {
		return fmt.Errorf("topup record not found")
	}
	rec.Status = status
	if providerRef != nil {
		rec.ProviderRef = providerRef
	}
	rec.FailureReason = failureReason
	rec.UpdatedAt = time.Now()
	return nil
}

// --- In-Memory Frequent Contact Repo ---

type contactKey struct {
	owner   uuid.UUID
	service domain.ServiceKind
	phone   string
}

type inMemoryContactRepo struct {
	mu       sync.RWMutex
	contacts map[contactKey]*domain.FrequentContact
}

func newInMemoryContactRepo() *inMemoryContactRepo {
	return &inMemoryContactRepo{contacts: make(map[contactKey]*domain.FrequentContact)}
}

func (r *inMemoryContactRepo) Increment(ctx context.Context, ownerID uuid.UUID, service domain.ServiceKind, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := contactKey{owner: ownerID, service: service, phone: phone}
	c, ok := r.contacts[key]
	if !ok {
		c = &domain.FrequentContact{OwnerID: ownerID, Service: service, Phone: phone}
		r.contacts[key] = c
	}
	c.Count++
	c.UpdatedAt = time.Now()
	return nil
}

func (r *inMemoryContactRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.FrequentContact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.FrequentContact
	for _, c := range r.contacts {
		if c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- In-Memory Transactor ---

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
	return pgconn.CommandTag{}, nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *noopTx) Conn() *pgx.Conn                                               { return nil }

// --- Scriptable Providers ---

// scriptedTopupProvider answers purchase/requery calls with whatever outcome
// the test has queued per reference. Unscripted references come back pending.
type scriptedTopupProvider struct {
	mu       sync.Mutex
	outcomes map[string]ports.TopupOutcome
	calls    map[string]int
}

func newScriptedTopupProvider() *scriptedTopupProvider {
	return &scriptedTopupProvider{
		outcomes: make(map[string]ports.TopupOutcome),
		calls:    make(map[string]int),
	}
}

func (p *scriptedTopupProvider) script(reference string, out ports.TopupOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes[reference] = out
}

func (p *scriptedTopupProvider) callCount(reference string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[reference]
}

func (p *scriptedTopupProvider) answer(reference string) *ports.TopupOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[reference]++
	if out, ok := p.outcomes[reference]; ok {
		cp := out
		return &cp
	}
	return &ports.TopupOutcome{Outcome: domain.OutcomePending, RawStatus: "pending"}
}

func (p *scriptedTopupProvider) Purchase(ctx context.Context, req ports.TopupPurchase) (*ports.TopupOutcome, error) {
	return p.answer(req.Reference), nil
}

func (p *scriptedTopupProvider) Requery(ctx context.Context, reference string) (*ports.TopupOutcome, error) {
	return p.answer(reference), nil
}

// scriptedFundingProvider mirrors scriptedTopupProvider for the
// payment-collection side.
type scriptedFundingProvider struct {
	mu       sync.Mutex
	outcomes map[string]ports.FundingOutcome
}

func newScriptedFundingProvider() *scriptedFundingProvider {
	return &scriptedFundingProvider{outcomes: make(map[string]ports.FundingOutcome)}
}

func (p *scriptedFundingProvider) script(reference string, out ports.FundingOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes[reference] = out
}

func (p *scriptedFundingProvider) Initialize(ctx context.Context, req ports.FundingInit) (string, error) {
	return "https://checkout.test/" + req.Reference, nil
}

func (p *scriptedFundingProvider) Verify(ctx context.Context, reference string) (*ports.FundingOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if out, ok := p.outcomes[reference]; ok {
		cp := out
		return &cp, nil
	}
	return &ports.FundingOutcome{Outcome: domain.OutcomePending, RawStatus: "pending"}, nil
}
