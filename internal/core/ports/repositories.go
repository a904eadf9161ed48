package ports

import (
	"context"
	"time"

	"vtu-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside a database transaction so that the
// balance mutation commits atomically with the ledger write.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	// EnsureForOwner returns the owner's wallet, creating it on first need.
	EnsureForOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	// AddBalance applies balance = balance + delta as a single atomic UPDATE
	// and returns the new balance. Negative deltas that would take the
	// balance below zero are rejected by the store.
	AddBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta int64) (int64, error)
	// DebitIfSufficient atomically subtracts amount when balance >= amount.
	// Returns the new balance and false when the balance was insufficient.
	DebitIfSufficient(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) (int64, bool, error)
}

// TerminalTransition carries the fields stamped when a transaction leaves
// pending. MarkTerminal applies it only while status is still pending.
type TerminalTransition struct {
	Reference     string
	Status        domain.TransactionStatus
	ProviderRef   *string
	FailureReason *string
	Action        string
}

// TransactionRepository defines persistence for the transaction ledger.
type TransactionRepository interface {
	// Create inserts a pending ledger entry. A reused reference surfaces as
	// apperror.ErrDuplicateReference.
	Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	// MarkTerminal conditionally transitions pending -> terminal. Returns
	// false when the transaction was already terminal (a concurrent resolver
	// won); the caller must then discard its outcome.
	MarkTerminal(ctx context.Context, tx pgx.Tx, tr TerminalTransition) (bool, error)
	// SetBalanceAfter stamps the post-mutation balance on the ledger entry.
	SetBalanceAfter(ctx context.Context, tx pgx.Tx, reference string, balanceAfter int64) error
	// RecordAttempt increments the attempt counter, stamps last_attempt_at
	// and appends a requery-log entry. A no-op when the transaction is
	// missing or already terminal.
	RecordAttempt(ctx context.Context, reference string, action string) error
	FindPending(ctx context.Context, services []domain.ServiceKind, maxAttempts int) ([]domain.Transaction, error)
	HasPending(ctx context.Context, services []domain.ServiceKind, maxAttempts int) (bool, error)
	// FindStuck returns pending transactions that exhausted their automatic
	// retries and now wait for manual resolution.
	FindStuck(ctx context.Context, services []domain.ServiceKind, maxAttempts int) ([]domain.Transaction, error)
	ListByOwner(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	OwnerID  uuid.UUID
	Status   *domain.TransactionStatus
	Service  *domain.ServiceKind
	Page     int
	PageSize int
}

// TopupRecordRepository defines persistence for the denormalized
// airtime/data purchase records.
type TopupRecordRepository interface {
	Create(ctx context.Context, tx pgx.Tx, rec *domain.TopupRecord) error
	GetByReference(ctx context.Context, reference string) (*domain.TopupRecord, error)
	// SyncStatus mirrors the ledger's terminal state onto the record.
	SyncStatus(ctx context.Context, reference string, status domain.TransactionStatus, providerRef *string, failureReason *string) error
}

// FrequentContactRepository tracks per-owner top-up destinations.
type FrequentContactRepository interface {
	Increment(ctx context.Context, ownerID uuid.UUID, service domain.ServiceKind, phone string) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.FrequentContact, error)
}

// ReferenceCache is the Redis fast-path duplicate-reference check in front
// of the ledger's unique constraint.
type ReferenceCache interface {
	Get(ctx context.Context, reference string) ([]byte, error) // nil when absent
	Set(ctx context.Context, reference string, value []byte, ttl time.Duration) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
