package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vtu-wallet/internal/core/domain"
	"vtu-wallet/internal/core/ports"
	"vtu-wallet/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const transactionColumns = `id, wallet_id, owner_id, direction, amount, service, reference,
	provider_ref, status, failure_reason, description, phone, attempts, last_attempt_at,
	requery_log, balance_before, balance_after, created_at, updated_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new pending ledger entry within a database transaction.
// The unique constraint on reference is the authoritative idempotency gate:
// a reuse surfaces as apperror.ErrDuplicateReference.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, wallet_id, owner_id, direction, amount, service,
		reference, provider_ref, status, failure_reason, description, phone, attempts,
		last_attempt_at, requery_log, balance_before, balance_after, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	requeryLog := t.RequeryLog
	if requeryLog == nil {
		requeryLog = []domain.RequeryEntry{}
	}

	_, err := tx.Exec(ctx, query,
		t.ID, t.WalletID, t.OwnerID, t.Direction, t.Amount, t.Service,
		t.Reference, t.ProviderRef, t.Status, t.FailureReason, t.Description, t.Phone,
		t.Attempts, t.LastAttemptAt, requeryLog, t.BalanceBefore, t.BalanceAfter,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperror.ErrDuplicateReference()
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByReference fetches a transaction by its reference.
func (r *TransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE reference = $1`, transactionColumns)

	return scanTransaction(r.pool.QueryRow(ctx, query, reference))
}

// MarkTerminal transitions a transaction out of pending, stamping provider
// reference and failure reason and appending a requery-log entry. The
// WHERE status = 'pending' predicate is the compare-and-swap that makes
// concurrent resolution attempts serialize: only the first caller to still
// observe pending gets a row back.
func (r *TransactionRepo) MarkTerminal(ctx context.Context, tx pgx.Tx, tr ports.TerminalTransition) (bool, error) {
	query := `UPDATE transactions
		SET status = $2,
			provider_ref = COALESCE($3, provider_ref),
			failure_reason = $4,
			requery_log = requery_log || jsonb_build_object('timestamp', NOW(), 'action', $5::text, 'attempt', attempts),
			updated_at = NOW()
		WHERE reference = $1 AND status = 'pending'`

	tag, err := tx.Exec(ctx, query, tr.Reference, tr.Status, tr.ProviderRef, tr.FailureReason, tr.Action)
	if err != nil {
		return false, fmt.Errorf("mark terminal: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetBalanceAfter stamps the post-mutation balance on the ledger entry.
func (r *TransactionRepo) SetBalanceAfter(ctx context.Context, tx pgx.Tx, reference string, balanceAfter int64) error {
	query := `UPDATE transactions SET balance_after = $2, updated_at = NOW() WHERE reference = $1`

	tag, err := tx.Exec(ctx, query, reference, balanceAfter)
	if err != nil {
		return fmt.Errorf("set balance after: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", reference)
	}
	return nil
}

// RecordAttempt increments the attempt counter, stamps last_attempt_at and
// appends a requery-log entry, all in one UPDATE. Only pending rows are
// touched; a row that went terminal under a concurrent resolver stays
// immutable and the attempt is silently dropped.
func (r *TransactionRepo) RecordAttempt(ctx context.Context, reference string, action string) error {
	query := `UPDATE transactions
		SET attempts = attempts + 1,
			last_attempt_at = NOW(),
			requery_log = requery_log || jsonb_build_object('timestamp', NOW(), 'action', $2::text, 'attempt', attempts + 1),
			updated_at = NOW()
		WHERE reference = $1 AND status = 'pending'`

	_, err := r.pool.Exec(ctx, query, reference, action)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// FindPending returns pending transactions still eligible for automatic
// requery, oldest first.
func (r *TransactionRepo) FindPending(ctx context.Context, services []domain.ServiceKind, maxAttempts int) ([]domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions
		WHERE service = ANY($1) AND status = 'pending' AND attempts < $2
		ORDER BY created_at ASC`, transactionColumns)

	rows, err := r.pool.Query(ctx, query, serviceNames(services), maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("find pending transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// HasPending reports whether any transaction is eligible for requery.
func (r *TransactionRepo) HasPending(ctx context.Context, services []domain.ServiceKind, maxAttempts int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM transactions
		WHERE service = ANY($1) AND status = 'pending' AND attempts < $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, serviceNames(services), maxAttempts).Scan(&exists); err != nil {
		return false, fmt.Errorf("check pending transactions: %w", err)
	}
	return exists, nil
}

// FindStuck returns pending transactions that exhausted their automatic
// retries; these wait for manual resolution and are never auto-failed.
func (r *TransactionRepo) FindStuck(ctx context.Context, services []domain.ServiceKind, maxAttempts int) ([]domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions
		WHERE service = ANY($1) AND status = 'pending' AND attempts >= $2
		ORDER BY created_at ASC`, transactionColumns)

	rows, err := r.pool.Query(ctx, query, serviceNames(services), maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("find stuck transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListByOwner fetches an owner's transactions with filtering and pagination.
func (r *TransactionRepo) ListByOwner(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argIdx))
	args = append(args, params.OwnerID)
	argIdx++

	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.Service != nil {
		conditions = append(conditions, fmt.Sprintf("service = $%d", argIdx))
		args = append(args, *params.Service)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM transactions %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, transactionColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns, err := collectTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func serviceNames(services []domain.ServiceKind) []string {
	names := make([]string, len(services))
	for i, s := range services {
		names[i] = string(s)
	}
	return names
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		if err := scanTransactionFields(rows, &t); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	if err := scanTransactionFields(row, t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}

func scanTransactionFields(row pgx.Row, t *domain.Transaction) error {
	return row.Scan(
		&t.ID, &t.WalletID, &t.OwnerID, &t.Direction, &t.Amount, &t.Service,
		&t.Reference, &t.ProviderRef, &t.Status, &t.FailureReason, &t.Description,
		&t.Phone, &t.Attempts, &t.LastAttemptAt, &t.RequeryLog,
		&t.BalanceBefore, &t.BalanceAfter, &t.CreatedAt, &t.UpdatedAt,
	)
}
