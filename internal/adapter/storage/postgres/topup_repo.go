package postgres

import (
	"context"
	"errors"
	"fmt"

	"vtu-wallet/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// TopupRecordRepo implements ports.TopupRecordRepository.
type TopupRecordRepo struct {
	pool Pool
}

// NewTopupRecordRepo creates a new TopupRecordRepo.
func NewTopupRecordRepo(pool Pool) *TopupRecordRepo {
	return &TopupRecordRepo{pool: pool}
}

// Create inserts a top-up record within a database transaction so it commits
// together with its ledger entry.
func (r *TopupRecordRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.TopupRecord) error {
	query := `INSERT INTO topup_records (id, owner_id, wallet_id, service, network, phone,
		variation_code, plan_name, amount, reference, provider_ref, status, failure_reason,
		created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := tx.Exec(ctx, query,
		rec.ID, rec.OwnerID, rec.WalletID, rec.Service, rec.Network, rec.Phone,
		rec.VariationCode, rec.PlanName, rec.Amount, rec.Reference, rec.ProviderRef,
		rec.Status, rec.FailureReason, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert topup record: %w", err)
	}
	return nil
}

// GetByReference fetches a top-up record by its ledger reference.
func (r *TopupRecordRepo) GetByReference(ctx context.Context, reference string) (*domain.TopupRecord, error) {
	query := `SELECT id, owner_id, wallet_id, service, network, phone, variation_code,
		plan_name, amount, reference, provider_ref, status, failure_reason, created_at, updated_at
		FROM topup_records WHERE reference = $1`

	rec := &domain.TopupRecord{}
	err := r.pool.QueryRow(ctx, query, reference).Scan(
		&rec.ID, &rec.OwnerID, &rec.WalletID, &rec.Service, &rec.Network, &rec.Phone,
		&rec.VariationCode, &rec.PlanName, &rec.Amount, &rec.Reference, &rec.ProviderRef,
		&rec.Status, &rec.FailureReason, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get topup record: %w", err)
	}
	return rec, nil
}

// SyncStatus mirrors the ledger's terminal state onto the record. The record
// is a denormalized view; the transaction remains authoritative.
func (r *TopupRecordRepo) SyncStatus(ctx context.Context, reference string, status domain.TransactionStatus, providerRef *string, failureReason *string) error {
	query := `UPDATE topup_records
		SET status = $2, provider_ref = COALESCE($3, provider_ref), failure_reason = $4, updated_at = NOW()
		WHERE reference = $1`

	tag, err := r.pool.Exec(ctx, query, reference, status, providerRef, failureReason)
	if err != nil {
		return fmt.Errorf("sync topup record status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("topup record not found: %s", reference)
	}
	return nil
}
