package postgres

import (
	"context"
	"errors"
	"fmt"

	"vtu-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet into the database.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, owner_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query, w.ID, w.OwnerID, w.Balance, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID.
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, owner_id, balance, created_at, updated_at
		FROM wallets WHERE id = $1`

	return r.scanWallet(r.pool.QueryRow(ctx, query, id), "get wallet by id")
}

// GetByOwnerID fetches a wallet by its owner. Returns nil, nil when the
// owner has no wallet yet.
func (r *WalletRepo) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, owner_id, balance, created_at, updated_at
		FROM wallets WHERE owner_id = $1`

	return r.scanWallet(r.pool.QueryRow(ctx, query, ownerID), "get wallet by owner")
}

// EnsureForOwner returns the owner's wallet, creating an empty one on first
// need. The upsert makes concurrent first-use race-free.
func (r *WalletRepo) EnsureForOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	query := `INSERT INTO wallets (id, owner_id, balance, created_at, updated_at)
		VALUES ($1, $2, 0, NOW(), NOW())
		ON CONFLICT (owner_id) DO UPDATE SET updated_at = wallets.updated_at
		RETURNING id, owner_id, balance, created_at, updated_at`

	return r.scanWallet(r.pool.QueryRow(ctx, query, uuid.New(), ownerID), "ensure wallet for owner")
}

// AddBalance applies balance = balance + delta atomically within a database
// transaction and returns the new balance. The wallets.balance CHECK
// constraint rejects a result below zero.
func (r *WalletRepo) AddBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta int64) (int64, error) {
	query := `UPDATE wallets SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 RETURNING balance`

	var balance int64
	err := tx.QueryRow(ctx, query, delta, walletID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("wallet not found: %s", walletID)
		}
		return 0, fmt.Errorf("add balance: %w", err)
	}
	return balance, nil
}

// DebitIfSufficient atomically subtracts amount when the balance covers it.
// Returns false (and no error) when the balance was insufficient.
func (r *WalletRepo) DebitIfSufficient(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) (int64, bool, error) {
	query := `UPDATE wallets SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance >= $1 RETURNING balance`

	var balance int64
	err := tx.QueryRow(ctx, query, amount, walletID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("conditional debit: %w", err)
	}
	return balance, true, nil
}

func (r *WalletRepo) scanWallet(row pgx.Row, op string) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(&w.ID, &w.OwnerID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return w, nil
}
