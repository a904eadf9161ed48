package postgres

import (
	"context"
	"testing"
	"time"

	"vtu-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(ownerID uuid.UUID) *domain.Wallet {
	return &domain.Wallet{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Balance:   100000,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		UpdatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func walletColumns() []string {
	return []string{"id", "owner_id", "balance", "created_at", "updated_at"}
}

func walletRow(w *domain.Wallet) *pgxmock.Rows {
	return pgxmock.NewRows(walletColumns()).AddRow(
		w.ID, w.OwnerID, w.Balance, w.CreatedAt, w.UpdatedAt,
	)
}

func TestWalletRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.ID, w.OwnerID, w.Balance, w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), w)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectQuery("FROM wallets WHERE id").
		WithArgs(w.ID).
		WillReturnRows(walletRow(w))

	result, err := repo.GetByID(context.Background(), w.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.Equal(t, w.Balance, result.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByOwnerID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	ownerID := uuid.New()

	mock.ExpectQuery("FROM wallets WHERE owner_id").
		WithArgs(ownerID).
		WillReturnRows(pgxmock.NewRows(walletColumns()))

	result, err := repo.GetByOwnerID(context.Background(), ownerID)
	require.NoError(t, err)
	assert.Nil(t, result, "missing wallet is nil, not an error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_EnsureForOwner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	ownerID := uuid.New()
	w := newTestWallet(ownerID)
	w.Balance = 0

	mock.ExpectQuery("ON CONFLICT \\(owner_id\\) DO UPDATE").
		WithArgs(pgxmock.AnyArg(), ownerID).
		WillReturnRows(walletRow(w))

	result, err := repo.EnsureForOwner(context.Background(), ownerID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, ownerID, result.OwnerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_AddBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	walletID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SET balance = balance \\+").
		WithArgs(int64(50000), walletID).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(150000)))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	balance, err := repo.AddBalance(context.Background(), tx, walletID, 50000)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_DebitIfSufficient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	walletID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("balance >= .+ RETURNING balance").
		WithArgs(int64(20000), walletID).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(80000)))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	balance, ok, err := repo.DebitIfSufficient(context.Background(), tx, walletID, 20000)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(80000), balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_DebitIfSufficient_Insufficient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	walletID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("balance >= .+ RETURNING balance").
		WithArgs(int64(999999), walletID).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	_, ok, err := repo.DebitIfSufficient(context.Background(), tx, walletID, 999999)
	require.NoError(t, err, "an insufficient balance is a refusal, not an error")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
