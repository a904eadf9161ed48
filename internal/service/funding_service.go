package service

import (
	"context"
	"fmt"
	"time"

	"vtu-wallet/internal/core/domain"
	"vtu-wallet/internal/core/ports"
	"vtu-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FundingService drives the credit-after-confirmation wallet funding flow.
// No balance moves at initiation: a pending credit entry anchors the
// reference, and the wallet is credited only when the reconciliation engine
// sees a confirmed outcome (webhook, verification, or requery backstop).
type FundingService struct {
	transactor ports.DBTransactor
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	provider   ports.FundingProvider
	reconciler ports.Reconciler
	sweeper    ports.RequerySweeper
	log        zerolog.Logger
}

// NewFundingService creates a FundingService.
func NewFundingService(
	transactor ports.DBTransactor,
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	provider ports.FundingProvider,
	reconciler ports.Reconciler,
	sweeper ports.RequerySweeper,
	log zerolog.Logger,
) *FundingService {
	return &FundingService{
		transactor: transactor,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		provider:   provider,
		reconciler: reconciler,
		sweeper:    sweeper,
		log:        log.With().Str("component", "funding").Logger(),
	}
}

var _ ports.FundingService = (*FundingService)(nil)

// InitiateFunding opens a provider checkout session and anchors it with a
// pending credit ledger entry.
func (s *FundingService) InitiateFunding(ctx context.Context, ownerID uuid.UUID, amount int64, email string) (*ports.FundingInitResult, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	wallet, err := s.walletRepo.EnsureForOwner(ctx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	reference := newReference("FUND")
	authURL, err := s.provider.Initialize(ctx, ports.FundingInit{
		Reference: reference,
		Amount:    amount,
		Email:     email,
		OwnerID:   ownerID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.openPendingCredit(ctx, wallet, ownerID, reference, amount, "Wallet funding"); err != nil {
		return nil, err
	}
	s.sweeper.Notify()

	s.log.Info().
		Str("reference", reference).
		Int64("amount", amount).
		Msg("funding initiated, awaiting confirmation")

	return &ports.FundingInitResult{Reference: reference, AuthorizationURL: authURL}, nil
}

// VerifyFunding re-checks a funding attempt against the provider and feeds
// the outcome through the reconciliation engine. Safe to call any number of
// times; a duplicate confirmation is discarded by the engine.
func (s *FundingService) VerifyFunding(ctx context.Context, reference string) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("Transaction")
	}
	if txn.Service != domain.ServiceFunding {
		return nil, apperror.Validation("reference is not a funding transaction")
	}
	if txn.IsTerminal() {
		return txn, nil
	}

	out, err := s.provider.Verify(ctx, reference)
	if err != nil {
		return nil, apperror.ErrProviderUnreachable(err)
	}
	if out.Amount != 0 && out.Amount != txn.Amount {
		s.log.Warn().
			Str("reference", reference).
			Int64("recorded", txn.Amount).
			Int64("reported", out.Amount).
			Msg("provider reports a different amount than recorded")
	}

	return s.reconciler.Resolve(ctx, reference, ports.Resolution{
		Outcome:       out.Outcome,
		FailureReason: failureFromStatus(out.RawStatus),
		Action:        "manual-verify",
	})
}

// openPendingCredit inserts the pending credit entry. Balance before and
// after are stamped equal; nothing moves until confirmation.
func (s *FundingService) openPendingCredit(ctx context.Context, wallet *domain.Wallet, ownerID uuid.UUID, reference string, amount int64, description string) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(err)
	}
	defer dbTx.Rollback(ctx)

	now := time.Now()
	txn := &domain.Transaction{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		OwnerID:       ownerID,
		Direction:     domain.DirectionCredit,
		Amount:        amount,
		Service:       domain.ServiceFunding,
		Reference:     reference,
		Status:        domain.TransactionStatusPending,
		Description:   description,
		BalanceBefore: wallet.Balance,
		BalanceAfter:  wallet.Balance,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(err)
	}
	return nil
}

func failureFromStatus(rawStatus string) string {
	if rawStatus == "" {
		return ""
	}
	return fmt.Sprintf("provider status %q", rawStatus)
}
