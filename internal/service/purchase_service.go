package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"vtu-wallet/internal/core/domain"
	"vtu-wallet/internal/core/ports"
	"vtu-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// referenceTTL is how long a consumed reference stays in the Redis
// fast path. The ledger's unique constraint is the real guarantee.
const referenceTTL = 24 * time.Hour

// minPurchaseAmount is the smallest top-up the provider accepts, NGN 50 in kobo.
const minPurchaseAmount = 5000

// PurchaseService drives the optimistic-debit top-up flow: debit the wallet
// and open a pending ledger entry in one database transaction, then submit
// to the provider. A terminal synchronous answer resolves immediately;
// anything else is left pending for the requery sweep.
type PurchaseService struct {
	transactor ports.DBTransactor
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	topupRepo  ports.TopupRecordRepository
	refCache   ports.ReferenceCache
	provider   ports.TopupProvider
	reconciler ports.Reconciler
	sweeper    ports.RequerySweeper
	log        zerolog.Logger
}

// NewPurchaseService creates a PurchaseService.
func NewPurchaseService(
	transactor ports.DBTransactor,
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	topupRepo ports.TopupRecordRepository,
	refCache ports.ReferenceCache,
	provider ports.TopupProvider,
	reconciler ports.Reconciler,
	sweeper ports.RequerySweeper,
	log zerolog.Logger,
) *PurchaseService {
	return &PurchaseService{
		transactor: transactor,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		topupRepo:  topupRepo,
		refCache:   refCache,
		provider:   provider,
		reconciler: reconciler,
		sweeper:    sweeper,
		log:        log.With().Str("component", "purchase").Logger(),
	}
}

var _ ports.PurchaseService = (*PurchaseService)(nil)

// InitiatePurchase validates, debits and submits an airtime or data purchase.
func (s *PurchaseService) InitiatePurchase(ctx context.Context, req ports.PurchaseRequest) (*domain.Transaction, error) {
	if req.Amount < minPurchaseAmount {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.Service != domain.ServiceAirtime && req.Service != domain.ServiceData {
		return nil, apperror.Validation(fmt.Sprintf("service %q cannot be purchased", req.Service))
	}
	if req.Service == domain.ServiceData && req.VariationCode == "" {
		return nil, apperror.Validation("variation_code is required for data purchases")
	}
	if req.Reference == "" {
		req.Reference = newReference("TXN")
	}

	// Redis fast path in front of the ledger's unique constraint. A cache
	// miss is not proof of novelty; Create has the final say.
	if cached, err := s.refCache.Get(ctx, req.Reference); err != nil {
		s.log.Warn().Err(err).Msg("reference cache unavailable, relying on database constraint")
	} else if cached != nil {
		return nil, apperror.ErrDuplicateReference()
	}

	wallet, err := s.walletRepo.EnsureForOwner(ctx, req.OwnerID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	txn, err := s.openLedgerEntry(ctx, wallet, req)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(txn); err == nil {
		if err := s.refCache.Set(ctx, req.Reference, payload, referenceTTL); err != nil {
			s.log.Warn().Err(err).Str("reference", req.Reference).Msg("failed to cache reference")
		}
	}

	s.log.Info().
		Str("reference", txn.Reference).
		Str("service", string(req.Service)).
		Int64("amount", req.Amount).
		Int64("balance_after", txn.BalanceAfter).
		Msg("purchase debited, submitting to provider")

	outcome, err := s.provider.Purchase(ctx, ports.TopupPurchase{
		Reference:     req.Reference,
		Service:       req.Service,
		Network:       req.Network,
		Phone:         req.Phone,
		Amount:        req.Amount,
		VariationCode: req.VariationCode,
	})
	if err != nil {
		// Request never left (bad network name and the like). Refund through
		// the engine so the failure is ledgered like any other.
		return s.reconciler.Resolve(ctx, req.Reference, ports.Resolution{
			Outcome:       domain.OutcomeFailed,
			FailureReason: err.Error(),
			Action:        "sync",
		})
	}

	if outcome.Outcome.IsTerminal() {
		return s.reconciler.Resolve(ctx, req.Reference, ports.Resolution{
			Outcome:       outcome.Outcome,
			ProviderRef:   outcome.ProviderRef,
			FailureReason: outcome.Description,
			Action:        "sync",
		})
	}

	// Pending or unreachable: the debit stands and the requery sweep owns
	// the rest of the lifecycle.
	s.sweeper.Notify()
	return txn, nil
}

// openLedgerEntry debits the wallet and inserts the pending ledger entry and
// top-up record atomically.
func (s *PurchaseService) openLedgerEntry(ctx context.Context, wallet *domain.Wallet, req ports.PurchaseRequest) (*domain.Transaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	defer dbTx.Rollback(ctx)

	newBalance, ok, err := s.walletRepo.DebitIfSufficient(ctx, dbTx, wallet.ID, req.Amount)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if !ok {
		return nil, apperror.ErrInsufficientBalance()
	}

	now := time.Now()
	txn := &domain.Transaction{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		OwnerID:       req.OwnerID,
		Direction:     domain.DirectionDebit,
		Amount:        req.Amount,
		Service:       req.Service,
		Reference:     req.Reference,
		Status:        domain.TransactionStatusPending,
		Description:   purchaseDescription(req),
		Phone:         req.Phone,
		BalanceBefore: newBalance + req.Amount,
		BalanceAfter:  newBalance,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, err
	}

	rec := &domain.TopupRecord{
		ID:            uuid.New(),
		OwnerID:       req.OwnerID,
		WalletID:      wallet.ID,
		Service:       req.Service,
		Network:       strings.ToLower(req.Network),
		Phone:         req.Phone,
		VariationCode: req.VariationCode,
		PlanName:      req.PlanName,
		Amount:        req.Amount,
		Reference:     req.Reference,
		Status:        domain.TransactionStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.topupRepo.Create(ctx, dbTx, rec); err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(err)
	}
	return txn, nil
}

func purchaseDescription(req ports.PurchaseRequest) string {
	if req.Service == domain.ServiceData && req.PlanName != "" {
		return fmt.Sprintf("%s %s for %s", strings.ToUpper(req.Network), req.PlanName, req.Phone)
	}
	return fmt.Sprintf("%s %s for %s", strings.ToUpper(req.Network), req.Service, req.Phone)
}

// newReference builds a prefixed, globally unique transaction reference.
func newReference(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, strings.ReplaceAll(uuid.NewString(), "-", ""))
}
