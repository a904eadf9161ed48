package service

import (
	"context"
	"fmt"

	"vtu-wallet/internal/core/domain"
	"vtu-wallet/internal/core/ports"
	"vtu-wallet/pkg/apperror"

	"github.com/rs/zerolog"
)

// ReconcileService is the single write path from provider outcomes to
// terminal ledger state. Every entry point (synchronous purchase response,
// requery sweep, webhook, manual verification) funnels through Resolve, and
// the pending -> terminal transition is claimed with a conditional update so
// that concurrent resolutions of the same reference mutate the wallet at
// most once.
type ReconcileService struct {
	transactor ports.DBTransactor
	txRepo     ports.TransactionRepository
	walletRepo ports.WalletRepository
	topupRepo  ports.TopupRecordRepository
	contacts   ports.FrequentContactRepository
	log        zerolog.Logger
}

// NewReconcileService creates the reconciliation engine.
func NewReconcileService(
	transactor ports.DBTransactor,
	txRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	topupRepo ports.TopupRecordRepository,
	contacts ports.FrequentContactRepository,
	log zerolog.Logger,
) *ReconcileService {
	return &ReconcileService{
		transactor: transactor,
		txRepo:     txRepo,
		walletRepo: walletRepo,
		topupRepo:  topupRepo,
		contacts:   contacts,
		log:        log.With().Str("component", "reconciler").Logger(),
	}
}

var _ ports.Reconciler = (*ReconcileService)(nil)

// Resolve applies a provider outcome to the referenced transaction.
//
// Already-terminal transactions make late or duplicate outcomes a no-op: the
// stored transaction is returned unchanged. Pending and Unreachable outcomes
// only record the attempt; the transaction stays pending for the next sweep.
// Terminal outcomes claim the transition and apply the paired wallet
// mutation inside one database transaction.
func (s *ReconcileService) Resolve(ctx context.Context, reference string, res ports.Resolution) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("Transaction")
	}

	log := s.log.With().
		Str("reference", reference).
		Str("action", res.Action).
		Str("outcome", string(res.Outcome)).
		Logger()

	if txn.IsTerminal() {
		log.Debug().Str("status", string(txn.Status)).Msg("outcome for already-resolved transaction discarded")
		return txn, nil
	}

	// Attempts are recorded for every resolution trigger, including ones
	// where the provider never answered, so retries stay bounded.
	if err := s.txRepo.RecordAttempt(ctx, reference, res.Action); err != nil {
		log.Error().Err(err).Msg("failed to record resolution attempt")
	}

	switch res.Outcome {
	case domain.OutcomePending, domain.OutcomeUnreachable:
		log.Info().Int("attempts", txn.Attempts+1).Msg("transaction still unresolved")
		return s.txRepo.GetByReference(ctx, reference)
	case domain.OutcomeDelivered, domain.OutcomeFailed:
		return s.finalize(ctx, txn, res, log)
	default:
		return nil, apperror.InternalError(fmt.Errorf("unknown outcome %q", res.Outcome))
	}
}

// finalize claims the pending -> terminal transition and applies the wallet
// mutation that pairs with it:
//
//	debit  + delivered: no mutation, the optimistic debit stands
//	debit  + failed:    refund the held amount
//	credit + delivered: credit the wallet
//	credit + failed:    no mutation, nothing was ever held
func (s *ReconcileService) finalize(ctx context.Context, txn *domain.Transaction, res ports.Resolution, log zerolog.Logger) (*domain.Transaction, error) {
	status := domain.TransactionStatusSuccess
	if res.Outcome == domain.OutcomeFailed {
		status = domain.TransactionStatusFailed
	}

	transition := ports.TerminalTransition{
		Reference: txn.Reference,
		Status:    status,
		Action:    res.Action,
	}
	if res.ProviderRef != "" {
		transition.ProviderRef = &res.ProviderRef
	}
	if status == domain.TransactionStatusFailed {
		reason := res.FailureReason
		if reason == "" {
			reason = "provider reported failure"
		}
		transition.FailureReason = &reason
	}

	var delta int64
	switch {
	case txn.Direction == domain.DirectionDebit && status == domain.TransactionStatusFailed:
		delta = txn.Amount // refund
	case txn.Direction == domain.DirectionCredit && status == domain.TransactionStatusSuccess:
		delta = txn.Amount // credit on confirmation
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	defer dbTx.Rollback(ctx)

	claimed, err := s.txRepo.MarkTerminal(ctx, dbTx, transition)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if !claimed {
		// A concurrent resolver got there first. Discard this outcome and
		// return what won.
		log.Info().Msg("lost terminal-transition race, outcome discarded")
		return s.txRepo.GetByReference(ctx, txn.Reference)
	}

	var balanceAfter = txn.BalanceAfter
	if delta != 0 {
		balanceAfter, err = s.walletRepo.AddBalance(ctx, dbTx, txn.WalletID, delta)
		if err != nil {
			return nil, apperror.InternalError(err)
		}
		if err := s.txRepo.SetBalanceAfter(ctx, dbTx, txn.Reference, balanceAfter); err != nil {
			return nil, apperror.InternalError(err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(err)
	}

	log.Info().
		Str("status", string(status)).
		Int64("amount", txn.Amount).
		Int64("balance_before", txn.BalanceBefore).
		Int64("balance_after", balanceAfter).
		Msg("transaction resolved")

	s.afterFinalize(ctx, txn, status, transition)

	return s.txRepo.GetByReference(ctx, txn.Reference)
}

// afterFinalize mirrors terminal state onto the denormalized top-up record
// and bumps the frequent-contact counter on success. Both are best effort;
// the ledger is the source of truth.
func (s *ReconcileService) afterFinalize(ctx context.Context, txn *domain.Transaction, status domain.TransactionStatus, tr ports.TerminalTransition) {
	if !txn.IsTopup() {
		return
	}
	if err := s.topupRepo.SyncStatus(ctx, txn.Reference, status, tr.ProviderRef, tr.FailureReason); err != nil {
		s.log.Error().Err(err).Str("reference", txn.Reference).Msg("failed to sync top-up record status")
	}
	if status == domain.TransactionStatusSuccess && txn.Phone != "" {
		if err := s.contacts.Increment(ctx, txn.OwnerID, txn.Service, txn.Phone); err != nil {
			s.log.Error().Err(err).Str("reference", txn.Reference).Msg("failed to bump frequent contact")
		}
	}
}
