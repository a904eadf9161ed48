package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"vtu-wallet/config"
	"vtu-wallet/internal/core/domain"
	"vtu-wallet/internal/core/ports"
	"vtu-wallet/pkg/apperror"

	"github.com/rs/zerolog"
)

// RequeryScheduler periodically re-checks pending transactions against
// their providers and feeds the answers through the reconciliation engine.
// One sweep runs at a time; Notify wakes the loop early when new pending
// work is created. Retries are bounded per service group, and transactions
// that exhaust their budget stay pending for manual resolution, never
// auto-failed.
type RequeryScheduler struct {
	txRepo     ports.TransactionRepository
	topup      ports.TopupProvider
	funding    ports.FundingProvider
	reconciler ports.Reconciler

	interval   time.Duration
	maxTopup   int
	maxFunding int

	lifecycle sync.Mutex
	active    atomic.Bool
	sweeping  atomic.Bool
	wake      chan struct{}
	stopCh    chan struct{}
	log       zerolog.Logger
}

// NewRequeryScheduler creates a stopped scheduler.
func NewRequeryScheduler(
	cfg config.RequeryConfig,
	txRepo ports.TransactionRepository,
	topup ports.TopupProvider,
	funding ports.FundingProvider,
	reconciler ports.Reconciler,
	log zerolog.Logger,
) *RequeryScheduler {
	return &RequeryScheduler{
		txRepo:     txRepo,
		topup:      topup,
		funding:    funding,
		reconciler: reconciler,
		interval:   cfg.Interval,
		maxTopup:   cfg.MaxAttemptsTopup,
		maxFunding: cfg.MaxAttemptsFunding,
		wake:       make(chan struct{}, 1),
		log:        log.With().Str("component", "requery").Logger(),
	}
}

var _ ports.RequerySweeper = (*RequeryScheduler)(nil)

// Start launches the sweep loop. Calling Start on a running scheduler is a
// no-op.
func (s *RequeryScheduler) Start(ctx context.Context) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if !s.active.CompareAndSwap(false, true) {
		return
	}
	s.stopCh = make(chan struct{})
	s.log.Info().Dur("interval", s.interval).Msg("requery scheduler started")
	go s.run(ctx, s.stopCh)
}

// Stop terminates the sweep loop. Idempotent.
func (s *RequeryScheduler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.active.CompareAndSwap(true, false) {
		close(s.stopCh)
		s.log.Info().Msg("requery scheduler stopped")
	}
}

// IsActive reports whether the sweep loop is running.
func (s *RequeryScheduler) IsActive() bool {
	return s.active.Load()
}

// Notify wakes the sweep loop ahead of its next tick. Never blocks.
func (s *RequeryScheduler) Notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// ResolveReference requeries a single transaction immediately, outside the
// sweep cadence (operator path for stuck transactions).
func (s *RequeryScheduler) ResolveReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("Transaction")
	}
	if txn.IsTerminal() {
		return txn, nil
	}
	return s.requeryOne(ctx, txn, "manual-requery")
}

func (s *RequeryScheduler) run(ctx context.Context, stopCh <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.active.Store(false)
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.wake:
			s.sweep(ctx)
		}
	}
}

// sweep re-checks every pending transaction still inside its retry budget.
// Overlapping sweeps are skipped rather than queued.
func (s *RequeryScheduler) sweep(ctx context.Context) {
	if !s.sweeping.CompareAndSwap(false, true) {
		return
	}
	defer s.sweeping.Store(false)

	resolvedCount := s.sweepGroup(ctx, domain.TopupServices, s.maxTopup)
	resolvedCount += s.sweepGroup(ctx, []domain.ServiceKind{domain.ServiceFunding}, s.maxFunding)
	if resolvedCount > 0 {
		s.log.Info().Int("resolved", resolvedCount).Msg("sweep finished")
	}

	s.reportStuck(ctx)
}

func (s *RequeryScheduler) sweepGroup(ctx context.Context, services []domain.ServiceKind, maxAttempts int) int {
	pending, err := s.txRepo.FindPending(ctx, services, maxAttempts)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load pending transactions")
		return 0
	}

	resolved := 0
	for i := range pending {
		txn := &pending[i]
		got, err := s.requeryOne(ctx, txn, "auto-requery")
		if err != nil {
			// One bad transaction never stalls the rest of the sweep.
			s.log.Error().Err(err).Str("reference", txn.Reference).Msg("requery failed")
			continue
		}
		if got != nil && got.IsTerminal() {
			resolved++
		}
	}
	return resolved
}

func (s *RequeryScheduler) requeryOne(ctx context.Context, txn *domain.Transaction, action string) (*domain.Transaction, error) {
	var res ports.Resolution
	res.Action = action

	if txn.IsTopup() {
		out, err := s.topup.Requery(ctx, txn.Reference)
		if err != nil {
			return nil, err
		}
		res.Outcome = out.Outcome
		res.ProviderRef = out.ProviderRef
		if out.Outcome == domain.OutcomeFailed {
			res.FailureReason = out.Description
		}
	} else {
		out, err := s.funding.Verify(ctx, txn.Reference)
		if err != nil {
			return nil, err
		}
		res.Outcome = out.Outcome
		if out.Outcome == domain.OutcomeFailed {
			res.FailureReason = failureFromStatus(out.RawStatus)
		}
	}

	return s.reconciler.Resolve(ctx, txn.Reference, res)
}

// reportStuck surfaces transactions that exhausted their retry budget.
// They keep their pending status; resolution from here is an operator call.
func (s *RequeryScheduler) reportStuck(ctx context.Context) {
	stuckTopup, err := s.txRepo.FindStuck(ctx, domain.TopupServices, s.maxTopup)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load stuck top-ups")
		return
	}
	stuckFunding, err := s.txRepo.FindStuck(ctx, []domain.ServiceKind{domain.ServiceFunding}, s.maxFunding)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load stuck fundings")
		return
	}

	for _, txn := range append(stuckTopup, stuckFunding...) {
		s.log.Warn().
			Str("reference", txn.Reference).
			Str("service", string(txn.Service)).
			Int("attempts", txn.Attempts).
			Msg("transaction exhausted automatic retries, awaiting manual resolution")
	}
}
