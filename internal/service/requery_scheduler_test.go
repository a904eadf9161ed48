package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vtu-wallet/config"
	"vtu-wallet/internal/core/domain"
	"vtu-wallet/internal/core/ports"
	"vtu-wallet/internal/core/ports/mocks"
	"vtu-wallet/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type schedulerFixture struct {
	txRepo     *mocks.MockTransactionRepository
	topup      *mocks.MockTopupProvider
	funding    *mocks.MockFundingProvider
	reconciler *mocks.MockReconciler
	sched      *RequeryScheduler
}

func newSchedulerFixture(t *testing.T, interval time.Duration) *schedulerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &schedulerFixture{
		txRepo:     mocks.NewMockTransactionRepository(ctrl),
		topup:      mocks.NewMockTopupProvider(ctrl),
		funding:    mocks.NewMockFundingProvider(ctrl),
		reconciler: mocks.NewMockReconciler(ctrl),
	}
	cfg := config.RequeryConfig{
		Interval:           interval,
		MaxAttemptsTopup:   3,
		MaxAttemptsFunding: 5,
	}
	f.sched = NewRequeryScheduler(cfg, f.txRepo, f.topup, f.funding, f.reconciler, zerolog.Nop())
	return f
}

func (f *schedulerFixture) expectQuietSweeps() {
	f.txRepo.EXPECT().FindPending(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	f.txRepo.EXPECT().FindStuck(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
}

func waitFor(t *testing.T, done <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal(msg)
	}
}

func TestScheduler_StartStopIdempotent(t *testing.T) {
	f := newSchedulerFixture(t, time.Hour)
	f.expectQuietSweeps()

	assert.False(t, f.sched.IsActive())

	f.sched.Start(context.Background())
	f.sched.Start(context.Background())
	assert.True(t, f.sched.IsActive())

	f.sched.Stop()
	f.sched.Stop()
	assert.False(t, f.sched.IsActive())
}

func TestScheduler_ConcurrentStartStop(t *testing.T) {
	f := newSchedulerFixture(t, time.Hour)
	f.expectQuietSweeps()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.sched.Start(context.Background())
		}()
		go func() {
			defer wg.Done()
			f.sched.Stop()
		}()
	}
	wg.Wait()

	f.sched.Stop()
	assert.False(t, f.sched.IsActive())
}

func TestScheduler_InitialSweepResolvesBothGroups(t *testing.T) {
	f := newSchedulerFixture(t, time.Hour)
	done := make(chan struct{})

	topupTxn := domain.Transaction{Reference: "txn-1", Service: domain.ServiceAirtime, Status: domain.TransactionStatusPending}
	fundTxn := domain.Transaction{Reference: "FUND-1", Service: domain.ServiceFunding, Direction: domain.DirectionCredit, Status: domain.TransactionStatusPending}

	f.txRepo.EXPECT().FindPending(gomock.Any(), domain.TopupServices, 3).Return([]domain.Transaction{topupTxn}, nil)
	f.topup.EXPECT().Requery(gomock.Any(), "txn-1").Return(&ports.TopupOutcome{Outcome: domain.OutcomeDelivered, ProviderRef: "prov-1"}, nil)
	f.reconciler.EXPECT().Resolve(gomock.Any(), "txn-1", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, res ports.Resolution) (*domain.Transaction, error) {
			assert.Equal(t, "auto-requery", res.Action)
			assert.Equal(t, domain.OutcomeDelivered, res.Outcome)
			return &domain.Transaction{Reference: "txn-1", Status: domain.TransactionStatusSuccess}, nil
		})

	f.txRepo.EXPECT().FindPending(gomock.Any(), []domain.ServiceKind{domain.ServiceFunding}, 5).Return([]domain.Transaction{fundTxn}, nil)
	f.funding.EXPECT().Verify(gomock.Any(), "FUND-1").Return(&ports.FundingOutcome{Outcome: domain.OutcomeFailed, RawStatus: "abandoned"}, nil)
	f.reconciler.EXPECT().Resolve(gomock.Any(), "FUND-1", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, res ports.Resolution) (*domain.Transaction, error) {
			assert.Equal(t, domain.OutcomeFailed, res.Outcome)
			assert.NotEmpty(t, res.FailureReason)
			return &domain.Transaction{Reference: "FUND-1", Status: domain.TransactionStatusFailed}, nil
		})

	f.txRepo.EXPECT().FindStuck(gomock.Any(), domain.TopupServices, 3).Return(nil, nil)
	f.txRepo.EXPECT().FindStuck(gomock.Any(), []domain.ServiceKind{domain.ServiceFunding}, 5).DoAndReturn(
		func(context.Context, []domain.ServiceKind, int) ([]domain.Transaction, error) {
			close(done)
			return nil, nil
		})

	f.sched.Start(context.Background())
	t.Cleanup(f.sched.Stop)

	waitFor(t, done, "sweep did not finish")
}

func TestScheduler_ProviderErrorDoesNotStallSweep(t *testing.T) {
	f := newSchedulerFixture(t, time.Hour)
	done := make(chan struct{})

	broken := domain.Transaction{Reference: "txn-bad", Service: domain.ServiceAirtime, Status: domain.TransactionStatusPending}
	healthy := domain.Transaction{Reference: "txn-good", Service: domain.ServiceData, Status: domain.TransactionStatusPending}

	f.txRepo.EXPECT().FindPending(gomock.Any(), domain.TopupServices, 3).Return([]domain.Transaction{broken, healthy}, nil)
	f.topup.EXPECT().Requery(gomock.Any(), "txn-bad").Return(nil, errors.New("boom"))
	f.topup.EXPECT().Requery(gomock.Any(), "txn-good").Return(&ports.TopupOutcome{Outcome: domain.OutcomeDelivered}, nil)
	f.reconciler.EXPECT().Resolve(gomock.Any(), "txn-good", gomock.Any()).Return(
		&domain.Transaction{Reference: "txn-good", Status: domain.TransactionStatusSuccess}, nil)

	f.txRepo.EXPECT().FindPending(gomock.Any(), []domain.ServiceKind{domain.ServiceFunding}, 5).Return(nil, nil)
	f.txRepo.EXPECT().FindStuck(gomock.Any(), domain.TopupServices, 3).Return(nil, nil)
	f.txRepo.EXPECT().FindStuck(gomock.Any(), []domain.ServiceKind{domain.ServiceFunding}, 5).DoAndReturn(
		func(context.Context, []domain.ServiceKind, int) ([]domain.Transaction, error) {
			close(done)
			return nil, nil
		})

	f.sched.Start(context.Background())
	t.Cleanup(f.sched.Stop)

	waitFor(t, done, "sweep did not finish")
}

func TestScheduler_NotifyNeverBlocks(t *testing.T) {
	f := newSchedulerFixture(t, time.Hour)

	// no consumer running; repeated notifications must not block
	for i := 0; i < 10; i++ {
		f.sched.Notify()
	}
	assert.False(t, f.sched.IsActive())
}

func TestScheduler_ContextCancelDeactivates(t *testing.T) {
	f := newSchedulerFixture(t, 10*time.Millisecond)
	f.expectQuietSweeps()

	ctx, cancel := context.WithCancel(context.Background())
	f.sched.Start(ctx)
	require.True(t, f.sched.IsActive())

	cancel()
	require.Eventually(t, func() bool { return !f.sched.IsActive() }, 2*time.Second, 10*time.Millisecond)
}

func TestResolveReference_TopupDispatch(t *testing.T) {
	f := newSchedulerFixture(t, time.Hour)
	ctx := context.Background()
	txn := &domain.Transaction{Reference: "txn-1", Service: domain.ServiceAirtime, Status: domain.TransactionStatusPending}

	f.txRepo.EXPECT().GetByReference(ctx, "txn-1").Return(txn, nil)
	f.topup.EXPECT().Requery(ctx, "txn-1").Return(&ports.TopupOutcome{Outcome: domain.OutcomeDelivered}, nil)
	f.reconciler.EXPECT().Resolve(ctx, "txn-1", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, res ports.Resolution) (*domain.Transaction, error) {
			assert.Equal(t, "manual-requery", res.Action)
			return &domain.Transaction{Reference: "txn-1", Status: domain.TransactionStatusSuccess}, nil
		})

	got, err := f.sched.ResolveReference(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusSuccess, got.Status)
}

func TestResolveReference_FundingDispatch(t *testing.T) {
	f := newSchedulerFixture(t, time.Hour)
	ctx := context.Background()
	txn := &domain.Transaction{Reference: "FUND-1", Service: domain.ServiceFunding, Status: domain.TransactionStatusPending}

	f.txRepo.EXPECT().GetByReference(ctx, "FUND-1").Return(txn, nil)
	f.funding.EXPECT().Verify(ctx, "FUND-1").Return(&ports.FundingOutcome{Outcome: domain.OutcomePending}, nil)
	f.reconciler.EXPECT().Resolve(ctx, "FUND-1", gomock.Any()).Return(txn, nil)

	got, err := f.sched.ResolveReference(ctx, "FUND-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, got.Status)
}

func TestResolveReference_TerminalShortCircuits(t *testing.T) {
	f := newSchedulerFixture(t, time.Hour)
	ctx := context.Background()
	txn := &domain.Transaction{Reference: "txn-done", Service: domain.ServiceAirtime, Status: domain.TransactionStatusSuccess}

	f.txRepo.EXPECT().GetByReference(ctx, "txn-done").Return(txn, nil)

	got, err := f.sched.ResolveReference(ctx, "txn-done")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusSuccess, got.Status)
}

func TestResolveReference_UnknownReference(t *testing.T) {
	f := newSchedulerFixture(t, time.Hour)
	ctx := context.Background()

	f.txRepo.EXPECT().GetByReference(ctx, "ghost").Return(nil, nil)

	_, err := f.sched.ResolveReference(ctx, "ghost")
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "LED_003", appErr.Code)
}
