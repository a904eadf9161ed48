package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"vtu-wallet/internal/core/domain"
	"vtu-wallet/internal/core/ports"
	"vtu-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WebhookService ingests provider-pushed funding notifications. The
// signature is an HMAC-SHA512 of the raw request body under the provider
// secret key and must verify before anything is parsed.
type WebhookService struct {
	transactor ports.DBTransactor
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	reconciler ports.Reconciler
	secretKey  string
	log        zerolog.Logger
}

// NewWebhookService creates a WebhookService.
func NewWebhookService(
	transactor ports.DBTransactor,
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	reconciler ports.Reconciler,
	secretKey string,
	log zerolog.Logger,
) *WebhookService {
	return &WebhookService{
		transactor: transactor,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		reconciler: reconciler,
		secretKey:  secretKey,
		log:        log.With().Str("component", "webhook").Logger(),
	}
}

var _ ports.WebhookIngestor = (*WebhookService)(nil)

type fundingEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"` // kobo
		Metadata  struct {
			OwnerID string `json:"owner_id"`
		} `json:"metadata"`
	} `json:"data"`
}

// HandleFundingEvent verifies and applies one provider notification.
// Duplicate and out-of-order deliveries are absorbed by the reconciliation
// engine; returning nil tells the provider to stop retrying.
func (s *WebhookService) HandleFundingEvent(ctx context.Context, body []byte, signature string) error {
	if !s.verifySignature(body, signature) {
		s.log.Warn().Msg("webhook rejected: signature mismatch")
		return apperror.ErrInvalidWebhookSignature()
	}

	var event fundingEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return apperror.Validation("malformed webhook payload")
	}

	var outcome domain.Outcome
	switch event.Event {
	case "charge.success":
		outcome = domain.OutcomeDelivered
	case "charge.failed":
		outcome = domain.OutcomeFailed
	default:
		s.log.Debug().Str("event", event.Event).Msg("webhook event ignored")
		return nil
	}
	if event.Data.Reference == "" {
		return apperror.Validation("webhook payload missing reference")
	}

	res := ports.Resolution{
		Outcome: outcome,
		Action:  "webhook",
	}
	if outcome == domain.OutcomeFailed {
		res.FailureReason = "provider reported charge failure"
	}

	_, err := s.reconciler.Resolve(ctx, event.Data.Reference, res)
	if err == nil {
		return nil
	}

	// The provider can notify about a session whose local record was lost
	// (crash between initialize and insert). Recreate the pending credit
	// from the event metadata, then resolve again.
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Code == "LED_003" {
		if recErr := s.recreatePendingCredit(ctx, event); recErr != nil {
			return recErr
		}
		_, err = s.reconciler.Resolve(ctx, event.Data.Reference, res)
	}
	return err
}

func (s *WebhookService) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(s.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *WebhookService) recreatePendingCredit(ctx context.Context, event fundingEvent) error {
	ownerID, err := uuid.Parse(event.Data.Metadata.OwnerID)
	if err != nil {
		s.log.Error().
			Str("reference", event.Data.Reference).
			Msg("webhook for unknown transaction carries no usable owner metadata")
		return apperror.Validation("webhook payload missing owner metadata")
	}
	if event.Data.Amount <= 0 {
		return apperror.Validation("webhook payload missing amount")
	}

	wallet, err := s.walletRepo.EnsureForOwner(ctx, ownerID)
	if err != nil {
		return apperror.InternalError(err)
	}

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
		Amount:        event.Data.Amount,
		Service:       domain.ServiceFunding,
		Reference:     event.Data.Reference,
		Status:        domain.TransactionStatusPending,
		Description:   "Wallet funding (recovered from webhook)",
		BalanceBefore: wallet.Balance,
		BalanceAfter:  wallet.Balance,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		// A concurrent webhook delivery may have recreated it already.
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == "LED_001" {
			return nil
		}
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(err)
	}

	s.log.Warn().
		Str("reference", event.Data.Reference).
		Int64("amount", event.Data.Amount).
		Msg("recreated missing funding transaction from webhook metadata")
	return nil
}
