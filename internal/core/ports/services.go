package ports

import (
	"context"
	"time"

	"vtu-wallet/internal/core/domain"

	"github.com/google/uuid"
)

//go:generate mockgen -source=repositories.go -source=providers.go -source=services.go -destination=mocks/mocks.go -package=mocks

// Resolution is a normalized provider outcome fed into the reconciliation
// engine, together with which path produced it.
type Resolution struct {
	Outcome       domain.Outcome
	ProviderRef   string
	FailureReason string
	Action        string // "sync", "auto-requery", "webhook", "manual-verify", "manual-requery"
}

// Reconciler is the core state machine converting provider outcomes into
// at-most-once wallet mutations and terminal ledger transitions. All entry
// points (synchronous request, requery sweep, webhook, manual resolution)
// funnel through Resolve and are mutually idempotent.
type Reconciler interface {
	Resolve(ctx context.Context, reference string, res Resolution) (*domain.Transaction, error)
}

// PurchaseRequest initiates an airtime or data purchase.
type PurchaseRequest struct {
	OwnerID       uuid.UUID
	Service       domain.ServiceKind
	Network       string
	Phone         string
	Amount        int64 // kobo
	VariationCode string
	PlanName      string
	Reference     string // client-generated idempotency key
}

// PurchaseService drives the optimistic-debit purchase flow.
type PurchaseService interface {
	InitiatePurchase(ctx context.Context, req PurchaseRequest) (*domain.Transaction, error)
}

// FundingInitResult is returned from InitiateFunding.
type FundingInitResult struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
}

// FundingService drives the credit-after-confirmation funding flow.
type FundingService interface {
	InitiateFunding(ctx context.Context, ownerID uuid.UUID, amount int64, email string) (*FundingInitResult, error)
	// VerifyFunding re-checks a funding transaction against the provider and
	// resolves it through the reconciliation engine.
	VerifyFunding(ctx context.Context, reference string) (*domain.Transaction, error)
}

// WebhookIngestor consumes provider-pushed outcome notifications.
type WebhookIngestor interface {
	// HandleFundingEvent verifies the signature over the raw body and feeds
	// the classified outcome into the reconciliation engine.
	HandleFundingEvent(ctx context.Context, body []byte, signature string) error
}

// RequerySweeper is the scheduler surface exposed to the rest of the app.
type RequerySweeper interface {
	// Notify wakes the sweep loop after a new pending transaction is created.
	Notify()
	IsActive() bool
	// ResolveReference requeries one transaction immediately (admin path).
	ResolveReference(ctx context.Context, reference string) (*domain.Transaction, error)
}

// TokenService handles JWT token operations for the thin HTTP surface.
type TokenService interface {
	Generate(ownerID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (uuid.UUID, error)
}
