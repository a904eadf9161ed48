package ports

import (
	"context"

	"vtu-wallet/internal/core/domain"

	"github.com/google/uuid"
)

// TopupPurchase is a purchase request against the top-up gateway.
type TopupPurchase struct {
	Reference     string
	Service       domain.ServiceKind // airtime or data
	Network       string
	Phone         string
	Amount        int64 // kobo
	VariationCode string
}

// TopupOutcome is the normalized result of a top-up purchase or requery,
// pure outcome classification with no business logic behind it.
type TopupOutcome struct {
	Outcome     domain.Outcome
	ProviderRef string
	RawStatus   string
	Description string
}

// TopupProvider issues purchase and requery calls to the external
// airtime/data gateway. Transport errors and timeouts come back as
// OutcomeUnreachable, never as a terminal failure.
type TopupProvider interface {
	Purchase(ctx context.Context, req TopupPurchase) (*TopupOutcome, error)
	Requery(ctx context.Context, reference string) (*TopupOutcome, error)
}

// FundingInit is a payment-collection initialization request. OwnerID is
// carried in provider metadata so webhooks can be attributed even when the
// local record is missing.
type FundingInit struct {
	Reference string
	Amount    int64 // kobo
	Email     string
	OwnerID   uuid.UUID
}

// FundingOutcome is the normalized result of a funding verification.
type FundingOutcome struct {
	Outcome   domain.Outcome
	Amount    int64 // kobo, as reported by the provider
	RawStatus string
}

// FundingProvider drives the external payment-collection gateway.
type FundingProvider interface {
	// Initialize creates a provider-hosted payment session and returns the
	// authorization URL the user completes payment on.
	Initialize(ctx context.Context, req FundingInit) (string, error)
	Verify(ctx context.Context, reference string) (*FundingOutcome, error)
}
