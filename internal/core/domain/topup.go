package domain

import (
	"time"

	"github.com/google/uuid"
)

// TopupRecord is the denormalized airtime/data purchase detail, keyed by the
// same reference as its ledger transaction. It mirrors the transaction's
// status for service-specific querying but is not authoritative for balance.
type TopupRecord struct {
	ID            uuid.UUID         `json:"id"`
	OwnerID       uuid.UUID         `json:"owner_id"`
	WalletID      uuid.UUID         `json:"wallet_id"`
	Service       ServiceKind       `json:"service"` // airtime or data
	Network       string            `json:"network"`
	Phone         string            `json:"phone"`
	VariationCode string            `json:"variation_code,omitempty"` // data plans only
	PlanName      string            `json:"plan_name,omitempty"`
	Amount        int64             `json:"amount"` // kobo
	Reference     string            `json:"reference"`
	ProviderRef   *string           `json:"provider_ref,omitempty"`
	Status        TransactionStatus `json:"status"`
	FailureReason *string           `json:"failure_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}
