package domain

import (
	"time"

	"github.com/google/uuid"
)

// Direction is the side of the wallet a transaction moves money on.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// ServiceKind identifies which external service a transaction pays for.
type ServiceKind string

const (
	ServiceAirtime ServiceKind = "airtime"
	ServiceData    ServiceKind = "data"
	ServiceFunding ServiceKind = "funding"
)

// TopupServices are the service kinds settled through the top-up provider.
var TopupServices = []ServiceKind{ServiceAirtime, ServiceData}

// TransactionStatus is the lifecycle state of a ledger entry.
// Transitions are pending -> success or pending -> failed only; terminal
// states are immutable.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// RequeryEntry is one attempt recorded against a pending transaction.
type RequeryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Attempt   int       `json:"attempt"`
}

// Transaction is a ledger entry for a single balance-affecting attempt.
// Reference is the globally unique idempotency anchor across the purchase,
// webhook and requery paths. BalanceAfter is stamped when the status becomes
// terminal and is never recomputed.
type Transaction struct {
	ID            uuid.UUID         `json:"id"`
	WalletID      uuid.UUID         `json:"wallet_id"`
	OwnerID       uuid.UUID         `json:"owner_id"`
	Direction     Direction         `json:"direction"`
	Amount        int64             `json:"amount"` // kobo
	Service       ServiceKind       `json:"service"`
	Reference     string            `json:"reference"`
	ProviderRef   *string           `json:"provider_ref,omitempty"`
	Status        TransactionStatus `json:"status"`
	FailureReason *string           `json:"failure_reason,omitempty"`
	Description   string            `json:"description,omitempty"`
	Phone         string            `json:"phone,omitempty"`
	Attempts      int               `json:"attempts"`
	LastAttemptAt *time.Time        `json:"last_attempt_at,omitempty"`
	RequeryLog    []RequeryEntry    `json:"requery_log,omitempty"`
	BalanceBefore int64             `json:"balance_before"`
	BalanceAfter  int64             `json:"balance_after"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// IsTerminal reports whether the transaction has reached a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusSuccess || t.Status == TransactionStatusFailed
}

// IsTopup reports whether the transaction settles through the top-up provider.
func (t *Transaction) IsTopup() bool {
	return t.Service == ServiceAirtime || t.Service == ServiceData
}
