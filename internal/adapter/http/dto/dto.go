package dto

import (
	"time"

	"vtu-wallet/internal/core/domain"
)

// AirtimeRequest is the request body for an airtime purchase.
type AirtimeRequest struct {
	Network   string `json:"network" binding:"required"`
	Phone     string `json:"phone" binding:"required,min=11,max=15"`
	Amount    int64  `json:"amount" binding:"required,gt=0"` // kobo
	Reference string `json:"reference,omitempty" binding:"max=100"`
}

// DataRequest is the request body for a data bundle purchase.
type DataRequest struct {
	Network       string `json:"network" binding:"required"`
	Phone         string `json:"phone" binding:"required,min=11,max=15"`
	Amount        int64  `json:"amount" binding:"required,gt=0"` // kobo
	VariationCode string `json:"variation_code" binding:"required"`
	PlanName      string `json:"plan_name,omitempty"`
	Reference     string `json:"reference,omitempty" binding:"max=100"`
}

// FundWalletRequest is the request body for initiating wallet funding.
type FundWalletRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"` // kobo
	Email  string `json:"email" binding:"required,email"`
}

// WalletResponse is the response for the wallet query.
type WalletResponse struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"` // kobo
}

// FundWalletResponse is the response for a funding initiation.
type FundWalletResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
}

// TransactionResponse is the API shape of a ledger entry.
type TransactionResponse struct {
	ID            string  `json:"id"`
	Reference     string  `json:"reference"`
	Direction     string  `json:"direction"`
	Service       string  `json:"service"`
	Amount        int64   `json:"amount"`
	Status        string  `json:"status"`
	FailureReason *string `json:"failure_reason,omitempty"`
	Description   string  `json:"description,omitempty"`
	Phone         string  `json:"phone,omitempty"`
	Attempts      int     `json:"attempts"`
	BalanceBefore int64   `json:"balance_before"`
	BalanceAfter  int64   `json:"balance_after"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// TransactionListResponse wraps a paginated transaction list.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"page_size"`
}

// FrequentContactResponse is one frequently used destination.
type FrequentContactResponse struct {
	Service string `json:"service"`
	Phone   string `json:"phone"`
	Count   int64  `json:"count"`
}

// FromTransaction maps a domain transaction to its API shape.
func FromTransaction(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            t.ID.String(),
		Reference:     t.Reference,
		Direction:     string(t.Direction),
		Service:       string(t.Service),
		Amount:        t.Amount,
		Status:        string(t.Status),
		FailureReason: t.FailureReason,
		Description:   t.Description,
		Phone:         t.Phone,
		Attempts:      t.Attempts,
		BalanceBefore: t.BalanceBefore,
		BalanceAfter:  t.BalanceAfter,
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     t.UpdatedAt.Format(time.RFC3339),
	}
}

// FromTransactions maps a slice of domain transactions.
func FromTransactions(txns []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, len(txns))
	for i := range txns {
		out[i] = FromTransaction(&txns[i])
	}
	return out
}
