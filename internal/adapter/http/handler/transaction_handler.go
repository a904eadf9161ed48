package handler

import (
	"strconv"

	"vtu-wallet/internal/adapter/http/dto"
	"vtu-wallet/internal/core/domain"
	"vtu-wallet/internal/core/ports"
	"vtu-wallet/pkg/apperror"
	"vtu-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TransactionHandler exposes the owner-facing ledger history endpoints.
type TransactionHandler struct {
	txRepo ports.TransactionRepository
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(txRepo ports.TransactionRepository) *TransactionHandler {
	return &TransactionHandler{txRepo: txRepo}
}

// ListTransactions handles GET /api/v1/transactions.
// Optional query params: status, service, page, page_size.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}

	params := ports.TransactionListParams{
		OwnerID:  ownerID,
		Page:     1,
		PageSize: defaultPageSize,
	}

	if raw := c.Query("status"); raw != "" {
		status := domain.TransactionStatus(raw)
		switch status {
		case domain.TransactionStatusPending, domain.TransactionStatusSuccess, domain.TransactionStatusFailed:
			params.Status = &status
		default:
			response.Error(c, apperror.Validation("invalid status filter"))
			return
		}
	}
	if raw := c.Query("service"); raw != "" {
		service := domain.ServiceKind(raw)
		switch service {
		case domain.ServiceAirtime, domain.ServiceData, domain.ServiceFunding:
			params.Service = &service
		default:
			response.Error(c, apperror.Validation("invalid service filter"))
			return
		}
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			response.Error(c, apperror.Validation("page must be a positive integer"))
			return
		}
		params.Page = page
	}
	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > maxPageSize {
			response.Error(c, apperror.Validation("page_size must be between 1 and 100"))
			return
		}
		params.PageSize = size
	}

	txns, total, err := h.txRepo.ListByOwner(c.Request.Context(), params)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.OK(c, dto.TransactionListResponse{
		Transactions: dto.FromTransactions(txns),
		Total:        total,
		Page:         params.Page,
		PageSize:     params.PageSize,
	})
}

// GetTransaction handles GET /api/v1/transactions/:reference.
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}

	txn, err := h.txRepo.GetByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	if txn == nil || txn.OwnerID != ownerID {
		// Do not leak other owners' references.
		response.Error(c, apperror.ErrNotFound("transaction"))
		return
	}

	response.OK(c, dto.FromTransaction(txn))
}
