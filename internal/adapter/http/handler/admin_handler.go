package handler

import (
	"vtu-wallet/config"
	"vtu-wallet/internal/adapter/http/dto"
	"vtu-wallet/internal/core/domain"
	"vtu-wallet/internal/core/ports"
	"vtu-wallet/pkg/apperror"
	"vtu-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes operator endpoints for manual reconciliation.
type AdminHandler struct {
	sweeper ports.RequerySweeper
	txRepo  ports.TransactionRepository
	requery config.RequeryConfig
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(sweeper ports.RequerySweeper, txRepo ports.TransactionRepository, requery config.RequeryConfig) *AdminHandler {
	return &AdminHandler{sweeper: sweeper, txRepo: txRepo, requery: requery}
}

// RequeryTransaction handles POST /admin/requery/:reference. It forces an
// immediate provider requery for one transaction regardless of its attempt
// count.
func (h *AdminHandler) RequeryTransaction(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" {
		response.Error(c, apperror.Validation("reference is required"))
		return
	}

	txn, err := h.sweeper.ResolveReference(c.Request.Context(), reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromTransaction(txn))
}

// ListStuck handles GET /admin/transactions/stuck: pending transactions
// that exhausted their automatic requery budget and need an operator.
func (h *AdminHandler) ListStuck(c *gin.Context) {
	ctx := c.Request.Context()

	topups, err := h.txRepo.FindStuck(ctx, domain.TopupServices, h.requery.MaxAttemptsTopup)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	fundings, err := h.txRepo.FindStuck(ctx, []domain.ServiceKind{domain.ServiceFunding}, h.requery.MaxAttemptsFunding)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	stuck := append(topups, fundings...)
	response.OK(c, gin.H{
		"transactions":   dto.FromTransactions(stuck),
		"count":          len(stuck),
		"sweeper_active": h.sweeper.IsActive(),
	})
}
