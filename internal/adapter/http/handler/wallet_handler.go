package handler

import (
	"vtu-wallet/internal/adapter/http/dto"
	"vtu-wallet/internal/core/ports"
	"vtu-wallet/pkg/apperror"
	"vtu-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler exposes wallet balance and funding endpoints.
type WalletHandler struct {
	walletRepo ports.WalletRepository
	fundingSvc ports.FundingService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletRepo ports.WalletRepository, fundingSvc ports.FundingService) *WalletHandler {
	return &WalletHandler{walletRepo: walletRepo, fundingSvc: fundingSvc}
}

// GetWallet handles GET /api/v1/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}

	wallet, err := h.walletRepo.EnsureForOwner(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.OK(c, dto.WalletResponse{
		ID:      wallet.ID.String(),
		Balance: wallet.Balance,
	})
}

// FundWallet handles POST /api/v1/wallet/fund.
func (h *WalletHandler) FundWallet(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}

	var req dto.FundWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.fundingSvc.InitiateFunding(c.Request.Context(), ownerID, req.Amount, req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FundWalletResponse{
		Reference:        result.Reference,
		AuthorizationURL: result.AuthorizationURL,
	})
}

// VerifyFunding handles GET /api/v1/wallet/verify/:reference. It is the
// user-facing fallback when the funding webhook has not landed yet.
func (h *WalletHandler) VerifyFunding(c *gin.Context) {
	if _, ok := ownerFromContext(c); !ok {
		return
	}

	reference := c.Param("reference")
	if reference == "" {
		response.Error(c, apperror.Validation("reference is required"))
		return
	}

	txn, err := h.fundingSvc.VerifyFunding(c.Request.Context(), reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromTransaction(txn))
}
