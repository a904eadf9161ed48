package handler

import (
	"vtu-wallet/internal/adapter/http/dto"
	"vtu-wallet/internal/adapter/http/middleware"
	"vtu-wallet/internal/core/domain"
	"vtu-wallet/internal/core/ports"
	"vtu-wallet/pkg/apperror"
	"vtu-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TopupHandler handles airtime and data purchase endpoints.
type TopupHandler struct {
	purchaseSvc ports.PurchaseService
	contacts    ports.FrequentContactRepository
}

// NewTopupHandler creates a new TopupHandler.
func NewTopupHandler(purchaseSvc ports.PurchaseService, contacts ports.FrequentContactRepository) *TopupHandler {
	return &TopupHandler{purchaseSvc: purchaseSvc, contacts: contacts}
}

// BuyAirtime handles POST /api/v1/airtime.
func (h *TopupHandler) BuyAirtime(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}

	var req dto.AirtimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	txn, err := h.purchaseSvc.InitiatePurchase(c.Request.Context(), ports.PurchaseRequest{
		OwnerID:   ownerID,
		Service:   domain.ServiceAirtime,
		Network:   req.Network,
		Phone:     req.Phone,
		Amount:    req.Amount,
		Reference: req.Reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	respondWithTransaction(c, txn)
}

// BuyData handles POST /api/v1/data.
func (h *TopupHandler) BuyData(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}

	var req dto.DataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	txn, err := h.purchaseSvc.InitiatePurchase(c.Request.Context(), ports.PurchaseRequest{
		OwnerID:       ownerID,
		Service:       domain.ServiceData,
		Network:       req.Network,
		Phone:         req.Phone,
		Amount:        req.Amount,
		VariationCode: req.VariationCode,
		PlanName:      req.PlanName,
		Reference:     req.Reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	respondWithTransaction(c, txn)
}

// FrequentContacts handles GET /api/v1/contacts/frequent.
func (h *TopupHandler) FrequentContacts(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}

	contacts, err := h.contacts.ListByOwner(c.Request.Context(), ownerID, 10)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	out := make([]dto.FrequentContactResponse, len(contacts))
	for i, contact := range contacts {
		out[i] = dto.FrequentContactResponse{
			Service: string(contact.Service),
			Phone:   contact.Phone,
			Count:   contact.Count,
		}
	}
	response.OK(c, out)
}

// respondWithTransaction maps a purchase result to a status code: resolved
// purchases are 201, still-pending ones 202.
func respondWithTransaction(c *gin.Context, txn *domain.Transaction) {
	body := dto.FromTransaction(txn)
	if txn.Status == domain.TransactionStatusPending {
		response.Accepted(c, body)
		return
	}
	response.Created(c, body)
}

func ownerFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxOwnerID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return id, true
}
