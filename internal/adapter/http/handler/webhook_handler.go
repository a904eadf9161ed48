package handler

import (
	"io"
	"net/http"

	"vtu-wallet/internal/core/ports"
	"vtu-wallet/pkg/apperror"
	"vtu-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// signatureHeader carries the provider's HMAC over the raw request body.
const signatureHeader = "x-paystack-signature"

// WebhookHandler receives asynchronous confirmation events from the
// funding provider. It is unauthenticated; the HMAC signature is the
// only trust anchor.
type WebhookHandler struct {
	ingestor ports.WebhookIngestor
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(ingestor ports.WebhookIngestor) *WebhookHandler {
	return &WebhookHandler{ingestor: ingestor}
}

// HandleFunding handles POST /webhooks/funding. The body must be read raw
// before any JSON binding so the signature verifies over the exact bytes
// the provider sent.
func (h *WebhookHandler) HandleFunding(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("unreadable request body"))
		return
	}

	signature := c.GetHeader(signatureHeader)
	if err := h.ingestor.HandleFundingEvent(c.Request.Context(), body, signature); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
