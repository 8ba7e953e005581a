package handler

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// SignatureHeader carries the HMAC signature a platform computes over the
// raw request body.
const SignatureHeader = "X-Webhook-Signature"

// maxWebhookBody caps the ingested payload size (1 MiB).
const maxWebhookBody = 1 << 20

// WebhookReceiver verifies and stores an inbound platform event. A nil
// return means the event is acknowledged; processing may still be deferred.
type WebhookReceiver interface {
	Receive(ctx context.Context, platform integration.PlatformCode, payload []byte, signature string) error
}

// WebhookHandler ingests push notifications from the platforms
type WebhookHandler struct {
	BaseHandler
	receiver WebhookReceiver
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(receiver WebhookReceiver) *WebhookHandler {
	return &WebhookHandler{receiver: receiver}
}

// RegisterRoutes registers the ingest route. The group must sit at the
// engine root so platforms can POST without a bearer token.
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhook/:platform", h.Receive)
}

// Receive verifies the payload signature and acknowledges the event.
// Platforms retry on non-2xx, so only rejection of the delivery itself
// (bad signature, unknown platform, oversized body) maps to an error
// status; a handler failure after the event is stored still acks.
func (h *WebhookHandler) Receive(c *gin.Context) {
	platform, ok := h.parsePlatform(c)
	if !ok {
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.BadRequest(c, "failed to read request body")
		return
	}
	if len(payload) == 0 {
		h.BadRequest(c, "empty payload")
		return
	}

	signature := c.GetHeader(SignatureHeader)
	if err := h.receiver.Receive(c.Request.Context(), platform, payload, signature); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"received": true})
}

func (h *WebhookHandler) parsePlatform(c *gin.Context) (integration.PlatformCode, bool) {
	platform, err := parsePlatformCode(c.Param("platform"))
	if err != nil {
		h.HandleError(c, err)
		return "", false
	}
	return platform, true
}
