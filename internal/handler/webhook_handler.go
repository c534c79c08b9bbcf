package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eduflow-app/eduflow-api/internal/service"
	appErrors "github.com/eduflow-app/eduflow-api/pkg/errors"
	"github.com/eduflow-app/eduflow-api/pkg/response"
	"github.com/eduflow-app/eduflow-api/pkg/webhook"
)

// WebhookHandler receives identity lifecycle events from the provider.
type WebhookHandler struct {
	verifier *webhook.Verifier
	identity *service.IdentityService
	metrics  *service.MetricsService
	logger   *zap.Logger
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(verifier *webhook.Verifier, identity *service.IdentityService, metrics *service.MetricsService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{verifier: verifier, identity: identity, metrics: metrics, logger: logger}
}

// HandleIdentityEvent godoc
// @Summary Receive identity lifecycle webhook
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param webhook-id header string true "Delivery id"
// @Param webhook-timestamp header string true "Unix timestamp"
// @Param webhook-signature header string true "v1,<base64 signature>"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /webhooks/identity [post]
func (h *WebhookHandler) HandleIdentityEvent(c *gin.Context) {
	// Verification runs over the exact bytes on the wire, so the body is
	// read before any JSON decoding.
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unreadable body"))
		return
	}

	id := c.GetHeader("webhook-id")
	timestamp := c.GetHeader("webhook-timestamp")
	signature := c.GetHeader("webhook-signature")
	if err := h.verifier.Verify(id, timestamp, signature, body); err != nil {
		h.logger.Warn("webhook signature rejected", zap.String("webhook_id", id), zap.Error(err))
		h.metrics.RecordWebhookEvent("unknown", "rejected")
		response.Error(c, appErrors.ErrInvalidSignature)
		return
	}

	var event service.LifecycleEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.metrics.RecordWebhookEvent("unknown", "malformed")
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "malformed event payload"))
		return
	}

	if err := h.identity.ApplyEvent(c.Request.Context(), event); err != nil {
		h.metrics.RecordWebhookEvent(event.Type, "failed")
		response.Error(c, err)
		return
	}

	h.metrics.RecordWebhookEvent(event.Type, "applied")
	response.JSON(c, http.StatusOK, gin.H{"received": true}, nil)
}
