package paymentwebhook

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"subscription-app/internal/domain/subscription"
	"subscription-app/internal/infra/metrics"
)

// Notification is the inbound webhook body. Only the event category and the
// opaque identifier are read; everything money-relevant comes from the
// authoritative processor lookup instead.
type Notification struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Handler is the webhook ingest gateway's HTTP face. The sender understands
// exactly three answers: 200 processed-or-skipped, 400 structurally invalid,
// 5xx please-redeliver.
type Handler struct {
	gateway *Gateway
}

func NewHandler(gateway *Gateway) *Handler {
	return &Handler{gateway: gateway}
}

// Handle serves POST /webhook/payments.
func (h *Handler) Handle(c *gin.Context) {
	var notification Notification
	if err := c.ShouldBindJSON(&notification); err != nil {
		metrics.WebhookEvents.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed notification body"})
		return
	}

	result, err := h.gateway.Ingest(c.Request.Context(), notification)
	if err != nil {
		switch {
		case errors.Is(err, subscription.ErrInvalidInput):
			metrics.WebhookEvents.WithLabelValues("invalid").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, subscription.ErrUpstreamUnavailable):
			metrics.WebhookEvents.WithLabelValues("upstream_error").Inc()
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment lookup failed, retry expected"})
		case errors.Is(err, subscription.ErrMetadataIncomplete):
			// Redelivering the same payload would fail the same way, so the
			// sender gets a 200; the event stays unprocessed and the error
			// is surfaced to operators through the log and the counter.
			metrics.WebhookEvents.WithLabelValues("metadata_incomplete").Inc()
			log.Error().Err(err).Str("notification_id", notification.Data.ID).
				Msg("approved payment with incomplete metadata, operator intervention required")
			c.JSON(http.StatusOK, gin.H{"status": "metadata_incomplete"})
		default:
			metrics.WebhookEvents.WithLabelValues("internal_error").Inc()
			log.Error().Err(err).Str("notification_id", notification.Data.ID).Msg("webhook ingest failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	metrics.WebhookEvents.WithLabelValues(string(result)).Inc()
	c.JSON(http.StatusOK, gin.H{"status": string(result)})
}
