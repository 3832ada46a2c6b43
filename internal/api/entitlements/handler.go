package entitlements

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"subscription-app/internal/domain/entitlement"
	"subscription-app/internal/domain/plans"
	"subscription-app/internal/domain/subscription"
	"subscription-app/internal/infra/metrics"
)

// Handler serves the entitlement read surface and the usage consume/release
// endpoints. The account identifier arrives already validated by the auth
// middleware; identity itself lives with the external provider.
type Handler struct {
	store   *entitlement.Store
	catalog *plans.Catalog
}

func NewHandler(store *entitlement.Store, catalog *plans.Catalog) *Handler {
	return &Handler{store: store, catalog: catalog}
}

// GetSubscription serves GET /subscription: the current record, usage, and
// the allow/deny evaluation for each resource kind.
func (h *Handler) GetSubscription(c *gin.Context) {
	accountID := c.GetString("account_id")

	rec, err := h.store.GetSubscription(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscription"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no subscription for this account"})
		return
	}

	usage, err := h.store.GetUsage(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}

	plan, ok := h.catalog.Get(rec.PlanID)
	if !ok {
		log.Error().Str("account_id", accountID).Str("plan_id", rec.PlanID).Msg("subscription references unknown plan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscription references unknown plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscription": rec,
		"plan":         plan,
		"usage":        usage,
		"evaluation":   entitlement.Evaluate(rec, usage, plan, time.Now()),
	})
}

// GetUsage serves GET /usage.
func (h *Handler) GetUsage(c *gin.Context) {
	accountID := c.GetString("account_id")
	usage, err := h.store.GetUsage(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}
	c.JSON(http.StatusOK, usage)
}

// ConsumeResource serves POST /usage/:kind — claim one slot of a countable
// resource. 201 on success, 402 when the subscription does not allow it,
// 409 when the plan limit is reached.
func (h *Handler) ConsumeResource(c *gin.Context) {
	h.adjust(c, +1)
}

// ReleaseResource serves DELETE /usage/:kind — give one slot back. Dropping
// below a threshold re-arms its alert.
func (h *Handler) ReleaseResource(c *gin.Context) {
	h.adjust(c, -1)
}

func (h *Handler) adjust(c *gin.Context, delta int) {
	accountID := c.GetString("account_id")

	kind, err := entitlement.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	current, ok, err := h.store.TryIncrement(c.Request.Context(), accountID, kind, delta)
	if errors.Is(err, subscription.ErrSubscriptionInactive) {
		metrics.LimitDenials.WithLabelValues(string(kind), "inactive").Inc()
		c.JSON(http.StatusPaymentRequired, gin.H{"error": subscription.ErrSubscriptionInactive.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update usage"})
		return
	}
	if !ok {
		if delta > 0 {
			metrics.LimitDenials.WithLabelValues(string(kind), "limit").Inc()
			c.JSON(http.StatusConflict, gin.H{"error": subscription.ErrLimitExceeded.Error(), "current": current})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": "usage already at zero", "current": current})
		return
	}

	status := http.StatusOK
	if delta > 0 {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"resource_kind": kind, "current": current})
}
