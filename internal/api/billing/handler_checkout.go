package billing

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"subscription-app/internal/domain/plans"
	"subscription-app/internal/infra/mercadopago"
)

// PreferenceCreator is the slice of the processor client used here.
type PreferenceCreator interface {
	CreatePreference(ctx context.Context, pref mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
}

type Handler struct {
	processor PreferenceCreator
	catalog   *plans.Catalog
}

func NewHandler(processor PreferenceCreator, catalog *plans.Catalog) *Handler {
	return &Handler{processor: processor, catalog: catalog}
}

// CreateCheckout serves POST /checkout: creates a processor checkout
// preference for a plan, carrying the account and plan in the payment
// metadata so the webhook can link the eventual payment back.
func (h *Handler) CreateCheckout(c *gin.Context) {
	accountID := c.GetString("account_id")

	var body struct {
		PlanID string `json:"plan_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PlanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan_id is required"})
		return
	}

	plan, ok := h.catalog.Get(body.PlanID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan"})
		return
	}

	pref, err := h.processor.CreatePreference(c.Request.Context(), mercadopago.PreferenceRequest{
		Items: []mercadopago.PreferenceItem{{
			Title:     plan.DisplayName,
			Quantity:  1,
			UnitPrice: float64(plan.PriceCents) / 100.0,
		}},
		Metadata: mercadopago.PaymentMetadata{
			UserID:   accountID,
			PlanType: plan.PlanID,
		},
		ExternalReference: accountID,
	})
	if err != nil {
		log.Error().Err(err).Str("account_id", accountID).Str("plan_id", plan.PlanID).
			Msg("checkout preference creation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment processor unavailable"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"preference_id": pref.ID,
		"init_point":    pref.InitPoint,
	})
}
