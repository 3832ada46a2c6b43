package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"subscription-app/internal/domain/entitlement"
)

// RequireActiveSubscription gates routes on the canonical subscription
// status. Inactive, suspended, pending, and lapsed subscriptions all answer
// 402 so clients can prompt for reactivation rather than an upgrade.
func RequireActiveSubscription(store *entitlement.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.GetString("account_id")

		rec, err := store.GetSubscription(c.Request.Context(), accountID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscription"})
			return
		}
		if !rec.IsActive(time.Now()) {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "subscription not active"})
			return
		}

		c.Next()
	}
}
