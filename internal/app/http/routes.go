package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"subscription-app/internal/api/billing"
	"subscription-app/internal/api/entitlements"
	"subscription-app/internal/api/paymentwebhook"
	"subscription-app/internal/api/plansapi"
	"subscription-app/internal/app/http/middleware"
	"subscription-app/internal/domain/entitlement"
	"subscription-app/internal/domain/plans"
)

// Deps carries the wired components the routes hand requests to.
type Deps struct {
	Webhook      *paymentwebhook.Handler
	Entitlements *entitlements.Handler
	Billing      *billing.Handler
	Store        *entitlement.Store
	Catalog      *plans.Catalog
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.POST("/webhook/payments", deps.Webhook.Handle)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/plans", plansapi.ListPlans(deps.Catalog))

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(), middleware.SanitizeAndCleanInputMiddleware())
	auth.GET("/subscription", deps.Entitlements.GetSubscription)
	auth.GET("/usage", deps.Entitlements.GetUsage)
	auth.POST("/checkout", deps.Billing.CreateCheckout)

	// Usage mutation requires an active subscription
	subscribed := auth.Group("/")
	subscribed.Use(middleware.RequireActiveSubscription(deps.Store))
	subscribed.POST("/usage/:kind", deps.Entitlements.ConsumeResource)
	subscribed.DELETE("/usage/:kind", deps.Entitlements.ReleaseResource)
}
