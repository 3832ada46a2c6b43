package plansapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"subscription-app/internal/domain/plans"
)

// ListPlans serves GET /plans from the injected catalog. The catalog is
// loaded once at startup, so this never touches the database.
func ListPlans(catalog *plans.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, catalog.List())
	}
}
