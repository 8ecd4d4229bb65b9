package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Auth         service.IAuthService
	Users        service.IUserService
	Recipes      service.IRecipeService
	Associations service.IAssociationService
	ShoppingList service.IShoppingListService
	Tags         service.ITagService
	Ingredients  service.IIngredientService
}

// Options carries the HTTP-level settings.
type Options struct {
	PageSize          int
	RecipeCreateLimit *middleware.RateLimiter
}

// HealthCheck reports liveness and whether the database answers.
func HealthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := database.HealthCheck(ctx, db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "message": "Foodgram API is running"})
	}
}

// RegisterRoutes mounts every API handler under /api.
func RegisterRoutes(router *gin.Engine, svc Services, opts Options, log logrus.FieldLogger) {
	apiGroup := router.Group("/api")

	NewAuthHandler(svc.Auth, log).RegisterRoutes(apiGroup)
	NewUserHandler(svc.Users, svc.Associations, svc.Auth, opts.PageSize, log).RegisterRoutes(apiGroup)
	NewRecipeHandler(svc.Recipes, svc.Associations, svc.ShoppingList, svc.Auth, opts.PageSize, log).
		WithCreateRateLimit(opts.RecipeCreateLimit).
		RegisterRoutes(apiGroup)
	NewCatalogHandler(svc.Tags, svc.Ingredients, svc.Auth, log).RegisterRoutes(apiGroup)
}
