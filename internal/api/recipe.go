package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

type RecipeHandler struct {
	recipes      service.IRecipeService
	associations service.IAssociationService
	shopping     service.IShoppingListService
	validator    middleware.TokenValidator
	createLimit  *middleware.RateLimiter
	pageSize     int
	log          logrus.FieldLogger
}

func NewRecipeHandler(
	recipes service.IRecipeService,
	associations service.IAssociationService,
	shopping service.IShoppingListService,
	validator middleware.TokenValidator,
	pageSize int,
	log logrus.FieldLogger,
) *RecipeHandler {
	return &RecipeHandler{
		recipes:      recipes,
		associations: associations,
		shopping:     shopping,
		validator:    validator,
		pageSize:     pageSize,
		log:          log,
	}
}

// WithCreateRateLimit limits recipe creation when Redis is available.
func (h *RecipeHandler) WithCreateRateLimit(limiter *middleware.RateLimiter) *RecipeHandler {
	h.createLimit = limiter
	return h
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	required := middleware.AuthMiddleware(h.validator)
	optional := middleware.OptionalAuth(h.validator)

	create := []gin.HandlerFunc{required}
	if h.createLimit != nil {
		create = append(create, h.createLimit.RateLimitMiddleware())
	}
	create = append(create, h.CreateRecipe)

	recipes := router.Group("/recipes")
	{
		recipes.GET("", optional, h.ListRecipes)
		recipes.POST("", create...)
		recipes.GET("/download_shopping_cart", required, h.DownloadShoppingCart)
		recipes.GET("/:id", optional, h.GetRecipe)
		recipes.PATCH("/:id", required, h.UpdateRecipe)
		recipes.DELETE("/:id", required, h.DeleteRecipe)
		recipes.POST("/:id/favorite", required, h.toggle(service.KindFavorite, true))
		recipes.DELETE("/:id/favorite", required, h.toggle(service.KindFavorite, false))
		recipes.POST("/:id/shopping_cart", required, h.toggle(service.KindShoppingCart, true))
		recipes.DELETE("/:id/shopping_cart", required, h.toggle(service.KindShoppingCart, false))
	}
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	filter := types.RecipeFilter{
		Tags:             c.QueryArray("tags"),
		IsFavorited:      queryBool(c, "is_favorited"),
		IsInShoppingCart: queryBool(c, "is_in_shopping_cart"),
	}
	if author, err := strconv.ParseUint(c.Query("author"), 10, 64); err == nil {
		filter.AuthorID = uint(author)
	}

	params := pageParams(c, h.pageSize)
	page, err := h.recipes.ListRecipes(c.Request.Context(), middleware.RequesterFrom(c), filter, params)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	setPageLinks(c, page, params)
	c.JSON(http.StatusOK, page)
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	recipe, err := h.recipes.GetRecipe(c.Request.Context(), middleware.RequesterFrom(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req types.RecipeWriteRequest
	if !bindJSON(c, &req) {
		return
	}
	recipe, err := h.recipes.CreateRecipe(c.Request.Context(), middleware.RequesterFrom(c), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req types.RecipeWriteRequest
	if !bindJSON(c, &req) {
		return
	}
	recipe, err := h.recipes.UpdateRecipe(c.Request.Context(), middleware.RequesterFrom(c), id, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.recipes.DeleteRecipe(c.Request.Context(), middleware.RequesterFrom(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// toggle serves the favorite and shopping cart endpoints. Adding answers 201
// with the short recipe, removing answers 204.
func (h *RecipeHandler) toggle(kind service.AssociationKind, add bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		requester := middleware.RequesterFrom(c)

		if !add {
			if err := h.associations.Remove(ctx, requester, kind, id); err != nil {
				respondError(c, h.log, err)
				return
			}
			c.Status(http.StatusNoContent)
			return
		}

		if err := h.associations.Add(ctx, requester, kind, id); err != nil {
			respondError(c, h.log, err)
			return
		}
		recipe, err := h.recipes.GetRecipeShort(ctx, id)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		c.JSON(http.StatusCreated, recipe)
	}
}

func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	lines, err := h.shopping.Lines(c.Request.Context(), middleware.RequesterFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", service.ShoppingListFilename))
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	if err := service.WriteShoppingList(c.Writer, lines); err != nil {
		h.log.WithError(err).Warn("Failed to write shopping list")
	}
}
