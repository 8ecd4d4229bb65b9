package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// UserHandler serves accounts, profiles and subscriptions.
type UserHandler struct {
	users        service.IUserService
	associations service.IAssociationService
	validator    middleware.TokenValidator
	pageSize     int
	log          logrus.FieldLogger
}

func NewUserHandler(users service.IUserService, associations service.IAssociationService, validator middleware.TokenValidator, pageSize int, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{
		users:        users,
		associations: associations,
		validator:    validator,
		pageSize:     pageSize,
		log:          log,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	required := middleware.AuthMiddleware(h.validator)
	optional := middleware.OptionalAuth(h.validator)

	users := router.Group("/users")
	{
		users.POST("", h.Register)
		users.GET("", optional, h.ListUsers)
		users.GET("/me", required, h.Me)
		users.GET("/subscriptions", required, h.Subscriptions)
		users.POST("/set_password", required, h.SetPassword)
		users.GET("/:id", optional, h.GetUser)
		users.PATCH("/:id", required, h.UpdateUser)
		users.DELETE("/:id", required, h.DeleteUser)
		users.POST("/:id/subscribe", required, h.Subscribe)
		users.DELETE("/:id/subscribe", required, h.Unsubscribe)
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	params := pageParams(c, h.pageSize)
	page, err := h.users.ListUsers(c.Request.Context(), middleware.RequesterFrom(c), params)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	setPageLinks(c, page, params)
	c.JSON(http.StatusOK, page)
}

func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.users.Me(c.Request.Context(), middleware.RequesterFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), middleware.RequesterFrom(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req types.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), middleware.RequesterFrom(c), id, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.users.DeleteUser(c.Request.Context(), middleware.RequesterFrom(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var req types.SetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.users.SetPassword(c.Request.Context(), middleware.RequesterFrom(c), &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	params := pageParams(c, h.pageSize)
	page, err := h.users.Subscriptions(c.Request.Context(), middleware.RequesterFrom(c), params, queryInt(c, "recipes_limit"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	setPageLinks(c, page, params)
	c.JSON(http.StatusOK, page)
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.associations.Add(ctx, middleware.RequesterFrom(c), service.KindFollow, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	sub, err := h.users.Subscription(ctx, id, queryInt(c, "recipes_limit"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.associations.Remove(c.Request.Context(), middleware.RequesterFrom(c), service.KindFollow, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
