package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserService is the subset of usecase.UserService the user endpoints call.
type UserService interface {
	CreateUser(ctx context.Context, email, username string) error
	DeleteUser(ctx context.Context, email, username string) error
}

// UserHandler exposes the privileged user provisioning endpoints.
type UserHandler struct {
	users  UserService
	logger *zap.Logger
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(users UserService, log *zap.Logger) *UserHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserHandler{users: users, logger: log}
}

// RegisterRoutes mounts the user endpoints on group behind middlewares.
func (h *UserHandler) RegisterRoutes(group *gin.RouterGroup, middlewares ...gin.HandlerFunc) {
	group.POST("/new", chain(middlewares, h.CreateUser)...)
	group.POST("/delete", chain(middlewares, h.DeleteUser)...)
}

// CreateUser handles POST /users/new.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, msgMissingParameters))
		return
	}

	if err := h.users.CreateUser(c.Request.Context(), req.Email, req.Username); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse("User created successfully"))
}

// DeleteUser handles POST /users/delete.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, msgMissingParameters))
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), req.Email, req.Username); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse("User deleted successfully"))
}
