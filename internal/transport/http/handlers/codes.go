package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Korabi-dev/password-reset-adds/internal/usecase"
)

// ResetService is the subset of usecase.ResetService the code endpoints call.
type ResetService interface {
	RequestCode(ctx context.Context, email, username string) (*usecase.IssueResult, error)
	ResetPassword(ctx context.Context, input usecase.ResetPasswordInput) error
}

// CodeHandler exposes the reset code endpoints.
type CodeHandler struct {
	resets ResetService
	logger *zap.Logger
}

// NewCodeHandler builds a CodeHandler.
func NewCodeHandler(resets ResetService, log *zap.Logger) *CodeHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CodeHandler{resets: resets, logger: log}
}

// RegisterRoutes mounts the code endpoints on group behind middlewares.
func (h *CodeHandler) RegisterRoutes(group *gin.RouterGroup, middlewares ...gin.HandlerFunc) {
	group.POST("/new", chain(middlewares, h.RequestCode)...)
	group.POST("/validate", chain(middlewares, h.ValidateCode)...)
}

// RequestCode handles POST /codes/new.
func (h *CodeHandler) RequestCode(c *gin.Context) {
	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, msgMissingParameters))
		return
	}

	if _, err := h.resets.RequestCode(c.Request.Context(), req.Email, req.Username); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse("Code sent to email"))
}

// ValidateCode handles POST /codes/validate. The response is written once the password
// command reports its first outcome.
func (h *CodeHandler) ValidateCode(c *gin.Context) {
	var req CodeValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, msgMissingParameters))
		return
	}

	err := h.resets.ResetPassword(c.Request.Context(), usecase.ResetPasswordInput{
		Code:        req.Code,
		Email:       req.Email,
		Username:    req.Username,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse("Password changed successfully"))
}
