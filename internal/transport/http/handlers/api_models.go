package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Korabi-dev/password-reset-adds/internal/transport/http/middleware"
)

// Envelope is the uniform response body for every endpoint.
type Envelope struct {
	Error   bool   `json:"error"`
	Message string `json:"message,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error envelope carrying the request trace ID.
func NewErrorResponse(c *gin.Context, message string) Envelope {
	return Envelope{
		Error:   true,
		Message: message,
		TraceID: middleware.GetTraceID(c),
	}
}

// NewSuccessResponse creates a success envelope.
func NewSuccessResponse(message string) Envelope {
	return Envelope{Message: message}
}

// CodeRequest starts a reset for a provisioned user.
type CodeRequest struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username" binding:"required"`
}

// CodeValidateRequest redeems a code and sets a new password.
type CodeValidateRequest struct {
	Code        string `json:"code" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Username    string `json:"username" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// UserRequest provisions or removes a user.
type UserRequest struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username" binding:"required"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func chain(middlewares []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(middlewares)+1)
	out = append(out, middlewares...)
	return append(out, handler)
}
