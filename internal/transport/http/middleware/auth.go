package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Korabi-dev/password-reset-adds/internal/infra/security"
)

const authorizationHeader = "authorization"

// ErrorResponse matches the handlers.Envelope structure for failures.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, message string) ErrorResponse {
	return ErrorResponse{
		Error:   true,
		Message: message,
		TraceID: GetTraceID(c),
	}
}

// RequireSharedSecret compares the raw authorization header against token in constant time.
// Failures abort with the uniform error envelope and status 400.
func RequireSharedSecret(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader(authorizationHeader)
		if presented == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, newErrorResponse(c, "Missing token"))
			return
		}
		if !security.TokensEqual(presented, token) {
			c.AbortWithStatusJSON(http.StatusBadRequest, newErrorResponse(c, "Invalid token"))
			return
		}
		c.Next()
	}
}
