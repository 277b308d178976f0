package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/logger"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/security"
)

const (
	msgMissingParameters = "Missing parameters"
	msgUnknownError      = "An unknown error occurred"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// resetErrorCases is ordered: wrapped sentinels come before the errors they wrap.
var resetErrorCases = []ErrorCase{
	{Err: domain.ErrUserNotFound, Status: http.StatusBadRequest, Message: "User not found"},
	{Err: domain.ErrUserAlreadyExists, Status: http.StatusBadRequest, Message: "User already exists"},
	{Err: domain.ErrDuplicateRequest, Status: http.StatusBadRequest, Message: "Found duplicate entry, please wait for your current code to expire before submitting another request"},
	{Err: domain.ErrCodeEmailMismatch, Status: http.StatusBadRequest, Message: "This code is invalid."},
	{Err: domain.ErrInvalidCode, Status: http.StatusBadRequest, Message: "This code is invalid"},
	{Err: domain.ErrCodeExpired, Status: http.StatusBadRequest, Message: "This code has expired, please request a new one"},
	{Err: domain.ErrWeakPassword, Status: http.StatusBadRequest, Message: "New password does not meet the password policy"},
	{Err: domain.ErrPasswordChangeFailed, Status: http.StatusBadRequest, Message: "Password change failed"},
	{Err: domain.ErrPasswordCommandStart, Status: http.StatusBadRequest, Message: "Failed to execute password reset script"},
	{Err: domain.ErrPasswordCommandExit, Status: http.StatusBadRequest, Message: "Password reset script exited with an error"},
	{Err: domain.ErrPasswordCommandTimeout, Status: http.StatusBadRequest, Message: "Password reset script timed out"},
	{Err: domain.ErrPasswordCommandUnconfirmed, Status: http.StatusBadRequest, Message: "Password change could not be confirmed"},
	{Err: domain.ErrMissingToken, Status: http.StatusBadRequest, Message: "Missing token"},
	{Err: domain.ErrInvalidToken, Status: http.StatusBadRequest, Message: "Invalid token"},
	{Err: domain.ErrMissingClientID, Status: http.StatusBadRequest, Message: "Missing IP address"},
	{Err: domain.ErrRateLimited, Status: http.StatusTooManyRequests, Message: "Rate limit exceeded, please try again later"},
}

// RespondWithMappedError resolves err against cases and writes the error envelope.
// Validation and password policy messages are passed through verbatim; anything
// unmatched is logged with detail and answered with fallbackMessage.
func RespondWithMappedError(c *gin.Context, log *zap.Logger, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, validationErr.Message))
		return
	}

	var policyErr *security.PasswordValidationError
	if errors.As(err, &policyErr) {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, policyErr.Message))
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	if log != nil {
		log.Error("request failed",
			append(logger.ContextFields(c.Request.Context()),
				zap.String("route", c.FullPath()),
				zap.Error(err),
			)...,
		)
	}
	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

func respondError(c *gin.Context, log *zap.Logger, err error) {
	RespondWithMappedError(c, log, err, resetErrorCases, http.StatusBadRequest, msgUnknownError)
}
