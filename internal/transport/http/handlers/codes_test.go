package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/security"
	"github.com/Korabi-dev/password-reset-adds/internal/usecase"
)

type resetServiceStub struct {
	requestErr error
	resetErr   error
	lastInput  usecase.ResetPasswordInput
}

func (s *resetServiceStub) RequestCode(context.Context, string, string) (*usecase.IssueResult, error) {
	if s.requestErr != nil {
		return nil, s.requestErr
	}
	return &usecase.IssueResult{Username: "alice"}, nil
}

func (s *resetServiceStub) ResetPassword(_ context.Context, input usecase.ResetPasswordInput) error {
	s.lastInput = input
	return s.resetErr
}

func serveCodes(t *testing.T, stub *resetServiceStub, path, body string) (int, Envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	NewCodeHandler(stub, zaptest.NewLogger(t)).RegisterRoutes(router.Group("/codes"))

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var env Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return rr.Code, env
}

func TestRequestCodeSuccess(t *testing.T) {
	status, env := serveCodes(t, &resetServiceStub{}, "/codes/new", `{"email":"alice@x.com","username":"alice"}`)
	if status != http.StatusOK || env.Error || env.Message != "Code sent to email" {
		t.Fatalf("unexpected response %d %+v", status, env)
	}
}

func TestRequestCodeMissingParameters(t *testing.T) {
	bodies := []string{
		`{"email":"alice@x.com"}`,
		`{"email":"alice@x.com","username":""}`,
		`{"email":"alice@x.com","username":42}`,
		`not json`,
	}
	for _, body := range bodies {
		status, env := serveCodes(t, &resetServiceStub{}, "/codes/new", body)
		if status != http.StatusBadRequest || !env.Error || env.Message != msgMissingParameters {
			t.Fatalf("body %s: expected Missing parameters, got %d %+v", body, status, env)
		}
	}
}

func TestValidateCodePassesInput(t *testing.T) {
	stub := &resetServiceStub{}
	status, env := serveCodes(t, stub, "/codes/validate", `{"code":"1234","email":"alice@x.com","username":"alice","newPassword":"S3cret!"}`)
	if status != http.StatusOK || env.Message != "Password changed successfully" {
		t.Fatalf("unexpected response %d %+v", status, env)
	}
	want := usecase.ResetPasswordInput{Code: "1234", Email: "alice@x.com", Username: "alice", NewPassword: "S3cret!"}
	if stub.lastInput != want {
		t.Fatalf("expected %+v, got %+v", want, stub.lastInput)
	}
}

func TestValidateCodeErrorMessages(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
	}{
		{domain.ErrUserNotFound, http.StatusBadRequest, "User not found"},
		{domain.ErrInvalidCode, http.StatusBadRequest, "This code is invalid"},
		{domain.ErrCodeEmailMismatch, http.StatusBadRequest, "This code is invalid."},
		{domain.ErrCodeExpired, http.StatusBadRequest, "This code has expired, please request a new one"},
		{fmt.Errorf("run: %w", domain.ErrPasswordChangeFailed), http.StatusBadRequest, "Password change failed"},
		{fmt.Errorf("run: %w", domain.ErrPasswordCommandStart), http.StatusBadRequest, "Failed to execute password reset script"},
		{fmt.Errorf("run: %w", domain.ErrPasswordCommandExit), http.StatusBadRequest, "Password reset script exited with an error"},
		{domain.ErrPasswordCommandTimeout, http.StatusBadRequest, "Password reset script timed out"},
		{domain.ErrPasswordCommandUnconfirmed, http.StatusBadRequest, "Password change could not be confirmed"},
		{&domain.ValidationError{Field: "code", Message: "Code must be 4 digits"}, http.StatusBadRequest, "Code must be 4 digits"},
		{&security.PasswordValidationError{Code: "min_length", Message: "password too short"}, http.StatusBadRequest, "password too short"},
		{fmt.Errorf("%w: lookup user: %w", domain.ErrUnknown, errors.New("connection reset")), http.StatusBadRequest, msgUnknownError},
		{errors.New("boom"), http.StatusBadRequest, msgUnknownError},
	}

	body := `{"code":"1234","email":"alice@x.com","username":"alice","newPassword":"pw"}`
	for _, tc := range cases {
		status, env := serveCodes(t, &resetServiceStub{resetErr: tc.err}, "/codes/validate", body)
		if status != tc.status || !env.Error || env.Message != tc.message {
			t.Fatalf("%v: expected %d %q, got %d %+v", tc.err, tc.status, tc.message, status, env)
		}
		if strings.Contains(env.Message, "connection reset") {
			t.Fatalf("storage detail leaked to caller: %q", env.Message)
		}
	}
}

func TestRequestCodeDuplicate(t *testing.T) {
	_, env := serveCodes(t, &resetServiceStub{requestErr: domain.ErrDuplicateRequest}, "/codes/new", `{"email":"alice@x.com","username":"alice"}`)
	if !strings.HasPrefix(env.Message, "Found duplicate entry") {
		t.Fatalf("unexpected message %q", env.Message)
	}
}
