package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/healthmate/companion/internal/apiclient"
	"github.com/healthmate/companion/internal/middleware"
	"github.com/healthmate/companion/internal/service"
	"github.com/healthmate/companion/internal/session"
	"github.com/healthmate/companion/pkg/model"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// Notice is a transient message plus where the client should go next
type Notice struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// classify maps an error to an HTTP status and error code
func classify(err error) (int, string) {
	var apiErr *apiclient.APIError
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, session.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, apiclient.ErrContractViolation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, service.ErrConfirmationRequired):
		return http.StatusBadRequest, "CONFIRMATION_REQUIRED"
	case errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict, "SESSION_CHANGED"
	case errors.Is(err, apiclient.ErrTransport):
		return http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"
	case errors.Is(err, apiclient.ErrMissingUser):
		return http.StatusBadGateway, "UPSTREAM_ERROR"
	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status, "UPSTREAM_ERROR"
		}
		return http.StatusBadGateway, "UPSTREAM_ERROR"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "REQUEST_CANCELED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// validationMessage strips the sentinel prefix so the user sees only the reason
func validationMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{service.ErrValidation, session.ErrValidation} {
		msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	}
	return msg
}

// writeError responds with the server-provided message when there is one, else fallback
func writeError(c *gin.Context, err error, fallback string) {
	status, code := classify(err)
	message := apiclient.MessageOf(err, fallback)
	if code == "VALIDATION_ERROR" && !errors.Is(err, apiclient.ErrContractViolation) {
		message = validationMessage(err)
	}
	_ = c.Error(err)
	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: message,
		Details: stringPtr(err.Error()),
	})
}

// writeFetchError responds with a fixed message; the cause only goes into details
func writeFetchError(c *gin.Context, err error, message string) {
	status, code := classify(err)
	_ = c.Error(err)
	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: message,
		Details: stringPtr(err.Error()),
	})
}

// bindError responds to a request body that could not be parsed
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    "VALIDATION_ERROR",
		Message: "Invalid request body",
		Details: stringPtr(err.Error()),
	})
}

// currentUser returns the user the session guard stored on the context
func currentUser(c *gin.Context) model.User {
	if v, ok := c.Get(middleware.UserKey); ok {
		if user, ok := v.(model.User); ok {
			return user
		}
	}
	return model.User{}
}
