// Package errors provides error handling and HTTP status code mapping.
package errors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mbressan/step-console/internal/api/dto"
	"github.com/mbressan/step-console/internal/authn"
	"github.com/mbressan/step-console/internal/catrust"
	"github.com/mbressan/step-console/internal/issuer"
	"github.com/mbressan/step-console/internal/registry"
	"github.com/mbressan/step-console/internal/session"
	"github.com/mbressan/step-console/internal/stepcli"
	"github.com/mbressan/step-console/internal/userstore"
)

// Error codes for API responses.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeSessionExpired   = "SESSION_EXPIRED"
	CodeForbidden        = "FORBIDDEN"
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeBridgeError      = "BRIDGE_ERROR"
	CodeBridgeTimeout    = "BRIDGE_TIMEOUT"
	CodeStorageError     = "STORAGE_ERROR"
	CodeTrustUnavailable = "TRUST_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

// MapError maps an internal error to an HTTP status code and APIError.
func MapError(err error) (int, *dto.APIError) {
	if err == nil {
		return http.StatusOK, nil
	}

	switch {
	case errors.Is(err, authn.ErrAuthFailed):
		return http.StatusUnauthorized, &dto.APIError{
			Code:    CodeUnauthorized,
			Message: "Invalid username or password",
		}
	case errors.Is(err, session.ErrSessionExpired):
		return http.StatusUnauthorized, &dto.APIError{
			Code:    CodeSessionExpired,
			Message: "Session expired, please log in again",
		}
	case errors.Is(err, session.ErrNoSession):
		return http.StatusUnauthorized, &dto.APIError{
			Code:    CodeUnauthorized,
			Message: "Authentication required",
		}
	case errors.Is(err, registry.ErrBundleNotFound):
		return http.StatusNotFound, &dto.APIError{
			Code:    CodeNotFound,
			Message: "Certificate bundle not found",
		}
	case errors.Is(err, userstore.ErrUserNotFound):
		return http.StatusNotFound, &dto.APIError{
			Code:    CodeNotFound,
			Message: "User not found",
		}
	case errors.Is(err, catrust.ErrUnavailable):
		return http.StatusNotFound, &dto.APIError{
			Code:    CodeTrustUnavailable,
			Message: "CA trust material is not available",
		}
	case errors.Is(err, stepcli.ErrTimeout):
		return http.StatusGatewayTimeout, &dto.APIError{
			Code:    CodeBridgeTimeout,
			Message: "The CA did not respond in time",
		}
	}

	var valErr *issuer.ValidationError
	if errors.As(err, &valErr) {
		details := map[string]string{"field": valErr.Field}
		if len(valErr.Values) > 0 {
			details["values"] = strings.Join(valErr.Values, ", ")
		}
		return http.StatusBadRequest, &dto.APIError{
			Code:    CodeValidation,
			Message: valErr.Error(),
			Details: details,
		}
	}

	var bridgeErr *stepcli.BridgeError
	if errors.As(err, &bridgeErr) {
		return http.StatusBadGateway, &dto.APIError{
			Code:    CodeBridgeError,
			Message: "CA command failed",
			Details: map[string]string{"output": bridgeErr.OutputText()},
		}
	}

	var storageErr *userstore.StorageError
	if errors.As(err, &storageErr) {
		return http.StatusInternalServerError, &dto.APIError{
			Code:    CodeStorageError,
			Message: storageErr.Error(),
		}
	}

	var bundleErr *registry.StorageError
	if errors.As(err, &bundleErr) {
		return http.StatusInternalServerError, &dto.APIError{
			Code:    CodeStorageError,
			Message: bundleErr.Error(),
		}
	}

	return http.StatusInternalServerError, &dto.APIError{
		Code:    CodeInternal,
		Message: "An internal error occurred",
	}
}

// NewBadRequest creates a bad request error.
func NewBadRequest(message string) *dto.APIError {
	return &dto.APIError{
		Code:    CodeInvalidRequest,
		Message: message,
	}
}

// NewForbidden creates a forbidden error.
func NewForbidden(message string) *dto.APIError {
	return &dto.APIError{
		Code:    CodeForbidden,
		Message: message,
	}
}
