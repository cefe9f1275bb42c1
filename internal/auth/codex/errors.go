// Package codex provides authentication and token management functionality
// for OpenAI's Codex services. It handles OAuth2 PKCE flows, token exchange,
// API key exchange, JWT claim inspection and the local OAuth callback listener.
package codex

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the codex package. Use errors.Is to match them.
var (
	// ErrConfigInvalid indicates that a Config failed validation.
	ErrConfigInvalid = errors.New("codex: invalid configuration")

	// ErrMalformedResponse indicates that the token endpoint answered with a body
	// that is not valid JSON or lacks required fields.
	ErrMalformedResponse = errors.New("codex: malformed token response")

	// ErrMalformedToken indicates that a compact JWT could not be decoded.
	ErrMalformedToken = errors.New("codex: malformed token")

	// ErrClaimNotFound indicates that a requested claim is absent from a token payload.
	ErrClaimNotFound = errors.New("codex: claim not found")

	// ErrStateMismatch indicates that the callback state did not match the flow state.
	// It always aborts the flow.
	ErrStateMismatch = errors.New("codex: OAuth state mismatch")

	// ErrMissingCode indicates that the callback carried neither a code nor an error.
	ErrMissingCode = errors.New("codex: no authorization code received")

	// ErrCancelled indicates that waiting for the callback was cancelled by the caller.
	ErrCancelled = errors.New("codex: callback wait cancelled")

	// ErrTimeout indicates that no callback arrived before the deadline.
	ErrTimeout = errors.New("codex: timeout waiting for OAuth callback")

	// ErrPortInUse indicates that the callback port could not be bound.
	ErrPortInUse = errors.New("codex: OAuth callback port is already in use")

	// ErrRefreshTokenRequired indicates that RefreshToken was called with an empty token.
	ErrRefreshTokenRequired = errors.New("codex: refresh token is required")
)

// ExitCodePortInUse is the process exit code used by the CLI when the callback port is taken.
const ExitCodePortInUse = 13

// NetworkError wraps a transport level failure (DNS, TLS, connection, timeout).
type NetworkError struct {
	// Op names the operation that failed, e.g. "token exchange".
	Op string
	// Err is the underlying transport error.
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("codex: %s request failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ExchangeError represents a non-2xx answer from the token endpoint.
type ExchangeError struct {
	// Op names the operation that failed.
	Op string
	// StatusCode is the HTTP status returned by the server.
	StatusCode int
	// Body is the raw response body.
	Body string
	// Code is the OAuth error code parsed from the body, if any.
	Code string
	// Description is the OAuth error_description parsed from the body, if any.
	Description string
}

func (e *ExchangeError) Error() string {
	if e.Code != "" {
		if e.Description != "" {
			return fmt.Sprintf("codex: %s failed with status %d: %s: %s", e.Op, e.StatusCode, e.Code, e.Description)
		}
		return fmt.Sprintf("codex: %s failed with status %d: %s", e.Op, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("codex: %s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

// AuthorizationDeniedError is returned when the redirect carries an OAuth error parameter.
type AuthorizationDeniedError struct {
	// Reason is the value of the error query parameter, e.g. "access_denied".
	Reason string
	// Description is the optional error_description parameter.
	Description string
}

func (e *AuthorizationDeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("codex: authorization denied: %s: %s", e.Reason, e.Description)
	}
	return fmt.Sprintf("codex: authorization denied: %s", e.Reason)
}

// IsNetworkError reports whether err is, or wraps, a NetworkError.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsExchangeError reports whether err is, or wraps, an ExchangeError.
func IsExchangeError(err error) bool {
	var exErr *ExchangeError
	return errors.As(err, &exErr)
}

// GetUserFriendlyMessage returns a user-friendly error message based on the error type.
func GetUserFriendlyMessage(err error) string {
	var denied *AuthorizationDeniedError
	var exErr *ExchangeError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &denied):
		if denied.Reason == "access_denied" {
			return "Authentication was cancelled or denied."
		}
		return fmt.Sprintf("Authentication failed: %s", denied.Reason)
	case errors.Is(err, ErrStateMismatch):
		return "Security validation failed (state mismatch). Please start the login again."
	case errors.Is(err, ErrMissingCode):
		return "No authorization code was received. Please try again."
	case errors.Is(err, ErrPortInUse):
		return "The OAuth callback port is already in use. Close the application using it or pick another port."
	case errors.Is(err, ErrTimeout):
		return "Authentication timed out. Please try again."
	case errors.Is(err, ErrCancelled):
		return "Authentication was cancelled."
	case errors.As(err, &exErr):
		switch exErr.Code {
		case "invalid_grant":
			return "The authorization code or refresh token is invalid or expired. Please log in again."
		case "invalid_request":
			return "Invalid authentication request. Please try again."
		case "server_error":
			return "Authentication server error. Please try again later."
		}
		return fmt.Sprintf("Token exchange failed with HTTP status %d.", exErr.StatusCode)
	case IsNetworkError(err):
		return "Could not reach the authentication server. Check your network or proxy settings."
	case errors.Is(err, ErrConfigInvalid):
		return fmt.Sprintf("Invalid configuration: %v", err)
	default:
		return "An unexpected error occurred. Please try again."
	}
}
