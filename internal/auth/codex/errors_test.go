package codex

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestGetUserFriendlyMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"denied", &AuthorizationDeniedError{Reason: "access_denied"}, "cancelled or denied"},
		{"other oauth error", &AuthorizationDeniedError{Reason: "server_error"}, "server_error"},
		{"state mismatch", fmt.Errorf("wrapped: %w", ErrStateMismatch), "state mismatch"},
		{"missing code", ErrMissingCode, "No authorization code"},
		{"port in use", ErrPortInUse, "already in use"},
		{"timeout", ErrTimeout, "timed out"},
		{"cancelled", ErrCancelled, "cancelled"},
		{"invalid grant", &ExchangeError{StatusCode: 400, Code: "invalid_grant"}, "invalid or expired"},
		{"plain status", &ExchangeError{StatusCode: 502}, "502"},
		{"network", &NetworkError{Op: "token exchange", Err: errors.New("dial")}, "network"},
		{"unknown", errors.New("boom"), "unexpected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetUserFriendlyMessage(tt.err)
			if tt.want == "" {
				if got != "" {
					t.Fatalf("GetUserFriendlyMessage(nil) = %q", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Fatalf("GetUserFriendlyMessage() = %q, want substring %q", got, tt.want)
			}
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	netErr := fmt.Errorf("outer: %w", &NetworkError{Op: "token refresh", Err: errors.New("refused")})
	if !IsNetworkError(netErr) || IsExchangeError(netErr) {
		t.Fatalf("network error misclassified")
	}
	exErr := fmt.Errorf("outer: %w", &ExchangeError{Op: "token refresh", StatusCode: 401, Body: "nope"})
	if !IsExchangeError(exErr) || IsNetworkError(exErr) {
		t.Fatalf("exchange error misclassified")
	}
	if !strings.Contains(exErr.Error(), "401") {
		t.Fatalf("ExchangeError message = %q", exErr.Error())
	}
}
