// Package blocking is the public context-free variant of the codex client.
package blocking

import (
	"time"

	internalblocking "github.com/router-for-me/openai-auth/internal/auth/codex/blocking"
	"github.com/router-for-me/openai-auth/sdk/codex"
)

// Client wraps codex.CodexAuth with a fixed per-call timeout.
type Client = internalblocking.Client

// NewClient returns a Client whose calls give up after timeout. Zero never times out.
func NewClient(cfg *codex.Config, timeout time.Duration, opts ...codex.Option) *Client {
	return internalblocking.NewClient(cfg, timeout, opts...)
}

// RunCallbackServer waits up to timeout for the first callback on port.
func RunCallbackServer(port int, expectedState string, timeout time.Duration) (string, error) {
	return internalblocking.RunCallbackServer(port, expectedState, timeout)
}

// RunCallbackServerWithHTML is RunCallbackServer with a custom page.
func RunCallbackServerWithHTML(port int, expectedState string, timeout time.Duration, render codex.RenderFunc) (string, error) {
	return internalblocking.RunCallbackServerWithHTML(port, expectedState, timeout, render)
}
