// Package blocking exposes the codex OAuth operations without context.Context.
// Every call runs under its own context bounded by the client timeout, which is
// cancelled before the call returns.
package blocking

import (
	"context"
	"fmt"
	"time"

	"github.com/router-for-me/openai-auth/internal/auth/codex"
)

// Client wraps codex.CodexAuth for callers that cannot manage contexts.
type Client struct {
	auth    *codex.CodexAuth
	timeout time.Duration
}

// NewClient creates a blocking client. A timeout of zero means calls never time out.
func NewClient(cfg *codex.Config, timeout time.Duration, opts ...codex.Option) *Client {
	return &Client{
		auth:    codex.NewCodexAuth(cfg, opts...),
		timeout: timeout,
	}
}

// Auth returns the underlying context-aware client.
func (c *Client) Auth() *codex.CodexAuth {
	return c.auth
}

// StartFlow creates a fresh PKCE flow. It performs no I/O.
func (c *Client) StartFlow() (*codex.Flow, error) {
	return c.auth.StartFlow()
}

// ExchangeCode exchanges an authorization code for tokens.
func (c *Client) ExchangeCode(code, verifier string) (*codex.TokenSet, error) {
	ctx, cancel := callContext(c.timeout)
	defer cancel()
	tokens, err := c.auth.ExchangeCode(ctx, code, verifier)
	return tokens, mapContextError(ctx, err)
}

// RefreshToken obtains new tokens with a refresh token.
func (c *Client) RefreshToken(refreshToken string) (*codex.TokenSet, error) {
	ctx, cancel := callContext(c.timeout)
	defer cancel()
	tokens, err := c.auth.RefreshToken(ctx, refreshToken)
	return tokens, mapContextError(ctx, err)
}

// ExchangeCodeForAPIKey exchanges the code and then the ID token for an API key.
// See codex.CodexAuth.ExchangeCodeForAPIKey for the partial success contract.
func (c *Client) ExchangeCodeForAPIKey(code, verifier string) (*codex.TokenSet, error) {
	ctx, cancel := callContext(c.timeout)
	defer cancel()
	tokens, err := c.auth.ExchangeCodeForAPIKey(ctx, code, verifier)
	return tokens, mapContextError(ctx, err)
}

// ObtainAPIKey trades an ID token for an API key.
func (c *Client) ObtainAPIKey(idToken string) (string, error) {
	ctx, cancel := callContext(c.timeout)
	defer cancel()
	key, err := c.auth.ObtainAPIKey(ctx, idToken)
	return key, mapContextError(ctx, err)
}

// ExtractAccountID reads the ChatGPT account ID from a token without verifying it.
func (c *Client) ExtractAccountID(token string) (string, error) {
	return c.auth.ExtractAccountID(token)
}

// RunCallbackServer listens on port until the redirect arrives or timeout elapses.
func RunCallbackServer(port int, expectedState string, timeout time.Duration) (string, error) {
	return RunCallbackServerWithHTML(port, expectedState, timeout, nil)
}

// RunCallbackServerWithHTML is RunCallbackServer with a custom page renderer.
func RunCallbackServerWithHTML(port int, expectedState string, timeout time.Duration, render codex.RenderFunc) (string, error) {
	ctx, cancel := callContext(timeout)
	defer cancel()
	return codex.RunCallbackServerWithHTML(ctx, port, expectedState, render)
}

func callContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}

// mapContextError reports an exchange cut short by the call deadline as codex.ErrTimeout.
func mapContextError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: %w", codex.ErrTimeout, err)
	}
	return err
}
