// Package auth exposes the interactive OpenAI login as a reusable SDK surface.
package auth

import (
	"context"
	"io"
	"time"

	"github.com/router-for-me/openai-auth/internal/auth/codex"
)

// LoginOptions captures the knobs of an interactive login.
type LoginOptions struct {
	// NoBrowser prints the authorization URL instead of opening it.
	NoBrowser bool
	// CallbackPort overrides the configured redirect port.
	CallbackPort int
	// APIKey also exchanges the ID token for an OpenAI API key.
	APIKey bool
	// Timeout bounds the wait for the redirect; zero selects DefaultCallbackTimeout.
	Timeout time.Duration
	// Prompt reads a pasted callback URL. Nil disables the manual fallback.
	// Login stops waiting for it once the listener decides, but cannot interrupt
	// the call: a prompt reading a shared stream such as os.Stdin may still consume
	// the next line after Login returns. Long-lived processes should supply a
	// prompt that honours its own cancellation.
	Prompt func(prompt string) (string, error)
	// OnAuthURL receives the authorization URL before the browser is opened.
	OnAuthURL func(authURL string)
	// Render overrides the page shown after the redirect.
	Render codex.RenderFunc
	// Output receives progress messages; nil selects stderr.
	Output io.Writer
}

// LoginResult is the outcome of a successful login or refresh.
type LoginResult struct {
	Tokens    *codex.TokenSet
	AccountID string
	Email     string
	PlanType  string
}

// Authenticator runs login and refresh flows for a provider.
type Authenticator interface {
	Provider() string
	Login(ctx context.Context, cfg *codex.Config, opts *LoginOptions) (*LoginResult, error)
	Refresh(ctx context.Context, cfg *codex.Config, refreshToken string) (*LoginResult, error)
}

var _ Authenticator = (*CodexAuthenticator)(nil)
