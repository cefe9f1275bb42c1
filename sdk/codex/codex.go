// Package codex is the public OpenAI Codex OAuth client. It re-exports the
// PKCE, flow, token exchange, claim and callback listener APIs.
//
// Claims returned by ParseClaims and ExtractAccountID are decoded WITHOUT
// signature verification.
package codex

import (
	"context"
	"net/http"
	"net/url"
	"time"

	internalcodex "github.com/router-for-me/openai-auth/internal/auth/codex"
)

type (
	// Config holds the issuer, client and redirect settings of a login.
	Config = internalcodex.Config
	// ConfigBuilder assembles a validated Config.
	ConfigBuilder = internalcodex.ConfigBuilder
	// PKCECodes is a code verifier and its S256 challenge.
	PKCECodes = internalcodex.PKCECodes
	// Flow is one authorization attempt: URL, state and verifier.
	Flow = internalcodex.Flow
	// TokenSet is the result of a code exchange or refresh.
	TokenSet = internalcodex.TokenSet
	// Claims is the unverified payload of an ID token.
	Claims = internalcodex.Claims
	// CodexAuthInfo is the account section of the OpenAI auth claim.
	CodexAuthInfo = internalcodex.CodexAuthInfo
	// CodexAuth talks to the token endpoint.
	CodexAuth = internalcodex.CodexAuth
	// Option configures a CodexAuth.
	Option = internalcodex.Option
	// RefreshingTokenSource is an oauth2.TokenSource that refreshes near expiry.
	RefreshingTokenSource = internalcodex.RefreshingTokenSource
	// OAuthServer is the single-use loopback callback listener.
	OAuthServer = internalcodex.OAuthServer
	// ListenerState is the lifecycle state of an OAuthServer.
	ListenerState = internalcodex.ListenerState
	// RenderFunc renders the page shown in the browser after the callback.
	RenderFunc = internalcodex.RenderFunc
	// CallbackEvent is the classified outcome of a callback request.
	CallbackEvent = internalcodex.CallbackEvent
	// CallbackSuccess carries the authorization code.
	CallbackSuccess = internalcodex.CallbackSuccess
	// CallbackError carries the provider's error and description.
	CallbackError = internalcodex.CallbackError
	// CallbackStateMismatch reports a callback for a different flow.
	CallbackStateMismatch = internalcodex.CallbackStateMismatch
	// CallbackMissingCode reports a callback without code or error.
	CallbackMissingCode = internalcodex.CallbackMissingCode
	// NetworkError wraps a transport failure talking to the issuer.
	NetworkError = internalcodex.NetworkError
	// ExchangeError is a non-2xx answer from the token endpoint.
	ExchangeError = internalcodex.ExchangeError
	// AuthorizationDeniedError is returned when the user or provider refused consent.
	AuthorizationDeniedError = internalcodex.AuthorizationDeniedError
)

// Listener lifecycle states.
const (
	ListenerIdle       = internalcodex.ListenerIdle
	ListenerListening  = internalcodex.ListenerListening
	ListenerMatched    = internalcodex.ListenerMatched
	ListenerMismatched = internalcodex.ListenerMismatched
	ListenerErrored    = internalcodex.ListenerErrored
	ListenerCancelled  = internalcodex.ListenerCancelled
	ListenerClosed     = internalcodex.ListenerClosed
)

const (
	// DefaultIssuer is the OpenAI authorization server.
	DefaultIssuer = internalcodex.DefaultIssuer
	// DefaultClientID is the public Codex CLI client.
	DefaultClientID = internalcodex.DefaultClientID
	// DefaultRedirectPort is the loopback port registered for the client.
	DefaultRedirectPort = internalcodex.DefaultRedirectPort
	// ExpirySafetyMargin is subtracted from a token's lifetime when checking expiry.
	ExpirySafetyMargin = internalcodex.ExpirySafetyMargin
	// NeverExpires is what TokenSet.Remaining reports for a token without expiry.
	NeverExpires = internalcodex.NeverExpires
	// OpenAIAuthClaim is the namespaced ID token claim holding account details.
	OpenAIAuthClaim = internalcodex.OpenAIAuthClaim
)

// Sentinel errors, matched with errors.Is.
var (
	ErrConfigInvalid        = internalcodex.ErrConfigInvalid
	ErrMalformedResponse    = internalcodex.ErrMalformedResponse
	ErrMalformedToken       = internalcodex.ErrMalformedToken
	ErrClaimNotFound        = internalcodex.ErrClaimNotFound
	ErrStateMismatch        = internalcodex.ErrStateMismatch
	ErrMissingCode          = internalcodex.ErrMissingCode
	ErrCancelled            = internalcodex.ErrCancelled
	ErrTimeout              = internalcodex.ErrTimeout
	ErrPortInUse            = internalcodex.ErrPortInUse
	ErrRefreshTokenRequired = internalcodex.ErrRefreshTokenRequired
)

// DefaultConfig returns the stock Codex CLI configuration.
func DefaultConfig() *Config { return internalcodex.DefaultConfig() }

// NewConfigBuilder starts from DefaultConfig.
func NewConfigBuilder() *ConfigBuilder { return internalcodex.NewConfigBuilder() }

// GeneratePKCECodes draws a fresh verifier from crypto/rand.
func GeneratePKCECodes() (*PKCECodes, error) { return internalcodex.GeneratePKCECodes() }

// PKCECodesFromBytes derives PKCE codes from caller-supplied entropy.
func PKCECodesFromBytes(entropy []byte) (*PKCECodes, error) {
	return internalcodex.PKCECodesFromBytes(entropy)
}

// GenerateRandomState returns an unguessable state value.
func GenerateRandomState() (string, error) { return internalcodex.GenerateRandomState() }

// BuildFlow builds the authorization URL for cfg, pkce and state.
func BuildFlow(cfg *Config, pkce *PKCECodes, state string) (*Flow, error) {
	return internalcodex.BuildFlow(cfg, pkce, state)
}

// WithHTTPClient sets the client used for token requests.
func WithHTTPClient(client *http.Client) Option { return internalcodex.WithHTTPClient(client) }

// WithProxyURL routes token requests through an HTTP or SOCKS5 proxy.
func WithProxyURL(proxyURL string) Option { return internalcodex.WithProxyURL(proxyURL) }

// WithClock replaces time.Now for issued-at stamps.
func WithClock(now func() time.Time) Option { return internalcodex.WithClock(now) }

// NewCodexAuth returns a token endpoint client for cfg.
func NewCodexAuth(cfg *Config, opts ...Option) *CodexAuth {
	return internalcodex.NewCodexAuth(cfg, opts...)
}

// ParseClaims decodes an ID token payload without verifying its signature.
func ParseClaims(token string) (*Claims, error) { return internalcodex.ParseClaims(token) }

// ExtractClaim returns one top-level claim of an unverified token.
func ExtractClaim(token, name string) (any, error) { return internalcodex.ExtractClaim(token, name) }

// ExtractAccountID returns the ChatGPT account id of an unverified token.
func ExtractAccountID(token string) (string, error) { return internalcodex.ExtractAccountID(token) }

// DefaultCallbackHTML is the built-in RenderFunc.
func DefaultCallbackHTML(event CallbackEvent) string { return internalcodex.DefaultCallbackHTML(event) }

// GetUserFriendlyMessage maps an error to a message fit for end users.
func GetUserFriendlyMessage(err error) string { return internalcodex.GetUserFriendlyMessage(err) }

// ClassifyCallback applies the callback decision table to a query.
func ClassifyCallback(query url.Values, expectedState string) CallbackEvent {
	return internalcodex.ClassifyCallback(query, expectedState)
}

// ResolveCallback turns a classified callback into a code or an error.
func ResolveCallback(event CallbackEvent) (string, error) {
	return internalcodex.ResolveCallback(event)
}

// NewOAuthServer returns an idle listener for port. A nil render uses DefaultCallbackHTML.
func NewOAuthServer(port int, expectedState string, render RenderFunc) *OAuthServer {
	return internalcodex.NewOAuthServer(port, expectedState, render)
}

// RunCallbackServer listens on port until the first callback or ctx ends.
func RunCallbackServer(ctx context.Context, port int, expectedState string) (string, error) {
	return internalcodex.RunCallbackServer(ctx, port, expectedState)
}

// RunCallbackServerWithHTML is RunCallbackServer with a custom page.
func RunCallbackServerWithHTML(ctx context.Context, port int, expectedState string, render RenderFunc) (string, error) {
	return internalcodex.RunCallbackServerWithHTML(ctx, port, expectedState, render)
}
