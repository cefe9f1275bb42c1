package cmd

import (
	"net/http"

	"github.com/router-for-me/openai-auth/internal/auth/codex"
	"github.com/router-for-me/openai-auth/internal/config"
	sdkAuth "github.com/router-for-me/openai-auth/sdk/auth"
)

// providerCodex is the only registered provider.
const providerCodex = "codex"

// newAuthManager creates an authentication manager with the Codex authenticator,
// its HTTP client built from cfg.
func newAuthManager(cfg *config.Config) *sdkAuth.Manager {
	return sdkAuth.NewManager(sdkAuth.NewCodexAuthenticator(clientOptions(cfg)...))
}

// clientOptions maps the CLI configuration onto token client options.
func clientOptions(cfg *config.Config) []codex.Option {
	if cfg == nil {
		return nil
	}
	var opts []codex.Option
	if cfg.RequestTimeout > 0 {
		opts = append(opts, codex.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}))
	}
	if cfg.ProxyURL != "" {
		opts = append(opts, codex.WithProxyURL(cfg.ProxyURL))
	}
	return opts
}
