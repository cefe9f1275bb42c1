package cmd

import (
	"context"
	"fmt"

	"github.com/router-for-me/openai-auth/internal/auth/codex"
	"github.com/router-for-me/openai-auth/internal/config"
)

// DoRefresh exchanges a refresh token for new tokens and prints them.
func DoRefresh(ctx context.Context, cfg *config.Config, refreshToken string, options *LoginOptions) int {
	if cfg == nil {
		cfg = config.Default()
	}
	codexCfg, err := cfg.CodexConfig()
	if err != nil {
		return reportError(options.stderr(), "Token refresh failed", err)
	}

	result, err := newAuthManager(cfg).Refresh(ctx, providerCodex, codexCfg, refreshToken)
	if err != nil {
		return reportError(options.stderr(), "Token refresh failed", err)
	}
	if err = writeResult(options.stdout(), result, options != nil && options.JSON); err != nil {
		return reportError(options.stderr(), "Failed to write result", err)
	}
	return ExitOK
}

// DoAPIKeyExchange trades an ID token for an OpenAI API key and prints it.
func DoAPIKeyExchange(ctx context.Context, cfg *config.Config, idToken string, options *LoginOptions) int {
	if cfg == nil {
		cfg = config.Default()
	}
	codexCfg, err := cfg.CodexConfig()
	if err != nil {
		return reportError(options.stderr(), "API key exchange failed", err)
	}

	key, err := codex.NewCodexAuth(codexCfg, clientOptions(cfg)...).ObtainAPIKey(ctx, idToken)
	if err != nil {
		return reportError(options.stderr(), "API key exchange failed", err)
	}
	if options != nil && options.JSON {
		return writeJSONField(options, "api_key", key)
	}
	_, _ = fmt.Fprintln(options.stdout(), key)
	return ExitOK
}

// DoAccountID prints the ChatGPT account ID carried by token. The token is not verified.
func DoAccountID(token string, options *LoginOptions) int {
	accountID, err := codex.ExtractAccountID(token)
	if err != nil {
		return reportError(options.stderr(), "Account ID extraction failed", err)
	}
	if options != nil && options.JSON {
		return writeJSONField(options, "account_id", accountID)
	}
	_, _ = fmt.Fprintln(options.stdout(), accountID)
	return ExitOK
}
