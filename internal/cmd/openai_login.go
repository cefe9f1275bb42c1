// Package cmd implements the openai-auth command actions: interactive login,
// token refresh, API key exchange and account ID extraction.
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/router-for-me/openai-auth/internal/auth/codex"
	"github.com/router-for-me/openai-auth/internal/config"
	sdkAuth "github.com/router-for-me/openai-auth/sdk/auth"
	log "github.com/sirupsen/logrus"
)

// Exit codes returned by the actions.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// LoginOptions contains options for the login process.
type LoginOptions struct {
	// NoBrowser indicates whether to skip opening the browser automatically.
	NoBrowser bool

	// CallbackPort overrides the local OAuth callback port when set (>0).
	CallbackPort int

	// APIKey also exchanges the ID token for an OpenAI API key.
	APIKey bool

	// Timeout overrides the configured callback timeout when set.
	Timeout time.Duration

	// JSON prints the result as a JSON document.
	JSON bool

	// CopyURL copies the authorization URL to the clipboard.
	CopyURL bool

	// Prompt allows the caller to provide interactive input when needed.
	Prompt func(prompt string) (string, error)

	// Stdout receives the result; nil selects os.Stdout.
	Stdout io.Writer

	// Stderr receives progress messages; nil selects os.Stderr.
	Stderr io.Writer
}

func (o *LoginOptions) stdout() io.Writer {
	if o == nil || o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

func (o *LoginOptions) stderr() io.Writer {
	if o == nil || o.Stderr == nil {
		return os.Stderr
	}
	return o.Stderr
}

// DoCodexLogin runs the interactive OpenAI OAuth login and prints the tokens.
// It returns the process exit code.
func DoCodexLogin(ctx context.Context, cfg *config.Config, options *LoginOptions) int {
	if options == nil {
		options = &LoginOptions{}
	}
	if cfg == nil {
		cfg = config.Default()
	}

	codexCfg, err := cfg.CodexConfig()
	if err != nil {
		return reportError(options.stderr(), "Codex authentication failed", err)
	}

	promptFn := options.Prompt
	if promptFn == nil {
		promptFn = stdinPrompt(options.stderr())
	}

	timeout := cfg.CallbackTimeout
	if options.Timeout > 0 {
		timeout = options.Timeout
	}

	authOpts := &sdkAuth.LoginOptions{
		NoBrowser:    options.NoBrowser || cfg.NoBrowser,
		CallbackPort: options.CallbackPort,
		APIKey:       options.APIKey,
		Timeout:      timeout,
		Prompt:       promptFn,
		Output:       options.stderr(),
	}
	if options.CopyURL {
		authOpts.OnAuthURL = func(authURL string) {
			if errCopy := clipboard.WriteAll(authURL); errCopy != nil {
				log.Warnf("failed to copy authorization URL to clipboard: %v", errCopy)
				return
			}
			_, _ = fmt.Fprintln(options.stderr(), "Authorization URL copied to clipboard")
		}
	}

	result, err := newAuthManager(cfg).Login(ctx, providerCodex, codexCfg, authOpts)
	if err != nil {
		return reportError(options.stderr(), "Codex authentication failed", err)
	}

	if err = writeResult(options.stdout(), result, options.JSON); err != nil {
		return reportError(options.stderr(), "Failed to write result", err)
	}
	return ExitOK
}

// reportError prints a user-facing message for err and picks the exit code.
func reportError(w io.Writer, prefix string, err error) int {
	log.Debugf("%s: %v", prefix, err)
	_, _ = fmt.Fprintf(w, "%s: %s\n", prefix, codex.GetUserFriendlyMessage(err))
	if errors.Is(err, codex.ErrPortInUse) {
		return codex.ExitCodePortInUse
	}
	return ExitFailure
}

// stdinPrompt reads one line from standard input.
func stdinPrompt(w io.Writer) func(string) (string, error) {
	reader := bufio.NewReader(os.Stdin)
	return func(prompt string) (string, error) {
		_, _ = fmt.Fprint(w, prompt)
		value, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(value), nil
	}
}
