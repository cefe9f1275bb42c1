package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/router-for-me/openai-auth/internal/auth/codex"
	"github.com/router-for-me/openai-auth/internal/browser"
	"github.com/router-for-me/openai-auth/internal/logging"
	"github.com/router-for-me/openai-auth/internal/misc"
	"github.com/router-for-me/openai-auth/internal/util"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultCallbackTimeout bounds the wait for the browser redirect.
	DefaultCallbackTimeout = 5 * time.Minute
	// DefaultManualPromptDelay is how long Login waits before offering the paste prompt.
	DefaultManualPromptDelay = 15 * time.Second
)

// CodexAuthenticator implements the interactive OAuth login for OpenAI Codex.
type CodexAuthenticator struct {
	// ClientOptions are passed to codex.NewCodexAuth.
	ClientOptions []codex.Option
	// ManualPromptDelay overrides DefaultManualPromptDelay.
	ManualPromptDelay time.Duration
}

// NewCodexAuthenticator constructs a Codex authenticator with default settings.
func NewCodexAuthenticator(opts ...codex.Option) *CodexAuthenticator {
	return &CodexAuthenticator{ClientOptions: opts}
}

// Provider returns the provider key.
func (a *CodexAuthenticator) Provider() string {
	return "codex"
}

// callbackResult is one candidate answer for the authorization code.
type callbackResult struct {
	code   string
	err    error
	manual bool
}

// Login runs the full browser flow: it starts the callback listener, shows or
// opens the authorization URL, waits for the redirect (or a pasted redirect URL
// once the prompt delay passes) and exchanges the code for tokens.
// The listener socket is released before Login returns.
func (a *CodexAuthenticator) Login(ctx context.Context, cfg *codex.Config, opts *LoginOptions) (*LoginResult, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if opts == nil {
		opts = &LoginOptions{}
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	if opts.CallbackPort > 0 && opts.CallbackPort != cfg.RedirectPort {
		var errPort error
		if cfg, errPort = cfg.WithRedirectPort(opts.CallbackPort); errPort != nil {
			return nil, errPort
		}
	}

	ctx = logging.WithRequestID(ctx, logging.GenerateRequestID())
	entry := logging.Entry(ctx).WithField("op", "login")

	authSvc := codex.NewCodexAuth(cfg, a.ClientOptions...)
	flow, err := authSvc.StartFlow()
	if err != nil {
		return nil, fmt.Errorf("codex flow creation failed: %w", err)
	}
	entry.Debugf("codex flow created: %v", flow)

	server := codex.NewOAuthServer(cfg.RedirectPort, flow.State, opts.Render)
	if err = server.Start(); err != nil {
		return nil, err
	}
	defer func() {
		if errClose := server.Close(); errClose != nil {
			entry.Warnf("codex oauth server close error: %v", errClose)
		}
	}()
	entry.WithField("port", server.Port()).Debug("callback listener started")

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultCallbackTimeout
	}
	waitCtx, cancelWait := context.WithTimeout(ctx, timeout)
	defer cancelWait()

	listenerCh := make(chan callbackResult, 1)
	manualCh := make(chan callbackResult, 1)

	g, gctx := errgroup.WithContext(waitCtx)
	g.Go(func() error {
		code, errWait := server.Wait(gctx)
		listenerCh <- callbackResult{code: code, err: errWait}
		return nil
	})
	g.Go(func() error {
		a.announce(gctx, out, flow.AuthorizationURL, server.Port(), opts)
		return nil
	})
	if opts.Prompt != nil {
		go a.promptManual(gctx, out, flow.State, opts.Prompt, manualCh)
	}

	var result callbackResult
	select {
	case result = <-listenerCh:
	case result = <-manualCh:
	}
	cancelWait()
	_ = g.Wait()

	if result.err != nil {
		if denied, ok := errors.AsType[*codex.AuthorizationDeniedError](result.err); ok {
			entry.Warnf("authorization denied: %s", denied.Reason)
		}
		return nil, result.err
	}
	if result.manual {
		entry.Debug("authorization code received from pasted callback URL")
	}

	entry.Debug("codex authorization code received; exchanging for tokens")
	var tokens *codex.TokenSet
	if opts.APIKey {
		tokens, err = authSvc.ExchangeCodeForAPIKey(ctx, result.code, flow.CodeVerifier)
	} else {
		tokens, err = authSvc.ExchangeCode(ctx, result.code, flow.CodeVerifier)
	}
	if err != nil {
		return nil, err
	}

	entry.Debugf("codex tokens received (access token %s)", util.MaskSecret(tokens.AccessToken))
	res := newLoginResult(tokens)
	_, _ = fmt.Fprintln(out, "Codex authentication successful")
	if opts.APIKey {
		if tokens.APIKeyErr != nil {
			_, _ = fmt.Fprintf(out, "API key exchange failed: %v\n", tokens.APIKeyErr)
		} else {
			_, _ = fmt.Fprintln(out, "OpenAI API key obtained")
		}
	}
	return res, nil
}

// Refresh exchanges a refresh token for a new token set.
func (a *CodexAuthenticator) Refresh(ctx context.Context, cfg *codex.Config, refreshToken string) (*LoginResult, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	tokens, err := codex.NewCodexAuth(cfg, a.ClientOptions...).RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return newLoginResult(tokens), nil
}

// announce hands the authorization URL to the user: through the OnAuthURL hook,
// the browser unless disabled, and always as printed text.
func (a *CodexAuthenticator) announce(ctx context.Context, out io.Writer, authURL string, port int, opts *LoginOptions) {
	if opts.OnAuthURL != nil {
		opts.OnAuthURL(authURL)
	}

	opened := false
	if !opts.NoBrowser {
		_, _ = fmt.Fprintln(out, "Opening browser for Codex authentication")
		if !browser.IsAvailable() {
			log.Warn("No browser available; please open the URL manually")
		} else if err := browser.OpenURL(authURL); err != nil {
			log.Warnf("Failed to open browser automatically: %v", err)
		} else {
			opened = true
		}
	}
	if !opened {
		util.WriteSSHTunnelInstructions(out, port, util.GetIPAddress(ctx))
	}
	_, _ = fmt.Fprintf(out, "Visit the following URL to continue authentication:\n%s\n", authURL)
	_, _ = fmt.Fprintln(out, "Waiting for Codex authentication callback...")
}

// promptManual offers the paste prompt after the delay. A pasted URL goes through
// the same decision table as the listener, so a foreign state is rejected.
// Empty input or a prompt failure leaves the listener waiting.
func (a *CodexAuthenticator) promptManual(ctx context.Context, out io.Writer, expectedState string, prompt func(string) (string, error), results chan<- callbackResult) {
	delay := a.ManualPromptDelay
	if delay <= 0 {
		delay = DefaultManualPromptDelay
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	input, err := awaitPrompt(ctx, prompt, "Paste the Codex callback URL (or press Enter to keep waiting): ")
	if err != nil {
		log.Debugf("manual callback prompt unavailable: %v", err)
		return
	}
	parsed, err := misc.ParseOAuthCallback(input)
	if err != nil {
		_, _ = fmt.Fprintf(out, "Ignoring pasted value: %v\n", err)
		return
	}
	if parsed == nil {
		return
	}

	code, errResolve := codex.ResolveCallback(codex.ClassifyCallback(parsed.Query(), expectedState))
	select {
	case results <- callbackResult{code: code, err: errResolve, manual: true}:
	default:
	}
}

// awaitPrompt runs prompt without tying the caller to it: once ctx ends the
// result is abandoned and awaitPrompt returns ctx.Err(). The prompt call itself
// keeps running until it returns on its own.
func awaitPrompt(ctx context.Context, prompt func(string) (string, error), label string) (string, error) {
	type answer struct {
		input string
		err   error
	}
	answers := make(chan answer, 1)
	go func() {
		input, err := prompt(label)
		answers <- answer{input: input, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case a := <-answers:
		return a.input, a.err
	}
}

func newLoginResult(tokens *codex.TokenSet) *LoginResult {
	res := &LoginResult{Tokens: tokens}
	for _, token := range []string{tokens.IDToken, tokens.AccessToken} {
		if token == "" {
			continue
		}
		claims, err := codex.ParseClaims(token)
		if err != nil {
			continue
		}
		if res.AccountID == "" {
			res.AccountID, _ = claims.AccountID()
		}
		if res.Email == "" {
			res.Email = claims.Email()
		}
		if res.PlanType == "" {
			res.PlanType = strings.TrimSpace(claims.PlanType())
		}
	}
	return res
}
