package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/openai-auth/internal/auth/codex"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testJWT(t *testing.T, payload map[string]any) string {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return "eyJhbGciOiJub25lIn0." + base64.RawURLEncoding.EncodeToString(data) + ".sig"
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

// newLoginConfig points the token endpoint at an httptest server that answers
// the code grant with tokens carrying account details.
func newLoginConfig(t *testing.T) *codex.Config {
	t.Helper()
	idToken := testJWT(t, map[string]any{
		"email": "dev@example.com",
		codex.OpenAIAuthClaim: map[string]any{
			"chatgpt_account_id": "acc-42",
			"chatgpt_plan_type":  "team",
		},
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			if r.PostForm.Get("code") != "browser-code" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = fmt.Fprint(w, `{"error":"invalid_grant"}`)
				return
			}
			_, _ = fmt.Fprintf(w, `{"access_token":"at","refresh_token":"rt","id_token":%q,"expires_in":3600}`, idToken)
		case "refresh_token":
			_, _ = fmt.Fprintf(w, `{"access_token":"at2","id_token":%q,"expires_in":3600}`, idToken)
		default:
			_, _ = fmt.Fprint(w, `{"access_token":"sk-login"}`)
		}
	}))
	t.Cleanup(srv.Close)

	cfg, err := codex.NewConfigBuilder().Issuer(srv.URL).RedirectPort(freePort(t)).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return cfg
}

// redirectTo simulates the browser following the authorization redirect.
func redirectTo(t *testing.T, authURL string, query func(state string) string) {
	t.Helper()
	u, err := url.Parse(authURL)
	if err != nil {
		t.Errorf("parse auth url: %v", err)
		return
	}
	redirect := u.Query().Get("redirect_uri") + "?" + query(u.Query().Get("state"))
	go func() {
		resp, errGet := http.Get(redirect)
		if errGet == nil {
			_ = resp.Body.Close()
		}
	}()
}

func TestCodexAuthenticatorLogin(t *testing.T) {
	cfg := newLoginConfig(t)
	var out bytes.Buffer

	res, err := NewCodexAuthenticator().Login(context.Background(), cfg, &LoginOptions{
		NoBrowser: true,
		APIKey:    true,
		Timeout:   10 * time.Second,
		Output:    &out,
		OnAuthURL: func(authURL string) {
			redirectTo(t, authURL, func(state string) string {
				return "code=browser-code&state=" + url.QueryEscape(state)
			})
		},
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if res.Tokens.AccessToken != "at" || res.Tokens.RefreshToken != "rt" || res.Tokens.APIKey != "sk-login" {
		t.Fatalf("tokens = %+v", res.Tokens)
	}
	if res.AccountID != "acc-42" || res.Email != "dev@example.com" || res.PlanType != "team" {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(out.String(), "Codex authentication successful") {
		t.Fatalf("output = %q", out.String())
	}
	conn, errDial := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", cfg.RedirectPort), time.Second)
	if errDial == nil {
		_ = conn.Close()
		t.Fatalf("callback port still open after Login")
	}
}

func TestCodexAuthenticatorLoginCallbackPortOverride(t *testing.T) {
	cfg := newLoginConfig(t)
	port := freePort(t)
	var seenRedirect string

	_, err := NewCodexAuthenticator().Login(context.Background(), cfg, &LoginOptions{
		NoBrowser:    true,
		CallbackPort: port,
		Timeout:      10 * time.Second,
		Output:       &bytes.Buffer{},
		OnAuthURL: func(authURL string) {
			u, _ := url.Parse(authURL)
			seenRedirect = u.Query().Get("redirect_uri")
			redirectTo(t, authURL, func(state string) string {
				return "code=browser-code&state=" + url.QueryEscape(state)
			})
		},
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if want := fmt.Sprintf("http://localhost:%d/auth/callback", port); seenRedirect != want {
		t.Fatalf("redirect_uri = %q, want %q", seenRedirect, want)
	}
}

func isDenied(err error) bool {
	_, ok := errors.AsType[*codex.AuthorizationDeniedError](err)
	return ok
}

func TestCodexAuthenticatorLoginFailures(t *testing.T) {
	tests := []struct {
		name    string
		query   func(state string) string
		wantErr func(error) bool
	}{
		{
			name:    "denied",
			query:   func(state string) string { return "error=access_denied&state=" + url.QueryEscape(state) },
			wantErr: isDenied,
		},
		{
			name:    "forged state",
			query:   func(string) string { return "code=browser-code&state=forged" },
			wantErr: func(err error) bool { return errors.Is(err, codex.ErrStateMismatch) },
		},
		{
			name:    "rejected code",
			query:   func(state string) string { return "code=stale&state=" + url.QueryEscape(state) },
			wantErr: codex.IsExchangeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newLoginConfig(t)
			_, err := NewCodexAuthenticator().Login(context.Background(), cfg, &LoginOptions{
				NoBrowser: true,
				Timeout:   10 * time.Second,
				Output:    &bytes.Buffer{},
				OnAuthURL: func(authURL string) { redirectTo(t, authURL, tt.query) },
			})
			if !tt.wantErr(err) {
				t.Fatalf("Login() error = %v", err)
			}
		})
	}
}

func TestCodexAuthenticatorLoginTimeout(t *testing.T) {
	cfg := newLoginConfig(t)
	_, err := NewCodexAuthenticator().Login(context.Background(), cfg, &LoginOptions{
		NoBrowser: true,
		Timeout:   100 * time.Millisecond,
		Output:    &bytes.Buffer{},
	})
	if !errors.Is(err, codex.ErrTimeout) {
		t.Fatalf("Login() error = %v, want ErrTimeout", err)
	}
}

func TestCodexAuthenticatorLoginManualPaste(t *testing.T) {
	cfg := newLoginConfig(t)
	states := make(chan string, 1)
	auth := &CodexAuthenticator{ManualPromptDelay: 10 * time.Millisecond}

	res, err := auth.Login(context.Background(), cfg, &LoginOptions{
		NoBrowser: true,
		Timeout:   10 * time.Second,
		Output:    &bytes.Buffer{},
		OnAuthURL: func(authURL string) {
			u, _ := url.Parse(authURL)
			states <- u.Query().Get("state")
		},
		Prompt: func(string) (string, error) {
			return "http://localhost:1455/auth/callback?code=browser-code&state=" + url.QueryEscape(<-states), nil
		},
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if res.Tokens.AccessToken != "at" {
		t.Fatalf("tokens = %+v", res.Tokens)
	}
}

func TestCodexAuthenticatorLoginRequiresConfig(t *testing.T) {
	if _, err := NewCodexAuthenticator().Login(context.Background(), nil, nil); !errors.Is(err, ErrConfigRequired) {
		t.Fatalf("Login(nil cfg) error = %v", err)
	}
}

func TestCodexAuthenticatorRefresh(t *testing.T) {
	cfg := newLoginConfig(t)
	res, err := NewCodexAuthenticator().Refresh(context.Background(), cfg, "rt")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if res.Tokens.AccessToken != "at2" || res.Tokens.RefreshToken != "rt" || res.AccountID != "acc-42" {
		t.Fatalf("result = %+v, tokens = %+v", res, res.Tokens)
	}
}

func TestManager(t *testing.T) {
	cfg := newLoginConfig(t)
	mgr := NewManager(NewCodexAuthenticator())

	if _, err := mgr.Refresh(context.Background(), "claude", cfg, "rt"); err == nil {
		t.Fatalf("unregistered provider should fail")
	}
	res, err := mgr.Refresh(context.Background(), "codex", cfg, "rt")
	if err != nil || res.Tokens.AccessToken != "at2" {
		t.Fatalf("Refresh() = %+v, %v", res, err)
	}
}

func TestAwaitPromptStopsWithContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	blocked := func(string) (string, error) {
		<-release
		return "late", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := awaitPrompt(ctx, blocked, "paste: "); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("awaitPrompt() error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("awaitPrompt() did not return when ctx ended")
	}

	got, err := awaitPrompt(context.Background(), func(label string) (string, error) { return label + "ok", nil }, "x-")
	if err != nil || got != "x-ok" {
		t.Fatalf("awaitPrompt() = %q, %v", got, err)
	}
}

func TestCodexAuthenticatorLoginWithBlockedPrompt(t *testing.T) {
	cfg := newLoginConfig(t)
	release := make(chan struct{})
	defer close(release)
	auth := &CodexAuthenticator{ManualPromptDelay: time.Millisecond}

	res, err := auth.Login(context.Background(), cfg, &LoginOptions{
		NoBrowser: true,
		Timeout:   10 * time.Second,
		Output:    &bytes.Buffer{},
		Prompt: func(string) (string, error) {
			<-release
			return "", nil
		},
		OnAuthURL: func(authURL string) {
			time.Sleep(20 * time.Millisecond)
			redirectTo(t, authURL, func(state string) string {
				return "code=browser-code&state=" + url.QueryEscape(state)
			})
		},
	})
	if err != nil || res.Tokens.AccessToken != "at" {
		t.Fatalf("Login() = %+v, %v", res, err)
	}
}
