package codex

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestRefreshingTokenSource(t *testing.T) {
	var calls atomic.Int32
	auth, _ := newTestAuth(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = r.ParseForm()
		if r.PostForm.Get("refresh_token") != "rt1" {
			t.Errorf("refresh_token = %q", r.PostForm.Get("refresh_token"))
		}
		writeJSON(w, http.StatusOK, `{"access_token":"at2","refresh_token":"rt2","expires_in":3600}`)
	})

	fresh := &TokenSet{AccessToken: "at1", RefreshToken: "rt1", IDToken: "it1", IssuedAt: fixedNow, ExpiresIn: 3600}
	src := auth.TokenSource(context.Background(), fresh)
	tok, err := src.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok.AccessToken != "at1" || calls.Load() != 0 {
		t.Fatalf("valid token refreshed: %q, calls %d", tok.AccessToken, calls.Load())
	}

	stale := &TokenSet{AccessToken: "at1", RefreshToken: "rt1", IDToken: "it1", IssuedAt: fixedNow.Add(-2 * time.Hour), ExpiresIn: 3600}
	src = auth.TokenSource(context.Background(), stale)
	tok, err = src.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok.AccessToken != "at2" || calls.Load() != 1 {
		t.Fatalf("expired token not refreshed: %q, calls %d", tok.AccessToken, calls.Load())
	}
	current := src.Current()
	if current.RefreshToken != "rt2" || current.IDToken != "it1" {
		t.Fatalf("Current() = %+v", current)
	}
}

func TestRefreshingTokenSourceWithoutRefreshToken(t *testing.T) {
	auth := NewCodexAuth(nil)
	src := auth.TokenSource(context.Background(), nil)
	if _, err := src.Token(); err == nil {
		t.Fatalf("Token() expected error without refresh token")
	}
}
