package codex

import (
	"net/url"
	"strings"
	"testing"
)

func TestBuildFlowAuthorizationURL(t *testing.T) {
	codes, err := PKCECodesFromBytes(make([]byte, 32))
	if err != nil {
		t.Fatalf("PKCECodesFromBytes() error = %v", err)
	}
	flow, err := BuildFlow(DefaultConfig(), codes, "state-123")
	if err != nil {
		t.Fatalf("BuildFlow() error = %v", err)
	}

	u, err := url.Parse(flow.AuthorizationURL)
	if err != nil {
		t.Fatalf("parse authorization url: %v", err)
	}
	if u.Scheme+"://"+u.Host+u.Path != "https://auth.openai.com/oauth/authorize" {
		t.Fatalf("authorization endpoint = %s", u.String())
	}

	q := u.Query()
	want := map[string]string{
		"response_type":              "code",
		"client_id":                  DefaultClientID,
		"redirect_uri":               "http://localhost:1455/auth/callback",
		"scope":                      "openid profile email offline_access",
		"state":                      "state-123",
		"code_challenge":             codes.CodeChallenge,
		"code_challenge_method":      "S256",
		"id_token_add_organizations": "true",
		"codex_cli_simplified_flow":  "true",
		"originator":                 "codex_cli_rs",
	}
	for key, value := range want {
		if got := q.Get(key); got != value {
			t.Errorf("query %s = %q, want %q", key, got, value)
		}
	}
	if strings.Contains(flow.AuthorizationURL, codes.CodeVerifier) {
		t.Errorf("authorization URL leaks the code verifier")
	}
	if flow.State != "state-123" || flow.CodeVerifier != codes.CodeVerifier || flow.CodeChallenge != codes.CodeChallenge {
		t.Errorf("flow fields = %+v", flow)
	}
}

func TestBuildFlowWithoutAPIKeyAudience(t *testing.T) {
	cfg, err := NewConfigBuilder().APIKeyAudience(false).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	codes, _ := PKCECodesFromBytes(make([]byte, 32))
	flow, err := BuildFlow(cfg, codes, "s")
	if err != nil {
		t.Fatalf("BuildFlow() error = %v", err)
	}
	u, _ := url.Parse(flow.AuthorizationURL)
	if u.Query().Has("id_token_add_organizations") {
		t.Fatalf("id_token_add_organizations should be absent")
	}
}

func TestBuildFlowRejectsMissingInputs(t *testing.T) {
	codes, _ := PKCECodesFromBytes(make([]byte, 32))
	if _, err := BuildFlow(DefaultConfig(), nil, "s"); err == nil {
		t.Errorf("expected error for nil PKCE codes")
	}
	if _, err := BuildFlow(DefaultConfig(), codes, ""); err == nil {
		t.Errorf("expected error for empty state")
	}
	if _, err := BuildFlow(&Config{}, codes, "s"); err == nil {
		t.Errorf("expected error for invalid config")
	}
}

func TestStartFlowIsFresh(t *testing.T) {
	auth := NewCodexAuth(nil)
	a, err := auth.StartFlow()
	if err != nil {
		t.Fatalf("StartFlow() error = %v", err)
	}
	b, err := auth.StartFlow()
	if err != nil {
		t.Fatalf("StartFlow() error = %v", err)
	}
	if a.State == b.State || a.CodeVerifier == b.CodeVerifier {
		t.Fatalf("flows share state or verifier")
	}
	if !strings.Contains(a.AuthorizationURL, "state="+url.QueryEscape(a.State)) {
		t.Fatalf("authorization URL does not carry the flow state")
	}
}

func TestFlowStringRedactsVerifier(t *testing.T) {
	flow := &Flow{AuthorizationURL: "https://x", CodeVerifier: "super-secret-verifier", State: "s"}
	if strings.Contains(flow.String(), "super-secret-verifier") {
		t.Fatalf("String() leaks the verifier: %s", flow.String())
	}
}
