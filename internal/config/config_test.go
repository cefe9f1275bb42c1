package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/router-for-me/openai-auth/internal/auth/codex"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
client-id: app_custom
issuer: https://auth.example.com
redirect-port: 8080
scopes: [openid, email]
api-key-audience: false
extra-auth-params:
  originator: ""
  prompt: login
proxy-url: socks5://127.0.0.1:1080
callback-timeout: 2m
request-timeout: 10s
debug: true
logs-max-total-size-mb: 50
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.ClientID != "app_custom" || cfg.RedirectPort != 8080 || !cfg.Debug {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.CallbackTimeout != 2*time.Minute || cfg.RequestTimeout != 10*time.Second {
		t.Fatalf("timeouts = %v, %v", cfg.CallbackTimeout, cfg.RequestTimeout)
	}
	if cfg.LogDir != DefaultLogDir {
		t.Fatalf("LogDir = %q, want default", cfg.LogDir)
	}

	codexCfg, err := cfg.CodexConfig()
	if err != nil {
		t.Fatalf("CodexConfig() error = %v", err)
	}
	if codexCfg.ClientID != "app_custom" || codexCfg.TokenURL != "https://auth.example.com/oauth/token" {
		t.Fatalf("codex config = %+v", codexCfg)
	}
	if codexCfg.RedirectURI() != "http://localhost:8080/auth/callback" {
		t.Fatalf("RedirectURI() = %q", codexCfg.RedirectURI())
	}
	if codexCfg.APIKeyAudience || len(codexCfg.Scopes) != 2 {
		t.Fatalf("APIKeyAudience = %v, Scopes = %v", codexCfg.APIKeyAudience, codexCfg.Scopes)
	}
	if _, ok := codexCfg.ExtraAuthParams["originator"]; ok || codexCfg.ExtraAuthParams["prompt"] != "login" {
		t.Fatalf("ExtraAuthParams = %v", codexCfg.ExtraAuthParams)
	}
}

func TestLoadConfigOptional(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	cfg, err := LoadConfigOptional(missing, true)
	if err != nil {
		t.Fatalf("LoadConfigOptional(missing, true) error = %v", err)
	}
	if cfg.CallbackTimeout != DefaultCallbackTimeout {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if _, err = LoadConfigOptional(missing, false); err == nil {
		t.Fatalf("LoadConfigOptional(missing, false) expected error")
	}
	if cfg, err = LoadConfig(writeConfigFile(t, "  \n")); err != nil || cfg.RequestTimeout != DefaultRequestTimeout {
		t.Fatalf("empty file: %+v, %v", cfg, err)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		invalid bool
	}{
		{"bad yaml", "client-id: [unterminated", false},
		{"port out of range", "redirect-port: 70000", true},
		{"bad url", "token-url: not a url", true},
		{"negative timeout", "callback-timeout: -5s", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfigFile(t, tt.content))
			if err == nil {
				t.Fatalf("LoadConfig() expected error")
			}
			if tt.invalid && !errors.Is(err, codex.ErrConfigInvalid) {
				t.Fatalf("LoadConfig() error = %v, want ErrConfigInvalid", err)
			}
		})
	}
}

func TestCodexConfigDefaults(t *testing.T) {
	codexCfg, err := Default().CodexConfig()
	if err != nil {
		t.Fatalf("CodexConfig() error = %v", err)
	}
	if codexCfg.ClientID != codex.DefaultClientID || codexCfg.RedirectPort != codex.DefaultRedirectPort {
		t.Fatalf("codex config = %+v", codexCfg)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("OPENAI_AUTH_CLIENT_ID", " app_env ")
	t.Setenv("OPENAI_AUTH_ISSUER", "https://issuer.example.com")
	t.Setenv("OPENAI_AUTH_PROXY_URL", "")

	cfg := Default()
	cfg.ProxyURL = "http://keep.local:3128"
	cfg.ApplyEnv()
	if cfg.ClientID != "app_env" || cfg.Issuer != "https://issuer.example.com" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.ProxyURL != "http://keep.local:3128" {
		t.Fatalf("empty env var overrode ProxyURL: %q", cfg.ProxyURL)
	}
}

func TestLogOutput(t *testing.T) {
	cfg := Default()
	cfg.LoggingToFile = true
	cfg.LogDir = "./logs/"
	cfg.LogsMaxTotalSizeMB = 20

	opts, err := cfg.LogOutput()
	if err != nil {
		t.Fatalf("LogOutput() error = %v", err)
	}
	if !opts.ToFile || opts.Dir != "logs" || opts.MaxTotalSizeMB != 20 {
		t.Fatalf("LogOutput() = %+v", opts)
	}
}

func TestCodexConfigRejectsReservedExtraParams(t *testing.T) {
	cfg, err := LoadConfig(writeConfigFile(t, "extra-auth-params:\n  state: fixed\n"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if _, err = cfg.CodexConfig(); !errors.Is(err, codex.ErrConfigInvalid) {
		t.Fatalf("CodexConfig() error = %v, want ErrConfigInvalid", err)
	}
}
