package auth

import (
	"context"
	"fmt"

	"github.com/router-for-me/openai-auth/internal/auth/codex"
)

// Manager dispatches login and refresh calls to registered authenticators.
// It keeps no tokens; callers own persistence.
type Manager struct {
	authenticators map[string]Authenticator
}

// NewManager constructs a manager with the provided authenticators.
func NewManager(authenticators ...Authenticator) *Manager {
	mgr := &Manager{authenticators: make(map[string]Authenticator)}
	for i := range authenticators {
		mgr.Register(authenticators[i])
	}
	return mgr
}

// Register adds or replaces an authenticator keyed by its provider identifier.
func (m *Manager) Register(a Authenticator) {
	if a == nil {
		return
	}
	if m.authenticators == nil {
		m.authenticators = make(map[string]Authenticator)
	}
	m.authenticators[a.Provider()] = a
}

func (m *Manager) lookup(provider string) (Authenticator, error) {
	a, ok := m.authenticators[provider]
	if !ok {
		return nil, fmt.Errorf("openai auth: authenticator %s not registered", provider)
	}
	return a, nil
}

// Login executes the provider login flow.
func (m *Manager) Login(ctx context.Context, provider string, cfg *codex.Config, opts *LoginOptions) (*LoginResult, error) {
	a, err := m.lookup(provider)
	if err != nil {
		return nil, err
	}
	return a.Login(ctx, cfg, opts)
}

// Refresh executes the provider refresh flow.
func (m *Manager) Refresh(ctx context.Context, provider string, cfg *codex.Config, refreshToken string) (*LoginResult, error) {
	a, err := m.lookup(provider)
	if err != nil {
		return nil, err
	}
	return a.Refresh(ctx, cfg, refreshToken)
}
