package app

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// SessionManager resolves the identity the rest of the core keys its views
// by. Resolution is asynchronous: the identity is unknown at construction and
// arrives through the Identity slice once the backend answers. A failed
// resolution is logged and left unresolved, with no retry; dependent views
// simply never open.
type SessionManager struct {
	auth       AuthService
	credential string
	identity   *State[string]
}

// NewSessionManager creates a session manager. A non-empty credential is
// exchanged at start instead of signing in anonymously.
func NewSessionManager(auth AuthService, credential string) *SessionManager {
	return &SessionManager{
		auth:       auth,
		credential: credential,
		identity:   NewState(""),
	}
}

// Identity is the slice carrying the resolved identity. Empty until
// resolution succeeds; immutable for the session except for the signed-out
// fallback.
func (m *SessionManager) Identity() *State[string] {
	return m.identity
}

// Start kicks off identity resolution in the background.
func (m *SessionManager) Start(ctx context.Context) {
	go func() {
		identity, err := m.resolve(ctx)
		if err != nil {
			slog.Error("identity resolution failed", "error", err)
			return
		}
		slog.Info("identity resolved", "user_id", identity)
		m.identity.Set(identity)
	}()
}

func (m *SessionManager) resolve(ctx context.Context) (string, error) {
	if m.credential != "" {
		return m.auth.ExchangeToken(ctx, m.credential)
	}
	return m.auth.SignInAnonymous(ctx)
}

// HandleSignedOut is the backend's signed-out signal. A fresh identifier is
// minted locally and published so the dependent views rekey. The backend does
// not recognize this identifier: keyed reads and writes made under it keep
// failing until a real session is established again.
func (m *SessionManager) HandleSignedOut() {
	fallback := uuid.NewString()
	slog.Warn("backend reported signed out, continuing with a local identifier",
		"user_id", fallback)
	m.identity.Set(fallback)
}
