package app

import "context"

// App wires the core together: one session manager, the two sync components
// keyed by its identity, and the screen router.
type App struct {
	Session  *SessionManager
	Profiles *ProfileSync
	Chat     *ChatSync
	Router   *ViewRouter
}

// New assembles the core against the given backend contracts. A non-empty
// credential switches sign-in from anonymous to credential exchange.
func New(auth AuthService, store DocumentStore, credential string) *App {
	session := NewSessionManager(auth, credential)
	profiles := NewProfileSync(store, session.Identity())
	chat := NewChatSync(store, session.Identity(), profiles.Own())

	return &App{
		Session:  session,
		Profiles: profiles,
		Chat:     chat,
		Router:   NewViewRouter(),
	}
}

// Start opens the syncs and then begins identity resolution, in that order,
// so resolution lands on views that are already listening.
func (a *App) Start(ctx context.Context) {
	a.Profiles.Start(ctx)
	a.Chat.Start(ctx)
	a.Session.Start(ctx)
}

// Close tears down every open view.
func (a *App) Close() {
	a.Chat.Close()
	a.Profiles.Close()
}
