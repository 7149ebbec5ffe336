package app

import "worldconnector/internal/domain"

// ViewRouter holds which of the three screens is active. Transitions are
// direct, with no guards and no history; the router lives for the whole
// session.
type ViewRouter struct {
	active *State[domain.Screen]
}

// NewViewRouter creates a router showing the profile screen.
func NewViewRouter() *ViewRouter {
	return &ViewRouter{active: NewState(domain.ScreenProfile)}
}

// Active is the slice carrying the selected screen.
func (r *ViewRouter) Active() *State[domain.Screen] { return r.active }

// Activate switches to screen. Unknown screens are ignored.
func (r *ViewRouter) Activate(screen domain.Screen) {
	if !screen.Valid() {
		return
	}
	r.active.Set(screen)
}
