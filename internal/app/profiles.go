package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"worldconnector/internal/domain"
)

// ErrNameRequired rejects a profile save with a blank display name. The
// backend itself does not enforce a name; this gate lives here.
var ErrNameRequired = errors.New("display name is required")

// ProfileSync mirrors the two partitions of the profile collection into local
// state: the caller's own document and the collection of everyone else. Views
// open once an identity is resolved and reopen whenever it changes.
type ProfileSync struct {
	store    DocumentStore
	identity *State[string]

	own    *State[*domain.Profile]
	others *State[[]*domain.Profile]

	feeds   feedSet
	ctx     context.Context
	unwatch func()
}

// NewProfileSync creates a profile sync keyed by the given identity slice.
func NewProfileSync(store DocumentStore, identity *State[string]) *ProfileSync {
	return &ProfileSync{
		store:    store,
		identity: identity,
		own:      NewState[*domain.Profile](nil),
		others:   NewState[[]*domain.Profile](nil),
	}
}

// Own is the caller's profile document. Nil means no profile exists yet; that
// is a state the views render, not an error.
func (s *ProfileSync) Own() *State[*domain.Profile] { return s.own }

// Others is the profile collection with the caller's own record excluded.
// Every update replaces the whole collection.
func (s *ProfileSync) Others() *State[[]*domain.Profile] { return s.others }

// Start ties the views to the identity slice. They open on resolution, reopen
// on every identity change, and shut down on Close.
func (s *ProfileSync) Start(ctx context.Context) {
	s.ctx = ctx
	s.unwatch = s.identity.Watch(s.rekey)
}

// rekey replaces the open views with ones keyed by identity. The previous
// views are cancelled and drained first and the mirrored state reset, so no
// stale document survives the change.
func (s *ProfileSync) rekey(identity string) {
	s.feeds.rekey(func(add func(cancel func(), pump func())) {
		s.own.Set(nil)
		s.others.Set(nil)
		if identity == "" {
			return
		}

		ownFeed, err := s.store.SubscribeOwnProfile(s.ctx)
		if err != nil {
			slog.Error("own-profile view failed to open", "user_id", identity, "error", err)
		} else {
			add(ownFeed.Cancel, func() {
				for profile := range ownFeed.Updates() {
					s.own.Set(profile)
				}
			})
		}

		allFeed, err := s.store.SubscribeProfiles(s.ctx)
		if err != nil {
			slog.Error("profiles view failed to open", "user_id", identity, "error", err)
			return
		}
		add(allFeed.Cancel, func() {
			for profiles := range allFeed.Updates() {
				s.others.Set(domain.ExcludeProfile(profiles, identity))
			}
		})
	})
}

// SaveProfile merge-upserts the caller's profile. The name must be non-blank;
// bio and interests are optional, with interests split on commas, trimmed,
// and stripped of empties. With no resolved identity the save is a no-op. The
// returned error is the write's acknowledgement.
func (s *ProfileSync) SaveProfile(ctx context.Context, name, bio, interests string) error {
	if domain.IsBlank(name) {
		return ErrNameRequired
	}
	if s.identity.Get() == "" {
		return nil
	}

	tags := domain.ParseInterests(interests)
	if tags == nil {
		// The field is always part of the form, so a save with no tags
		// clears stored ones rather than leaving them untouched.
		tags = []string{}
	}

	patch := domain.ProfilePatch{
		DisplayName: &name,
		Bio:         &bio,
		Interests:   tags,
	}
	if err := s.store.SaveProfile(ctx, patch); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// Close tears the views down. The identity slice itself stays live.
func (s *ProfileSync) Close() {
	if s.unwatch != nil {
		s.unwatch()
	}
	s.feeds.close()
}
