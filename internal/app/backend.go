package app

import (
	"context"

	"worldconnector/internal/domain"
)

// AuthService is the identity provider the session manager resolves against.
type AuthService interface {
	// SignInAnonymous establishes a fresh anonymous session and returns its
	// identity.
	SignInAnonymous(ctx context.Context) (string, error)

	// ExchangeToken trades a one-time bootstrap credential for a session and
	// returns the identity the credential names.
	ExchangeToken(ctx context.Context, credential string) (string, error)
}

// Feed is one live view over the document store. Full-state values arrive on
// Updates until Cancel tears the subscription down and closes the channel;
// a slow reader may skip intermediate states but never sees them reordered.
type Feed[T any] interface {
	Updates() <-chan T
	Cancel()
}

// DocumentStore is the backend handle the sync components read and write
// through. Subscriptions and writes require an established session; the
// backend rejects both once it considers the session signed out.
type DocumentStore interface {
	// SaveProfile merge-upserts the caller's profile document. Nil patch
	// fields are left untouched by the backend.
	SaveProfile(ctx context.Context, patch domain.ProfilePatch) error

	// SendMessage appends text to the global chat and returns the stored
	// record with its backend-assigned id and timestamp.
	SendMessage(ctx context.Context, text string) (*domain.ChatMessage, error)

	// SubscribeOwnProfile streams the caller's profile document; nil values
	// mean the document does not exist yet.
	SubscribeOwnProfile(ctx context.Context) (Feed[*domain.Profile], error)

	// SubscribeProfiles streams the whole profile collection, the caller's
	// own record included.
	SubscribeProfiles(ctx context.Context) (Feed[[]*domain.Profile], error)

	// SubscribeMessages streams the chat timeline ordered by creation time.
	SubscribeMessages(ctx context.Context) (Feed[[]*domain.ChatMessage], error)
}
