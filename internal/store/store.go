// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"worldconnector/internal/domain"
)

// Repository defines the interface for persisting profile and chat data.
// Both collections are namespaced by an application identifier so that
// several deployments can share one database file.
type Repository interface {
	// GetProfile retrieves the profile keyed by profileID.
	// An absent profile returns (nil, nil); "no profile yet" is not an error.
	GetProfile(ctx context.Context, namespace, profileID string) (*domain.Profile, error)

	// UpsertProfile applies a merge-style upsert: nil patch fields leave the
	// stored values untouched, non-nil fields overwrite. The record is created
	// on first write. The store assigns the write timestamp.
	UpsertProfile(ctx context.Context, namespace, profileID string, patch domain.ProfilePatch) error

	// ListProfiles returns every profile in the namespace.
	ListProfiles(ctx context.Context, namespace string) ([]*domain.Profile, error)

	// AppendMessage appends an immutable chat message. The store assigns the
	// message id and the creation timestamp and returns the stored record.
	AppendMessage(ctx context.Context, namespace, authorID, authorName, body string) (*domain.ChatMessage, error)

	// ListMessages returns the full timeline ordered by creation timestamp
	// ascending, ties broken by insertion order.
	ListMessages(ctx context.Context, namespace string) ([]*domain.ChatMessage, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
