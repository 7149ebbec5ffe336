package client

import (
	"context"

	"worldconnector/internal/app"
	"worldconnector/internal/domain"
)

// Backend adapts a Client to the contracts the app core syncs against. The
// Client's own methods already match app.AuthService; the wrapper narrows the
// concrete stream types to the core's feed interface.
type Backend struct {
	*Client
}

func (b Backend) SubscribeOwnProfile(ctx context.Context) (app.Feed[*domain.Profile], error) {
	stream, err := b.Client.SubscribeOwnProfile(ctx)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (b Backend) SubscribeProfiles(ctx context.Context) (app.Feed[[]*domain.Profile], error) {
	stream, err := b.Client.SubscribeProfiles(ctx)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (b Backend) SubscribeMessages(ctx context.Context) (app.Feed[[]*domain.ChatMessage], error) {
	stream, err := b.Client.SubscribeMessages(ctx)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
