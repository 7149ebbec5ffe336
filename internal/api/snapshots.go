package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"worldconnector/internal/live"
)

var errUnknownTopic = errors.New("unknown topic")

// snapshotFor builds the current full state of a topic from the store.
func (h *Handler) snapshotFor(ctx context.Context, topic string) (live.Snapshot, error) {
	parts := strings.Split(topic, "/")

	switch {
	case len(parts) == 3 && parts[0] == "profile" && parts[1] == h.namespace:
		profile, err := h.repo.GetProfile(ctx, h.namespace, parts[2])
		if err != nil {
			return live.Snapshot{}, fmt.Errorf("load profile snapshot: %w", err)
		}
		return live.Snapshot{Topic: topic, Profile: profile}, nil

	case len(parts) == 2 && parts[0] == "profiles" && parts[1] == h.namespace:
		profiles, err := h.repo.ListProfiles(ctx, h.namespace)
		if err != nil {
			return live.Snapshot{}, fmt.Errorf("load profiles snapshot: %w", err)
		}
		return live.Snapshot{Topic: topic, Profiles: profiles}, nil

	case len(parts) == 2 && parts[0] == "messages" && parts[1] == h.namespace:
		messages, err := h.repo.ListMessages(ctx, h.namespace)
		if err != nil {
			return live.Snapshot{}, fmt.Errorf("load messages snapshot: %w", err)
		}
		return live.Snapshot{Topic: topic, Messages: messages}, nil

	default:
		return live.Snapshot{}, errUnknownTopic
	}
}

// publishTopic rebuilds one topic from the store and fans it out. Delivery is
// best effort; a failed rebuild only costs subscribers one push.
func (h *Handler) publishTopic(ctx context.Context, topic string) {
	snap, err := h.snapshotFor(ctx, topic)
	if err != nil {
		slog.Warn("failed to build snapshot for publish", "topic", topic, "error", err)
		return
	}
	h.hub.Publish(snap)
}

// publishProfileChange pushes fresh state to the changed profile's own topic
// and to the collection topic.
func (h *Handler) publishProfileChange(ctx context.Context, profileID string) {
	h.publishTopic(ctx, live.ProfileTopic(h.namespace, profileID))
	h.publishTopic(ctx, live.ProfilesTopic(h.namespace))
}

// publishMessagesChange pushes the fresh timeline to the chat topic.
func (h *Handler) publishMessagesChange(ctx context.Context) {
	h.publishTopic(ctx, live.MessagesTopic(h.namespace))
}
