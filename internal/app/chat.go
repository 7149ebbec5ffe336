package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"worldconnector/internal/domain"
)

// ChatSync mirrors the global chat timeline and owns the draft being typed
// into it. The timeline arrives from the backend ordered by creation time and
// is replaced wholesale on every push.
type ChatSync struct {
	store      DocumentStore
	identity   *State[string]
	ownProfile *State[*domain.Profile]

	timeline *State[[]*domain.ChatMessage]

	draftMu sync.Mutex
	draft   string

	feeds   feedSet
	ctx     context.Context
	unwatch func()
}

// NewChatSync creates a chat sync. ownProfile gates sending: authors without
// a published profile cannot post.
func NewChatSync(store DocumentStore, identity *State[string], ownProfile *State[*domain.Profile]) *ChatSync {
	return &ChatSync{
		store:      store,
		identity:   identity,
		ownProfile: ownProfile,
		timeline:   NewState[[]*domain.ChatMessage](nil),
	}
}

// Timeline is the chat message collection, oldest first.
func (c *ChatSync) Timeline() *State[[]*domain.ChatMessage] { return c.timeline }

// Start ties the timeline view to the identity slice.
func (c *ChatSync) Start(ctx context.Context) {
	c.ctx = ctx
	c.unwatch = c.identity.Watch(c.rekey)
}

func (c *ChatSync) rekey(identity string) {
	c.feeds.rekey(func(add func(cancel func(), pump func())) {
		c.timeline.Set(nil)
		if identity == "" {
			return
		}

		feed, err := c.store.SubscribeMessages(c.ctx)
		if err != nil {
			slog.Error("timeline view failed to open", "user_id", identity, "error", err)
			return
		}
		add(feed.Cancel, func() {
			for messages := range feed.Updates() {
				c.timeline.Set(messages)
			}
		})
	})
}

// SetDraft stores the message text being composed.
func (c *ChatSync) SetDraft(text string) {
	c.draftMu.Lock()
	defer c.draftMu.Unlock()
	c.draft = text
}

// Draft returns the message text being composed. It survives every send that
// does not reach the backend and is cleared only by an acknowledged one.
func (c *ChatSync) Draft() string {
	c.draftMu.Lock()
	defer c.draftMu.Unlock()
	return c.draft
}

// SendMessage appends text to the global chat. Blank text, an unresolved
// identity, and a missing own profile are silent no-ops rather than errors:
// the gate exists to drop unusable input, not to report it. On success the
// draft is cleared; a failed write keeps it and returns the error.
func (c *ChatSync) SendMessage(ctx context.Context, text string) error {
	if domain.IsBlank(text) {
		return nil
	}
	if c.identity.Get() == "" {
		return nil
	}
	if c.ownProfile.Get() == nil {
		return nil
	}

	if _, err := c.store.SendMessage(ctx, text); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	c.SetDraft("")
	return nil
}

// Close tears the timeline view down.
func (c *ChatSync) Close() {
	if c.unwatch != nil {
		c.unwatch()
	}
	c.feeds.close()
}
