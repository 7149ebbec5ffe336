// Package live fans full-state snapshots out to topic subscribers.
package live

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"worldconnector/internal/domain"
)

// ProfileTopic names the feed for a single profile document.
func ProfileTopic(namespace, profileID string) string {
	return "profile/" + namespace + "/" + profileID
}

// ProfilesTopic names the feed for the whole profile collection.
func ProfilesTopic(namespace string) string {
	return "profiles/" + namespace
}

// MessagesTopic names the feed for the chat timeline.
func MessagesTopic(namespace string) string {
	return "messages/" + namespace
}

// Snapshot is the full state of one topic at a point in time. Exactly one of
// the payload fields is populated, matching the topic kind; Profile stays nil
// for a topic whose document does not exist yet.
type Snapshot struct {
	Topic    string
	Profile  *domain.Profile
	Profiles []*domain.Profile
	Messages []*domain.ChatMessage
}

// Subscription is one live feed of snapshots for a topic.
type Subscription struct {
	ID    string
	Topic string

	hub       *Hub
	ch        chan Snapshot
	cancelled atomic.Bool
}

// Updates returns the channel snapshots arrive on. The channel buffers at most
// the latest undelivered snapshot; a slow reader skips intermediate states.
// The channel is closed when the subscription is cancelled.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.ch
}

// Cancel stops delivery and closes the updates channel. Safe to call more
// than once.
func (s *Subscription) Cancel() {
	s.hub.cancel(s)
}

// Hub manages active snapshot subscriptions, keyed by topic.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[string]*Subscription
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[string]*Subscription),
	}
}

// Subscribe registers a new subscription for topic.
func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		ID:    uuid.NewString(),
		Topic: topic,
		hub:   h,
		ch:    make(chan Snapshot, 1),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.subs[topic]; !exists {
		h.subs[topic] = make(map[string]*Subscription)
	}
	h.subs[topic][sub.ID] = sub

	slog.Debug("subscription opened", "topic", topic, "subscription_id", sub.ID)
	return sub
}

// Publish delivers a snapshot to every live subscriber of its topic.
func (h *Hub) Publish(snap Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs[snap.Topic] {
		if sub.cancelled.Load() {
			continue
		}
		deliver(sub.ch, snap)
	}
}

// deliver pushes latest-wins: a full buffer means the subscriber has not read
// the previous snapshot, which the new one supersedes.
func deliver(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}

	select {
	case ch <- snap:
	default:
	}
}

// cancel marks the subscription dead and closes its channel. The registry
// entry stays until the next sweep. Cancel takes the write lock so it cannot
// interleave with a Publish holding the read lock.
func (h *Hub) cancel(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub.cancelled.Swap(true) {
		return
	}
	close(sub.ch)

	slog.Debug("subscription cancelled", "topic", sub.Topic, "subscription_id", sub.ID)
}

// Sweep removes cancelled subscriptions from the registry and reports how
// many it removed.
func (h *Hub) Sweep() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	reaped := 0
	for topic, subs := range h.subs {
		for id, sub := range subs {
			if sub.cancelled.Load() {
				delete(subs, id)
				reaped++
			}
		}
		if len(subs) == 0 {
			delete(h.subs, topic)
		}
	}
	return reaped
}

// Counts returns the number of live subscriptions per topic.
func (h *Hub) Counts() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	counts := make(map[string]int, len(h.subs))
	for topic, subs := range h.subs {
		live := 0
		for _, sub := range subs {
			if !sub.cancelled.Load() {
				live++
			}
		}
		if live > 0 {
			counts[topic] = live
		}
	}
	return counts
}
