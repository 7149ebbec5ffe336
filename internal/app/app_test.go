package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"worldconnector/internal/domain"
)

type fakeAuth struct {
	mu sync.Mutex

	anonIdentity string
	anonErr      error
	anonCalls    int

	exchangeIdentity string
	exchangeErr      error
	exchangeCalls    int
	gotCredential    string
}

func (f *fakeAuth) SignInAnonymous(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.anonCalls++
	return f.anonIdentity, f.anonErr
}

func (f *fakeAuth) ExchangeToken(_ context.Context, credential string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchangeCalls++
	f.gotCredential = credential
	return f.exchangeIdentity, f.exchangeErr
}

func (f *fakeAuth) calls() (anon, exchange int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.anonCalls, f.exchangeCalls
}

type fakeFeed[T any] struct {
	ch     chan T
	mu     sync.Mutex
	closed bool
}

func newFakeFeed[T any]() *fakeFeed[T] {
	return &fakeFeed[T]{ch: make(chan T, 8)}
}

func (f *fakeFeed[T]) Updates() <-chan T { return f.ch }

func (f *fakeFeed[T]) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}

func (f *fakeFeed[T]) cancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeFeed[T]) push(v T) { f.ch <- v }

type fakeStore struct {
	mu sync.Mutex

	saved   []domain.ProfilePatch
	saveErr error

	sent    []string
	sendErr error

	ownErr, allErr, msgErr error

	ownFeeds []*fakeFeed[*domain.Profile]
	allFeeds []*fakeFeed[[]*domain.Profile]
	msgFeeds []*fakeFeed[[]*domain.ChatMessage]
}

func (f *fakeStore) SaveProfile(_ context.Context, patch domain.ProfilePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, patch)
	return nil
}

func (f *fakeStore) SendMessage(_ context.Context, text string) (*domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, text)
	return &domain.ChatMessage{MessageID: "m1", Body: text, CreatedAt: time.Now()}, nil
}

func (f *fakeStore) SubscribeOwnProfile(_ context.Context) (Feed[*domain.Profile], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ownErr != nil {
		return nil, f.ownErr
	}
	feed := newFakeFeed[*domain.Profile]()
	f.ownFeeds = append(f.ownFeeds, feed)
	return feed, nil
}

func (f *fakeStore) SubscribeProfiles(_ context.Context) (Feed[[]*domain.Profile], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allErr != nil {
		return nil, f.allErr
	}
	feed := newFakeFeed[[]*domain.Profile]()
	f.allFeeds = append(f.allFeeds, feed)
	return feed, nil
}

func (f *fakeStore) SubscribeMessages(_ context.Context) (Feed[[]*domain.ChatMessage], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.msgErr != nil {
		return nil, f.msgErr
	}
	feed := newFakeFeed[[]*domain.ChatMessage]()
	f.msgFeeds = append(f.msgFeeds, feed)
	return feed, nil
}

func (f *fakeStore) feedCounts() (own, all, msg int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ownFeeds), len(f.allFeeds), len(f.msgFeeds)
}

func (f *fakeStore) lastOwnFeed() *fakeFeed[*domain.Profile] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ownFeeds[len(f.ownFeeds)-1]
}

func (f *fakeStore) lastAllFeed() *fakeFeed[[]*domain.Profile] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allFeeds[len(f.allFeeds)-1]
}

func (f *fakeStore) lastMsgFeed() *fakeFeed[[]*domain.ChatMessage] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msgFeeds[len(f.msgFeeds)-1]
}

func (f *fakeStore) savedPatches() []domain.ProfilePatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ProfilePatch(nil), f.saved...)
}

func (f *fakeStore) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// awaitState waits for the slice to publish a value accepted by ok.
func awaitState[T any](t *testing.T, s *State[T], ok func(T) bool) T {
	t.Helper()

	done := make(chan T, 1)
	cancel := s.Watch(func(v T) {
		if ok(v) {
			select {
			case done <- v:
			default:
			}
		}
	})
	defer cancel()

	select {
	case v := <-done:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for state")
	}
	var zero T
	return zero
}

func TestAppResolvesIdentityAndOpensViews(t *testing.T) {
	authSvc := &fakeAuth{anonIdentity: "anon_1"}
	backend := &fakeStore{}

	core := New(authSvc, backend, "")
	core.Start(context.Background())
	defer core.Close()

	awaitState(t, core.Session.Identity(), func(id string) bool { return id == "anon_1" })

	// Rekey runs on the identity writer's goroutine, so the views may open a
	// moment after the identity is observable here.
	deadline := time.Now().Add(time.Second)
	for {
		own, all, msg := backend.feedCounts()
		if own == 1 && all == 1 && msg == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("views not open: own=%d all=%d msg=%d", own, all, msg)
		}
		time.Sleep(5 * time.Millisecond)
	}

	backend.lastMsgFeed().push([]*domain.ChatMessage{{MessageID: "m1", Body: "hello"}})
	timeline := awaitState(t, core.Chat.Timeline(), func(msgs []*domain.ChatMessage) bool {
		return len(msgs) == 1
	})
	if timeline[0].Body != "hello" {
		t.Errorf("timeline body = %q, want hello", timeline[0].Body)
	}
}

func TestAppUsesCredentialWhenConfigured(t *testing.T) {
	authSvc := &fakeAuth{exchangeIdentity: "member-42"}
	backend := &fakeStore{}

	core := New(authSvc, backend, "one-time-credential")
	core.Start(context.Background())
	defer core.Close()

	awaitState(t, core.Session.Identity(), func(id string) bool { return id == "member-42" })

	anon, exchange := authSvc.calls()
	if anon != 0 || exchange != 1 {
		t.Errorf("calls: anon=%d exchange=%d, want 0/1", anon, exchange)
	}
	if authSvc.gotCredential != "one-time-credential" {
		t.Errorf("exchanged credential = %q", authSvc.gotCredential)
	}
}

func TestAppSignedOutFallbackRekeysViews(t *testing.T) {
	authSvc := &fakeAuth{anonIdentity: "anon_1"}
	backend := &fakeStore{}

	core := New(authSvc, backend, "")
	core.Start(context.Background())
	defer core.Close()

	awaitState(t, core.Session.Identity(), func(id string) bool { return id == "anon_1" })

	deadline := time.Now().Add(time.Second)
	for {
		if own, all, msg := backend.feedCounts(); own == 1 && all == 1 && msg == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("initial views never opened")
		}
		time.Sleep(5 * time.Millisecond)
	}
	oldOwn := backend.lastOwnFeed()
	oldMsg := backend.lastMsgFeed()

	core.Session.HandleSignedOut()

	fallback := core.Session.Identity().Get()
	if fallback == "" || fallback == "anon_1" {
		t.Errorf("expected a fresh local identity, got %q", fallback)
	}
	if !oldOwn.cancelled() || !oldMsg.cancelled() {
		t.Error("previous views must be cancelled on rekey")
	}
	if own, all, msg := backend.feedCounts(); own != 2 || all != 2 || msg != 2 {
		t.Errorf("views not reopened: own=%d all=%d msg=%d", own, all, msg)
	}
}

func TestAppCloseCancelsAllViews(t *testing.T) {
	authSvc := &fakeAuth{anonIdentity: "anon_1"}
	backend := &fakeStore{}

	core := New(authSvc, backend, "")
	core.Start(context.Background())
	awaitState(t, core.Session.Identity(), func(id string) bool { return id == "anon_1" })

	deadline := time.Now().Add(time.Second)
	for {
		if own, all, msg := backend.feedCounts(); own == 1 && all == 1 && msg == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("views never opened")
		}
		time.Sleep(5 * time.Millisecond)
	}

	core.Close()

	if !backend.lastOwnFeed().cancelled() {
		t.Error("own-profile view still live after close")
	}
	if !backend.lastAllFeed().cancelled() {
		t.Error("profiles view still live after close")
	}
	if !backend.lastMsgFeed().cancelled() {
		t.Error("timeline view still live after close")
	}
}
