package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"worldconnector/internal/domain"
)

const testNamespace = "world-connector-test"

func newTestStore(t *testing.T) Repository {
	t.Helper()

	repo, err := NewSQLite(filepath.Join(t.TempDir(), "connector.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})

	return repo
}

func strPtr(s string) *string {
	return &s
}

func TestGetProfileAbsent(t *testing.T) {
	repo := newTestStore(t)

	profile, err := repo.GetProfile(context.Background(), testNamespace, "anon_missing")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile != nil {
		t.Fatalf("expected nil profile for absent row, got %+v", profile)
	}
}

func TestUpsertProfileCreatesOnFirstWrite(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	patch := domain.ProfilePatch{DisplayName: strPtr("Ada")}
	if err := repo.UpsertProfile(ctx, testNamespace, "anon_1", patch); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}

	profile, err := repo.GetProfile(ctx, testNamespace, "anon_1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile == nil {
		t.Fatal("expected profile after first write")
	}
	if profile.ProfileID != "anon_1" {
		t.Errorf("ProfileID = %q, want %q", profile.ProfileID, "anon_1")
	}
	if profile.DisplayName != "Ada" {
		t.Errorf("DisplayName = %q, want %q", profile.DisplayName, "Ada")
	}
	if profile.Bio != "" {
		t.Errorf("Bio = %q, want empty", profile.Bio)
	}
	if profile.Interests != nil {
		t.Errorf("Interests = %v, want nil", profile.Interests)
	}
	if profile.CreatedAt.IsZero() || profile.UpdatedAt.IsZero() {
		t.Error("expected store-assigned timestamps")
	}
}

func TestUpsertProfileMergesPatchFields(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	full := domain.ProfilePatch{
		DisplayName: strPtr("Ada"),
		Bio:         strPtr("mathematician"),
		Interests:   []string{"engines", "music"},
	}
	if err := repo.UpsertProfile(ctx, testNamespace, "anon_1", full); err != nil {
		t.Fatalf("UpsertProfile full: %v", err)
	}

	// Nil fields must leave the stored values untouched.
	bioOnly := domain.ProfilePatch{Bio: strPtr("analyst")}
	if err := repo.UpsertProfile(ctx, testNamespace, "anon_1", bioOnly); err != nil {
		t.Fatalf("UpsertProfile bio only: %v", err)
	}

	profile, err := repo.GetProfile(ctx, testNamespace, "anon_1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile.DisplayName != "Ada" {
		t.Errorf("DisplayName = %q, want untouched %q", profile.DisplayName, "Ada")
	}
	if profile.Bio != "analyst" {
		t.Errorf("Bio = %q, want %q", profile.Bio, "analyst")
	}
	if len(profile.Interests) != 2 {
		t.Errorf("Interests = %v, want untouched pair", profile.Interests)
	}

	// Non-nil empty values overwrite rather than merge.
	clear := domain.ProfilePatch{Bio: strPtr(""), Interests: []string{}}
	if err := repo.UpsertProfile(ctx, testNamespace, "anon_1", clear); err != nil {
		t.Fatalf("UpsertProfile clear: %v", err)
	}

	profile, err = repo.GetProfile(ctx, testNamespace, "anon_1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile.DisplayName != "Ada" {
		t.Errorf("DisplayName = %q, want untouched %q", profile.DisplayName, "Ada")
	}
	if profile.Bio != "" {
		t.Errorf("Bio = %q, want cleared", profile.Bio)
	}
	if profile.Interests != nil {
		t.Errorf("Interests = %v, want cleared", profile.Interests)
	}
}

func TestUpsertProfileKeepsOneRowPerIdentity(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		patch := domain.ProfilePatch{DisplayName: strPtr("Ada")}
		if err := repo.UpsertProfile(ctx, testNamespace, "anon_1", patch); err != nil {
			t.Fatalf("UpsertProfile #%d: %v", i, err)
		}
	}

	profiles, err := repo.ListProfiles(ctx, testNamespace)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile after repeated upserts, got %d", len(profiles))
	}
}

func TestListProfilesReturnsAllInNamespace(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"anon_1", "anon_2", "anon_3"} {
		patch := domain.ProfilePatch{DisplayName: strPtr("user " + id)}
		if err := repo.UpsertProfile(ctx, testNamespace, id, patch); err != nil {
			t.Fatalf("UpsertProfile %s: %v", id, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	profiles, err := repo.ListProfiles(ctx, testNamespace)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(profiles) != 3 {
		t.Fatalf("expected 3 profiles, got %d", len(profiles))
	}
	for i, id := range []string{"anon_1", "anon_2", "anon_3"} {
		if profiles[i].ProfileID != id {
			t.Errorf("profiles[%d].ProfileID = %q, want %q", i, profiles[i].ProfileID, id)
		}
	}
}

func TestNamespaceIsolation(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.UpsertProfile(ctx, "ns-one", "anon_1", domain.ProfilePatch{DisplayName: strPtr("One")}); err != nil {
		t.Fatalf("UpsertProfile ns-one: %v", err)
	}
	if err := repo.UpsertProfile(ctx, "ns-two", "anon_2", domain.ProfilePatch{DisplayName: strPtr("Two")}); err != nil {
		t.Fatalf("UpsertProfile ns-two: %v", err)
	}

	one, err := repo.ListProfiles(ctx, "ns-one")
	if err != nil {
		t.Fatalf("ListProfiles ns-one: %v", err)
	}
	if len(one) != 1 || one[0].ProfileID != "anon_1" {
		t.Errorf("ns-one profiles = %+v, want only anon_1", one)
	}

	if _, err := repo.AppendMessage(ctx, "ns-one", "anon_1", "One", "hello"); err != nil {
		t.Fatalf("AppendMessage ns-one: %v", err)
	}
	msgs, err := repo.ListMessages(ctx, "ns-two")
	if err != nil {
		t.Fatalf("ListMessages ns-two: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("ns-two messages = %d, want 0", len(msgs))
	}
}

func TestAppendMessageAssignsIDAndTimestamp(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	msg, err := repo.AppendMessage(ctx, testNamespace, "anon_1", "Ada", "hello world")
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if msg.MessageID == "" {
		t.Error("expected store-assigned message id")
	}
	if msg.CreatedAt.IsZero() {
		t.Error("expected store-assigned timestamp")
	}
	if msg.AuthorID != "anon_1" || msg.AuthorName != "Ada" || msg.Body != "hello world" {
		t.Errorf("unexpected message fields: %+v", msg)
	}

	stored, err := repo.ListMessages(ctx, testNamespace)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 message, got %d", len(stored))
	}
	if stored[0].MessageID != msg.MessageID {
		t.Errorf("stored MessageID = %q, want %q", stored[0].MessageID, msg.MessageID)
	}
	if !stored[0].CreatedAt.Equal(msg.CreatedAt) {
		t.Errorf("stored CreatedAt = %v, want %v", stored[0].CreatedAt, msg.CreatedAt)
	}
}

func TestListMessagesOrdersByArrival(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	// Rapid appends may share a timestamp; insertion order must still hold.
	bodies := []string{"first", "second", "third", "fourth"}
	ids := make(map[string]bool)
	for _, body := range bodies {
		msg, err := repo.AppendMessage(ctx, testNamespace, "anon_1", "Ada", body)
		if err != nil {
			t.Fatalf("AppendMessage %q: %v", body, err)
		}
		if ids[msg.MessageID] {
			t.Fatalf("duplicate message id %q", msg.MessageID)
		}
		ids[msg.MessageID] = true
	}

	msgs, err := repo.ListMessages(ctx, testNamespace)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != len(bodies) {
		t.Fatalf("expected %d messages, got %d", len(bodies), len(msgs))
	}
	for i, body := range bodies {
		if msgs[i].Body != body {
			t.Errorf("msgs[%d].Body = %q, want %q", i, msgs[i].Body, body)
		}
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Errorf("timeline not ascending at index %d", i)
		}
	}
}

func TestPing(t *testing.T) {
	repo := newTestStore(t)

	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
