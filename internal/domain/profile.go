// Package domain contains core domain types for the World Connector application.
package domain

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// Profile is the document a user publishes about themselves, keyed by the
// identity that owns it. At most one profile exists per identity; records are
// created and updated through merge-style upserts and never deleted.
type Profile struct {
	ProfileID   string    `json:"profile_id"`
	DisplayName string    `json:"display_name,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Interests   []string  `json:"interests,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProfilePatch is a merge-style update to a profile. Nil fields are left
// untouched by the store; non-nil fields overwrite. An empty non-nil
// Interests slice clears the stored tags.
type ProfilePatch struct {
	DisplayName *string  `json:"display_name,omitempty"`
	Bio         *string  `json:"bio,omitempty"`
	Interests   []string `json:"interests,omitempty"`
}

// IsZero reports whether the patch carries no fields at all.
func (p ProfilePatch) IsZero() bool {
	return p.DisplayName == nil && p.Bio == nil && p.Interests == nil
}

// NameOrFallback returns the display name, or a truncated form of the owning
// identity when no name has been set yet.
func (p *Profile) NameOrFallback() string {
	if p != nil && p.DisplayName != "" {
		return p.DisplayName
	}
	if p == nil {
		return FallbackDisplayName("")
	}
	return FallbackDisplayName(p.ProfileID)
}

// FallbackDisplayName derives a readable name from an identity for users who
// have not set a display name.
func FallbackDisplayName(identity string) string {
	if len(identity) > 13 {
		return "user-" + identity[len(identity)-8:]
	}
	if identity == "" {
		return "user"
	}
	return identity
}

// ParseInterests normalizes a comma-separated input into an ordered sequence
// of trimmed, non-empty tags. Duplicates are kept; order is the input order.
func ParseInterests(raw string) []string {
	tags := lo.FilterMap(strings.Split(raw, ","), func(part string, _ int) (string, bool) {
		tag := strings.TrimSpace(part)
		return tag, tag != ""
	})
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// ExcludeProfile returns the collection without the record keyed by identity.
// The input order is preserved; the result is rebuilt on every call because
// consumers replace the whole collection per push.
func ExcludeProfile(profiles []*Profile, identity string) []*Profile {
	return lo.Filter(profiles, func(p *Profile, _ int) bool {
		return p != nil && p.ProfileID != identity
	})
}
