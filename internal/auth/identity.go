package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
)

var (
	anonIDPattern   = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)
	identityPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// NewAnonymousID generates a fresh anonymous identity.
func NewAnonymousID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate anonymous id: %w", err)
	}
	return "anon_" + hex.EncodeToString(buf), nil
}

// IsAnonymousID reports whether id has the shape of a generated anonymous identity.
func IsAnonymousID(id string) bool {
	return anonIDPattern.MatchString(id)
}

// ValidIdentity reports whether id is acceptable as a token subject. Exchanged
// identities come from outside the system, so the shape is looser than the
// anonymous one.
func ValidIdentity(id string) bool {
	return anonIDPattern.MatchString(id) || identityPattern.MatchString(id)
}
