package domain

import "errors"

// ErrSignedOut reports that no usable session exists. Reads may keep serving
// local state, but writes are unavailable until a session is re-established.
var ErrSignedOut = errors.New("signed out")

// ErrNoProfile reports that the operation requires a published profile.
var ErrNoProfile = errors.New("no profile")
