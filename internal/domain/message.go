package domain

import (
	"strings"
	"time"
)

// ChatMessage is one immutable entry in the global chat timeline. The author
// name is a snapshot captured at send time, not a live reference to the
// author's profile. The id and timestamp are assigned by the store at write
// time; messages are never edited or deleted.
type ChatMessage struct {
	MessageID  string    `json:"message_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsBlank reports whether text would be rejected by the send gate: empty or
// whitespace-only bodies are silently dropped, not errors.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
