package chat

import (
	"strings"
	"time"
)

// Message is a single chat message as rendered in a conversation view.
// ID is assigned by the messaging fabric; it is empty only for drafts.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	RecipientID    string    `json:"recipient_id,omitempty"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}

// Draft is an outbound message before the transport acknowledges it.
type Draft struct {
	ConversationID string
	SenderID       string
	RecipientID    string
	Text           string
}

// EventKind discriminates realtime chat events.
type EventKind string

const (
	EventCreated EventKind = "message.created"
	EventEdited  EventKind = "message.edited"
	EventDeleted EventKind = "message.deleted"
)

// Event is one realtime push delivered to an open conversation view.
type Event struct {
	Kind    EventKind `json:"kind"`
	Message Message   `json:"message"`
}

// DedupKey identifies a logical message across its representations: the
// history row, the broker echo and the send acknowledgement of the same
// message must all map to the same key. The server id wins when present;
// otherwise the key is the full (sender, recipient, text, created-at)
// fingerprint. A struct rather than a joined string so that delimiter
// characters inside the text can never collide two distinct messages.
type DedupKey struct {
	id        string
	sender    string
	recipient string
	text      string
	atNanos   int64
}

// KeyOf derives the dedup key for a message.
func KeyOf(m Message) DedupKey {
	if id := strings.TrimSpace(m.ID); id != "" {
		return DedupKey{id: id}
	}
	return DedupKey{
		sender:    m.SenderID,
		recipient: m.RecipientID,
		text:      m.Text,
		atNanos:   m.CreatedAt.UnixNano(),
	}
}

// Identified reports whether the key carries a server-assigned id.
func (k DedupKey) Identified() bool {
	return k.id != ""
}
