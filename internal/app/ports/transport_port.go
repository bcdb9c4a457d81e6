package ports

import (
	"context"

	"homechat/internal/domain/chat"
)

// Session is one lifetime of the realtime connection scoped to an open
// conversation view. Events delivers inbound pushes until the session is
// closed or the underlying transport drops; the channel is then closed.
// Reconnection policy belongs to the transport implementation, not to
// consumers of this port.
type Session interface {
	// Events returns the inbound push stream. The same channel is returned
	// on every call.
	Events() <-chan chat.Event
	// Send dispatches a draft and blocks until the transport acknowledges
	// it, returning the authoritative message (with its assigned id).
	Send(ctx context.Context, draft chat.Draft) (chat.Message, error)
	Close() error
}

// Dialer acquires a transport session for one conversation view.
// conversationID may be empty to subscribe to every conversation the user
// participates in (the notification feed).
type Dialer interface {
	Dial(ctx context.Context, userID, conversationID string) (Session, error)
}
