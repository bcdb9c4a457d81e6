package chatsync

import "errors"

var (
	// ErrNoIdentity is returned when the current user's identity is
	// unresolved; nothing opens.
	ErrNoIdentity = errors.New("chatsync: user identity unresolved")
	// ErrNoConversation is returned when the conversation or counterpart
	// identifier is empty.
	ErrNoConversation = errors.New("chatsync: conversation and counterpart ids are required")
	// ErrEmptyText rejects sends whose text is empty after trimming.
	ErrEmptyText = errors.New("chatsync: message text is empty")
	// ErrNotLive rejects sends while no live transport session exists.
	// Text is never queued; the caller keeps the input and may retry.
	ErrNotLive = errors.New("chatsync: conversation is not live")
	// ErrNoView is returned by Watch when no conversation is open.
	ErrNoView = errors.New("chatsync: no open conversation")
	// ErrTransportDropped is recorded on a view whose event stream ended.
	ErrTransportDropped = errors.New("chatsync: transport session dropped")
)
