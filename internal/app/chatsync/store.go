package chatsync

import "homechat/internal/domain/chat"

// Store holds one conversation's messages in dedup-accepted arrival order.
// Timestamps are display-only; the store never reorders. Not safe for
// concurrent use; the controller guards it.
type Store struct {
	messages []chat.Message
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Append(m chat.Message) {
	s.messages = append(s.messages, m)
}

// Amend replaces the stored message with the same id in place. Unknown ids
// are ignored (an edit for a message this view never rendered).
func (s *Store) Amend(m chat.Message) bool {
	if m.ID == "" {
		return false
	}
	for i := range s.messages {
		if s.messages[i].ID == m.ID {
			s.messages[i] = m
			return true
		}
	}
	return false
}

// Remove drops the message with the given id, preserving order.
func (s *Store) Remove(id string) bool {
	if id == "" {
		return false
	}
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) Len() int {
	return len(s.messages)
}

// Snapshot returns a copy of the rendered list.
func (s *Store) Snapshot() []chat.Message {
	out := make([]chat.Message, len(s.messages))
	copy(out, s.messages)
	return out
}
