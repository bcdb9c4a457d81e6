package ports

import (
	"context"

	"homechat/internal/domain/chat"
)

// HistoryFetcher loads the existing thread for a conversation, oldest
// first. Called once per view open, between transport ready and live.
type HistoryFetcher interface {
	History(ctx context.Context, conversationID string, limit int) ([]chat.Message, error)
}

// ReadAcker notifies the backend that a conversation has been viewed.
// Failures are non-fatal to callers.
type ReadAcker interface {
	MarkRead(ctx context.Context, conversationID, userID string) error
}
