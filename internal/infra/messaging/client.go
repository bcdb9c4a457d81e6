package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"homechat/internal/app/ports"
	"homechat/internal/domain/chat"
)

// Config defines REST client settings for the messaging backend.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client consumes the messaging backend's REST surface: the one-shot
// history fetch at view open, and the fire-and-forget read receipt. The
// backend's data model is opaque to this service.
type Client struct {
	http   *http.Client
	base   *url.URL
	logger *slog.Logger
}

var (
	_ ports.HistoryFetcher = (*Client)(nil)
	_ ports.ReadAcker      = (*Client)(nil)
)

type messageRecord struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	RecipientID    string    `json:"recipient_id,omitempty"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}

type messageListResponse struct {
	Items      []messageRecord `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("messaging: base url required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("messaging: invalid base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		base:   base,
		logger: logger,
	}, nil
}

// History loads the newest messages of a conversation. The backend lists
// them newest first; the result is reversed into render order (oldest
// first) before it is returned.
func (c *Client) History(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	if conversationID == "" {
		return nil, errors.New("messaging: conversation id required")
	}
	endpoint := c.base.JoinPath("v1", "conversations", conversationID, "messages")
	query := endpoint.Query()
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	endpoint.RawQuery = query.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.http.Do(request)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, response.Body)
		_ = response.Body.Close()
	}()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("messaging: history fetch returned %d", response.StatusCode)
	}

	var payload messageListResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("messaging: decode history: %w", err)
	}
	items := make([]chat.Message, 0, len(payload.Items))
	for i := len(payload.Items) - 1; i >= 0; i-- {
		rec := payload.Items[i]
		items = append(items, chat.Message{
			ID:             rec.ID,
			ConversationID: rec.ConversationID,
			SenderID:       rec.SenderID,
			RecipientID:    rec.RecipientID,
			Text:           rec.Text,
			CreatedAt:      rec.CreatedAt,
		})
	}
	return items, nil
}

// MarkRead tells the backend the conversation has been viewed. Callers
// treat failures as non-fatal; the local counter reset is never rolled
// back.
func (c *Client) MarkRead(ctx context.Context, conversationID, userID string) error {
	if conversationID == "" || userID == "" {
		return errors.New("messaging: conversation id and user id required")
	}
	endpoint := c.base.JoinPath("v1", "conversations", conversationID, "read")
	body, err := json.Marshal(map[string]string{"user_id": userID})
	if err != nil {
		return err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, response.Body)
		_ = response.Body.Close()
	}()
	if response.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("messaging: mark read returned %d", response.StatusCode)
	}
	return nil
}
