package ginserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"homechat/internal/app/chatsync"
	"homechat/internal/app/hub"
	"homechat/internal/domain/chat"
)

// ChatHTTP exposes the conversation-view endpoints consumed by the widget.
type ChatHTTP interface {
	OpenView(c *gin.Context)
	CloseView(c *gin.Context)
	SendMessage(c *gin.Context)
	GetView(c *gin.Context)
	StreamView(c *gin.Context)
	GetUnread(c *gin.Context)
}

// ConversationHub is the slice of the hub the HTTP layer needs.
type ConversationHub interface {
	Open(ctx context.Context, userID, conversationID, counterpartID string) error
	CloseView(userID string) error
	Send(ctx context.Context, userID, text string) (chat.Message, error)
	Snapshot(userID string) (chatsync.Snapshot, error)
	Watch(userID string) (<-chan chat.Event, func(), error)
	Unread(userID string) (hub.UnreadSummary, error)
}

// ChatHandler bridges HTTP with the per-user conversation hub.
type ChatHandler struct {
	Hub    ConversationHub
	Logger *slog.Logger
}

// OpenView opens (or replaces) the caller's conversation view. The
// response is immediate; connecting, history sync and live transitions
// complete asynchronously and are visible through GetView/StreamView.
func (h ChatHandler) OpenView(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		ConversationID string `json:"conversation_id"`
		CounterpartID  string `json:"counterpart_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.ConversationID = strings.TrimSpace(req.ConversationID)
	req.CounterpartID = strings.TrimSpace(req.CounterpartID)
	if req.ConversationID == "" || req.CounterpartID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation_id and counterpart_id are required"})
		return
	}
	if err := h.Hub.Open(c.Request.Context(), p.ID, req.ConversationID, req.CounterpartID); err != nil {
		h.respondHubError(c, err, "open view", "conversation_id", req.ConversationID, "user_id", p.ID)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "opening"})
}

// CloseView tears the caller's view down.
func (h ChatHandler) CloseView(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.Hub.CloseView(p.ID); err != nil {
		h.respondHubError(c, err, "close view", "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

// SendMessage posts text to the caller's open view. A failed send leaves
// the view untouched; the widget keeps the input text and may retry.
func (h ChatHandler) SendMessage(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	message, err := h.Hub.Send(c.Request.Context(), p.ID, req.Text)
	if err != nil {
		h.respondHubError(c, err, "send message", "user_id", p.ID)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// GetView returns the rendered snapshot of the caller's view.
func (h ChatHandler) GetView(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	snapshot, err := h.Hub.Snapshot(p.ID)
	if err != nil {
		h.respondHubError(c, err, "view snapshot", "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// StreamView streams merged view events as SSE until the view closes or
// the client disconnects.
func (h ChatHandler) StreamView(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	events, cancel, err := h.Hub.Watch(p.ID)
	if err != nil {
		h.respondHubError(c, err, "stream view", "user_id", p.ID)
		return
	}
	defer cancel()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case ev, open := <-events:
			if !open {
				return false
			}
			c.SSEvent(string(ev.Kind), ev.Message)
			return true
		}
	})
}

// GetUnread returns the caller's navbar unread counters.
func (h ChatHandler) GetUnread(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	summary, err := h.Hub.Unread(p.ID)
	if err != nil {
		h.respondHubError(c, err, "unread counts", "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h ChatHandler) respondHubError(c *gin.Context, err error, action string, attrs ...any) {
	if h.Logger != nil {
		h.Logger.Warn("hub call failed", append([]any{"action", action, "error", err}, attrs...)...)
	}
	switch {
	case errors.Is(err, hub.ErrNoUser), errors.Is(err, chatsync.ErrNoIdentity):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, chatsync.ErrNoConversation), errors.Is(err, chatsync.ErrEmptyText):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chatsync.ErrNotLive):
		c.JSON(http.StatusConflict, gin.H{"error": "conversation is not live"})
	case errors.Is(err, chatsync.ErrNoView):
		c.JSON(http.StatusNotFound, gin.H{"error": "no open conversation"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "send failed, please retry"})
	}
}

var _ ChatHTTP = (*ChatHandler)(nil)
