package hub

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"homechat/internal/app/chatsync"
	"homechat/internal/app/ports"
	"homechat/internal/app/unread"
	"homechat/internal/domain/chat"
)

// ErrNoUser is returned when a request carries no resolved identity.
var ErrNoUser = errors.New("hub: user identity required")

// Config wires the hub's outbound dependencies.
type Config struct {
	Dialer       ports.Dialer
	History      ports.HistoryFetcher
	Acker        ports.ReadAcker
	HistoryLimit int
	Logger       *slog.Logger
}

// Hub owns one conversation controller and one unread registry per signed-in
// user, plus a background notification feed that drives the navbar counters
// while no view (or another view) is open. Users are materialized lazily on
// first touch and torn down together on shutdown.
type Hub struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	users  map[string]*userState
	closed bool
}

type userState struct {
	controller *chatsync.Controller
	registry   *unread.Registry
	feed       ports.Session
	feedCancel context.CancelFunc
}

// UnreadSummary is the navbar payload.
type UnreadSummary struct {
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"`
}

func New(cfg Config) *Hub {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{cfg: cfg, logger: logger, users: make(map[string]*userState)}
}

func (h *Hub) ensure(userID string) (*userState, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrNoUser
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errors.New("hub: shut down")
	}
	if st, ok := h.users[userID]; ok {
		return st, nil
	}
	st := &userState{
		controller: chatsync.New(chatsync.Config{
			UserID:       userID,
			Dialer:       h.cfg.Dialer,
			History:      h.cfg.History,
			HistoryLimit: h.cfg.HistoryLimit,
			Logger:       h.logger,
		}),
		registry: unread.NewRegistry(userID, h.cfg.Acker, h.logger),
	}
	h.users[userID] = st

	feedCtx, cancel := context.WithCancel(context.Background())
	st.feedCancel = cancel
	go h.runFeed(feedCtx, userID, st)
	return st, nil
}

// runFeed subscribes to all of the user's conversations and counts inbound
// messages from others. The active view's messages are excluded by the
// registry itself. A feed that cannot connect only costs navbar freshness;
// the next page load recomputes counts from server truth anyway.
func (h *Hub) runFeed(ctx context.Context, userID string, st *userState) {
	session, err := h.cfg.Dialer.Dial(ctx, userID, "")
	if err != nil {
		h.logger.Warn("notification feed dial failed", "user_id", userID, "error", err)
		return
	}
	// The feed goroutine owns the session; releasing it here covers every
	// exit path, including a shutdown racing this registration.
	defer func() { _ = session.Close() }()
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	st.feed = session
	h.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-session.Events():
			if !ok {
				h.logger.Warn("notification feed dropped", "user_id", userID)
				return
			}
			if ev.Kind != chat.EventCreated || ev.Message.SenderID == userID {
				continue
			}
			st.registry.Inbound(ev.Message.SenderID)
		}
	}
}

// Open opens the user's conversation view and optimistically resets the
// counterpart's unread counter.
func (h *Hub) Open(ctx context.Context, userID, conversationID, counterpartID string) error {
	st, err := h.ensure(userID)
	if err != nil {
		return err
	}
	if err := st.controller.Open(ctx, conversationID, counterpartID); err != nil {
		return err
	}
	st.registry.Open(conversationID, counterpartID)
	return nil
}

// CloseView tears the user's open view down.
func (h *Hub) CloseView(userID string) error {
	st, err := h.ensure(userID)
	if err != nil {
		return err
	}
	counterpart := st.controller.Counterpart()
	st.controller.Close()
	st.registry.Close(counterpart)
	return nil
}

// Send posts text to the user's open view.
func (h *Hub) Send(ctx context.Context, userID, text string) (chat.Message, error) {
	st, err := h.ensure(userID)
	if err != nil {
		return chat.Message{}, err
	}
	return st.controller.Send(ctx, text)
}

// Snapshot returns the rendered state of the user's view.
func (h *Hub) Snapshot(userID string) (chatsync.Snapshot, error) {
	st, err := h.ensure(userID)
	if err != nil {
		return chatsync.Snapshot{}, err
	}
	return st.controller.Snapshot(), nil
}

// Watch subscribes to the user's merged view events.
func (h *Hub) Watch(userID string) (<-chan chat.Event, func(), error) {
	st, err := h.ensure(userID)
	if err != nil {
		return nil, nil, err
	}
	return st.controller.Watch()
}

// Unread returns the user's unread counters.
func (h *Hub) Unread(userID string) (UnreadSummary, error) {
	st, err := h.ensure(userID)
	if err != nil {
		return UnreadSummary{}, err
	}
	return UnreadSummary{Total: st.registry.Total(), Counts: st.registry.Counts()}, nil
}

// Shutdown tears every user's view and feed down.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	users := h.users
	h.users = make(map[string]*userState)
	h.mu.Unlock()

	for _, st := range users {
		st.controller.Close()
		if st.feedCancel != nil {
			st.feedCancel()
		}
		if st.feed != nil {
			_ = st.feed.Close()
		}
	}
}
