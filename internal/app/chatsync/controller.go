package chatsync

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"homechat/internal/app/ports"
	"homechat/internal/domain/chat"
)

// Phase is the lifecycle state of a conversation view.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseConnecting Phase = "connecting"
	PhaseSyncing    Phase = "syncing"
	PhaseLive       Phase = "live"
	PhaseClosed     Phase = "closed"
)

const defaultHistoryLimit = 50

// Config wires a controller for one user.
type Config struct {
	UserID       string
	Dialer       ports.Dialer
	History      ports.HistoryFetcher
	HistoryLimit int
	Logger       *slog.Logger
}

// Controller keeps one user's open conversation view consistent under three
// concurrent inputs: the history fetch, transport push events and local
// send acknowledgements. At most one view is open at a time; opening a new
// conversation is a full teardown-and-recreate of the previous one. Every
// asynchronous completion is checked against the current view before it is
// applied, so late results from a replaced session are discarded silently.
type Controller struct {
	userID       string
	dialer       ports.Dialer
	history      ports.HistoryFetcher
	historyLimit int
	logger       *slog.Logger

	mu  sync.Mutex
	cur *view
}

// view is the state owned by one open conversation: the phase machine, the
// ordered store, the dedup ledger and the transport session. The token is
// the alive guard distinguishing it from any later view.
type view struct {
	token          uuid.UUID
	conversationID string
	counterpartID  string
	phase          Phase
	store          *Store
	ledger         *Ledger
	session        ports.Session
	cancel         context.CancelFunc
	connectErr     error
	historyErr     error
	watchers       map[int64]chan chat.Event
	nextWatcher    int64
}

// Snapshot is a point-in-time copy of the view for rendering.
type Snapshot struct {
	Phase          Phase          `json:"phase"`
	ConversationID string         `json:"conversation_id,omitempty"`
	CounterpartID  string         `json:"counterpart_id,omitempty"`
	Messages       []chat.Message `json:"messages"`
	ConnectError   string         `json:"connect_error,omitempty"`
	HistoryError   string         `json:"history_error,omitempty"`
}

// New builds a controller for the given user.
func New(cfg Config) *Controller {
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		userID:       strings.TrimSpace(cfg.UserID),
		dialer:       cfg.Dialer,
		history:      cfg.History,
		historyLimit: limit,
		logger:       logger,
	}
}

// Open starts a view for the conversation: idle -> connecting, then
// syncing and live as the transport and history fetch complete in the
// background, in that order. Any previously open view is torn down first.
func (c *Controller) Open(ctx context.Context, conversationID, counterpartID string) error {
	if c.userID == "" {
		return ErrNoIdentity
	}
	conversationID = strings.TrimSpace(conversationID)
	counterpartID = strings.TrimSpace(counterpartID)
	if conversationID == "" || counterpartID == "" {
		return ErrNoConversation
	}
	c.Close()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	v := &view{
		token:          uuid.New(),
		conversationID: conversationID,
		counterpartID:  counterpartID,
		phase:          PhaseConnecting,
		store:          NewStore(),
		ledger:         NewLedger(),
		cancel:         cancel,
		watchers:       make(map[int64]chan chat.Event),
	}
	c.mu.Lock()
	c.cur = v
	c.mu.Unlock()

	go c.run(runCtx, v)
	return nil
}

// run is the actor body for one view: dial, sync history, then merge live
// events one at a time until the view is closed or the stream ends.
func (c *Controller) run(ctx context.Context, v *view) {
	session, err := c.dialer.Dial(ctx, c.userID, v.conversationID)
	if err != nil {
		// The view stays in connecting; retry/backoff belongs to the
		// transport client, not to this controller.
		c.mu.Lock()
		if c.cur == v {
			v.connectErr = err
		}
		c.mu.Unlock()
		c.logger.Warn("transport dial failed",
			"conversation_id", v.conversationID, "session", v.token.String(), "error", err)
		return
	}

	c.mu.Lock()
	if c.cur != v {
		c.mu.Unlock()
		_ = session.Close()
		return
	}
	v.session = session
	v.phase = PhaseSyncing
	c.mu.Unlock()

	msgs, err := c.history.History(ctx, v.conversationID, c.historyLimit)

	c.mu.Lock()
	if c.cur != v {
		// A newer view replaced this one while the fetch was in flight;
		// its result must not leak into the new conversation.
		c.mu.Unlock()
		_ = session.Close()
		return
	}
	if err != nil {
		v.historyErr = err
	} else {
		for _, m := range msgs {
			if v.ledger.Admit(chat.KeyOf(m)) {
				v.store.Append(m)
			}
		}
	}
	v.phase = PhaseLive
	c.mu.Unlock()
	if err != nil {
		c.logger.Warn("history fetch failed",
			"conversation_id", v.conversationID, "session", v.token.String(), "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-session.Events():
			if !ok {
				c.dropView(v)
				return
			}
			c.merge(v, ev)
		}
	}
}

// merge applies one event to the view. Created events pass through the
// dedup ledger; edits amend in place; deletes remove the message but keep
// its ledger key so a late duplicate cannot resurrect it. The merge is
// atomic under the controller lock, so no two merges overlap.
func (c *Controller) merge(v *view, ev chat.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != v || v.phase == PhaseClosed {
		return
	}
	applied := false
	switch ev.Kind {
	case chat.EventCreated:
		if v.ledger.Admit(chat.KeyOf(ev.Message)) {
			v.store.Append(ev.Message)
			applied = true
		}
	case chat.EventEdited:
		applied = v.store.Amend(ev.Message)
	case chat.EventDeleted:
		applied = v.store.Remove(ev.Message.ID)
	}
	if !applied {
		return
	}
	for _, w := range v.watchers {
		select {
		case w <- ev:
		default:
			// Slow watcher; it will recover from the next snapshot.
		}
	}
}

// Send dispatches trimmed text over the live session and merges the
// acknowledged message through the same dedup path as inbound events, so a
// self-sent message renders exactly once even when the broker echoes it
// back. On failure nothing is added to the store and the caller keeps the
// input text.
func (c *Controller) Send(ctx context.Context, text string) (chat.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return chat.Message{}, ErrEmptyText
	}
	c.mu.Lock()
	v := c.cur
	if v == nil || v.phase != PhaseLive || v.session == nil {
		c.mu.Unlock()
		return chat.Message{}, ErrNotLive
	}
	session := v.session
	draft := chat.Draft{
		ConversationID: v.conversationID,
		SenderID:       c.userID,
		RecipientID:    v.counterpartID,
		Text:           text,
	}
	c.mu.Unlock()

	ack, err := session.Send(ctx, draft)
	if err != nil {
		return chat.Message{}, err
	}
	c.merge(v, chat.Event{Kind: chat.EventCreated, Message: ack})
	return ack, nil
}

// Close tears the open view down: transport session released, store and
// ledger discarded, watchers ended. Safe to call with no view open.
func (c *Controller) Close() {
	c.mu.Lock()
	v := c.cur
	c.cur = nil
	var session ports.Session
	var watchers map[int64]chan chat.Event
	if v != nil {
		v.phase = PhaseClosed
		session = v.session
		v.session = nil
		watchers = v.watchers
		v.watchers = nil
	}
	c.mu.Unlock()
	if v == nil {
		return
	}
	v.cancel()
	if session != nil {
		_ = session.Close()
	}
	for _, w := range watchers {
		close(w)
	}
}

// dropView marks the view closed after its event stream ended. The view is
// kept so the snapshot can surface the drop; reopening re-fetches history,
// which is what closes any gap the outage created.
func (c *Controller) dropView(v *view) {
	c.mu.Lock()
	if c.cur != v || v.phase == PhaseClosed {
		c.mu.Unlock()
		return
	}
	v.phase = PhaseClosed
	v.connectErr = ErrTransportDropped
	session := v.session
	v.session = nil
	watchers := v.watchers
	v.watchers = nil
	c.mu.Unlock()

	v.cancel()
	if session != nil {
		_ = session.Close()
	}
	for _, w := range watchers {
		close(w)
	}
	c.logger.Warn("transport session dropped",
		"conversation_id", v.conversationID, "session", v.token.String())
}

// Snapshot returns the rendered state of the current view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.cur
	if v == nil {
		return Snapshot{Phase: PhaseIdle, Messages: []chat.Message{}}
	}
	snap := Snapshot{
		Phase:          v.phase,
		ConversationID: v.conversationID,
		CounterpartID:  v.counterpartID,
		Messages:       v.store.Snapshot(),
	}
	if v.connectErr != nil {
		snap.ConnectError = v.connectErr.Error()
	}
	if v.historyErr != nil {
		snap.HistoryError = v.historyErr.Error()
	}
	return snap
}

// Watch subscribes to merged events of the open view. The channel is
// closed when the view closes. The returned cancel is idempotent.
func (c *Controller) Watch() (<-chan chat.Event, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.cur
	if v == nil || v.phase == PhaseClosed || v.watchers == nil {
		return nil, nil, ErrNoView
	}
	id := v.nextWatcher
	v.nextWatcher++
	ch := make(chan chat.Event, 16)
	v.watchers[id] = ch
	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if v.watchers == nil {
			return
		}
		if w, ok := v.watchers[id]; ok {
			delete(v.watchers, id)
			close(w)
		}
	}
	return ch, cancel, nil
}

// Counterpart returns the counterpart of the open view, or empty.
func (c *Controller) Counterpart() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil || c.cur.phase == PhaseClosed {
		return ""
	}
	return c.cur.counterpartID
}
