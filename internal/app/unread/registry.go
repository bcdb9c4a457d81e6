package unread

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"homechat/internal/app/ports"
)

const ackTimeout = 5 * time.Second

// Registry tracks, per counterpart, how many inbound messages arrived
// while that counterpart's conversation view was not the active open view.
// Opening a view resets its counter to exactly zero immediately and fires
// the read receipt in the background; a receipt failure is logged and never
// rolled back, trading a small read-state race for a flicker-free counter.
type Registry struct {
	userID string
	acker  ports.ReadAcker
	logger *slog.Logger

	mu     sync.Mutex
	active string
	counts map[string]int
}

func NewRegistry(userID string, acker ports.ReadAcker, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		userID: strings.TrimSpace(userID),
		acker:  acker,
		logger: logger,
		counts: make(map[string]int),
	}
}

// Inbound records one arrived message from the counterpart. Messages for
// the active open view are not counted; they render live through the
// conversation merge path instead.
func (r *Registry) Inbound(counterpartID string) {
	counterpartID = strings.TrimSpace(counterpartID)
	if counterpartID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if counterpartID == r.active {
		return
	}
	r.counts[counterpartID]++
}

// Open marks the counterpart's view active, resets its counter to zero and
// issues the read receipt fire-and-forget. Idempotent: repeat opens leave
// the counter at zero.
func (r *Registry) Open(conversationID, counterpartID string) {
	counterpartID = strings.TrimSpace(counterpartID)
	if counterpartID == "" {
		return
	}
	r.mu.Lock()
	r.active = counterpartID
	delete(r.counts, counterpartID)
	r.mu.Unlock()

	if r.acker == nil || conversationID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), ackTimeout)
		defer cancel()
		if err := r.acker.MarkRead(ctx, conversationID, r.userID); err != nil {
			r.logger.Warn("read receipt failed",
				"conversation_id", conversationID, "user_id", r.userID, "error", err)
		}
	}()
}

// Close clears the active view. Counters are untouched; new arrivals for
// the closed counterpart accumulate again.
func (r *Registry) Close(counterpartID string) {
	counterpartID = strings.TrimSpace(counterpartID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if counterpartID == "" || r.active == counterpartID {
		r.active = ""
	}
}

// Count returns the unread count for one counterpart.
func (r *Registry) Count(counterpartID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[counterpartID]
}

// Total returns the navbar total across counterparts.
func (r *Registry) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.counts {
		total += n
	}
	return total
}

// Counts returns a copy of all non-zero counters.
func (r *Registry) Counts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}
