package chatsync

import "homechat/internal/domain/chat"

// Ledger records every dedup key admitted into the view's store. It is
// authoritative for "have we rendered this": a key is added before or
// atomically with the store insertion, and the ledger is rebuilt wholesale
// when the active conversation changes. Not safe for concurrent use; the
// controller guards it.
type Ledger struct {
	seen map[chat.DedupKey]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{seen: make(map[chat.DedupKey]struct{})}
}

// Admit records the key and reports whether it was new. A false return
// means the message is a duplicate and must be discarded.
func (l *Ledger) Admit(key chat.DedupKey) bool {
	if _, ok := l.seen[key]; ok {
		return false
	}
	l.seen[key] = struct{}{}
	return true
}

// Seen reports whether the key has been admitted.
func (l *Ledger) Seen(key chat.DedupKey) bool {
	_, ok := l.seen[key]
	return ok
}

func (l *Ledger) Len() int {
	return len(l.seen)
}
