package notify

import (
	"context"
	"sync"
)

const DefaultInboxSize = 100

// Inbox keeps the most recent notifications for the console.
type Inbox struct {
	mu    sync.RWMutex
	limit int
	items []Notification
}

func NewInbox(limit int) *Inbox {
	if limit <= 0 {
		limit = DefaultInboxSize
	}
	return &Inbox{limit: limit}
}

func (b *Inbox) Notify(_ context.Context, n Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, n)
	if over := len(b.items) - b.limit; over > 0 {
		b.items = append([]Notification(nil), b.items[over:]...)
	}
	return nil
}

// Recent returns up to n notifications, newest first. n <= 0 means all.
func (b *Inbox) Recent(n int) []Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n <= 0 || n > len(b.items) {
		n = len(b.items)
	}
	out := make([]Notification, 0, n)
	for i := len(b.items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, b.items[i])
	}
	return out
}

func (b *Inbox) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}
