package router

import "sync"

const historyLimit = 50

// History is the runtime's current location plus a short trail of past
// ones. Navigate satisfies the HTTP client's redirect hook.
type History struct {
	table *Table

	mu      sync.RWMutex
	entries []Location
}

func NewHistory(table *Table) *History {
	if table == nil {
		table = Default()
	}
	return &History{table: table, entries: []Location{table.Named(table.Landing, nil)}}
}

func (h *History) Navigate(target string) {
	h.Push(h.table.Resolve(target))
}

func (h *History) Push(loc Location) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, loc)
	if len(h.entries) > historyLimit {
		h.entries = append([]Location(nil), h.entries[len(h.entries)-historyLimit:]...)
	}
}

func (h *History) Current() Location {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.entries[len(h.entries)-1]
}

func (h *History) Entries() []Location {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Location(nil), h.entries...)
}
