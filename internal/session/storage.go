package session

import (
	"context"
	"errors"
)

var ErrStorageClosed = errors.New("session: storage closed")

// Storage is the durable key-value area the session lives in.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	// Watch streams change events until ctx is done.
	Watch(ctx context.Context) (<-chan Event, error)
}

// Event reports that one key changed. Value is empty for deletions.
type Event struct {
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}
