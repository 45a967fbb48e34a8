package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStorage persists keys as one JSON object on disk, the closest thing a
// process has to a browser profile's local storage. Other processes sharing
// the file are observed by polling its modification time.
type FileStorage struct {
	path         string
	pollInterval time.Duration
	mu           sync.Mutex
}

func NewFileStorage(path string, pollInterval time.Duration) *FileStorage {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &FileStorage{path: path, pollInterval: pollInterval}
}

func (f *FileStorage) Path() string {
	return f.path
}

func (f *FileStorage) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return "", false, err
	}
	val, ok := values[key]
	return val, ok, nil
}

func (f *FileStorage) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		// A corrupt file is replaced rather than blocking every future login.
		values = map[string]string{}
	}
	values[key] = value
	return f.write(values)
}

func (f *FileStorage) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return f.write(map[string]string{})
	}
	changed := false
	for _, key := range keys {
		if _, ok := values[key]; ok {
			delete(values, key)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.write(values)
}

func (f *FileStorage) Watch(ctx context.Context) (<-chan Event, error) {
	f.mu.Lock()
	last, err := f.read()
	f.mu.Unlock()
	if err != nil {
		last = map[string]string{}
	}
	lastMod := f.modTime()

	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(f.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mod := f.modTime()
				if mod.Equal(lastMod) {
					continue
				}
				lastMod = mod
				f.mu.Lock()
				current, err := f.read()
				f.mu.Unlock()
				if err != nil {
					current = map[string]string{}
				}
				for _, ev := range diff(last, current) {
					select {
					case ch <- ev:
					case <-ctx.Done():
						return
					}
				}
				last = current
			}
		}
	}()
	return ch, nil
}

func (f *FileStorage) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: read %s: %w", f.path, err)
	}
	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", f.path, err)
	}
	return values, nil
}

func (f *FileStorage) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("session: create dir: %w", err)
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".storage-*.json")
	if err != nil {
		return fmt.Errorf("session: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("session: write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("session: chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("session: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("session: replace %s: %w", f.path, err)
	}
	return nil
}

func (f *FileStorage) modTime() time.Time {
	info, err := os.Stat(f.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func diff(before, after map[string]string) []Event {
	var events []Event
	for key, val := range after {
		if prev, ok := before[key]; !ok || prev != val {
			events = append(events, Event{Key: key, Value: val})
		}
	}
	for key := range before {
		if _, ok := after[key]; !ok {
			events = append(events, Event{Key: key, Deleted: true})
		}
	}
	return events
}
