// Package session owns "who is logged in": the bearer token and user profile
// persisted in a Storage. Reads never fail; broken or missing state reads as
// anonymous.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"shdrug/client/internal/logging"
)

const (
	TokenKey        = "access_token"
	UserKey         = "current_user"
	RefreshTokenKey = "refresh_token"
)

// LegacyKeys are left behind by earlier storage schemes and removed on clear.
var LegacyKeys = []string{"token", "user", "refreshToken", "mock_auth_current_user"}

var ErrIncompleteSession = errors.New("session: token and user must be set together")

// Provider is what the rest of the runtime depends on.
type Provider interface {
	Token(ctx context.Context) string
	CurrentUser(ctx context.Context) *User
	Current(ctx context.Context) *Session
	SetAuth(ctx context.Context, token string, user User) error
	ClearAuth(ctx context.Context) error
	IsAuthenticated(ctx context.Context) bool
}

type Store struct {
	storage Storage
	logger  *slog.Logger
}

var _ Provider = (*Store)(nil)

func NewStore(storage Storage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{storage: storage, logger: logger}
}

func (s *Store) Token(ctx context.Context) string {
	token, ok, err := s.storage.Get(ctx, TokenKey)
	if err != nil {
		s.logger.Debug("session token unreadable", slog.Any("error", err))
		return ""
	}
	if !ok {
		return ""
	}
	return token
}

func (s *Store) CurrentUser(ctx context.Context) *User {
	raw, ok, err := s.storage.Get(ctx, UserKey)
	if err != nil {
		s.logger.Debug("session user unreadable", slog.Any("error", err))
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.logger.Debug("session user corrupt", slog.Any("error", err))
		return nil
	}
	return &user
}

// Current returns the session only when both halves are present.
func (s *Store) Current(ctx context.Context) *Session {
	token := s.Token(ctx)
	if token == "" {
		return nil
	}
	user := s.CurrentUser(ctx)
	if user == nil {
		return nil
	}
	return &Session{Token: token, User: *user}
}

func (s *Store) IsAuthenticated(ctx context.Context) bool {
	return s.Current(ctx) != nil
}

// SetAuth writes token and user one after the other. Storage writes are not
// transactional; a failure between them is not rolled back.
func (s *Store) SetAuth(ctx context.Context, token string, user User) error {
	if token == "" || (user.Username == "" && user.ID == 0) {
		return ErrIncompleteSession
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session: encode user: %w", err)
	}
	if err := s.storage.Set(ctx, TokenKey, token); err != nil {
		return err
	}
	if err := s.storage.Set(ctx, UserKey, string(data)); err != nil {
		return err
	}
	return nil
}

func (s *Store) RefreshToken(ctx context.Context) string {
	token, ok, err := s.storage.Get(ctx, RefreshTokenKey)
	if err != nil || !ok {
		return ""
	}
	return token
}

func (s *Store) SetRefreshToken(ctx context.Context, token string) error {
	if token == "" {
		return s.storage.Delete(ctx, RefreshTokenKey)
	}
	return s.storage.Set(ctx, RefreshTokenKey, token)
}

func (s *Store) ClearAuth(ctx context.Context) error {
	keys := append([]string{TokenKey, UserKey, RefreshTokenKey}, LegacyKeys...)
	return s.storage.Delete(ctx, keys...)
}

// Watch forwards storage change events that concern the session keys.
func (s *Store) Watch(ctx context.Context) (<-chan Event, error) {
	events, err := s.storage.Watch(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan Event, 8)
	go func() {
		defer close(out)
		for ev := range events {
			if ev.Key != TokenKey && ev.Key != UserKey {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
