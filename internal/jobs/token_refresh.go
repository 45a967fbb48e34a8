package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"shdrug/client/internal/auth"
	"shdrug/client/internal/clients"
	"shdrug/client/internal/config"
	"shdrug/client/internal/metrics"
	"shdrug/client/internal/session"
)

type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*clients.RefreshResponse, error)
}

type TokenStore interface {
	session.Provider
	RefreshToken(ctx context.Context) string
}

// TokenRefreshJob swaps the stored access token for a fresh one shortly
// before it expires. The user profile is kept as is.
type TokenRefreshJob struct {
	Store     TokenStore
	Inspector *auth.Inspector
	API       TokenRefresher
	Window    time.Duration
	Now       func() time.Time
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// RunOnce refreshes when the stored token expires within the window. It
// reports whether a new token was stored.
func (j *TokenRefreshJob) RunOnce(ctx context.Context) (bool, error) {
	token := j.Store.Token(ctx)
	if token == "" {
		return false, nil
	}
	expiresAt, err := j.Inspector.ExpiresAt(token)
	if err != nil {
		if errors.Is(err, auth.ErrNoExpiry) {
			return false, nil
		}
		return false, err
	}
	now := j.now()
	if expiresAt.Sub(now) > j.Window {
		return false, nil
	}

	resp, err := j.API.Refresh(ctx, j.Store.RefreshToken(ctx))
	if err != nil {
		j.Metrics.TokenRefresh("error")
		return false, err
	}
	if resp.AccessToken == "" {
		j.Metrics.TokenRefresh("error")
		return false, errors.New("refresh response without access_token")
	}
	user := j.Store.CurrentUser(ctx)
	if user == nil {
		// Signed out while the refresh was in flight.
		return false, nil
	}
	if err := j.Store.SetAuth(ctx, resp.AccessToken, *user); err != nil {
		j.Metrics.TokenRefresh("error")
		return false, err
	}
	j.Metrics.TokenRefresh("ok")
	j.logger().Info("access token refreshed",
		"previous", auth.Fingerprint(token),
		"current", auth.Fingerprint(resp.AccessToken),
		"expired_at", expiresAt,
	)
	return true, nil
}

func (j *TokenRefreshJob) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func (j *TokenRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func StartTokenRefreshJob(ctx context.Context, cfg config.Config, job *TokenRefreshJob) {
	if job == nil || job.Store == nil || job.API == nil {
		return
	}
	interval := cfg.TokenRefreshInterval
	if interval <= 0 {
		return
	}
	if job.Window <= 0 {
		job.Window = cfg.TokenRefreshWindow
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, timeout)
				_, err := job.RunOnce(tickCtx)
				cancel()
				if err != nil {
					job.logger().Warn("token refresh job error", "error", err)
				}
			}
		}
	}()
}
