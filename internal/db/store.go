// Package db keeps the local history of raised reminder notifications in
// Postgres. It is optional: the runtime works without DATABASE_URL.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS reminder_notifications (
	id          UUID PRIMARY KEY,
	profile     TEXT        NOT NULL,
	reminder_id BIGINT      NOT NULL,
	remind_time TEXT        NOT NULL,
	title       TEXT        NOT NULL,
	body        TEXT        NOT NULL,
	tag         TEXT        NOT NULL,
	link        TEXT        NOT NULL DEFAULT '',
	fired_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS reminder_notifications_fired_idx
	ON reminder_notifications (profile, fired_at DESC);
`

type NotificationRecord struct {
	ID         string    `json:"id"`
	Profile    string    `json:"profile"`
	ReminderID int64     `json:"reminder_id"`
	RemindTime string    `json:"remind_time"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Tag        string    `json:"tag"`
	Link       string    `json:"link,omitempty"`
	FiredAt    time.Time `json:"fired_at"`
}

type Store struct {
	pool *pgxpool.Pool
}

func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, schema)
		return err
	})
}

func (s *Store) InsertNotification(ctx context.Context, rec NotificationRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reminder_notifications (id, profile, reminder_id, remind_time, title, body, tag, link, fired_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.Profile, rec.ReminderID, rec.RemindTime, rec.Title, rec.Body, rec.Tag, rec.Link, rec.FiredAt)
	return err
}

// ListNotifications returns the newest records of a profile first.
func (s *Store) ListNotifications(ctx context.Context, profile string, limit int) ([]NotificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, profile, reminder_id, remind_time, title, body, tag, link, fired_at
		FROM reminder_notifications
		WHERE profile = $1
		ORDER BY fired_at DESC
		LIMIT $2
	`, profile, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (NotificationRecord, error) {
		var rec NotificationRecord
		err := row.Scan(&rec.ID, &rec.Profile, &rec.ReminderID, &rec.RemindTime, &rec.Title, &rec.Body, &rec.Tag, &rec.Link, &rec.FiredAt)
		return rec, err
	})
}

// PruneNotifications deletes records fired before the cutoff.
func (s *Store) PruneNotifications(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reminder_notifications WHERE fired_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
