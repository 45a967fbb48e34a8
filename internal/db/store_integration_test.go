package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests")
	}
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL is not set")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, databaseURL)
	if err != nil {
		t.Fatalf("pool error: %v", err)
	}
	t.Cleanup(pool.Close)
	store := NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema error: %v", err)
	}
	return store
}

func TestNotificationHistoryRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	profile := "it-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)

	older := NotificationRecord{ID: uuid.NewString(), Profile: profile, ReminderID: 1, RemindTime: "08:00", Title: "Medication reminder", Body: "A - 1", Tag: "reminder-1-08:00", FiredAt: now.Add(-72 * time.Hour)}
	newer := NotificationRecord{ID: uuid.NewString(), Profile: profile, ReminderID: 2, RemindTime: "20:00", Title: "Medication reminder", Body: "B - 2", Tag: "reminder-2-20:00", Link: "/medication-reminders", FiredAt: now}
	for _, rec := range []NotificationRecord{older, newer, newer} {
		if err := store.InsertNotification(ctx, rec); err != nil {
			t.Fatalf("insert error: %v", err)
		}
	}

	got, err := store.ListNotifications(ctx, profile, 10)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(got) != 2 || got[0].ID != newer.ID || got[1].ID != older.ID {
		t.Fatalf("unexpected history %+v", got)
	}

	if _, err := store.PruneNotifications(ctx, now.Add(-48*time.Hour)); err != nil {
		t.Fatalf("prune error: %v", err)
	}
	got, err = store.ListNotifications(ctx, profile, 10)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(got) != 1 || got[0].ID != newer.ID {
		t.Fatalf("expected only the recent record, got %+v", got)
	}
}
