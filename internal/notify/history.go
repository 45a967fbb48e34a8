package notify

import (
	"context"

	"shdrug/client/internal/db"
)

type HistoryStore interface {
	InsertNotification(ctx context.Context, rec db.NotificationRecord) error
}

// HistorySink records every notification for later review.
type HistorySink struct {
	Store   HistoryStore
	Profile string
}

func (h HistorySink) Notify(ctx context.Context, n Notification) error {
	return h.Store.InsertNotification(ctx, db.NotificationRecord{
		ID:         n.ID.String(),
		Profile:    h.Profile,
		ReminderID: n.ReminderID,
		RemindTime: n.RemindTime,
		Title:      n.Title,
		Body:       n.Body,
		Tag:        n.Tag,
		Link:       n.Link,
		FiredAt:    n.CreatedAt,
	})
}
