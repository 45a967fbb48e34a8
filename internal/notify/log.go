package notify

import (
	"context"
	"log/slog"
)

type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, n.Title,
		"body", n.Body,
		"tag", n.Tag,
		"link", n.Link,
		"notification_id", n.ID.String(),
	)
	return nil
}
