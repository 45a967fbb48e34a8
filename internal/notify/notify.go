// Package notify delivers user-visible notifications raised by background
// jobs.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Tag        string    `json:"tag"`
	ReminderID int64     `json:"reminder_id,omitempty"`
	RemindTime string    `json:"remind_time,omitempty"`
	Link       string    `json:"link,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// PermissionRequester is implemented by notifiers that need the user's
// consent before showing anything.
type PermissionRequester interface {
	RequestPermission(ctx context.Context) (bool, error)
}

var ErrPermissionDenied = errors.New("notification_permission_denied")

// RequestPermission asks n for permission when it supports asking, and
// grants otherwise.
func RequestPermission(ctx context.Context, n Notifier) (bool, error) {
	requester, ok := n.(PermissionRequester)
	if !ok {
		return true, nil
	}
	return requester.RequestPermission(ctx)
}

type multi []Notifier

// Multi fans a notification out to every notifier. Delivery continues past
// failures and the errors are joined.
func Multi(notifiers ...Notifier) Notifier {
	flat := make(multi, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			flat = append(flat, n)
		}
	}
	return flat
}

func (m multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RequestPermission grants only when every member grants.
func (m multi) RequestPermission(ctx context.Context) (bool, error) {
	for _, notifier := range m {
		granted, err := RequestPermission(ctx, notifier)
		if err != nil || !granted {
			return false, err
		}
	}
	return true, nil
}

// Static is a fixed permission answer, for headless runs where nobody can be
// asked.
type Static struct {
	Notifier
	Granted bool
}

func (s Static) RequestPermission(context.Context) (bool, error) {
	return s.Granted, nil
}
