package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"shdrug/client/internal/bg"
	"shdrug/client/internal/clients"
	"shdrug/client/internal/metrics"
	"shdrug/client/internal/notify"
	"shdrug/client/internal/session"
)

const (
	ReminderTitle = "Medication reminder"
	ReminderLink  = "/medication-reminders"
)

type ReminderSource interface {
	TodayReminders(ctx context.Context) (*clients.TodayReminders, error)
}

// Sessions is the part of the session store the poller reads.
type Sessions interface {
	Token(ctx context.Context) string
	Watch(ctx context.Context) (<-chan session.Event, error)
}

type PollerState int32

const (
	PollerStopped PollerState = iota
	PollerRunning
)

func (s PollerState) String() string {
	if s == PollerRunning {
		return "running"
	}
	return "stopped"
}

type ReminderPollerOptions struct {
	Source   ReminderSource
	Sessions Sessions
	Notifier notify.Notifier

	CheckInterval   time.Duration
	RefreshInterval time.Duration
	Debounce        time.Duration
	Retention       time.Duration
	FetchTimeout    time.Duration

	// Runner executes fetches and deliveries. Defaults to bg.Async.
	Runner  bg.Runner
	Now     func() time.Time
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// ReminderPoller raises a notification when one of today's reminders is
// due. Each (reminder, time, day) slot notifies at most once, and missed
// minutes are not caught up.
type ReminderPoller struct {
	opts   ReminderPollerOptions
	logger *slog.Logger

	snapshot  atomic.Pointer[clients.TodayReminders]
	state     atomic.Int32
	refreshMu sync.Mutex

	mu    sync.Mutex
	fired map[string]time.Time

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	loopDone  chan struct{}
	work      bg.Group
}

func NewReminderPoller(opts ReminderPollerOptions) *ReminderPoller {
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = time.Minute
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 5 * time.Minute
	}
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if opts.Retention <= 0 {
		opts.Retention = 48 * time.Hour
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.Runner == nil {
		opts.Runner = bg.Async{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := &ReminderPoller{
		opts:   opts,
		logger: logger.With("component", "reminder_poller"),
		fired:  make(map[string]time.Time),
	}
	p.work.Runner = opts.Runner
	return p
}

func (p *ReminderPoller) State() PollerState {
	return PollerState(p.state.Load())
}

// Start asks for notification permission, loads today's snapshot, arms the
// timers and runs one check. A denied permission leaves the poller stopped
// and is not an error. Starting a running poller does nothing.
func (p *ReminderPoller) Start(ctx context.Context) error {
	if p.opts.Source == nil || p.opts.Sessions == nil || p.opts.Notifier == nil {
		return errors.New("reminder poller needs a source, sessions and a notifier")
	}
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	if p.cancel != nil {
		select {
		case <-p.loopDone:
			// The parent context ended the previous run.
			p.cancel()
			p.work.Wait()
			p.cancel, p.loopDone = nil, nil
		default:
			return nil
		}
	}

	granted, err := notify.RequestPermission(ctx, p.opts.Notifier)
	if err != nil {
		p.logger.Warn("notification permission request failed", "error", err)
		return nil
	}
	if !granted {
		p.logger.Warn("notification permission denied, reminders disabled")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.refresh(runCtx)

	events, err := p.opts.Sessions.Watch(runCtx)
	if err != nil {
		p.logger.Warn("session watch unavailable, relying on periodic refresh", "error", err)
		events = nil
	}

	p.cancel = cancel
	p.loopDone = make(chan struct{})
	p.state.Store(int32(PollerRunning))
	go p.loop(runCtx, events, p.loopDone)

	p.check(runCtx, p.opts.Now())
	p.logger.Info("reminder poller started",
		"check_interval", p.opts.CheckInterval,
		"refresh_interval", p.opts.RefreshInterval,
	)
	return nil
}

// Stop cancels the timers and waits for in-flight fetches and deliveries.
// Nothing runs after it returns. Stopping a stopped poller does nothing.
func (p *ReminderPoller) Stop() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.loopDone
	p.work.Wait()
	p.cancel = nil
	p.loopDone = nil
	p.state.Store(int32(PollerStopped))
	p.logger.Info("reminder poller stopped")
}

func (p *ReminderPoller) loop(ctx context.Context, events <-chan session.Event, done chan<- struct{}) {
	defer close(done)
	defer p.state.Store(int32(PollerStopped))

	checkTicker := time.NewTicker(p.opts.CheckInterval)
	defer checkTicker.Stop()
	refreshTicker := time.NewTicker(p.opts.RefreshInterval)
	defer refreshTicker.Stop()

	var (
		debounce  *time.Timer
		debounceC <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-checkTicker.C:
			p.check(ctx, p.opts.Now())
		case <-refreshTicker.C:
			p.work.Do(func() { p.refresh(ctx) })
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			p.logger.Debug("session storage changed", "key", ev.Key, "deleted", ev.Deleted)
			if debounce == nil {
				debounce = time.NewTimer(p.opts.Debounce)
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(p.opts.Debounce)
			}
			debounceC = debounce.C
		case <-debounceC:
			debounceC = nil
			p.work.Do(func() { p.refresh(ctx) })
		}
	}
}

// Refresh reloads today's snapshot now.
func (p *ReminderPoller) Refresh(ctx context.Context) {
	p.refresh(ctx)
}

func (p *ReminderPoller) refresh(ctx context.Context) {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	if p.opts.Sessions.Token(ctx) == "" {
		// Signed out: nothing to remind about until the next login.
		if p.snapshot.Swap(nil) != nil {
			p.logger.Debug("session gone, dropped reminder snapshot")
		}
		p.opts.Metrics.ReminderFetch("skipped")
		p.opts.Metrics.SnapshotSize(0)
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.opts.FetchTimeout)
	defer cancel()
	snap, err := p.opts.Source.TodayReminders(fetchCtx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("load today's reminders failed", "error", err)
		}
		p.opts.Metrics.ReminderFetch("error")
		return
	}
	if snap == nil || !snap.Success {
		p.logger.Warn("backend refused today's reminders, keeping previous snapshot")
		p.opts.Metrics.ReminderFetch("rejected")
		return
	}

	next := &clients.TodayReminders{
		Success: true,
		Date:    snap.Date,
		Items:   append([]clients.Reminder(nil), snap.Items...),
		Total:   snap.Total,
	}
	p.snapshot.Store(next)
	p.opts.Metrics.ReminderFetch("ok")
	p.opts.Metrics.SnapshotSize(len(next.Items))
	p.logger.Debug("loaded today's reminders", "count", len(next.Items), "date", next.Date)
}

// Check runs one check pass at the current time and returns how many
// notifications it raised.
func (p *ReminderPoller) Check(ctx context.Context) int {
	return p.check(ctx, p.opts.Now())
}

func (p *ReminderPoller) check(ctx context.Context, now time.Time) int {
	snap := p.snapshot.Load()

	p.mu.Lock()
	p.prune(now)
	if snap == nil {
		p.mu.Unlock()
		return 0
	}
	current := now.Format("15:04")
	day := now.Format(time.DateOnly)
	var due []clients.Reminder
	for _, reminder := range snap.Items {
		remindTime := strings.TrimSpace(reminder.RemindTime)
		if remindTime != current {
			continue
		}
		key := slotKey(reminder.ID, remindTime, day)
		if _, seen := p.fired[key]; seen {
			continue
		}
		p.fired[key] = now
		due = append(due, reminder)
	}
	p.mu.Unlock()

	for _, reminder := range due {
		n := reminderNotification(reminder, now)
		p.work.Do(func() { p.deliver(ctx, n) })
	}
	return len(due)
}

// prune drops slots older than the retention window. Callers hold p.mu.
func (p *ReminderPoller) prune(now time.Time) {
	for key, firedAt := range p.fired {
		if now.Sub(firedAt) > p.opts.Retention {
			delete(p.fired, key)
		}
	}
}

// deliver outlives Stop: the slot is already marked fired, so a delivery
// cut short by cancellation would be lost for the day.
func (p *ReminderPoller) deliver(ctx context.Context, n notify.Notification) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.FetchTimeout)
	defer cancel()
	if err := p.opts.Notifier.Notify(ctx, n); err != nil {
		p.logger.Warn("deliver reminder notification failed", "tag", n.Tag, "error", err)
		p.opts.Metrics.Notification("failed")
		return
	}
	p.opts.Metrics.Notification("delivered")
}

// Snapshot returns a copy of the reminders currently being watched.
func (p *ReminderPoller) Snapshot() []clients.Reminder {
	snap := p.snapshot.Load()
	if snap == nil {
		return nil
	}
	return append([]clients.Reminder(nil), snap.Items...)
}

// ClearNotified forgets which slots already fired.
func (p *ReminderPoller) ClearNotified() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fired = make(map[string]time.Time)
}

// NotifiedCount is the number of remembered slots.
func (p *ReminderPoller) NotifiedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.fired)
}

// TestNotification sends a sample notification straight to the notifier.
func (p *ReminderPoller) TestNotification(ctx context.Context) error {
	if p.opts.Notifier == nil {
		return errors.New("no notifier configured")
	}
	return p.opts.Notifier.Notify(ctx, notify.Notification{
		ID:        uuid.New(),
		Title:     "Test notification",
		Body:      "Medication reminder notifications are working.",
		Tag:       "reminder-test",
		Link:      ReminderLink,
		CreatedAt: p.opts.Now(),
	})
}

func slotKey(id int64, remindTime, day string) string {
	return fmt.Sprintf("%d-%s-%s", id, remindTime, day)
}

func reminderNotification(r clients.Reminder, now time.Time) notify.Notification {
	body := r.DrugName + " - " + r.Dosage
	if notes := strings.TrimSpace(r.Notes); notes != "" {
		body += "\n" + notes
	}
	return notify.Notification{
		ID:         uuid.New(),
		Title:      ReminderTitle,
		Body:       body,
		Tag:        fmt.Sprintf("reminder-%d-%s", r.ID, strings.TrimSpace(r.RemindTime)),
		ReminderID: r.ID,
		RemindTime: strings.TrimSpace(r.RemindTime),
		Link:       ReminderLink,
		CreatedAt:  now,
	}
}
