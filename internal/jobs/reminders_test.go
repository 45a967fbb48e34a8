package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shdrug/client/internal/bg"
	"shdrug/client/internal/clients"
	"shdrug/client/internal/notify"
	"shdrug/client/internal/session"
)

type fakeSource struct {
	mu    sync.Mutex
	snap  clients.TodayReminders
	err   error
	calls int
}

func (f *fakeSource) TodayReminders(context.Context) (*clients.TodayReminders, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	snap := f.snap
	snap.Items = append([]clients.Reminder(nil), f.snap.Items...)
	return &snap, nil
}

func (f *fakeSource) set(success bool, items ...clients.Reminder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = clients.TodayReminders{Success: success, Date: "2026-10-18", Items: items, Total: len(items)}
	f.err = nil
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func at(day, hour, minute, second int) time.Time {
	return time.Date(2026, time.October, day, hour, minute, second, 0, time.Local)
}

type pollerFixture struct {
	poller *ReminderPoller
	source *fakeSource
	store  *session.Store
	inbox  *notify.Inbox
	clock  *fakeClock
}

func newPollerFixture(t *testing.T, signedIn bool, mutate func(*ReminderPollerOptions)) *pollerFixture {
	t.Helper()
	f := &pollerFixture{
		source: &fakeSource{},
		store:  session.NewStore(session.NewMemoryStorage(), nil),
		inbox:  notify.NewInbox(0),
		clock:  &fakeClock{now: at(18, 7, 59, 0)},
	}
	if signedIn {
		require.NoError(t, f.store.SetAuth(context.Background(), "tok", session.User{ID: 5, Username: "pharmacy1", Role: session.RolePharmacy}))
	}
	opts := ReminderPollerOptions{
		Source:          f.source,
		Sessions:        f.store,
		Notifier:        f.inbox,
		CheckInterval:   time.Hour,
		RefreshInterval: time.Hour,
		Runner:          bg.Sync{},
		Now:             f.clock.Now,
	}
	if mutate != nil {
		mutate(&opts)
	}
	f.poller = NewReminderPoller(opts)
	t.Cleanup(f.poller.Stop)
	return f
}

func amoxicillin(remindTime string) clients.Reminder {
	return clients.Reminder{ID: 1, DrugName: "Amoxicillin", Dosage: "2 capsules", RemindTime: remindTime, Notes: "after meals"}
}

func TestCheckFiresOncePerSlotPerDay(t *testing.T) {
	f := newPollerFixture(t, true, nil)
	f.source.set(true, amoxicillin("08:00"))
	f.poller.Refresh(context.Background())
	ctx := context.Background()

	f.clock.Set(at(18, 8, 0, 0))
	assert.Equal(t, 1, f.poller.Check(ctx))
	f.clock.Set(at(18, 8, 0, 40))
	assert.Equal(t, 0, f.poller.Check(ctx))
	f.clock.Set(at(18, 8, 1, 0))
	assert.Equal(t, 0, f.poller.Check(ctx))
	f.clock.Set(at(19, 8, 0, 0))
	assert.Equal(t, 1, f.poller.Check(ctx))

	require.Equal(t, 2, f.inbox.Len())
	n := f.inbox.Recent(1)[0]
	assert.Equal(t, ReminderTitle, n.Title)
	assert.Equal(t, "Amoxicillin - 2 capsules\nafter meals", n.Body)
	assert.Equal(t, "reminder-1-08:00", n.Tag)
	assert.Equal(t, ReminderLink, n.Link)
	assert.Equal(t, int64(1), n.ReminderID)
}

func TestSameReminderAtSeveralTimes(t *testing.T) {
	f := newPollerFixture(t, true, nil)
	plain := amoxicillin("08:00")
	plain.Notes = ""
	evening := plain
	evening.RemindTime = "20:00"
	f.source.set(true, plain, evening)
	ctx := context.Background()
	f.poller.Refresh(ctx)

	f.clock.Set(at(18, 8, 0, 0))
	assert.Equal(t, 1, f.poller.Check(ctx))
	f.clock.Set(at(18, 20, 0, 0))
	assert.Equal(t, 1, f.poller.Check(ctx))
	assert.Equal(t, "Amoxicillin - 2 capsules", f.inbox.Recent(1)[0].Body)
	assert.Equal(t, 2, f.poller.NotifiedCount())
}

func TestRefetchReplacesSnapshot(t *testing.T) {
	f := newPollerFixture(t, true, nil)
	ctx := context.Background()
	removed := clients.Reminder{ID: 1, DrugName: "Aspirin", Dosage: "1 tablet", RemindTime: "08:00"}
	added := clients.Reminder{ID: 2, DrugName: "Metformin", Dosage: "500mg", RemindTime: "08:00"}

	f.source.set(true, removed)
	f.poller.Refresh(ctx)
	f.source.set(true, added)
	f.poller.Refresh(ctx)

	f.clock.Set(at(18, 8, 0, 0))
	assert.Equal(t, 1, f.poller.Check(ctx))
	recent := f.inbox.Recent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, "Metformin - 500mg", recent[0].Body)
	assert.Equal(t, []clients.Reminder{added}, f.poller.Snapshot())
}

func TestFailedOrRejectedFetchKeepsSnapshot(t *testing.T) {
	f := newPollerFixture(t, true, nil)
	ctx := context.Background()
	f.source.set(true, amoxicillin("08:00"))
	f.poller.Refresh(ctx)

	f.source.fail(errors.New("connection refused"))
	f.poller.Refresh(ctx)
	assert.Len(t, f.poller.Snapshot(), 1)

	f.source.set(false)
	f.poller.Refresh(ctx)
	assert.Len(t, f.poller.Snapshot(), 1)
}

func TestNoSessionSkipsFetch(t *testing.T) {
	f := newPollerFixture(t, false, nil)
	ctx := context.Background()
	f.source.set(true, amoxicillin("08:00"))

	f.poller.Refresh(ctx)
	assert.Equal(t, 0, f.source.Calls())
	assert.Nil(t, f.poller.Snapshot())
	f.clock.Set(at(18, 8, 0, 0))
	assert.Equal(t, 0, f.poller.Check(ctx))

	require.NoError(t, f.store.SetAuth(ctx, "tok", session.User{ID: 5, Username: "pharmacy1"}))
	f.poller.Refresh(ctx)
	assert.Equal(t, 1, f.source.Calls())
	assert.Equal(t, 1, f.poller.Check(ctx))

	require.NoError(t, f.store.ClearAuth(ctx))
	f.poller.Refresh(ctx)
	assert.Nil(t, f.poller.Snapshot())
}

func TestFiredSlotsAreBounded(t *testing.T) {
	f := newPollerFixture(t, true, func(o *ReminderPollerOptions) { o.Retention = 48 * time.Hour })
	ctx := context.Background()
	f.source.set(true, amoxicillin("08:00"))
	f.poller.Refresh(ctx)

	for day := 18; day <= 25; day++ {
		f.clock.Set(at(day, 8, 0, 0))
		assert.Equal(t, 1, f.poller.Check(ctx))
		assert.LessOrEqual(t, f.poller.NotifiedCount(), 3)
	}

	f.poller.ClearNotified()
	assert.Equal(t, 0, f.poller.NotifiedCount())
	assert.Equal(t, 1, f.poller.Check(ctx))
}

func TestPermissionDeniedLeavesPollerStopped(t *testing.T) {
	f := newPollerFixture(t, true, func(o *ReminderPollerOptions) {
		o.Notifier = notify.Static{Notifier: o.Notifier, Granted: false}
	})

	require.NoError(t, f.poller.Start(context.Background()))
	assert.Equal(t, PollerStopped, f.poller.State())
	assert.Equal(t, 0, f.source.Calls())
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	f := newPollerFixture(t, true, nil)
	f.source.set(true, amoxicillin("08:00"))
	f.clock.Set(at(18, 8, 0, 0))
	ctx := context.Background()

	require.NoError(t, f.poller.Start(ctx))
	assert.Equal(t, PollerRunning, f.poller.State())
	assert.Equal(t, 1, f.inbox.Len(), "start runs one immediate check")

	require.NoError(t, f.poller.Start(ctx))
	assert.Equal(t, 1, f.source.Calls())

	f.poller.Stop()
	f.poller.Stop()
	assert.Equal(t, PollerStopped, f.poller.State())

	require.NoError(t, f.poller.Start(ctx))
	assert.Equal(t, PollerRunning, f.poller.State())
	assert.Equal(t, 1, f.inbox.Len(), "restart keeps fired slots")
	f.poller.Stop()
}

func TestStartRequiresCollaborators(t *testing.T) {
	assert.Error(t, NewReminderPoller(ReminderPollerOptions{}).Start(context.Background()))
}

func TestSessionChangeTriggersRefetch(t *testing.T) {
	f := newPollerFixture(t, false, func(o *ReminderPollerOptions) {
		o.Runner = bg.Async{}
		o.Debounce = 10 * time.Millisecond
	})
	f.source.set(true, amoxicillin("08:00"))
	ctx := context.Background()

	require.NoError(t, f.poller.Start(ctx))
	assert.Equal(t, 0, f.source.Calls())

	require.NoError(t, f.store.SetAuth(ctx, "tok", session.User{ID: 5, Username: "pharmacy1"}))
	assert.Eventually(t, func() bool { return len(f.poller.Snapshot()) == 1 }, 2*time.Second, 5*time.Millisecond)

	f.poller.Stop()
	calls := f.source.Calls()
	require.NoError(t, f.store.ClearAuth(ctx))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, f.source.Calls(), "no fetch after Stop")
}

func TestTestNotification(t *testing.T) {
	f := newPollerFixture(t, false, nil)
	require.NoError(t, f.poller.TestNotification(context.Background()))
	assert.Equal(t, "reminder-test", f.inbox.Recent(1)[0].Tag)
}

type slowNotifier struct {
	mu     sync.Mutex
	delay  time.Duration
	errors []error
}

func (s *slowNotifier) Notify(ctx context.Context, _ notify.Notification) error {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, ctx.Err())
	return ctx.Err()
}

func (s *slowNotifier) results() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errors...)
}

func TestDeliveryInFlightSurvivesStop(t *testing.T) {
	notifier := &slowNotifier{delay: 30 * time.Millisecond}
	f := newPollerFixture(t, true, func(o *ReminderPollerOptions) {
		o.Runner = bg.Async{}
		o.Notifier = notifier
	})
	f.source.set(true, amoxicillin("08:00"))
	f.clock.Set(at(18, 8, 0, 0))

	require.NoError(t, f.poller.Start(context.Background()))
	f.poller.Stop()

	got := notifier.results()
	require.Len(t, got, 1, "Stop waits for the delivery")
	assert.NoError(t, got[0])
	assert.Equal(t, 1, f.poller.NotifiedCount())
}

func TestTickersDriveChecksAndRefetch(t *testing.T) {
	f := newPollerFixture(t, true, func(o *ReminderPollerOptions) {
		o.Runner = bg.Async{}
		o.CheckInterval = 10 * time.Millisecond
		o.RefreshInterval = 20 * time.Millisecond
	})
	f.source.set(true, amoxicillin("08:00"))

	require.NoError(t, f.poller.Start(context.Background()))
	require.Len(t, f.poller.Snapshot(), 1)
	assert.Equal(t, 0, f.inbox.Len(), "07:59 has nothing due")

	ibuprofen := clients.Reminder{ID: 2, DrugName: "Ibuprofen", Dosage: "1 tablet", RemindTime: "08:00"}
	f.source.set(true, amoxicillin("08:00"), ibuprofen)
	assert.Eventually(t, func() bool { return len(f.poller.Snapshot()) == 2 }, 2*time.Second, 5*time.Millisecond)

	f.clock.Set(at(18, 8, 0, 0))
	assert.Eventually(t, func() bool { return f.inbox.Len() == 2 }, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, f.inbox.Len(), "later ticks in the same minute raise nothing")
}
