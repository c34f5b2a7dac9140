package notify_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/carebook/appointment-booking/internal/booking"
	"github.com/carebook/appointment-booking/internal/notify"
	redisclient "github.com/carebook/appointment-booking/internal/redis"
)

type fakeClock struct {
	t time.Time
}

func (c fakeClock) Now() time.Time { return c.t }

type recordingNotifier struct {
	mu   sync.Mutex
	seen []string
	fail bool
}

func (n *recordingNotifier) NotifyUpcoming(_ context.Context, appt booking.Appointment, _ *booking.Doctor) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return context.DeadlineExceeded
	}
	n.seen = append(n.seen, appt.ID.String())
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.seen)
}

func setupReminder(t *testing.T, now time.Time, notifier notify.Notifier) (*notify.Reminder, *booking.Service) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := fakeClock{t: now}
	repo := booking.NewMemoryRepository(clock)
	directory := booking.NewMemoryDirectory(booking.Doctor{ID: "d1", Name: "Dr. Rao"})
	svc := booking.NewService(repo, directory, redisclient.NewLocalLocker(), booking.WithClock(clock))

	return notify.NewReminder(repo, directory, rdb, notifier, 30*time.Minute, clock), svc
}

func TestReminderDispatchesWithinWindow(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 15, 0, 0, time.Local)
	rec := &recordingNotifier{}
	reminder, svc := setupReminder(t, now, rec)
	ctx := context.Background()

	intake := booking.Intake{Name: "Asha", Age: 30, Gender: booking.GenderFemale, Mobile: "9876543210"}

	// Inside the window.
	_, err := svc.Book(ctx, "d1", intake, time.Date(2024, 1, 10, 9, 30, 0, 0, time.Local))
	require.NoError(t, err)

	// Outside the window.
	far := intake
	far.Mobile = "9123456780"
	_, err = svc.Book(ctx, "d1", far, time.Date(2024, 1, 10, 16, 0, 0, 0, time.Local))
	require.NoError(t, err)

	require.NoError(t, reminder.RunOnce(ctx))
	require.Equal(t, 1, rec.count())
}

func TestReminderDedupesAcrossRuns(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 15, 0, 0, time.Local)
	rec := &recordingNotifier{}
	reminder, svc := setupReminder(t, now, rec)
	ctx := context.Background()

	intake := booking.Intake{Name: "Asha", Age: 30, Gender: booking.GenderFemale, Mobile: "9876543210"}
	_, err := svc.Book(ctx, "d1", intake, time.Date(2024, 1, 10, 9, 30, 0, 0, time.Local))
	require.NoError(t, err)

	require.NoError(t, reminder.RunOnce(ctx))
	require.NoError(t, reminder.RunOnce(ctx))
	require.Equal(t, 1, rec.count())
}

func TestReminderSkipsCancelled(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 15, 0, 0, time.Local)
	rec := &recordingNotifier{}
	reminder, svc := setupReminder(t, now, rec)
	ctx := context.Background()

	intake := booking.Intake{Name: "Asha", Age: 30, Gender: booking.GenderFemale, Mobile: "9876543210"}
	appt, err := svc.Book(ctx, "d1", intake, time.Date(2024, 1, 10, 9, 30, 0, 0, time.Local))
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, appt.ID, "not coming")
	require.NoError(t, err)

	require.NoError(t, reminder.RunOnce(ctx))
	require.Equal(t, 0, rec.count())
}

func TestReminderRetriesAfterNotifierFailure(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 15, 0, 0, time.Local)
	rec := &recordingNotifier{fail: true}
	reminder, svc := setupReminder(t, now, rec)
	ctx := context.Background()

	intake := booking.Intake{Name: "Asha", Age: 30, Gender: booking.GenderFemale, Mobile: "9876543210"}
	_, err := svc.Book(ctx, "d1", intake, time.Date(2024, 1, 10, 9, 30, 0, 0, time.Local))
	require.NoError(t, err)

	// First run fails to dispatch; the dedupe key is released.
	require.NoError(t, reminder.RunOnce(ctx))
	require.Equal(t, 0, rec.count())

	rec.mu.Lock()
	rec.fail = false
	rec.mu.Unlock()

	require.NoError(t, reminder.RunOnce(ctx))
	require.Equal(t, 1, rec.count())
}
