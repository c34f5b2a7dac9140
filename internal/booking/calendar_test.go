package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/carebook/appointment-booking/internal/booking"
	redisclient "github.com/carebook/appointment-booking/internal/redis"
)

type fakeClock struct {
	t time.Time
}

func (c fakeClock) Now() time.Time { return c.t }

func newTestService(t *testing.T, now time.Time, opts ...booking.ServiceOption) (*booking.Service, *booking.MemoryRepository, *booking.MemoryDirectory) {
	t.Helper()

	repo := booking.NewMemoryRepository(fakeClock{t: now})
	directory := booking.NewMemoryDirectory(booking.Doctor{
		ID:             "d1",
		Name:           "Dr. Meera Kulkarni",
		Specialty:      "Cardiology",
		AvailableToday: true,
	})

	opts = append([]booking.ServiceOption{booking.WithClock(fakeClock{t: now})}, opts...)
	svc := booking.NewService(repo, directory, redisclient.NewLocalLocker(), opts...)
	return svc, repo, directory
}

func validIntake() booking.Intake {
	return booking.Intake{
		Name:   "Asha",
		Age:    30,
		Gender: booking.GenderFemale,
		Mobile: "9876543210",
	}
}

func TestAvailableSlotsFullTemplate(t *testing.T) {
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.Local)
	_, repo, _ := newTestService(t, now)
	cal := booking.NewCalendar(repo)

	for _, days := range []int{1, 3, 7} {
		slots, err := cal.AvailableSlots(context.Background(), "d1", now, days)
		require.NoError(t, err)
		require.Len(t, slots, booking.SlotsPerDay*days)

		seen := make(map[int64]bool)
		for _, s := range slots {
			require.False(t, seen[s.StartsAt.Unix()], "duplicate slot at %s", s.StartsAt)
			seen[s.StartsAt.Unix()] = true

			require.Equal(t, "d1", s.DoctorID)
			require.Equal(t, 15*time.Minute, s.EndsAt.Sub(s.StartsAt))

			_, onTemplate := booking.SlotAt("d1", s.StartsAt)
			require.True(t, onTemplate, "slot %s not on daily template", s.StartsAt)
		}
	}
}

func TestAvailableSlotsExcludesBooked(t *testing.T) {
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.Local)
	svc, repo, _ := newTestService(t, now)
	cal := booking.NewCalendar(repo)

	slotStart := time.Date(2024, 1, 10, 9, 30, 0, 0, time.Local)
	_, err := svc.Book(context.Background(), "d1", validIntake(), slotStart)
	require.NoError(t, err)

	slots, err := cal.AvailableSlots(context.Background(), "d1", now, 1)
	require.NoError(t, err)
	require.Len(t, slots, booking.SlotsPerDay-1)
	for _, s := range slots {
		require.False(t, s.StartsAt.Equal(slotStart), "booked slot still offered")
	}
}

func TestAvailableSlotsReturnsAfterCancel(t *testing.T) {
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.Local)
	svc, repo, _ := newTestService(t, now)
	cal := booking.NewCalendar(repo)

	slotStart := time.Date(2024, 1, 10, 10, 0, 0, 0, time.Local)
	appt, err := svc.Book(context.Background(), "d1", validIntake(), slotStart)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), appt.ID, "patient unavailable")
	require.NoError(t, err)

	slots, err := cal.AvailableSlots(context.Background(), "d1", now, 1)
	require.NoError(t, err)
	require.Len(t, slots, booking.SlotsPerDay)
}

func TestAvailableSlotsInvalidRange(t *testing.T) {
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.Local)
	_, repo, _ := newTestService(t, now)
	cal := booking.NewCalendar(repo)

	for _, days := range []int{0, -1} {
		_, err := cal.AvailableSlots(context.Background(), "d1", now, days)
		require.ErrorIs(t, err, booking.ErrInvalidRange)
	}
}

func TestSlotAt(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.Local)

	morning, ok := booking.SlotAt("d1", day.Add(9*time.Hour+30*time.Minute))
	require.True(t, ok)
	require.Equal(t, booking.PeriodMorning, morning.Period)

	evening, ok := booking.SlotAt("d1", day.Add(17*time.Hour))
	require.True(t, ok)
	require.Equal(t, booking.PeriodEvening, evening.Period)

	_, ok = booking.SlotAt("d1", day.Add(14*time.Hour))
	require.False(t, ok)

	_, ok = booking.SlotAt("d1", day.Add(9*time.Hour+31*time.Minute))
	require.False(t, ok)
}
