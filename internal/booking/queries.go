package booking

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Queries is the read side consumed by presentation layers. It never
// mutates the store.
type Queries struct {
	repo Repository
}

func NewQueries(repo Repository) *Queries {
	return &Queries{repo: repo}
}

// UpcomingFor lists non-cancelled appointments for the doctor with a
// start time at or after now, ascending by date.
func (q *Queries) UpcomingFor(ctx context.Context, doctorID string, now time.Time) ([]Appointment, error) {
	appts, err := q.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list by doctor: %w", err)
	}

	out := appts[:0]
	for _, appt := range appts {
		if appt.Active() && !appt.StartsAt.Before(now) {
			out = append(out, appt)
		}
	}
	return out, nil
}

// NextFor returns the doctor's next upcoming appointment, or nil when
// the schedule ahead is empty.
func (q *Queries) NextFor(ctx context.Context, doctorID string, now time.Time) (*Appointment, error) {
	upcoming, err := q.UpcomingFor(ctx, doctorID, now)
	if err != nil {
		return nil, err
	}
	if len(upcoming) == 0 {
		return nil, nil
	}
	next := upcoming[0]
	return &next, nil
}

// HistoryFor lists every appointment booked under the mobile number,
// all statuses, most recent first.
func (q *Queries) HistoryFor(ctx context.Context, mobile string) ([]Appointment, error) {
	appts, err := q.repo.ListByMobile(ctx, mobile)
	if err != nil {
		return nil, fmt.Errorf("list by mobile: %w", err)
	}
	sort.Slice(appts, func(i, j int) bool {
		return appts[j].StartsAt.Before(appts[i].StartsAt)
	})
	return appts, nil
}

// ForDoctor lists the doctor's appointments ascending by date.
func (q *Queries) ForDoctor(ctx context.Context, doctorID string) ([]Appointment, error) {
	return q.repo.ListByDoctor(ctx, doctorID)
}

// SearchByPatientName filters the full set by case-insensitive
// substring match on the patient name.
func (q *Queries) SearchByPatientName(ctx context.Context, substr string) ([]Appointment, error) {
	return q.repo.ListByPatientName(ctx, substr)
}

// All lists every appointment, ascending by date.
func (q *Queries) All(ctx context.Context) ([]Appointment, error) {
	return q.repo.ListAppointments(ctx)
}
