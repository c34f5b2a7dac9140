package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carebook/appointment-booking/internal/booking"
)

// Reminder scans for appointments starting inside the window and
// dispatches one reminder each. Dedupe is a redis SETNX per
// appointment, so multiple worker instances do not double-send.
type Reminder struct {
	repo      booking.Repository
	directory booking.Directory
	rdb       *redis.Client
	notifier  Notifier
	window    time.Duration
	clock     booking.Clock
}

func NewReminder(repo booking.Repository, directory booking.Directory, rdb *redis.Client, notifier Notifier, window time.Duration, clock booking.Clock) *Reminder {
	if clock == nil {
		clock = booking.SystemClock{}
	}
	return &Reminder{
		repo:      repo,
		directory: directory,
		rdb:       rdb,
		notifier:  notifier,
		window:    window,
		clock:     clock,
	}
}

// RunOnce dispatches reminders for appointments starting within the
// window. Notifier failures are logged and the dedupe key is dropped so
// the next run retries.
func (r *Reminder) RunOnce(ctx context.Context) error {
	now := r.clock.Now()

	due, err := r.repo.ListActiveByDoctorBetween(ctx, "", now, now.Add(r.window))
	if err != nil {
		return fmt.Errorf("list due appointments: %w", err)
	}

	for _, appt := range due {
		key := "reminder:appt:" + appt.ID.String()

		ok, err := r.rdb.SetNX(ctx, key, "1", 2*r.window).Result()
		if err != nil {
			log.Printf("reminder dedupe error for %s: %v", appt.ID, err)
			continue
		}
		if !ok {
			continue
		}

		doctor, err := r.directory.GetDoctor(ctx, appt.DoctorID)
		if err != nil && !errors.Is(err, booking.ErrDoctorNotFound) {
			log.Printf("load doctor %s: %v", appt.DoctorID, err)
		}

		if err := r.notifier.NotifyUpcoming(ctx, appt, doctor); err != nil {
			log.Printf("reminder dispatch failed for %s: %v", appt.ID, err)
			_ = r.rdb.Del(ctx, key).Err()
		}
	}

	return nil
}
