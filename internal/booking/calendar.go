package booking

import (
	"context"
	"fmt"
	"time"
)

// templateSlot is one entry of the fixed daily template.
type templateSlot struct {
	hour, minute int
	period       Period
}

// dailyTemplate mirrors the clinic's posted hours: eight 15-minute
// morning slots every half hour from 09:30 and four evening slots.
var dailyTemplate = []templateSlot{
	{9, 30, PeriodMorning},
	{10, 0, PeriodMorning},
	{10, 30, PeriodMorning},
	{11, 0, PeriodMorning},
	{11, 30, PeriodMorning},
	{12, 0, PeriodMorning},
	{12, 30, PeriodMorning},
	{13, 0, PeriodMorning},
	{15, 30, PeriodEvening},
	{16, 0, PeriodEvening},
	{17, 0, PeriodEvening},
	{18, 0, PeriodEvening},
}

const slotDuration = 15 * time.Minute

// SlotsPerDay is the size of the daily template.
const SlotsPerDay = 12

// SlotAt maps an arbitrary start time onto the daily template. ok is
// false when no template slot starts at that time.
func SlotAt(doctorID string, startsAt time.Time) (Slot, bool) {
	for _, ts := range dailyTemplate {
		if startsAt.Hour() == ts.hour && startsAt.Minute() == ts.minute &&
			startsAt.Second() == 0 && startsAt.Nanosecond() == 0 {
			return Slot{
				DoctorID: doctorID,
				StartsAt: startsAt,
				EndsAt:   startsAt.Add(slotDuration),
				Period:   ts.period,
			}, true
		}
	}
	return Slot{}, false
}

// Calendar computes open slots for a doctor over a date window. It is a
// pure read over the repository snapshot; nothing here mutates state.
type Calendar struct {
	repo Repository
}

func NewCalendar(repo Repository) *Calendar {
	return &Calendar{repo: repo}
}

// AvailableSlots generates the daily template for numDays consecutive
// days starting at startDate and filters out slots held by a
// non-cancelled appointment for the doctor.
func (c *Calendar) AvailableSlots(ctx context.Context, doctorID string, startDate time.Time, numDays int) ([]Slot, error) {
	if numDays <= 0 {
		return nil, fmt.Errorf("%w: numDays=%d", ErrInvalidRange, numDays)
	}

	from := DayOf(startDate)
	to := from.AddDate(0, 0, numDays)

	booked, err := c.repo.ListActiveByDoctorBetween(ctx, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list booked slots: %w", err)
	}

	// Keyed by instant so stored times with a different location still
	// match the generated template.
	taken := make(map[int64]struct{}, len(booked))
	for _, appt := range booked {
		taken[appt.StartsAt.Unix()] = struct{}{}
	}

	slots := make([]Slot, 0, numDays*SlotsPerDay)
	for day := 0; day < numDays; day++ {
		base := from.AddDate(0, 0, day)
		for _, ts := range dailyTemplate {
			start := time.Date(base.Year(), base.Month(), base.Day(), ts.hour, ts.minute, 0, 0, base.Location())
			if _, ok := taken[start.Unix()]; ok {
				continue
			}
			slots = append(slots, Slot{
				DoctorID: doctorID,
				StartsAt: start,
				EndsAt:   start.Add(slotDuration),
				Period:   ts.period,
			})
		}
	}

	return slots, nil
}
