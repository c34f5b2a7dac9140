package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type Period string

const (
	PeriodMorning Period = "morning"
	PeriodEvening Period = "evening"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Doctor is owned by the directory; the booking core only reads it.
type Doctor struct {
	ID             string
	Name           string
	Specialty      string
	AvailableToday bool
	Timing         string
	Description    string
	Email          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Slot is a bookable window for one doctor. Slots are computed from the
// daily template, never persisted.
type Slot struct {
	DoctorID string
	StartsAt time.Time
	EndsAt   time.Time
	Period   Period
}

// Day returns the calendar day the slot belongs to, midnight in the
// slot's location.
func (s Slot) Day() time.Time {
	return DayOf(s.StartsAt)
}

// Intake is the patient-supplied form data collected before booking.
// It is validated by the service and folded into an Appointment; it is
// never stored on its own.
type Intake struct {
	Name     string
	Age      int
	Gender   Gender
	Problem  string
	Relation string
	Mobile   string
}

type Appointment struct {
	ID           uuid.UUID
	DoctorID     string
	PatientName  string
	Age          int
	Gender       Gender
	Mobile       string
	Problem      string
	Relation     string
	StartsAt     time.Time
	EndsAt       time.Time
	Period       Period
	Token        string
	Status       Status
	CancelReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the appointment still occupies its slot.
func (a *Appointment) Active() bool {
	return a.Status != StatusCancelled
}

// DayOf truncates t to midnight in t's location. All same-day
// comparisons (slot occupancy, token uniqueness) go through this so the
// deployment runs in one canonical timezone.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Clock supplies the current time. Injected so services and tests can
// pin "now".
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
