package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotTaken           = errors.New("slot already has an active appointment")
	ErrSlotBeingBooked     = errors.New("slot is currently being booked, please retry")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidRange        = errors.New("day range must be positive")
	ErrTokenExhausted      = errors.New("no free token for doctor and day")
	ErrTokenTaken          = errors.New("token already issued for doctor and day")
)

// Repository contains all appointment persistence needed by the service
// and the query facade. Implementations must serialize mutations so that
// the slot occupancy check inside CreateAppointment is atomic.
type Repository interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ActiveAppointmentForSlot returns the non-cancelled appointment
	// occupying (doctorID, startsAt), or ErrAppointmentNotFound.
	ActiveAppointmentForSlot(ctx context.Context, doctorID string, startsAt time.Time) (*Appointment, error)

	// ListActiveByDoctorBetween returns non-cancelled appointments with
	// startsAt in [from, to), any doctor when doctorID is empty.
	ListActiveByDoctorBetween(ctx context.Context, doctorID string, from, to time.Time) ([]Appointment, error)

	// TokensForDoctorDay returns the tokens already issued for the
	// doctor on the given calendar day, cancelled appointments included.
	TokensForDoctorDay(ctx context.Context, doctorID string, day time.Time) ([]string, error)

	// CreateAppointment persists appt, re-checking slot occupancy and
	// token uniqueness inside its own serialized section: ErrSlotTaken
	// if the slot is already held, ErrTokenTaken if appt.Token is
	// already issued for the doctor on that day. The caller redraws the
	// token on ErrTokenTaken.
	CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error)

	// UpdateAppointmentStatus moves id from one status to another,
	// compare-and-set style. ErrAppointmentNotFound when no appointment
	// currently has status from.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// CancelAppointment sets status to cancelled and records reason,
	// overwriting any earlier reason.
	CancelAppointment(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error)

	ListByDoctor(ctx context.Context, doctorID string) ([]Appointment, error)
	ListByPatientName(ctx context.Context, substr string) ([]Appointment, error)
	ListByMobile(ctx context.Context, mobile string) ([]Appointment, error)
	ListAppointments(ctx context.Context) ([]Appointment, error)
}

// Directory is the external doctor directory. The booking core never
// mutates doctor records.
type Directory interface {
	GetDoctor(ctx context.Context, id string) (*Doctor, error)
	DoctorExists(ctx context.Context, id string) (bool, error)
	IsAvailableToday(ctx context.Context, id string) (bool, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
}
