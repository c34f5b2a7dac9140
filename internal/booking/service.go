package booking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	redisclient "github.com/carebook/appointment-booking/internal/redis"
)

const (
	tokenMin      = 1000
	tokenMax      = 9999
	tokenAttempts = 25
)

// ValidationError reports the first intake field that failed
// validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var mobileRe = regexp.MustCompile(`^\d{10}$`)

// ValidateIntake checks the intake form and returns a *ValidationError
// naming the first failing field. Valid intake never reaches the store
// in an invalid shape.
func ValidateIntake(in Intake) error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if utf8.RuneCountInString(in.Name) > 50 {
		return &ValidationError{Field: "name", Reason: "must be at most 50 characters"}
	}
	if in.Age < 0 || in.Age > 120 {
		return &ValidationError{Field: "age", Reason: "must be between 0 and 120"}
	}
	switch in.Gender {
	case GenderMale, GenderFemale, GenderOther:
	default:
		return &ValidationError{Field: "gender", Reason: "must be Male, Female or Other"}
	}
	if utf8.RuneCountInString(in.Problem) > 200 {
		return &ValidationError{Field: "problem", Reason: "must be at most 200 characters"}
	}
	if utf8.RuneCountInString(in.Relation) > 30 {
		return &ValidationError{Field: "relation", Reason: "must be at most 30 characters"}
	}
	if !mobileRe.MatchString(in.Mobile) {
		return &ValidationError{Field: "mobile", Reason: "must be exactly 10 digits"}
	}
	return nil
}

// TokenSource yields candidate queue tokens in [1000, 9999].
type TokenSource func() int

func randomTokenSource() int {
	return tokenMin + rand.Intn(tokenMax-tokenMin+1)
}

// Service orchestrates slot selection and patient intake into committed
// appointments. Slot check-and-create runs inside a per-slot lock so two
// concurrent bookings of the same slot cannot both commit.
type Service struct {
	repo      Repository
	directory Directory
	locker    redisclient.Locker
	clock     Clock
	tokenFn   TokenSource
}

type ServiceOption func(*Service)

// WithClock pins the service's time source.
func WithClock(c Clock) ServiceOption {
	return func(s *Service) { s.clock = c }
}

// WithTokenSource overrides the random token generator.
func WithTokenSource(fn TokenSource) ServiceOption {
	return func(s *Service) { s.tokenFn = fn }
}

func NewService(repo Repository, directory Directory, locker redisclient.Locker, opts ...ServiceOption) *Service {
	s := &Service{
		repo:      repo,
		directory: directory,
		locker:    locker,
		clock:     SystemClock{},
		tokenFn:   randomTokenSource,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book validates the intake, reserves the slot and commits a pending
// appointment with a fresh queue token.
func (s *Service) Book(ctx context.Context, doctorID string, intake Intake, startsAt time.Time) (*Appointment, error) {
	if err := ValidateIntake(intake); err != nil {
		return nil, err
	}

	exists, err := s.directory.DoctorExists(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("look up doctor: %w", err)
	}
	if !exists {
		return nil, ErrDoctorNotFound
	}

	slot, ok := SlotAt(doctorID, startsAt)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not start a slot", ErrInvalidArgument, startsAt.Format("15:04"))
	}

	var created *Appointment

	lockKey := fmt.Sprintf("%s:%d", doctorID, slot.StartsAt.Unix())
	err = s.locker.WithSlotLock(ctx, lockKey, func(lockCtx context.Context) error {
		// Re-check inside the critical section so a concurrent booking
		// that won the race is seen before we commit.
		existing, err := s.repo.ActiveAppointmentForSlot(lockCtx, doctorID, slot.StartsAt)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check slot occupancy: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		// The slot lock does not cover other slots of the same doctor
		// and day, so a parallel booking can issue the same token
		// between our read and the insert. The store rejects that with
		// ErrTokenTaken and we redraw against the refreshed set.
		for attempt := 0; attempt < tokenAttempts; attempt++ {
			token, err := s.freshToken(lockCtx, doctorID, slot.StartsAt)
			if err != nil {
				return err
			}

			appt := &Appointment{
				ID:          uuid.New(),
				DoctorID:    doctorID,
				PatientName: intake.Name,
				Age:         intake.Age,
				Gender:      intake.Gender,
				Mobile:      intake.Mobile,
				Problem:     intake.Problem,
				Relation:    intake.Relation,
				StartsAt:    slot.StartsAt,
				EndsAt:      slot.EndsAt,
				Period:      slot.Period,
				Token:       token,
				Status:      StatusPending,
			}

			created, err = s.repo.CreateAppointment(lockCtx, appt)
			if err != nil {
				if errors.Is(err, ErrTokenTaken) {
					continue
				}
				return fmt.Errorf("create appointment: %w", err)
			}
			return nil
		}
		return ErrTokenExhausted
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return created, nil
}

// freshToken draws random 4-digit tokens until one is unused for the
// doctor and day. The daily slot cap makes exhaustion practically
// unreachable, but the retry is bounded all the same.
func (s *Service) freshToken(ctx context.Context, doctorID string, day time.Time) (string, error) {
	issued, err := s.repo.TokensForDoctorDay(ctx, doctorID, day)
	if err != nil {
		return "", fmt.Errorf("list issued tokens: %w", err)
	}

	used := make(map[string]struct{}, len(issued))
	for _, t := range issued {
		used[t] = struct{}{}
	}

	for i := 0; i < tokenAttempts; i++ {
		candidate := strconv.Itoa(s.tokenFn())
		if _, taken := used[candidate]; !taken {
			return candidate, nil
		}
	}
	return "", ErrTokenExhausted
}

// Confirm moves a pending appointment to confirmed. Confirming an
// already confirmed appointment is a no-op; a cancelled one is refused.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch appt.Status {
	case StatusConfirmed:
		return appt, nil
	case StatusCancelled:
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, StatusPending, StatusConfirmed)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race with another transition; report the current state.
			current, getErr := s.repo.GetAppointmentByID(ctx, id)
			if getErr == nil && current.Status == StatusConfirmed {
				return current, nil
			}
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("confirm appointment: %w", err)
	}
	return updated, nil
}

// Cancel marks the appointment cancelled with the given reason. Works
// from pending and confirmed; re-cancelling overwrites the reason,
// last write wins.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: cancel reason is required", ErrInvalidArgument)
	}

	updated, err := s.repo.CancelAppointment(ctx, id, reason)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}
	return updated, nil
}

// GetAppointment loads a single appointment.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}
