package booking

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is the in-process Repository. A single mutex
// serializes mutations so the occupancy check inside CreateAppointment
// commits atomically; reads take the lock briefly and copy out.
type MemoryRepository struct {
	mu    sync.RWMutex
	appts map[uuid.UUID]*Appointment
	clock Clock
}

func NewMemoryRepository(clock Clock) *MemoryRepository {
	if clock == nil {
		clock = SystemClock{}
	}
	return &MemoryRepository{
		appts: make(map[uuid.UUID]*Appointment),
		clock: clock,
	}
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	appt, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *appt
	return &cp, nil
}

func (r *MemoryRepository) ActiveAppointmentForSlot(_ context.Context, doctorID string, startsAt time.Time) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if appt := r.activeForSlotLocked(doctorID, startsAt); appt != nil {
		cp := *appt
		return &cp, nil
	}
	return nil, ErrAppointmentNotFound
}

func (r *MemoryRepository) activeForSlotLocked(doctorID string, startsAt time.Time) *Appointment {
	for _, appt := range r.appts {
		if appt.DoctorID == doctorID && appt.Active() && appt.StartsAt.Equal(startsAt) {
			return appt
		}
	}
	return nil
}

func (r *MemoryRepository) ListActiveByDoctorBetween(_ context.Context, doctorID string, from, to time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Appointment
	for _, appt := range r.appts {
		if doctorID != "" && appt.DoctorID != doctorID {
			continue
		}
		if !appt.Active() {
			continue
		}
		if appt.StartsAt.Before(from) || !appt.StartsAt.Before(to) {
			continue
		}
		out = append(out, *appt)
	}
	sortByStartAsc(out)
	return out, nil
}

func (r *MemoryRepository) TokensForDoctorDay(_ context.Context, doctorID string, day time.Time) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d := DayOf(day)
	var tokens []string
	for _, appt := range r.appts {
		if appt.DoctorID == doctorID && DayOf(appt.StartsAt).Equal(d) {
			tokens = append(tokens, appt.Token)
		}
	}
	return tokens, nil
}

func (r *MemoryRepository) tokenIssuedLocked(doctorID, token string, day time.Time) bool {
	d := DayOf(day)
	for _, appt := range r.appts {
		if appt.DoctorID == doctorID && appt.Token == token && DayOf(appt.StartsAt).Equal(d) {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, appt *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.activeForSlotLocked(appt.DoctorID, appt.StartsAt); existing != nil {
		return nil, ErrSlotTaken
	}
	// The slot lock only covers one slot; token uniqueness spans the
	// whole doctor/day, so it has to be re-checked here under the
	// store's own lock.
	if r.tokenIssuedLocked(appt.DoctorID, appt.Token, appt.StartsAt) {
		return nil, ErrTokenTaken
	}

	now := r.clock.Now()
	cp := *appt
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.appts[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appts[id]
	if !ok || appt.Status != from {
		return nil, ErrAppointmentNotFound
	}
	appt.Status = to
	appt.UpdatedAt = r.clock.Now()

	cp := *appt
	return &cp, nil
}

func (r *MemoryRepository) CancelAppointment(_ context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	appt.Status = StatusCancelled
	appt.CancelReason = reason
	appt.UpdatedAt = r.clock.Now()

	cp := *appt
	return &cp, nil
}

func (r *MemoryRepository) ListByDoctor(_ context.Context, doctorID string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Appointment
	for _, appt := range r.appts {
		if appt.DoctorID == doctorID {
			out = append(out, *appt)
		}
	}
	sortByStartAsc(out)
	return out, nil
}

func (r *MemoryRepository) ListByPatientName(_ context.Context, substr string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(substr)
	var out []Appointment
	for _, appt := range r.appts {
		if strings.Contains(strings.ToLower(appt.PatientName), needle) {
			out = append(out, *appt)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListByMobile(_ context.Context, mobile string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Appointment
	for _, appt := range r.appts {
		if appt.Mobile == mobile {
			out = append(out, *appt)
		}
	}
	sortByStartAsc(out)
	return out, nil
}

func (r *MemoryRepository) ListAppointments(_ context.Context) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Appointment, 0, len(r.appts))
	for _, appt := range r.appts {
		out = append(out, *appt)
	}
	sortByStartAsc(out)
	return out, nil
}

func sortByStartAsc(appts []Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		return appts[i].StartsAt.Before(appts[j].StartsAt)
	})
}

// MemoryDirectory is an in-process Directory, used by tests and the
// single-binary dev mode.
type MemoryDirectory struct {
	mu      sync.RWMutex
	doctors map[string]Doctor
}

func NewMemoryDirectory(doctors ...Doctor) *MemoryDirectory {
	d := &MemoryDirectory{doctors: make(map[string]Doctor, len(doctors))}
	for _, doc := range doctors {
		d.doctors[doc.ID] = doc
	}
	return d
}

func (d *MemoryDirectory) Put(doc Doctor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doctors[doc.ID] = doc
}

func (d *MemoryDirectory) GetDoctor(_ context.Context, id string) (*Doctor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	doc, ok := d.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &doc, nil
}

func (d *MemoryDirectory) DoctorExists(_ context.Context, id string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.doctors[id]
	return ok, nil
}

func (d *MemoryDirectory) IsAvailableToday(_ context.Context, id string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	doc, ok := d.doctors[id]
	if !ok {
		return false, ErrDoctorNotFound
	}
	return doc.AvailableToday, nil
}

func (d *MemoryDirectory) ListDoctors(_ context.Context) ([]Doctor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Doctor, 0, len(d.doctors))
	for _, doc := range d.doctors {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
