package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const apptColumns = `id, doctor_id, patient_name, age, gender, mobile, problem, relation,
	starts_at, ends_at, period, token, status, cancel_reason, created_at, updated_at`

// PgRepository is the Postgres-backed Repository. The partial unique
// index on (doctor_id, starts_at) WHERE status <> 'cancelled' backs the
// double-booking invariant even if the per-slot lock is bypassed, and
// the (doctor_id, day, token) index does the same for token uniqueness.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientName,
		&a.Age,
		&a.Gender,
		&a.Mobile,
		&a.Problem,
		&a.Relation,
		&a.StartsAt,
		&a.EndsAt,
		&a.Period,
		&a.Token,
		&a.Status,
		&a.CancelReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ActiveAppointmentForSlot(ctx context.Context, doctorID string, startsAt time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND starts_at = $2 AND status <> 'cancelled'
	`, doctorID, startsAt)
	return scanAppointment(row)
}

func (r *PgRepository) ListActiveByDoctorBetween(ctx context.Context, doctorID string, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE ($1 = '' OR doctor_id = $1)
		  AND status <> 'cancelled'
		  AND starts_at >= $2
		  AND starts_at < $3
		ORDER BY starts_at ASC
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) TokensForDoctorDay(ctx context.Context, doctorID string, day time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT token
		FROM appointments
		WHERE doctor_id = $1 AND day = $2
	`, doctorID, DayOf(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *PgRepository) CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	id := appt.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(id, doctor_id, patient_name, age, gender, mobile, problem, relation,
			 starts_at, ends_at, day, period, token, status, cancel_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 'pending', '', now(), now())
		RETURNING `+apptColumns+`
	`, id, appt.DoctorID, appt.PatientName, appt.Age, appt.Gender, appt.Mobile,
		appt.Problem, appt.Relation, appt.StartsAt, appt.EndsAt, DayOf(appt.StartsAt),
		appt.Period, appt.Token)

	created, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == "appointments_day_token_uq" {
				return nil, ErrTokenTaken
			}
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+apptColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) CancelAppointment(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    cancel_reason = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+apptColumns+`
	`, id, reason)

	return scanAppointment(row)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY starts_at ASC
	`, doctorID)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes LIKE wildcards so a search needle matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *PgRepository) ListByPatientName(ctx context.Context, substr string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE patient_name ILIKE '%' || $1 || '%' ESCAPE '\'
	`, escapeLike(substr))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListByMobile(ctx context.Context, mobile string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE mobile = $1
		ORDER BY starts_at ASC
	`, mobile)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointments(ctx context.Context) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		ORDER BY starts_at ASC
	`)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// PgDirectory reads the doctors table. Doctor records are written only
// by the seed tool; the booking core treats them as external.
type PgDirectory struct {
	pool *pgxpool.Pool
}

func NewPgDirectory(pool *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{pool: pool}
}

const doctorColumns = `id, name, specialty, available_today, timing, description, email, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&d.AvailableToday,
		&d.Timing,
		&d.Description,
		&d.Email,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func (d *PgDirectory) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (d *PgDirectory) DoctorExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM doctors WHERE id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check doctor exists: %w", err)
	}
	return exists, nil
}

func (d *PgDirectory) IsAvailableToday(ctx context.Context, id string) (bool, error) {
	var available bool
	err := d.pool.QueryRow(ctx, `
		SELECT available_today FROM doctors WHERE id = $1
	`, id).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrDoctorNotFound
		}
		return false, err
	}
	return available, nil
}

func (d *PgDirectory) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		doc, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *doc)
	}
	return result, rows.Err()
}
