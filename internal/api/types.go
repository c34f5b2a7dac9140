package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/carebook/appointment-booking/internal/booking"
)

type BookAppointmentRequest struct {
	DoctorID string `json:"doctor_id"`
	StartsAt string `json:"starts_at"` // RFC 3339
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
	Problem  string `json:"problem,omitempty"`
	Relation string `json:"relation,omitempty"`
	Mobile   string `json:"mobile"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

type AppointmentResponse struct {
	ID           uuid.UUID `json:"id"`
	DoctorID     string    `json:"doctor_id"`
	PatientName  string    `json:"patient_name"`
	Age          int       `json:"age"`
	Gender       string    `json:"gender"`
	Mobile       string    `json:"mobile"`
	Problem      string    `json:"problem,omitempty"`
	Relation     string    `json:"relation,omitempty"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	Period       string    `json:"period"`
	Token        string    `json:"token"`
	Status       string    `json:"status"`
	CancelReason string    `json:"cancel_reason,omitempty"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		DoctorID:     a.DoctorID,
		PatientName:  a.PatientName,
		Age:          a.Age,
		Gender:       string(a.Gender),
		Mobile:       a.Mobile,
		Problem:      a.Problem,
		Relation:     a.Relation,
		StartsAt:     a.StartsAt,
		EndsAt:       a.EndsAt,
		Period:       string(a.Period),
		Token:        a.Token,
		Status:       string(a.Status),
		CancelReason: a.CancelReason,
	}
}

func toAppointmentResponses(appts []booking.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, toAppointmentResponse(&appts[i]))
	}
	return out
}

type SlotResponse struct {
	DoctorID string    `json:"doctor_id"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Period   string    `json:"period"`
}

type DoctorResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Specialty      string `json:"specialty"`
	AvailableToday bool   `json:"available_today"`
	Timing         string `json:"timing,omitempty"`
	Description    string `json:"description,omitempty"`
}

func toDoctorResponse(d *booking.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:             d.ID,
		Name:           d.Name,
		Specialty:      d.Specialty,
		AvailableToday: d.AvailableToday,
		Timing:         d.Timing,
		Description:    d.Description,
	}
}

type OTPRequest struct {
	Mobile string `json:"mobile"`
}

type OTPVerifyRequest struct {
	Mobile string `json:"mobile"`
	Code   string `json:"code"`
}

type OTPRequestResponse struct {
	Status string `json:"status"`
	Code   string `json:"code,omitempty"` // dev env only
}

type OTPVerifyResponse struct {
	Token string `json:"token"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Field   string `json:"field,omitempty"`
}
