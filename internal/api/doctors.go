package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carebook/appointment-booking/internal/booking"
)

func listDoctorsHandler(directory booking.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := directory.ListDoctors(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]DoctorResponse, 0, len(doctors))
		for i := range doctors {
			out = append(out, toDoctorResponse(&doctors[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getDoctorHandler(directory booking.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctor, err := directory.GetDoctor(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, booking.ErrDoctorNotFound) {
				writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, toDoctorResponse(doctor))
	}
}

func doctorSlotsHandler(calendar *booking.Calendar, directory booking.Directory, clock booking.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID := chi.URLParam(r, "id")

		exists, err := directory.DoctorExists(r.Context(), doctorID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if !exists {
			writeError(w, http.StatusNotFound, "doctor_not_found", "no such doctor")
			return
		}

		start := clock.Now()
		if raw := r.URL.Query().Get("date"); raw != "" {
			start, err = time.ParseInLocation("2006-01-02", raw, start.Location())
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
		}

		days := 6 // the booking screen shows a six-day strip
		if raw := r.URL.Query().Get("days"); raw != "" {
			days, err = strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_days", "days must be an integer")
				return
			}
		}

		slots, err := calendar.AvailableSlots(r.Context(), doctorID, start, days)
		if err != nil {
			if errors.Is(err, booking.ErrInvalidRange) {
				writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			out = append(out, SlotResponse{
				DoctorID: s.DoctorID,
				StartsAt: s.StartsAt,
				EndsAt:   s.EndsAt,
				Period:   string(s.Period),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func doctorAppointmentsHandler(queries *booking.Queries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID := chi.URLParam(r, "id")

		appts, err := queries.ForDoctor(r.Context(), doctorID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		// Optional dashboard search box filter.
		if needle := r.URL.Query().Get("patientName"); needle != "" {
			filtered := appts[:0]
			for _, appt := range appts {
				if containsFold(appt.PatientName, needle) {
					filtered = append(filtered, appt)
				}
			}
			appts = filtered
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func doctorNextAppointmentHandler(queries *booking.Queries, clock booking.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next, err := queries.NextFor(r.Context(), chi.URLParam(r, "id"), clock.Now())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if next == nil {
			writeError(w, http.StatusNotFound, "no_upcoming_appointment", "the schedule ahead is empty")
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(next))
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
