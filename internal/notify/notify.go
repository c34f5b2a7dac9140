package notify

import (
	"context"
	"log"

	"github.com/carebook/appointment-booking/internal/booking"
)

// Notifier dispatches appointment reminders. Calls are fire-and-forget:
// failures are logged by the caller and never propagate into the
// booking path.
type Notifier interface {
	NotifyUpcoming(ctx context.Context, appt booking.Appointment, doctor *booking.Doctor) error
}

// LogNotifier writes reminders to the process log. The default when no
// email channel is configured.
type LogNotifier struct{}

func (LogNotifier) NotifyUpcoming(_ context.Context, appt booking.Appointment, doctor *booking.Doctor) error {
	doctorName := appt.DoctorID
	if doctor != nil {
		doctorName = doctor.Name
	}
	log.Printf("reminder appointment=%s patient=%q doctor=%q token=%s starts_at=%s",
		appt.ID, appt.PatientName, doctorName, appt.Token, appt.StartsAt.Format("2006-01-02 15:04"))
	return nil
}
