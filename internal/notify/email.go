package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/carebook/appointment-booking/internal/booking"
)

// EmailNotifier sends reminder emails to the clinic inbox via SendGrid.
type EmailNotifier struct {
	client *sendgrid.Client
	from   string
	to     string
}

type EmailConfig struct {
	APIKey string
	From   string
	To     string
}

func NewEmailNotifier(cfg EmailConfig) (*EmailNotifier, error) {
	if cfg.APIKey == "" || cfg.To == "" {
		return nil, fmt.Errorf("sendgrid api key and recipient are required")
	}
	return &EmailNotifier{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   cfg.From,
		to:     cfg.To,
	}, nil
}

func (n *EmailNotifier) NotifyUpcoming(ctx context.Context, appt booking.Appointment, doctor *booking.Doctor) error {
	doctorName := appt.DoctorID
	if doctor != nil {
		doctorName = doctor.Name
	}

	subject := fmt.Sprintf("Upcoming appointment %s at %s", appt.Token, appt.StartsAt.Format("15:04"))
	body := fmt.Sprintf(
		"Patient %s (token %s) has an appointment with %s at %s.\nMobile: %s",
		appt.PatientName, appt.Token, doctorName,
		appt.StartsAt.Format("Mon 2 Jan 15:04"), appt.Mobile,
	)

	from := mail.NewEmail("Carebook", n.from)
	to := mail.NewEmail("", n.to)
	message := mail.NewSingleEmail(from, subject, to, body, body)

	resp, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d", resp.StatusCode)
	}
	return nil
}
