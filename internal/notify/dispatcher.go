// Package notify sends appointment emails. Dispatch never blocks the
// request and its failures are only logged.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"clinic-app-server/internal/metrics"
	"clinic-app-server/internal/models"
)

const sendTimeout = 30 * time.Second

// Kinds of appointment email.
const (
	KindBooked   = "booked"
	KindFollowup = "followup"
)

// PatientLookup loads the recipient of an appointment email.
type PatientLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Dispatcher sends appointment emails in the background.
type Dispatcher struct {
	sender   EmailSender
	patients PatientLookup
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	wg       sync.WaitGroup
}

func NewDispatcher(sender EmailSender, patients PatientLookup, m *metrics.Metrics, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:   sender,
		patients: patients,
		metrics:  m,
		logger:   logger.With().Str("component", "notify").Logger(),
	}
}

// AppointmentBooked confirms a new appointment to its patient.
func (d *Dispatcher) AppointmentBooked(appt models.Appointment) {
	d.dispatch(KindBooked, appt)
}

// AppointmentFollowup sends the follow-up email for a scheduled appointment.
func (d *Dispatcher) AppointmentFollowup(appt models.Appointment) {
	d.dispatch(KindFollowup, appt)
}

// Wait blocks until every dispatched email has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(kind string, appt models.Appointment) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		err := d.send(ctx, kind, appt)
		d.metrics.ObserveNotification(kind, err)
		if err != nil {
			d.logger.Error().Err(err).Str("kind", kind).Str("appointment_id", appt.ID).Msg("appointment email failed")
		}
	}()
}

func (d *Dispatcher) send(ctx context.Context, kind string, appt models.Appointment) error {
	patient, err := d.patients.FindByID(ctx, appt.PatientID)
	if err != nil {
		return fmt.Errorf("load patient %s: %w", appt.PatientID, err)
	}
	if patient.Email == "" {
		return fmt.Errorf("patient %s has no email", patient.ID)
	}
	return d.sender.Send(ctx, compose(kind, patient, appt))
}

func compose(kind string, patient *models.User, appt models.Appointment) EmailMessage {
	when := appt.ScheduledFrom.Format("Monday, 2 January 2006 at 15:04 MST")
	msg := EmailMessage{To: patient.Email, ToName: patient.FullName()}
	switch kind {
	case KindFollowup:
		msg.Subject = "Your follow-up appointment"
		msg.Body = fmt.Sprintf("Hello %s,\n\nA follow-up appointment has been scheduled for you on %s.\n\nSee you soon.", patient.FirstName, when)
	default:
		msg.Subject = "Your appointment is booked"
		msg.Body = fmt.Sprintf("Hello %s,\n\nYour appointment on %s is confirmed.\n\nSee you soon.", patient.FirstName, when)
	}
	return msg
}
