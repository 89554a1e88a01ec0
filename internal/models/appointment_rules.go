package models

import (
	"strings"
	"time"
)

const fieldRequired = "This field is required."

// MsgBadDateTime is the field message for unparseable timestamps.
const MsgBadDateTime = "Datetime has wrong format. Use one of these formats instead: YYYY-MM-DDThh:mm[:ss][+HH:MM|-HH:MM|Z]."

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseDateTime reads an ISO 8601 timestamp. Values without an offset are UTC.
func ParseDateTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var err error
	for _, layout := range dateTimeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

var validStatuses = map[AppointmentStatus]bool{
	StatusScheduled:  true,
	StatusConfirmed:  true,
	StatusCheckedIn:  true,
	StatusCheckedOut: true,
	StatusCancelled:  true,
	StatusNoShow:     true,
}

// Validate checks the shape of an appointment independently of the database.
// Staff-created and self-service appointments go through the same rules.
func (a *Appointment) Validate() FieldErrors {
	errs := FieldErrors{}
	required := map[string]string{
		"patient":   a.PatientID,
		"doctor":    a.DoctorID,
		"clinic":    a.ClinicID,
		"category":  a.CategoryID,
		"procedure": a.ProcedureID,
	}
	for field, value := range required {
		if value == "" {
			errs.Add(field, fieldRequired)
		}
	}

	if a.ScheduledFrom.IsZero() {
		errs.Add("scheduled_from", fieldRequired)
	}
	if a.ScheduledTo.IsZero() {
		errs.Add("scheduled_to", fieldRequired)
	}
	if !a.ScheduledFrom.IsZero() && !a.ScheduledTo.IsZero() && !a.ScheduledFrom.Before(a.ScheduledTo) {
		errs.Add("scheduled_to", "Must be later than scheduled_from.")
	}

	if a.AppointmentStatus == "" {
		a.AppointmentStatus = StatusScheduled
	} else if !validStatuses[a.AppointmentStatus] {
		errs.Add("appointment_status", "\""+string(a.AppointmentStatus)+"\" is not a valid choice.")
	}
	return errs
}
