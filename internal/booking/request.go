package booking

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Request is the public booking payload.
type Request struct {
	Patient           *PatientDetails `json:"patient"`
	Doctor            string          `json:"doctor"`
	Clinic            string          `json:"clinic"`
	Category          string          `json:"category"`
	Procedure         string          `json:"procedure"`
	ScheduledFrom     string          `json:"scheduled_from"`
	ScheduledTo       string          `json:"scheduled_to"`
	AppointmentStatus string          `json:"appointment_status"`
	Notes             string          `json:"notes"`
}

// PatientDetails is who the caller says they are.
type PatientDetails struct {
	FullName    string     `json:"full_name"`
	Email       string     `json:"email"`
	PhoneNumber LooseString `json:"phone_number"`
}

// LooseString accepts a JSON string or number. Phone numbers arrive as both.
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = LooseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = LooseString(num.String())
	return nil
}

// missingFields collects one <Field>Error entry per absent value.
func (r *Request) missingFields() map[string][]string {
	errs := map[string][]string{}
	required := []struct {
		name  string
		value string
	}{
		{"doctor", r.Doctor},
		{"clinic", r.Clinic},
		{"category", r.Category},
		{"scheduled_from", r.ScheduledFrom},
		{"scheduled_to", r.ScheduledTo},
		{"procedure", r.Procedure},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			label := strings.ToUpper(f.name[:1]) + f.name[1:]
			errs[label+"Error"] = []string{label + " is required"}
		}
	}

	p := r.Patient
	if strings.TrimSpace(p.FullName) == "" {
		errs["FullNameError"] = []string{"Full name is required"}
	}
	if strings.TrimSpace(p.Email) == "" {
		errs["EmailError"] = []string{"Email is required"}
	}
	if strings.TrimSpace(string(p.PhoneNumber)) == "" {
		errs["PhoneError"] = []string{"Phone number is required"}
	}
	return errs
}
