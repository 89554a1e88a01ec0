package models

import (
	"time"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusCheckedIn  AppointmentStatus = "checked_in"
	StatusCheckedOut AppointmentStatus = "checked_out"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no_show"
)

// Appointment represents a scheduled clinical encounter
type Appointment struct {
	OwnedModel
	PatientID         string            `gorm:"size:36;index" json:"patient"`
	DoctorID          string            `gorm:"size:36;index" json:"doctor"`
	ClinicID          string            `gorm:"size:36;index" json:"clinic"`
	CategoryID        string            `gorm:"size:36;index" json:"category"`
	ProcedureID       string            `gorm:"size:36;index" json:"procedure"`
	ScheduledFrom     time.Time         `gorm:"index" json:"scheduled_from"`
	ScheduledTo       time.Time         `json:"scheduled_to"`
	AppointmentStatus AppointmentStatus `gorm:"size:20;default:'scheduled'" json:"appointment_status"`
	Notes             string            `gorm:"type:text" json:"notes"`
	IsNew             bool              `gorm:"default:false" json:"is_new"`
}
