package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"clinic-app-server/internal/models"
)

// References checks that the ids an appointment points at exist.
type References struct {
	db *gorm.DB
}

func NewReferences(db *gorm.DB) *References {
	return &References{db: db}
}

// CheckAppointment reports one field error per dangling reference. Empty
// ids are left to models.Appointment.Validate.
func (r *References) CheckAppointment(ctx context.Context, a *models.Appointment) (models.FieldErrors, error) {
	errs := models.FieldErrors{}
	checks := []struct {
		field string
		id    string
		model any
	}{
		{"patient", a.PatientID, &models.User{}},
		{"doctor", a.DoctorID, &models.User{}},
		{"category", a.CategoryID, &models.Category{}},
		{"procedure", a.ProcedureID, &models.Procedure{}},
	}
	for _, c := range checks {
		if c.id == "" {
			continue
		}
		ok, err := r.exists(ctx, c.model, c.id)
		if err != nil {
			return nil, err
		}
		if !ok {
			errs.Add(c.field, invalidPK(c.id))
		}
	}
	return errs, nil
}

// ExerciseExists reports whether an exercise with id exists.
func (r *References) ExerciseExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, &models.Exercise{}, id)
}

// AppointmentExists reports whether an appointment with id exists.
func (r *References) AppointmentExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, &models.Appointment{}, id)
}

func (r *References) exists(ctx context.Context, model any, id string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check reference: %w", err)
	}
	return n > 0, nil
}

func invalidPK(id string) string {
	return fmt.Sprintf("Invalid pk %q - object does not exist.", id)
}
