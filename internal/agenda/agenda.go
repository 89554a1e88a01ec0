// Package agenda holds the read-only appointment projections: the daily
// upcoming list, per-doctor workload and a creator's upcoming bookings.
package agenda

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"gorm.io/gorm"

	"clinic-app-server/internal/filter"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/store"
)

// Users is the user lookup the projections need.
type Users interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

type Service struct {
	db    *gorm.DB
	users Users
}

func NewService(db *gorm.DB, users Users) *Service {
	return &Service{db: db, users: users}
}

// Upcoming lists the appointments starting on date (YYYY-MM-DD, default
// today in now's location), optionally for one clinic, earliest first.
// A date before today yields nothing.
func (s *Service) Upcoming(ctx context.Context, clinic, date string, now time.Time) ([]models.Appointment, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := today
	if date != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, date, now.Location())
		if err != nil {
			return nil, &filter.InvalidValueError{Field: "scheduled_from", Value: date, Err: err}
		}
		if parsed.Before(today) {
			return []models.Appointment{}, nil
		}
		day = parsed
	}

	q := s.db.WithContext(ctx).
		Where("scheduled_from >= ? AND scheduled_from < ?", day, day.AddDate(0, 0, 1))
	if clinic != "" {
		q = q.Where("clinic_id = ?", clinic)
	}

	appts := []models.Appointment{}
	if err := q.Order("scheduled_from asc").Find(&appts).Error; err != nil {
		return nil, fmt.Errorf("upcoming appointments: %w", err)
	}
	return appts, nil
}

// DoctorCount is one doctor's share of a workload.
type DoctorCount struct {
	DoctorID    string `json:"doctor_id"`
	FullName    string `json:"full_name"`
	DoctorColor string `json:"doctor_color"`
	Count       int64  `json:"count"`
}

// Workload is the total appointment count and its split by doctor.
type Workload struct {
	All     int64         `json:"all"`
	Doctors []DoctorCount `json:"doctors_appointments_count"`
}

// workloadKeys are read by DoctorWorkload itself instead of the filter adapter.
var workloadKeys = []string{"scheduled_from", "scheduled_to", "clinic", "doctor"}

// DoctorWorkload counts appointments per doctor. scheduled_from is a lower
// bound on the start, scheduled_to an upper bound on the end; every other
// key is an equality filter.
func (s *Service) DoctorWorkload(ctx context.Context, params url.Values) (*Workload, error) {
	preds, err := store.AppointmentFields.Build(params, workloadKeys...)
	if err != nil {
		return nil, err
	}
	q := filter.Apply(s.db.WithContext(ctx).Model(&models.Appointment{}), preds)

	if v := params.Get("scheduled_from"); v != "" {
		from, err := filter.ParseTime(v)
		if err != nil {
			return nil, &filter.InvalidValueError{Field: "scheduled_from", Value: v, Err: err}
		}
		q = q.Where("scheduled_from >= ?", from)
	}
	if v := params.Get("scheduled_to"); v != "" {
		to, err := filter.ParseTime(v)
		if err != nil {
			return nil, &filter.InvalidValueError{Field: "scheduled_to", Value: v, Err: err}
		}
		q = q.Where("scheduled_to <= ?", to)
	}
	if v := params.Get("clinic"); v != "" {
		q = q.Where("clinic_id = ?", v)
	}
	if v := params.Get("doctor"); v != "" {
		q = q.Where("doctor_id = ?", v)
	}
	q = q.Session(&gorm.Session{})

	w := &Workload{Doctors: []DoctorCount{}}
	if err := q.Count(&w.All).Error; err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}

	var groups []struct {
		DoctorID string
		Count    int64
	}
	if err := q.Select("doctor_id, COUNT(*) AS count").Group("doctor_id").Scan(&groups).Error; err != nil {
		return nil, fmt.Errorf("group appointments: %w", err)
	}

	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.DoctorID)
	}
	doctors, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, g := range groups {
		doc := doctors[g.DoctorID]
		w.Doctors = append(w.Doctors, DoctorCount{
			DoctorID:    g.DoctorID,
			FullName:    doc.FirstName + " " + doc.LastName,
			DoctorColor: doc.DoctorCalendarColor,
			Count:       g.Count,
		})
	}
	sort.Slice(w.Doctors, func(i, j int) bool { return w.Doctors[i].DoctorID < w.Doctors[j].DoctorID })
	return w, nil
}

// UpcomingForCreator lists appointments createdBy made that start at or
// after now and are neither cancelled nor checked out. An unknown user
// gets an empty list.
func (s *Service) UpcomingForCreator(ctx context.Context, createdBy string, now time.Time) ([]models.Appointment, error) {
	if _, err := s.users.FindByID(ctx, createdBy); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []models.Appointment{}, nil
		}
		return nil, err
	}

	appts := []models.Appointment{}
	err := s.db.WithContext(ctx).
		Where("created_by_id = ? AND scheduled_from >= ?", createdBy, now).
		Where("appointment_status NOT IN ?", []string{string(models.StatusCancelled), string(models.StatusCheckedOut)}).
		Order("scheduled_from asc").
		Find(&appts).Error
	if err != nil {
		return nil, fmt.Errorf("creator appointments: %w", err)
	}
	return appts, nil
}
