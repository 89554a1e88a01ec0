// Package booking lets a patient book an appointment without logging in.
// The appointment is only staged in the cache; it is persisted by the
// payment confirmation callback once the gateway reports success.
package booking

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"clinic-app-server/internal/identity"
	"clinic-app-server/internal/metrics"
	"clinic-app-server/internal/models"
)

// PatientMatcher resolves a caller to an existing patient.
type PatientMatcher interface {
	MatchPatient(ctx context.Context, c identity.Candidate) (*models.User, error)
}

// ReferenceChecker reports appointment fields that point at missing records.
type ReferenceChecker interface {
	CheckAppointment(ctx context.Context, a *models.Appointment) (models.FieldErrors, error)
}

type Service struct {
	patients PatientMatcher
	refs     ReferenceChecker
	cache    Cache
	gateway  Gateway
	ttl      time.Duration
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	tracer   trace.Tracer
	newID    func() string
}

func NewService(patients PatientMatcher, refs ReferenceChecker, cache Cache, gateway Gateway, ttl time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		patients: patients,
		refs:     refs,
		cache:    cache,
		gateway:  gateway,
		ttl:      ttl,
		metrics:  m,
		logger:   logger.With().Str("component", "booking").Logger(),
		tracer:   otel.Tracer("clinic-app-server/booking"),
		newID:    uuid.NewString,
	}
}

// Book runs the self-service booking. It never returns an error: every
// failure, panics included, ends in a Result.
func (s *Service) Book(ctx context.Context, req *Request) (res *Result) {
	ctx, span := s.tracer.Start(ctx, "booking.book")
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error().
				Str("panic", fmt.Sprint(p)).
				Str("stack", string(debug.Stack())).
				Msg("booking panicked")
			res = internal()
		}
		span.SetAttributes(attribute.String("booking.state", string(res.State)))
		span.End()
		s.metrics.ObserveBooking(string(res.State))
	}()

	if req == nil || req.Patient == nil {
		return invalid(models.FieldErrors{"PatientDataError": {MsgPatientMissing}})
	}
	if errs := req.missingFields(); len(errs) > 0 {
		return invalid(errs)
	}

	res, err := s.book(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Str("stack", string(debug.Stack())).Msg("booking failed")
		span.RecordError(err)
		return internal()
	}
	return res
}

func (s *Service) book(ctx context.Context, req *Request) (*Result, error) {
	p := req.Patient
	patient, err := s.patients.MatchPatient(ctx, identity.Candidate{
		FullName: p.FullName,
		Email:    p.Email,
		Phone:    string(p.PhoneNumber),
	})
	if errors.Is(err, identity.ErrPatientNotFound) {
		return notFound(), nil
	}
	if err != nil {
		return nil, err
	}

	appt, errs := req.appointment(patient.ID)
	for field, msgs := range appt.Validate() {
		if _, seen := errs[field]; !seen {
			errs[field] = msgs
		}
	}
	if errs.Empty() {
		refErrs, err := s.refs.CheckAppointment(ctx, appt)
		if err != nil {
			return nil, err
		}
		errs.Merge(refErrs)
	}
	if !errs.Empty() {
		return invalid(errs), nil
	}

	txID := s.newID()
	if err := s.cache.Stage(ctx, txID, appt, s.ttl); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.gateway.InitiatePayment(ctx, txID)
	s.metrics.ObserveGateway(time.Since(start), err)
	if err != nil {
		return nil, err
	}

	log := s.logger.With().Str("transaction_id", txID).Str("code", resp.Code).Int("status", resp.StatusCode).Logger()
	switch {
	case !resp.Success:
		log.Info().Msg("payment gateway rejected booking")
		return rejected(txID, resp), nil
	case resp.Code == CodePaymentInitiated:
		redirect, err := resp.RedirectInfo()
		if err != nil {
			return nil, err
		}
		log.Info().Msg("payment initiated")
		return initiated(txID, resp.Message, redirect), nil
	default:
		log.Warn().Msg("unrecognized payment gateway response")
		r := invalid(models.FieldErrors{"Error": {MsgUnrecognizedGateway}})
		r.TransactionID = txID
		r.Code = resp.Code
		return r, nil
	}
}

// appointment builds the pending appointment owned by patientID.
func (r *Request) appointment(patientID string) (*models.Appointment, models.FieldErrors) {
	errs := models.FieldErrors{}
	appt := &models.Appointment{
		PatientID:         patientID,
		DoctorID:          strings.TrimSpace(r.Doctor),
		ClinicID:          strings.TrimSpace(r.Clinic),
		CategoryID:        strings.TrimSpace(r.Category),
		ProcedureID:       strings.TrimSpace(r.Procedure),
		AppointmentStatus: models.AppointmentStatus(r.AppointmentStatus),
		Notes:             r.Notes,
		IsNew:             false,
	}
	appt.StampCreated(patientID)

	var err error
	if appt.ScheduledFrom, err = models.ParseDateTime(r.ScheduledFrom); err != nil {
		errs.Add("scheduled_from", models.MsgBadDateTime)
	}
	if appt.ScheduledTo, err = models.ParseDateTime(r.ScheduledTo); err != nil {
		errs.Add("scheduled_to", models.MsgBadDateTime)
	}
	return appt, errs
}
