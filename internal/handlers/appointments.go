package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clinic-app-server/internal/agenda"
	"clinic-app-server/internal/identity"
	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/storage"
	"clinic-app-server/internal/store"
	"clinic-app-server/internal/utils"
)

// Agenda is the read side used by the appointment listings.
type Agenda interface {
	Upcoming(ctx context.Context, clinic, date string, now time.Time) ([]models.Appointment, error)
	DoctorWorkload(ctx context.Context, params url.Values) (*agenda.Workload, error)
	UpcomingForCreator(ctx context.Context, createdBy string, now time.Time) ([]models.Appointment, error)
}

// PatientRegistrar finds or registers the patient of a front-desk booking.
type PatientRegistrar interface {
	FindOrRegister(ctx context.Context, reg identity.Registration) (*models.User, bool, error)
}

// AppointmentChecker verifies that referenced rows exist.
type AppointmentChecker interface {
	CheckAppointment(ctx context.Context, a *models.Appointment) (models.FieldErrors, error)
}

// AppointmentNotifier sends patient emails after an appointment is stored.
type AppointmentNotifier interface {
	AppointmentBooked(appt models.Appointment)
	AppointmentFollowup(appt models.Appointment)
}

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	*Resource[models.Appointment, *models.Appointment]

	agenda    Agenda
	patients  PatientRegistrar
	refs      AppointmentChecker
	notifier  AppointmentNotifier
	files     storage.Storage
	maxUpload int64
	now       func() time.Time
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(
	appointments *store.Appointments,
	ag Agenda,
	patients PatientRegistrar,
	refs AppointmentChecker,
	notifier AppointmentNotifier,
	files storage.Storage,
	maxUpload int64,
	logger zerolog.Logger,
) *AppointmentHandler {
	h := &AppointmentHandler{
		Resource:  NewResource("Appointments", appointments, logger),
		agenda:    ag,
		patients:  patients,
		refs:      refs,
		notifier:  notifier,
		files:     files,
		maxUpload: maxUpload,
		now:       time.Now,
	}
	h.Check = h.check
	h.AfterCreate = func(c *gin.Context, appt *models.Appointment) {
		if c.Query("schedule") == "true" {
			h.notifier.AppointmentFollowup(*appt)
		}
	}
	return h
}

func (h *AppointmentHandler) check(ctx context.Context, appt *models.Appointment) (models.FieldErrors, error) {
	errs := appt.Validate()
	if !errs.Empty() {
		return errs, nil
	}
	return h.refs.CheckAppointment(ctx, appt)
}

// staffAppointmentRequest is the JSON carried in the `data` form field.
type staffAppointmentRequest struct {
	Patient           *identity.Registration   `json:"patient"`
	Doctor            string                   `json:"doctor"`
	Clinic            string                   `json:"clinic"`
	Category          string                   `json:"category"`
	Procedure         string                   `json:"procedure"`
	ScheduledFrom     string                   `json:"scheduled_from"`
	ScheduledTo       string                   `json:"scheduled_to"`
	AppointmentStatus models.AppointmentStatus `json:"appointment_status"`
	Notes             string                   `json:"notes"`
}

// CreateForPatient handles the front-desk form: it resolves or registers
// the patient, then stores the appointment on their behalf.
func (h *AppointmentHandler) CreateForPatient(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	ctx := c.Request.Context()

	raw, ok := c.GetPostForm("data")
	if !ok {
		utils.ValidationFailed(c, models.FieldErrors{"data": {"This field is required."}})
		return
	}
	var req staffAppointmentRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		respondError(c, h.logger, &payloadError{err: err})
		return
	}
	if req.Patient == nil {
		utils.ValidationFailed(c, models.FieldErrors{"patient": {"This field is required."}})
		return
	}
	if err := utils.Validate(req.Patient); err != nil {
		utils.ValidationFailed(c, utils.FieldErrorsFrom(err))
		return
	}

	photoURL, err := h.savePhoto(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if photoURL != "" {
		req.Patient.ProfileImage = photoURL
	}

	patient, created, err := h.patients.FindOrRegister(ctx, *req.Patient)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	appt := &models.Appointment{
		PatientID:         patient.ID,
		DoctorID:          req.Doctor,
		ClinicID:          req.Clinic,
		CategoryID:        req.Category,
		ProcedureID:       req.Procedure,
		AppointmentStatus: req.AppointmentStatus,
		Notes:             req.Notes,
		IsNew:             created,
	}
	errs := models.FieldErrors{}
	appt.ScheduledFrom = parseScheduled(errs, "scheduled_from", req.ScheduledFrom)
	appt.ScheduledTo = parseScheduled(errs, "scheduled_to", req.ScheduledTo)
	for field, msgs := range appt.Validate() {
		if _, seen := errs[field]; !seen {
			errs[field] = msgs
		}
	}
	if errs.Empty() {
		refErrs, err := h.refs.CheckAppointment(ctx, appt)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		errs.Merge(refErrs)
	}
	if !errs.Empty() {
		utils.ValidationFailed(c, errs)
		return
	}

	if err := h.store.Create(ctx, actor, appt); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.notifier.AppointmentBooked(*appt)
	utils.Created(c, "Appointment created successfully", appt)
}

func parseScheduled(errs models.FieldErrors, field, raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := models.ParseDateTime(raw)
	if err != nil {
		errs.Add(field, models.MsgBadDateTime)
	}
	return t
}

func (h *AppointmentHandler) savePhoto(c *gin.Context) (string, error) {
	fh, err := c.FormFile("photo")
	if err != nil {
		return "", nil
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		return "", models.FieldErrors{"photo": {fmt.Sprintf("File is larger than %d bytes.", h.maxUpload)}}
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()

	key := "profile_images/" + uuid.NewString()[:8] + "_" + path.Base(fh.Filename)
	return h.files.Save(c.Request.Context(), key, f, fh.Header.Get("Content-Type"))
}

// Upcoming handles GET /appointments/upcoming.
func (h *AppointmentHandler) Upcoming(c *gin.Context) {
	appts, err := h.agenda.Upcoming(c.Request.Context(), c.Query("clinic"), c.Query("scheduled_from"), h.now())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.Success(c, "Upcoming appointments fetched successfully", appts)
}

// DoctorStats handles GET /appointments/doctor-stats.
func (h *AppointmentHandler) DoctorStats(c *gin.Context) {
	workload, err := h.agenda.DoctorWorkload(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, workload)
}

// Mine handles GET /appointments/mine?created_by=<user id>.
func (h *AppointmentHandler) Mine(c *gin.Context) {
	createdBy := c.Query("created_by")
	if createdBy == "" {
		utils.StateErrors(c, http.StatusBadRequest, models.FieldErrors{"Error": {"created_by query param is missing"}})
		return
	}

	appts, err := h.agenda.UpcomingForCreator(c.Request.Context(), createdBy, h.now())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if len(appts) == 0 {
		utils.State(c, http.StatusNotFound, utils.StateResponse{
			State: false,
			Error: "No upcoming appointments found or invalid user ID",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":              true,
		"total_appointments": len(appts),
		"appointments":       appts,
	})
}
