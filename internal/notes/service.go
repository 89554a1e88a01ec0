// Package notes saves clinical notes together with their uploaded files
// and prescribed exercise. The note, each file and the exercise link are
// committed one after another; a later failure leaves earlier commits in place.
package notes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/rs/zerolog"

	"clinic-app-server/internal/metrics"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/storage"
	"clinic-app-server/internal/store"
)

// ErrNoteNotFound is returned when an update names a note that does not exist.
var ErrNoteNotFound = errors.New("note not found")

// Stages at which a save can be rejected.
const (
	StageNote     = "note"
	StageFile     = "file"
	StageExercise = "exercise"
)

const fieldRequired = "This field is required."

// ValidationError carries field messages for the stage that rejected the save.
type ValidationError struct {
	Stage  string
	Fields models.FieldErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s rejected: %v", e.Stage, e.Fields)
}

// Store is the persistence the workflow needs.
type Store interface {
	FindNote(ctx context.Context, id string) (*models.PatientDirectory, error)
	CreateNote(ctx context.Context, note *models.PatientDirectory) error
	UpdateNote(ctx context.Context, note *models.PatientDirectory) error
	CreateFile(ctx context.Context, file *models.File) error
	CreateExerciseLink(ctx context.Context, link *models.PatientDirectoryExercise) error
	AppointmentExists(ctx context.Context, id string) (bool, error)
	ExerciseExists(ctx context.Context, id string) (bool, error)
}

// Upload is one file from the request.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// SaveInput is a create (empty ID) or a partial update. Nil fields are
// left as they are.
type SaveInput struct {
	ID               string
	AppointmentID    *string
	CategoryID       *string
	Notes            *string
	ClinicalNoteType *string
	ExerciseID       string
	Files            []Upload
}

// SaveResult is the saved note and whether it was created.
type SaveResult struct {
	Note    *models.PatientDirectory
	Created bool
}

type Service struct {
	store          Store
	storage        storage.Storage
	maxUploadBytes int64
	metrics        *metrics.Metrics
	logger         zerolog.Logger
}

func NewService(st Store, files storage.Storage, maxUploadBytes int64, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		store:          st,
		storage:        files,
		maxUploadBytes: maxUploadBytes,
		metrics:        m,
		logger:         logger.With().Str("component", "notes").Logger(),
	}
}

// Save upserts the note, stores its files under
// files/appointment_{appointment}/note_{note}/ and links the exercise when
// the note type is exercise.
func (s *Service) Save(ctx context.Context, actor models.Actor, in SaveInput) (*SaveResult, error) {
	res, err := s.save(ctx, actor, in)
	switch {
	case err == nil && res.Created:
		s.metrics.ObserveNoteSave("created")
	case err == nil:
		s.metrics.ObserveNoteSave("updated")
	case isValidation(err):
		s.metrics.ObserveNoteSave("invalid")
	default:
		s.metrics.ObserveNoteSave("error")
	}
	return res, err
}

func (s *Service) save(ctx context.Context, actor models.Actor, in SaveInput) (*SaveResult, error) {
	note, created, err := s.upsert(ctx, actor, in)
	if err != nil {
		return nil, err
	}

	for _, up := range in.Files {
		file, err := s.attach(ctx, actor, note, up)
		if err != nil {
			return nil, err
		}
		note.Files = append(note.Files, *file)
	}

	if in.ClinicalNoteType != nil && *in.ClinicalNoteType == models.ClinicalNoteTypeExercise {
		link, err := s.linkExercise(ctx, actor, note, in.ExerciseID)
		if err != nil {
			return nil, err
		}
		note.Exercises = append(note.Exercises, *link)
	}

	return &SaveResult{Note: note, Created: created}, nil
}

func (s *Service) upsert(ctx context.Context, actor models.Actor, in SaveInput) (*models.PatientDirectory, bool, error) {
	note := &models.PatientDirectory{}
	created := in.ID == ""
	if !created {
		found, err := s.store.FindNote(ctx, in.ID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, ErrNoteNotFound
		}
		if err != nil {
			return nil, false, fmt.Errorf("load note: %w", err)
		}
		note = found
	}

	prevAppointment := note.AppointmentID
	if in.AppointmentID != nil {
		note.AppointmentID = *in.AppointmentID
	}
	if in.CategoryID != nil {
		note.CategoryID = *in.CategoryID
	}
	if in.Notes != nil {
		note.Notes = *in.Notes
	}
	if in.ClinicalNoteType != nil {
		note.ClinicalNoteType = *in.ClinicalNoteType
	}

	errs := models.FieldErrors{}
	switch {
	case note.AppointmentID == "":
		errs.Add("appointment", fieldRequired)
	case note.AppointmentID != prevAppointment:
		ok, err := s.store.AppointmentExists(ctx, note.AppointmentID)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			errs.Add("appointment", invalidPK(note.AppointmentID))
		}
	}
	if len(note.ClinicalNoteType) > 50 {
		errs.Add("clinical_note_type", "Ensure this field has no more than 50 characters.")
	}
	if !errs.Empty() {
		return nil, false, &ValidationError{Stage: StageNote, Fields: errs}
	}

	if created {
		note.StampCreated(actor.UserID)
		if err := s.store.CreateNote(ctx, note); err != nil {
			return nil, false, fmt.Errorf("create note: %w", err)
		}
	} else {
		note.StampUpdated(actor.UserID)
		if err := s.store.UpdateNote(ctx, note); err != nil {
			return nil, false, fmt.Errorf("update note: %w", err)
		}
	}
	return note, created, nil
}

// Dir is the storage prefix for a note's files.
func Dir(appointmentID, noteID string) string {
	return fmt.Sprintf("files/appointment_%s/note_%s/", appointmentID, noteID)
}

func (s *Service) attach(ctx context.Context, actor models.Actor, note *models.PatientDirectory, up Upload) (*models.File, error) {
	name := path.Base(up.Filename)
	errs := models.FieldErrors{}
	switch {
	case up.Filename == "" || name == "." || name == "/":
		errs.Add("file_name", fieldRequired)
	case len(name) > 255:
		errs.Add("file_name", "Ensure this field has no more than 255 characters.")
	}
	if s.maxUploadBytes > 0 && up.Size > s.maxUploadBytes {
		errs.Add("file", fmt.Sprintf("Ensure the file is no larger than %d bytes.", s.maxUploadBytes))
	}
	if !errs.Empty() {
		return nil, &ValidationError{Stage: StageFile, Fields: errs}
	}

	body, err := up.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", name, err)
	}
	defer body.Close()

	url, err := s.storage.Save(ctx, Dir(note.AppointmentID, note.ID)+name, body, up.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store upload %s: %w", name, err)
	}

	file := &models.File{PatientDirectoryID: note.ID, FileName: name, FileURL: url}
	file.StampCreated(actor.UserID)
	if err := s.store.CreateFile(ctx, file); err != nil {
		return nil, fmt.Errorf("create file record: %w", err)
	}
	s.logger.Debug().Str("note_id", note.ID).Str("file_url", url).Msg("attached file")
	return file, nil
}

func (s *Service) linkExercise(ctx context.Context, actor models.Actor, note *models.PatientDirectory, exerciseID string) (*models.PatientDirectoryExercise, error) {
	if exerciseID == "" {
		return nil, &ValidationError{Stage: StageExercise, Fields: models.FieldErrors{"exercise": {fieldRequired}}}
	}
	ok, err := s.store.ExerciseExists(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ValidationError{Stage: StageExercise, Fields: models.FieldErrors{"exercise": {invalidPK(exerciseID)}}}
	}

	link := &models.PatientDirectoryExercise{PatientDirectoryID: note.ID, ExerciseID: exerciseID}
	link.StampCreated(actor.UserID)
	if err := s.store.CreateExerciseLink(ctx, link); err != nil {
		return nil, fmt.Errorf("link exercise: %w", err)
	}
	return link, nil
}

func isValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

func invalidPK(id string) string {
	return fmt.Sprintf("Invalid pk %q - object does not exist.", id)
}
