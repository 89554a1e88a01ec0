package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/notes"
	"clinic-app-server/internal/utils"
)

// NoteSaver runs the notes-and-attachments workflow.
type NoteSaver interface {
	Save(ctx context.Context, actor models.Actor, in notes.SaveInput) (*notes.SaveResult, error)
}

// NoteHandler handles the combined note form.
type NoteHandler struct {
	notes  NoteSaver
	logger zerolog.Logger
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(saver NoteSaver, logger zerolog.Logger) *NoteHandler {
	return &NoteHandler{notes: saver, logger: logger}
}

// noteForm is the JSON variant of the note form.
type noteForm struct {
	ID               string  `json:"id"`
	Appointment      *string `json:"appointment"`
	Category         *string `json:"category"`
	Notes            *string `json:"notes"`
	ClinicalNoteType *string `json:"clinical_note_type"`
	Exercise         string  `json:"exercise"`
}

// SaveNote handles POST /notes. Without an id it creates the note,
// with one it updates it; uploaded `file` parts are attached either way.
func (h *NoteHandler) SaveNote(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	in, err := h.readInput(c)
	if err != nil {
		utils.BadRequest(c, "Invalid request payload")
		return
	}

	res, err := h.notes.Save(c.Request.Context(), actor, in)
	var verr *notes.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		utils.ValidationFailed(c, verr.Fields)
		return
	case errors.Is(err, notes.ErrNoteNotFound):
		utils.NotFound(c, "Note not found")
		return
	default:
		respondError(c, h.logger, err)
		return
	}

	if res.Created {
		utils.Created(c, "Note created successfully", res.Note)
		return
	}
	utils.Success(c, "Note updated successfully", res.Note)
}

func (h *NoteHandler) readInput(c *gin.Context) (notes.SaveInput, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") && c.ContentType() != "application/x-www-form-urlencoded" {
		var form noteForm
		if err := c.ShouldBindJSON(&form); err != nil {
			return notes.SaveInput{}, err
		}
		return notes.SaveInput{
			ID:               form.ID,
			AppointmentID:    form.Appointment,
			CategoryID:       form.Category,
			Notes:            form.Notes,
			ClinicalNoteType: form.ClinicalNoteType,
			ExerciseID:       form.Exercise,
		}, nil
	}

	in := notes.SaveInput{
		ID:               c.PostForm("id"),
		AppointmentID:    optionalForm(c, "appointment"),
		CategoryID:       optionalForm(c, "category"),
		Notes:            optionalForm(c, "notes"),
		ClinicalNoteType: optionalForm(c, "clinical_note_type"),
		ExerciseID:       c.PostForm("exercise"),
	}
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return in, nil
		}
		return in, err
	}
	for _, fh := range form.File["file"] {
		in.Files = append(in.Files, notes.Upload{
			Filename:    fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return in, nil
}

func optionalForm(c *gin.Context, key string) *string {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &v
}
