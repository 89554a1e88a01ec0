package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/store"
	"clinic-app-server/internal/utils"
)

// Resource serves list/create/retrieve/update/delete for one collection.
type Resource[T any, PT interface {
	*T
	store.Record
}] struct {
	name   string
	store  *store.Store[T, PT]
	logger zerolog.Logger

	// Check adds rules beyond the struct tags, e.g. reference checks.
	Check func(ctx context.Context, rec PT) (models.FieldErrors, error)
	// AfterCreate runs once a record has been inserted.
	AfterCreate func(c *gin.Context, rec PT)
}

func NewResource[T any, PT interface {
	*T
	store.Record
}](name string, st *store.Store[T, PT], logger zerolog.Logger) *Resource[T, PT] {
	return &Resource[T, PT]{name: name, store: st, logger: logger}
}

// List handles GET /<resource>: filtered, searched and paginated.
func (r *Resource[T, PT]) List(c *gin.Context) {
	page, err := r.store.List(c.Request.Context(), store.QueryFrom(c.Request.URL.Query()))
	if err != nil {
		respondError(c, r.logger, err)
		return
	}
	utils.Success(c, r.name+" fetched successfully", page)
}

// All handles GET /<resource>/all: filtered, unpaginated.
func (r *Resource[T, PT]) All(c *gin.Context) {
	records, err := r.store.All(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		respondError(c, r.logger, err)
		return
	}
	utils.Success(c, r.name+" fetched successfully", records)
}

// Create handles POST /<resource>.
func (r *Resource[T, PT]) Create(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		utils.BadRequest(c, "Invalid request payload")
		return
	}

	rec := PT(new(T))
	if err := json.Unmarshal(body, rec); err != nil {
		respondError(c, r.logger, &payloadError{err: err})
		return
	}
	rec.RestoreOwnership(models.OwnedModel{})
	if err := r.validate(c.Request.Context(), rec); err != nil {
		respondError(c, r.logger, err)
		return
	}

	if err := r.store.Create(c.Request.Context(), actor, rec); err != nil {
		respondError(c, r.logger, err)
		return
	}
	if r.AfterCreate != nil {
		r.AfterCreate(c, rec)
	}
	utils.Created(c, r.name+" created successfully", rec)
}

// Get handles GET /<resource>/:id.
func (r *Resource[T, PT]) Get(c *gin.Context) {
	rec, err := r.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, r.logger, err)
		return
	}
	utils.Success(c, r.name+" fetched successfully", rec)
}

// Update handles PUT and PATCH /<resource>/:id. Only the JSON fields
// present in the body change.
func (r *Resource[T, PT]) Update(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		utils.BadRequest(c, "Invalid request payload")
		return
	}

	rec, err := r.store.Update(c.Request.Context(), actor, c.Param("id"), func(rec PT) error {
		if err := json.Unmarshal(body, rec); err != nil {
			return &payloadError{err: err}
		}
		return r.validate(c.Request.Context(), rec)
	})
	if err != nil {
		respondError(c, r.logger, err)
		return
	}
	utils.Success(c, r.name+" updated successfully", rec)
}

// Delete handles DELETE /<resource>/:id.
func (r *Resource[T, PT]) Delete(c *gin.Context) {
	if err := r.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, r.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Resource[T, PT]) validate(ctx context.Context, rec PT) error {
	errs := models.FieldErrors{}
	if err := utils.Validate(rec); err != nil {
		errs.Merge(utils.FieldErrorsFrom(err))
	}
	if r.Check != nil {
		extra, err := r.Check(ctx, rec)
		if err != nil {
			return err
		}
		errs.Merge(extra)
	}
	if !errs.Empty() {
		return errs
	}
	return nil
}
