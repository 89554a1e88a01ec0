package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-app-server/internal/models"
)

// NoteRepository persists clinical notes and the records hanging off them.
// Each call commits on its own.
type NoteRepository struct {
	db *gorm.DB
	*References
}

func NewNoteRepository(db *gorm.DB) *NoteRepository {
	return &NoteRepository{db: db, References: NewReferences(db)}
}

func (r *NoteRepository) FindNote(ctx context.Context, id string) (*models.PatientDirectory, error) {
	var note models.PatientDirectory
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *NoteRepository) CreateNote(ctx context.Context, note *models.PatientDirectory) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(note).Error
}

func (r *NoteRepository) UpdateNote(ctx context.Context, note *models.PatientDirectory) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(note).Error
}

func (r *NoteRepository) CreateFile(ctx context.Context, file *models.File) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *NoteRepository) CreateExerciseLink(ctx context.Context, link *models.PatientDirectoryExercise) error {
	return r.db.WithContext(ctx).Create(link).Error
}
