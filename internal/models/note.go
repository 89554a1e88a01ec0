package models

// ClinicalNoteTypeExercise marks notes that prescribe an exercise.
const ClinicalNoteTypeExercise = "exercise"

// PatientDirectory is a clinical note attached to an appointment
type PatientDirectory struct {
	OwnedModel
	AppointmentID    string `gorm:"size:36;index;not null" json:"appointment"`
	CategoryID       string `gorm:"size:36;index" json:"category"`
	ClinicalNoteType string `gorm:"size:50" json:"clinical_note_type"`
	Notes            string `gorm:"type:text" json:"notes"`

	// Relations
	Files     []File                     `gorm:"foreignKey:PatientDirectoryID" json:"files,omitempty"`
	Exercises []PatientDirectoryExercise `gorm:"foreignKey:PatientDirectoryID" json:"exercises,omitempty"`
}

// File is an uploaded attachment belonging to a note
type File struct {
	OwnedModel
	PatientDirectoryID string `gorm:"size:36;index;not null" json:"patient_directory" binding:"required"`
	FileName           string `gorm:"size:255;not null" json:"file_name" binding:"required,max=255"`
	FileURL            string `gorm:"size:1024" json:"file_url"`
}

// PatientDirectoryExercise links a note to a prescribed exercise
type PatientDirectoryExercise struct {
	OwnedModel
	PatientDirectoryID string `gorm:"size:36;index;not null" json:"patient_directory" binding:"required"`
	ExerciseID         string `gorm:"size:36;index;not null" json:"exercise" binding:"required"`
}
