package models

// Tax is a named tax rate applied to procedures.
type Tax struct {
	OwnedModel
	Name       string  `gorm:"size:100;not null" json:"name" binding:"required"`
	Percentage float64 `json:"percentage" binding:"gte=0,lte=100"`
}

// Category groups appointments by kind of visit.
type Category struct {
	OwnedModel
	Name        string `gorm:"size:100;not null" json:"name" binding:"required"`
	Description string `gorm:"type:text" json:"description"`
	Color       string `gorm:"size:20" json:"color"`
}

// Procedure is a billable clinical procedure.
type Procedure struct {
	OwnedModel
	Name            string  `gorm:"size:255;not null" json:"name" binding:"required"`
	Description     string  `gorm:"type:text" json:"description"`
	Price           float64 `json:"price" binding:"gte=0"`
	DurationMinutes int     `json:"duration_minutes" binding:"gte=0"`
	TaxID           *string `gorm:"size:36" json:"tax"`
}

// NoteCategory classifies clinical notes.
type NoteCategory struct {
	OwnedModel
	Name string `gorm:"size:100;not null" json:"name" binding:"required"`
}

// Exercise is a prescribable exercise that notes can link to.
type Exercise struct {
	OwnedModel
	Name         string `gorm:"size:255;not null" json:"name" binding:"required"`
	Description  string `gorm:"type:text" json:"description"`
	Instructions string `gorm:"type:text" json:"instructions"`
}
