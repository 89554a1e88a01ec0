package store

import (
	"gorm.io/gorm"

	"clinic-app-server/internal/filter"
	"clinic-app-server/internal/models"
)

type (
	Appointments              = Store[models.Appointment, *models.Appointment]
	Procedures                = Store[models.Procedure, *models.Procedure]
	Taxes                     = Store[models.Tax, *models.Tax]
	Categories                = Store[models.Category, *models.Category]
	NoteCategories            = Store[models.NoteCategory, *models.NoteCategory]
	PatientDirectories        = Store[models.PatientDirectory, *models.PatientDirectory]
	Files                     = Store[models.File, *models.File]
	Exercises                 = Store[models.Exercise, *models.Exercise]
	PatientDirectoryExercises = Store[models.PatientDirectoryExercise, *models.PatientDirectoryExercise]
)

// owned adds the keys every owned collection can be filtered by.
func owned(fields filter.Fields) filter.Fields {
	fields["id"] = filter.Text("id")
	fields["created_by"] = filter.Text("created_by_id")
	fields["updated_by"] = filter.Text("updated_by_id")
	return fields
}

// AppointmentFields is the filter allow-list for appointments.
var AppointmentFields = owned(filter.Fields{
	"patient":            filter.Text("patient_id"),
	"doctor":             filter.Text("doctor_id"),
	"clinic":             filter.Text("clinic_id"),
	"category":           filter.Text("category_id"),
	"procedure":          filter.Text("procedure_id"),
	"appointment_status": filter.Text("appointment_status"),
	"is_new":             filter.Bool("is_new"),
	"scheduled_from":     filter.Time("scheduled_from"),
	"scheduled_to":       filter.Time("scheduled_to"),
})

func NewAppointments(db *gorm.DB) *Appointments {
	return New[models.Appointment](db, Options{
		Fields: AppointmentFields,
		Order:  "scheduled_from desc",
	})
}

func NewProcedures(db *gorm.DB) *Procedures {
	return New[models.Procedure](db, Options{
		Fields: owned(filter.Fields{
			"name": filter.Text("name"),
			"tax":  filter.Text("tax_id"),
		}),
		Search: []string{"name", "description"},
	})
}

func NewTaxes(db *gorm.DB) *Taxes {
	return New[models.Tax](db, Options{
		Fields: owned(filter.Fields{"name": filter.Text("name")}),
	})
}

func NewCategories(db *gorm.DB) *Categories {
	return New[models.Category](db, Options{
		Fields: owned(filter.Fields{
			"name":  filter.Text("name"),
			"color": filter.Text("color"),
		}),
		Search: []string{"name"},
	})
}

func NewNoteCategories(db *gorm.DB) *NoteCategories {
	return New[models.NoteCategory](db, Options{
		Fields: owned(filter.Fields{"name": filter.Text("name")}),
		Search: []string{"name"},
	})
}

func NewPatientDirectories(db *gorm.DB) *PatientDirectories {
	return New[models.PatientDirectory](db, Options{
		Fields: owned(filter.Fields{
			"appointment":        filter.Text("appointment_id"),
			"category":           filter.Text("category_id"),
			"clinical_note_type": filter.Text("clinical_note_type"),
		}),
	})
}

func NewFiles(db *gorm.DB) *Files {
	return New[models.File](db, Options{
		Fields: owned(filter.Fields{
			"patient_directory": filter.Text("patient_directory_id"),
			"file_name":         filter.Text("file_name"),
		}),
	})
}

func NewExercises(db *gorm.DB) *Exercises {
	return New[models.Exercise](db, Options{
		Fields: owned(filter.Fields{"name": filter.Text("name")}),
		Search: []string{"name"},
	})
}

func NewPatientDirectoryExercises(db *gorm.DB) *PatientDirectoryExercises {
	return New[models.PatientDirectoryExercise](db, Options{
		Fields: owned(filter.Fields{
			"patient_directory": filter.Text("patient_directory_id"),
			"exercise":          filter.Text("exercise_id"),
		}),
	})
}
