package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/utils"
)

// UserDirectory lists users by role.
type UserDirectory interface {
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
}

// UserHandler handles user related requests.
type UserHandler struct {
	users  UserDirectory
	logger zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users UserDirectory, logger zerolog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// DoctorSummary is a doctor as the scheduling calendar shows them.
type DoctorSummary struct {
	ID                  string `json:"id"`
	FullName            string `json:"full_name"`
	Email               string `json:"email"`
	DoctorCalendarColor string `json:"doctor_calender_color"`
}

// GetDoctors handles fetching a list of all doctors.
func (h *UserHandler) GetDoctors(c *gin.Context) {
	doctors, err := h.users.ListByRole(c.Request.Context(), models.RoleDoctor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	out := make([]DoctorSummary, 0, len(doctors))
	for i := range doctors {
		d := &doctors[i]
		out = append(out, DoctorSummary{
			ID:                  d.ID,
			FullName:            d.FullName(),
			Email:               d.Email,
			DoctorCalendarColor: d.DoctorCalendarColor,
		})
	}
	utils.Success(c, "Doctors fetched successfully", out)
}
