package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic-app-server/internal/booking"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/utils"
)

// Booker runs one self-service booking.
type Booker interface {
	Book(ctx context.Context, req *booking.Request) *booking.Result
}

// BookingHandler exposes patient self-service booking.
type BookingHandler struct {
	booker Booker
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(booker Booker) *BookingHandler {
	return &BookingHandler{booker: booker}
}

// Book handles POST /appointments/book. It is public: the patient is
// matched from the contact details in the body.
func (h *BookingHandler) Book(c *gin.Context) {
	var req booking.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.StateErrors(c, http.StatusBadRequest, models.FieldErrors{"Error": {"Invalid request payload"}})
		return
	}

	res := h.booker.Book(c.Request.Context(), &req)
	if res.State == booking.StateInitiated {
		utils.State(c, res.HTTPStatus, utils.StateResponse{
			State:   true,
			Message: res.Message,
			Data:    res.Redirect,
		})
		return
	}
	utils.State(c, res.HTTPStatus, utils.StateResponse{
		State: false,
		Code:  res.Code,
		Data:  res.Errors,
	})
}
