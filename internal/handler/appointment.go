package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/sports-hall-booking/internal/auth"
	"github.com/iliyamo/sports-hall-booking/internal/middleware"
	"github.com/iliyamo/sports-hall-booking/internal/model"
	"github.com/iliyamo/sports-hall-booking/internal/service"
)

// Booking is the booking service as the HTTP layer sees it.
type Booking interface {
	ListFreeSlots(ctx context.Context, caller auth.Identity, q service.FreeSlotsQuery) (*service.FreeSlots, error)
	CreateAppointment(ctx context.Context, caller auth.Identity, req service.BookingRequest) (*model.Appointment, error)
	OwnerAction(ctx context.Context, caller auth.Identity, id uint64, action string) (*model.Appointment, error)
	Cancel(ctx context.Context, caller auth.Identity, id uint64) (*model.Appointment, error)
	CheckIn(ctx context.Context, caller auth.Identity, id uint64) (*model.Appointment, error)
	MyAppointments(ctx context.Context, caller auth.Identity) ([]model.HallAppointment, error)
	PendingForHall(ctx context.Context, caller auth.Identity, hallID uint64) ([]model.Appointment, error)
	OwnerAppointments(ctx context.Context, caller auth.Identity) ([]model.HallAppointment, error)
}

var _ Booking = (*service.BookingService)(nil)

// AppointmentHandler serves free slots and the appointment lifecycle.
type AppointmentHandler struct {
	Booking Booking
	Loc     *time.Location
	Log     logrus.FieldLogger
}

func NewAppointmentHandler(b Booking, loc *time.Location, log logrus.FieldLogger) *AppointmentHandler {
	if b == nil || loc == nil || log == nil {
		panic("nil dependency passed to NewAppointmentHandler")
	}
	return &AppointmentHandler{Booking: b, Loc: loc, Log: log}
}

// FreeSlots handles GET /halls/:id/free/?date=YYYY-MM-DD[&history=true].
func (h *AppointmentHandler) FreeSlots(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	date := c.QueryParam("date")
	if date == "" {
		return writeError(c, h.Log, invalid("date is required"))
	}
	history, _ := strconv.ParseBool(c.QueryParam("history"))

	res, err := h.Booking.ListFreeSlots(c.Request().Context(), middleware.IdentityFrom(c),
		service.FreeSlotsQuery{HallID: id, Date: date, History: history})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

type createAppointmentReq struct {
	Hall  uint64 `json:"hall" validate:"required"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// Create handles POST /appointments/create/.
func (h *AppointmentHandler) Create(c echo.Context) error {
	var req createAppointmentReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	start, err := parseTimestamp(req.Start, h.Loc)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	end, err := parseTimestamp(req.End, h.Loc)
	if err != nil {
		return writeError(c, h.Log, err)
	}

	a, err := h.Booking.CreateAppointment(c.Request().Context(), middleware.IdentityFrom(c),
		service.BookingRequest{HallID: req.Hall, Start: start, End: end})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, a)
}

type ownerActionReq struct {
	Action string `json:"action" validate:"required"`
}

// OwnerAction handles POST /appointments/:id/owner-action/.
func (h *AppointmentHandler) OwnerAction(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req ownerActionReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	a, err := h.Booking.OwnerAction(c.Request().Context(), middleware.IdentityFrom(c), id, req.Action)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Cancel handles DELETE /appointments/:id/delete/.
func (h *AppointmentHandler) Cancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if _, err := h.Booking.Cancel(c.Request().Context(), middleware.IdentityFrom(c), id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CheckIn handles POST /appointments/:id/checkin/.
func (h *AppointmentHandler) CheckIn(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	a, err := h.Booking.CheckIn(c.Request().Context(), middleware.IdentityFrom(c), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Mine handles GET /appointments/.
func (h *AppointmentHandler) Mine(c echo.Context) error {
	list, err := h.Booking.MyAppointments(c.Request().Context(), middleware.IdentityFrom(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// PendingForHall handles GET /halls/:id/pending/.
func (h *AppointmentHandler) PendingForHall(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	list, err := h.Booking.PendingForHall(c.Request().Context(), middleware.IdentityFrom(c), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// OwnerList handles GET /owner/appointments/.
func (h *AppointmentHandler) OwnerList(c echo.Context) error {
	list, err := h.Booking.OwnerAppointments(c.Request().Context(), middleware.IdentityFrom(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}
