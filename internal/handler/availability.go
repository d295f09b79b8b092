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

// Availability manages hall opening windows.
type Availability interface {
	Create(ctx context.Context, caller auth.Identity, hallID uint64, start, end time.Time) (*model.Availability, error)
	BulkCreate(ctx context.Context, caller auth.Identity, req service.BulkRequest) (*service.BulkResult, error)
	List(ctx context.Context, hallID uint64) ([]model.Availability, error)
	Delete(ctx context.Context, caller auth.Identity, id uint64) error
}

var _ Availability = (*service.AvailabilityService)(nil)

type AvailabilityHandler struct {
	Windows Availability
	Loc     *time.Location
	Log     logrus.FieldLogger
}

func NewAvailabilityHandler(w Availability, loc *time.Location, log logrus.FieldLogger) *AvailabilityHandler {
	if w == nil || loc == nil || log == nil {
		panic("nil dependency passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Windows: w, Loc: loc, Log: log}
}

type createAvailabilityReq struct {
	Hall  uint64 `json:"hall" validate:"required"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// Create handles POST /availabilities/create/.
func (h *AvailabilityHandler) Create(c echo.Context) error {
	var req createAvailabilityReq
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
	w, err := h.Windows.Create(c.Request().Context(), middleware.IdentityFrom(c), req.Hall, start, end)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, w)
}

type bulkAvailabilityReq struct {
	Hall       uint64 `json:"hall" validate:"required"`
	StartDate  string `json:"start_date" validate:"required"`
	EndDate    string `json:"end_date" validate:"required"`
	StartTime  string `json:"start_time" validate:"required"`
	EndTime    string `json:"end_time" validate:"required"`
	DaysOfWeek []int  `json:"days_of_week" validate:"required,min=1,dive,min=0,max=6"`
}

// BulkCreate handles POST /availabilities/bulk-create/.
func (h *AvailabilityHandler) BulkCreate(c echo.Context) error {
	var req bulkAvailabilityReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	res, err := h.Windows.BulkCreate(c.Request().Context(), middleware.IdentityFrom(c), service.BulkRequest{
		HallID:    req.Hall,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Days:      req.DaysOfWeek,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// List handles GET /availabilities/?hall=ID.
func (h *AvailabilityHandler) List(c echo.Context) error {
	hallID, err := strconv.ParseUint(c.QueryParam("hall"), 10, 64)
	if err != nil || hallID == 0 {
		return writeError(c, h.Log, invalid("hall query parameter is required"))
	}
	list, err := h.Windows.List(c.Request().Context(), hallID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Delete handles DELETE /availabilities/:id/.
func (h *AvailabilityHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if err := h.Windows.Delete(c.Request().Context(), middleware.IdentityFrom(c), id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
