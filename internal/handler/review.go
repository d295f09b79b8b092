package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/sports-hall-booking/internal/auth"
	"github.com/iliyamo/sports-hall-booking/internal/middleware"
	"github.com/iliyamo/sports-hall-booking/internal/model"
	"github.com/iliyamo/sports-hall-booking/internal/service"
)

// Reviews is the review service.
type Reviews interface {
	Create(ctx context.Context, caller auth.Identity, in service.ReviewInput) (*model.Review, error)
	ForHall(ctx context.Context, hallID uint64) (*service.HallReviews, error)
	Mine(ctx context.Context, caller auth.Identity) ([]model.HallReview, error)
	Reviewable(ctx context.Context, caller auth.Identity) ([]model.HallAppointment, error)
	ForOwner(ctx context.Context, caller auth.Identity) ([]model.HallReview, error)
}

// Reports builds owner statistics.
type Reports interface {
	MonthlyStats(ctx context.Context, caller auth.Identity, year int) (*service.MonthlyReport, error)
}

var (
	_ Reviews = (*service.ReviewService)(nil)
	_ Reports = (*service.ReportService)(nil)
)

// ReviewHandler serves reviews and the owner's monthly report.
type ReviewHandler struct {
	Reviews Reviews
	Reports Reports
	Log     logrus.FieldLogger
}

func NewReviewHandler(r Reviews, rep Reports, log logrus.FieldLogger) *ReviewHandler {
	if r == nil || rep == nil || log == nil {
		panic("nil dependency passed to NewReviewHandler")
	}
	return &ReviewHandler{Reviews: r, Reports: rep, Log: log}
}

type createReviewReq struct {
	Appointment uint64 `json:"appointment" validate:"required"`
	Rating      int    `json:"rating" validate:"required,min=1,max=5"`
	Comment     string `json:"comment" validate:"max=1000"`
}

// Create handles POST /reviews/create/.
func (h *ReviewHandler) Create(c echo.Context) error {
	var req createReviewReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	rv, err := h.Reviews.Create(c.Request().Context(), middleware.IdentityFrom(c), service.ReviewInput{
		AppointmentID: req.Appointment,
		Rating:        req.Rating,
		Comment:       req.Comment,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, rv)
}

// ForHall handles GET /halls/:id/reviews/.
func (h *ReviewHandler) ForHall(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	res, err := h.Reviews.ForHall(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Mine handles GET /my-reviews/.
func (h *ReviewHandler) Mine(c echo.Context) error {
	list, err := h.Reviews.Mine(c.Request().Context(), middleware.IdentityFrom(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Reviewable handles GET /reviewable-appointments/.
func (h *ReviewHandler) Reviewable(c echo.Context) error {
	list, err := h.Reviews.Reviewable(c.Request().Context(), middleware.IdentityFrom(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// ForOwner handles GET /owner/reviews/.
func (h *ReviewHandler) ForOwner(c echo.Context) error {
	list, err := h.Reviews.ForOwner(c.Request().Context(), middleware.IdentityFrom(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// MonthlyStats handles GET /owner/monthly-stats/?year=YYYY.
func (h *ReviewHandler) MonthlyStats(c echo.Context) error {
	year := 0
	if s := c.QueryParam("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			return writeError(c, h.Log, invalid("invalid year %q", s))
		}
		year = y
	}
	rep, err := h.Reports.MonthlyStats(c.Request().Context(), middleware.IdentityFrom(c), year)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, rep)
}
