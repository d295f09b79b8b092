package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
)

// RegisterOwner registers OWNER-scoped endpoints.  All routes require a
// valid JWT and the OWNER role; ownership of the hall itself is checked
// by the handlers and services.
func RegisterOwner(e *echo.Echo, h Handlers, g guard) {
	// ---- Halls ----
	e.POST("/halls/create/", h.Halls.Create, g.owner...)
	e.PUT("/halls/:id/", h.Halls.Update, g.owner...)
	e.DELETE("/halls/:id/", h.Halls.Delete, g.owner...)
	e.GET("/my-halls/", h.Halls.Mine, g.owner...)

	// ---- Availability ----
	e.POST("/availabilities/create/", h.Availability.Create, g.owner...)
	e.POST("/availabilities/bulk-create/", h.Availability.BulkCreate, g.owner...)
	e.DELETE("/availabilities/:id/", h.Availability.Delete, g.owner...)

	// ---- Appointments ----
	e.POST("/appointments/:id/owner-action/", h.Appointments.OwnerAction, g.owner...)
	e.GET("/halls/:id/pending/", h.Appointments.PendingForHall, g.owner...)
	e.GET("/owner/appointments/", h.Appointments.OwnerList, g.owner...)

	// ---- Reviews and statistics ----
	e.GET("/owner/reviews/", h.Reviews.ForOwner, g.owner...)
	e.GET("/owner/monthly-stats/", h.Reviews.MonthlyStats, g.owner...)
}
