package router

import (
	"github.com/labstack/echo/v4"
)

// RegisterPlayer registers endpoints any signed-in user may call: booking,
// cancelling, checking in and reviewing.  Booking writes are rate limited
// per user.
func RegisterPlayer(e *echo.Echo, h Handlers, g guard) {
	a := h.Appointments
	e.POST("/appointments/create/", a.Create, chain(g.authed, g.limited)...)
	e.DELETE("/appointments/:id/delete/", a.Cancel, chain(g.authed, g.limited)...)
	e.POST("/appointments/:id/checkin/", a.CheckIn, g.authed...)
	e.GET("/appointments/", a.Mine, g.authed...)

	r := h.Reviews
	e.POST("/reviews/create/", r.Create, g.authed...)
	e.GET("/my-reviews/", r.Mine, g.authed...)
	e.GET("/reviewable-appointments/", r.Reviewable, g.authed...)
}
