package router // package router defines how HTTP routes are registered for the API

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/sports-hall-booking/internal/config"
	"github.com/iliyamo/sports-hall-booking/internal/handler"
	"github.com/iliyamo/sports-hall-booking/internal/logging"
	"github.com/iliyamo/sports-hall-booking/internal/middleware"
	"github.com/iliyamo/sports-hall-booking/internal/model"
)

// Handlers groups every HTTP handler the API exposes.
type Handlers struct {
	Auth         *handler.AuthHandler
	Halls        *handler.HallHandler
	Appointments *handler.AppointmentHandler
	Availability *handler.AvailabilityHandler
	Reviews      *handler.ReviewHandler
	Health       echo.HandlerFunc
}

// Options carries the cross-cutting settings for route middleware.  A nil
// Redis client disables caching and rate limiting.
type Options struct {
	JWTSecret string
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
	Log       logrus.FieldLogger
}

// guard bundles the per-route middleware chains.  Routes take their
// middleware explicitly instead of through root-level groups so that a
// group's catch-all does not swallow unknown paths with a 401.
type guard struct {
	authed   []echo.MiddlewareFunc
	owner    []echo.MiddlewareFunc
	optional []echo.MiddlewareFunc
	cached   []echo.MiddlewareFunc
	limited  []echo.MiddlewareFunc
}

func newGuard(opts Options) guard {
	g := guard{
		authed:   []echo.MiddlewareFunc{middleware.JWTAuth(opts.JWTSecret)},
		owner:    []echo.MiddlewareFunc{middleware.JWTAuth(opts.JWTSecret), middleware.RequireRole(model.RoleOwner)},
		optional: []echo.MiddlewareFunc{middleware.OptionalJWT(opts.JWTSecret)},
	}
	if opts.Redis != nil {
		if opts.Cache.Enabled {
			g.cached = []echo.MiddlewareFunc{middleware.NewRedisCache(opts.Cache, opts.Redis, opts.Log)}
		}
		if opts.RateLimit.Enabled {
			g.limited = []echo.MiddlewareFunc{middleware.NewTokenBucket(opts.RateLimit, opts.Redis, opts.Log)}
		}
	}
	return g
}

// chain concatenates middleware lists into a fresh slice.
func chain(lists ...[]echo.MiddlewareFunc) []echo.MiddlewareFunc {
	var out []echo.MiddlewareFunc
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// New builds the echo instance with global middleware and every route.
func New(h Handlers, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = errorHandler(opts.Log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(logging.RequestLogger(opts.Log))
	e.Use(echomw.CORS())

	g := newGuard(opts)
	RegisterRoutes(e, h.Health)
	RegisterAuth(e, h.Auth, g)
	RegisterPublic(e, h, g)
	RegisterPlayer(e, h, g)
	RegisterOwner(e, h, g)
	return e
}

// errorHandler renders router level errors (unknown route, wrong method,
// bind failures escaping a handler) in the API's error shape.
func errorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := "internal error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			msg = fmt.Sprint(he.Message)
		} else {
			log.WithError(err).Error("unhandled error")
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, echo.Map{"error": msg})
	}
}

// RegisterRoutes registers routes that do not require authentication and
// do not belong to a resource.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	// Load balancers probe this endpoint; it also reports whether the
	// database answers.
	e.GET("/healthz", health)
}

// RegisterAuth registers all authentication-related routes.  Register,
// login and refresh need no session; the rest need a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g guard) {
	api := e.Group("/api")
	api.POST("/register/", a.Register)
	api.POST("/token/", a.Login)
	// Refresh rotates the refresh token: the old one is revoked.
	api.POST("/token/refresh/", a.Refresh)

	api.POST("/logout/", a.Logout, g.authed...)
	api.GET("/me/", a.Me, g.authed...)
	e.POST("/change-password/", a.ChangePassword, g.authed...)
}

// RegisterPublic registers browse endpoints open to guests.  Free slots
// read the caller's identity when one is sent so owners can ask for past
// dates; hall listings and reviews are served through the response cache.
func RegisterPublic(e *echo.Echo, h Handlers, g guard) {
	e.GET("/halls/", h.Halls.List, g.cached...)
	e.GET("/halls/:id/", h.Halls.Get, g.cached...)
	e.GET("/halls/:id/reviews/", h.Reviews.ForHall, g.cached...)
	e.GET("/halls/:id/free/", h.Appointments.FreeSlots, g.optional...)
	e.GET("/availabilities/", h.Availability.List)
}
