// Package router registers the HTTP routes of the front desk.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/hospital-frontdesk/internal/handler"
	"github.com/iliyamo/hospital-frontdesk/internal/middleware"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Health    *handler.HealthHandler
	Rooms     *handler.RoomHandler
	Admission *handler.AdmissionHandler
	Documents *handler.DocumentHandler
	Doctors   *handler.DoctorHandler
}

// Options carries the per-route middleware built from configuration.  A
// nil entry means the middleware is off.
type Options struct {
	JWTSecret string
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
	Gatherer  prometheus.Gatherer
}

// RegisterRoutes mounts the unauthenticated endpoints.
func RegisterRoutes(e *echo.Echo, h Handlers, opts Options) {
	e.GET("/healthz", h.Health.Health)
	if opts.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
}

// RegisterV1 mounts the front-desk API.  Every route needs a FRONTDESK or
// ADMIN token; template and room flag changes need ADMIN.
func RegisterV1(e *echo.Echo, h Handlers, opts Options) {
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(opts.JWTSecret))
	v1.Use(middleware.RequireRole(middleware.RoleFrontDesk, middleware.RoleAdmin))
	if opts.RateLimit != nil {
		v1.Use(opts.RateLimit)
	}

	v1.GET("/rooms", h.Rooms.ListRooms)
	v1.GET("/rooms/:id", h.Rooms.GetRoom)
	v1.GET("/rooms/:id/beds", h.Rooms.Beds)
	v1.POST("/rooms/:id/release", h.Rooms.Release)
	v1.PATCH("/rooms/:id/active", h.Rooms.SetActive, middleware.RequireRole(middleware.RoleAdmin))

	v1.POST("/admissions", h.Admission.Admit)
	v1.GET("/admissions/:id", h.Admission.GetAdmission)
	v1.POST("/admissions/:id/discharge", h.Admission.Discharge)
	v1.GET("/admissions/:id/documents/:kind", h.Documents.Render)
	v1.GET("/patients/:id/admissions", h.Admission.PatientHistory)
	v1.GET("/doctors", h.Doctors.ListDoctors)

	v1.GET("/templates/:module/:type", h.Documents.GetTemplate)
	v1.PUT("/templates/:module/:type", h.Documents.PutTemplate, middleware.RequireRole(middleware.RoleAdmin))

	// consent texts never depend on occupancy, so only they are cached
	var consent []echo.MiddlewareFunc
	if opts.Cache != nil {
		consent = append(consent, opts.Cache)
	}
	v1.GET("/consents/:variant", h.Documents.Consent, consent...)
}
