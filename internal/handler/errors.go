// Package handler exposes the front-desk operations over HTTP.  Handlers
// assume JWTAuth and RequireRole already ran.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/hospital-frontdesk/internal/allocation"
	"github.com/iliyamo/hospital-frontdesk/internal/document"
	"github.com/iliyamo/hospital-frontdesk/internal/repository"
)

// respondError maps domain errors onto status codes.  Storage details are
// never written to the client.
func respondError(c echo.Context, err error) error {
	var ve *allocation.ValidationError
	var re *document.RenderError
	var pe *allocation.PersistenceError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Message, "code": ve.Code, "field": ve.Field})
	case errors.Is(err, allocation.ErrCapacityExceeded):
		// availability changed since the room was listed
		return c.JSON(http.StatusConflict, echo.Map{"error": "room is full", "code": "CapacityExceeded", "refresh": true})
	case errors.Is(err, repository.ErrRoomNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found", "code": "RoomNotFound"})
	case errors.Is(err, repository.ErrAdmissionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "admission not found", "code": "AdmissionNotFound"})
	case errors.Is(err, repository.ErrPatientNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "patient not found", "code": "PatientNotFound"})
	case errors.Is(err, repository.ErrDoctorNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "doctor not found", "code": "DoctorNotFound"})
	case errors.As(err, &re):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": re.Error(), "code": "RenderError", "field": re.Field})
	case errors.Is(err, document.ErrUnknownVariant):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "code": "UnknownVariant"})
	case errors.As(err, &pe):
		logFor(c).Error().Err(pe.Err).Str("op", pe.Op).Msg("storage failure")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage unavailable, try again", "code": "PersistenceFailure"})
	}
	logFor(c).Error().Err(err).Msg("unhandled error")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// storage marks a repository failure as a persistence error unless it is
// already one of the outcomes respondError knows.
func storage(op string, err error) error {
	var ve *allocation.ValidationError
	var re *document.RenderError
	var pe *allocation.PersistenceError
	switch {
	case errors.As(err, &ve), errors.As(err, &re), errors.As(err, &pe),
		allocation.IsNotFound(err),
		errors.Is(err, allocation.ErrCapacityExceeded),
		errors.Is(err, document.ErrUnknownVariant):
		return err
	}
	return &allocation.PersistenceError{Op: op, Err: err}
}

// logFor returns the request logger installed by middleware.Logger.
func logFor(c echo.Context) *zerolog.Logger {
	return zerolog.Ctx(c.Request().Context())
}

func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
