package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hospital-frontdesk/internal/repository"
)

type DoctorHandler struct {
	Doctors *repository.DoctorRepo
}

// ListDoctors handles GET /v1/doctors: the consultants a draft may name.
func (h *DoctorHandler) ListDoctors(c echo.Context) error {
	list, err := h.Doctors.ListActive(c.Request().Context())
	if err != nil {
		return respondError(c, storage("list doctors", err))
	}
	return c.JSON(http.StatusOK, echo.Map{"doctors": list})
}
