package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hospital-frontdesk/internal/allocation"
	"github.com/iliyamo/hospital-frontdesk/internal/repository"
)

// AdmissionHandler admits, looks up and discharges patients.
type AdmissionHandler struct {
	Orch       *allocation.Orchestrator
	Admissions *repository.AdmissionRepo
}

func NewAdmissionHandler(orch *allocation.Orchestrator, admissions *repository.AdmissionRepo) *AdmissionHandler {
	if orch == nil || admissions == nil {
		panic("nil dependency passed to NewAdmissionHandler")
	}
	return &AdmissionHandler{Orch: orch, Admissions: admissions}
}

// Admit handles POST /v1/admissions.  The body is an admission draft; an
// omitted deposit defaults to the room price times the stay length.
func (h *AdmissionHandler) Admit(c echo.Context) error {
	var d allocation.Draft
	if err := c.Bind(&d); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	d.Notes = strings.TrimSpace(d.Notes)

	at, err := h.Orch.Admit(c.Request().Context(), d)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"state":         at.State,
		"admission":     at.Committed.Admission,
		"occupied_beds": at.Committed.Occupied,
	})
}

// GetAdmission handles GET /v1/admissions/:id.
func (h *AdmissionHandler) GetAdmission(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid admission id"})
	}
	adm, err := h.Admissions.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, storage("load admission", err))
	}
	return c.JSON(http.StatusOK, adm)
}

// Discharge handles POST /v1/admissions/:id/discharge.  Repeating it for
// a discharged admission returns the same record and frees nothing.
func (h *AdmissionHandler) Discharge(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid admission id"})
	}
	adm, err := h.Orch.Discharge(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, adm)
}

// PatientHistory handles GET /v1/patients/:id/admissions, newest first.
func (h *AdmissionHandler) PatientHistory(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid patient id"})
	}
	list, err := h.Admissions.ListByPatient(c.Request().Context(), id)
	if err != nil {
		return respondError(c, storage("list patient admissions", err))
	}
	return c.JSON(http.StatusOK, echo.Map{"patient_id": id, "admissions": list})
}
