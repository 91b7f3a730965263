package handler

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hospital-frontdesk/internal/allocation"
	"github.com/iliyamo/hospital-frontdesk/internal/repository"
)

// RoomHandler serves room availability and the bed board.
type RoomHandler struct {
	Rooms      *repository.RoomRepo
	Admissions *repository.AdmissionRepo
	Orch       *allocation.Orchestrator
}

func NewRoomHandler(rooms *repository.RoomRepo, admissions *repository.AdmissionRepo, orch *allocation.Orchestrator) *RoomHandler {
	if rooms == nil || admissions == nil || orch == nil {
		panic("nil dependency passed to NewRoomHandler")
	}
	return &RoomHandler{Rooms: rooms, Admissions: admissions, Orch: orch}
}

type roomView struct {
	ID               uint64 `json:"id"`
	RoomNumber       string `json:"room_number"`
	RoomType         string `json:"room_type"`
	Department       string `json:"department"`
	BedCount         int    `json:"bed_count"`
	OccupiedBeds     int    `json:"occupied_beds"`
	FreeBeds         int    `json:"free_beds"`
	PricePerDay      string `json:"price_per_day"`
	SuggestedDeposit string `json:"suggested_deposit"`
	IsActive         bool   `json:"is_active"`
}

// ListRooms handles GET /v1/rooms.  Active rooms only unless ?active=false.
func (h *RoomHandler) ListRooms(c echo.Context) error {
	activeOnly := true
	if v := c.QueryParam("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "active must be true or false"})
		}
		activeOnly = b
	}
	rooms, err := h.Rooms.ListAvailable(c.Request().Context(), activeOnly)
	if err != nil {
		return respondError(c, storage("list rooms", err))
	}
	out := make([]roomView, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, roomView{
			ID:               rm.ID,
			RoomNumber:       rm.RoomNumber,
			RoomType:         string(rm.Type),
			Department:       rm.Department,
			BedCount:         rm.BedCount,
			OccupiedBeds:     rm.OccupiedBeds,
			FreeBeds:         rm.FreeBeds(),
			PricePerDay:      rm.PricePerDay.StringFixed(2),
			SuggestedDeposit: allocation.SuggestedDeposit(rm.PricePerDay, h.Orch.StayDays()).StringFixed(2),
			IsActive:         rm.IsActive,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": out})
}

// GetRoom handles GET /v1/rooms/:id.
func (h *RoomHandler) GetRoom(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	rm, err := h.Rooms.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, storage("load room", err))
	}
	return c.JSON(http.StatusOK, rm)
}

// Beds handles GET /v1/rooms/:id/beds.  It lists every bed number of the
// room with the admission holding it, if any.
func (h *RoomHandler) Beds(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	ctx := c.Request().Context()
	rm, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		return respondError(c, storage("load room", err))
	}
	active, err := h.Admissions.ListActiveByRoom(ctx, id)
	if err != nil {
		return respondError(c, storage("list room admissions", err))
	}

	type bed struct {
		BedNumber   int    `json:"bed_number"`
		Occupied    bool   `json:"occupied"`
		AdmissionID string `json:"admission_id,omitempty"`
		PatientName string `json:"patient_name,omitempty"`
	}
	held := make(map[int]bed, len(active))
	for _, a := range active {
		held[a.BedNumber] = bed{BedNumber: a.BedNumber, Occupied: true, AdmissionID: a.ID, PatientName: a.Snapshot.Patient.Name}
	}
	beds := make([]bed, 0, rm.BedCount)
	for n := 1; n <= rm.BedCount; n++ {
		if b, ok := held[n]; ok {
			beds = append(beds, b)
			delete(held, n)
			continue
		}
		beds = append(beds, bed{BedNumber: n})
	}
	// numbers outside the current range still show up so staff can fix them
	extra := make([]int, 0, len(held))
	for n := range held {
		extra = append(extra, n)
	}
	sort.Ints(extra)
	for _, n := range extra {
		beds = append(beds, held[n])
	}

	return c.JSON(http.StatusOK, echo.Map{
		"room_id":       rm.ID,
		"bed_count":     rm.BedCount,
		"occupied_beds": rm.OccupiedBeds,
		"beds":          beds,
	})
}

// Release handles POST /v1/rooms/:id/release.  It frees one bed without
// touching any admission; discharge should normally go through
// POST /v1/admissions/:id/discharge instead.
func (h *RoomHandler) Release(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	occupied, err := h.Orch.Release(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"room_id": id, "occupied_beds": occupied})
}

// SetActive handles PATCH /v1/rooms/:id/active with {"active": bool}.
// Inactive rooms disappear from the default listing; occupancy is kept.
func (h *RoomHandler) SetActive(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	var body struct {
		Active *bool `json:"active"`
	}
	if err := c.Bind(&body); err != nil || body.Active == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "active is required"})
	}
	if err := h.Rooms.SetActive(c.Request().Context(), id, *body.Active); err != nil {
		return respondError(c, storage("set room active", err))
	}
	return c.JSON(http.StatusOK, echo.Map{"room_id": id, "is_active": *body.Active})
}
