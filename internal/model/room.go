package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoomType classifies a ward or bay.  The literals are stored verbatim in
// the rooms.room_type column.
type RoomType string

const (
	RoomGeneral   RoomType = "General"
	RoomPrivate   RoomType = "Private"
	RoomICU       RoomType = "ICU"
	RoomEmergency RoomType = "Emergency"
)

// Valid reports whether t is one of the known room types.
func (t RoomType) Valid() bool {
	switch t {
	case RoomGeneral, RoomPrivate, RoomICU, RoomEmergency:
		return true
	}
	return false
}

// Room represents a physical ward or bay with a fixed number of beds that
// share a per-day price.  OccupiedBeds is only ever changed through the
// room inventory's reserve/release operations and always satisfies
// 0 <= OccupiedBeds <= BedCount.
//
// Fields:
//
//	ID           – primary key identifier.
//	RoomNumber   – human facing number printed on paperwork.
//	Type         – General, Private, ICU or Emergency.
//	BedCount     – capacity, fixed at creation (> 0).
//	OccupiedBeds – beds currently reserved by active admissions.
//	PricePerDay  – non-negative daily charge.
//	Department   – owning department.
//	IsActive     – inactive rooms are hidden from availability queries.
type Room struct {
	ID           uint64          `json:"id"`
	RoomNumber   string          `json:"room_number"`
	Type         RoomType        `json:"room_type"`
	BedCount     int             `json:"bed_count"`
	OccupiedBeds int             `json:"occupied_beds"`
	PricePerDay  decimal.Decimal `json:"price_per_day"`
	Department   string          `json:"department"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// FreeBeds returns how many beds are still available in the room.
func (r Room) FreeBeds() int {
	if r.OccupiedBeds >= r.BedCount {
		return 0
	}
	return r.BedCount - r.OccupiedBeds
}
