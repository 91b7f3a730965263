package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdmissionStatus is the lifecycle state of an admission.  The literals are
// shared with existing paperwork and must be persisted verbatim.
type AdmissionStatus string

const (
	AdmissionActive     AdmissionStatus = "Active"
	AdmissionDischarged AdmissionStatus = "Discharged"
)

// Valid reports whether s is a known admission status.
func (s AdmissionStatus) Valid() bool {
	return s == AdmissionActive || s == AdmissionDischarged
}

// AdmissionType records how the patient arrived.  Persisted verbatim.
type AdmissionType string

const (
	AdmissionFromOPD   AdmissionType = "FromOPD"
	AdmissionDirect    AdmissionType = "Direct"
	AdmissionEmergency AdmissionType = "Emergency"
)

// Valid reports whether t is a known admission type.
func (t AdmissionType) Valid() bool {
	switch t {
	case AdmissionFromOPD, AdmissionDirect, AdmissionEmergency:
		return true
	}
	return false
}

// Admission is the record of a patient's stay.  It ties a patient, a
// consultant, a room and a 1-based bed slot together.  An Active admission
// always holds exactly one reserved bed in its room.
//
// Fields:
//
//	ID            – UUID assigned by the ledger.
//	PatientID     – patient directory reference, immutable once set.
//	DoctorID      – consultant reference.
//	RoomID        – room holding the reserved bed.
//	BedNumber     – 1 <= BedNumber <= room capacity at admission time.
//	AdmissionDate – calendar date the record was created.
//	AdmittedAt    – wall clock time of the commit.
//	Type          – FromOPD, Direct or Emergency.
//	Deposit       – non-negative advance amount.
//	Status        – Active or Discharged.
//	Notes         – free text; doubles as the admission reason on the form.
//	Snapshot      – patient/doctor/room fields frozen at commit time.
type Admission struct {
	ID            string          `json:"id"`
	PatientID     uint64          `json:"patient_id"`
	DoctorID      uint64          `json:"doctor_id"`
	RoomID        uint64          `json:"room_id"`
	BedNumber     int             `json:"bed_number"`
	AdmissionDate time.Time       `json:"admission_date"`
	AdmittedAt    time.Time       `json:"admitted_at"`
	Type          AdmissionType   `json:"admission_type"`
	Deposit       decimal.Decimal `json:"deposit"`
	Status        AdmissionStatus `json:"status"`
	Notes         string          `json:"notes"`
	Snapshot      Snapshot        `json:"snapshot"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Snapshot is a read-only copy of the directory data the paperwork needs.
// It is captured when the admission commits so that later edits to doctor
// or room records never change documents that were already issued.
type Snapshot struct {
	Patient    Patient      `json:"patient"`
	Doctor     Doctor       `json:"doctor"`
	Room       RoomSnapshot `json:"room"`
	CapturedAt time.Time    `json:"captured_at"`
}

// RoomSnapshot holds the room fields printed on admission paperwork.
type RoomSnapshot struct {
	ID          uint64          `json:"id"`
	RoomNumber  string          `json:"room_number"`
	Type        RoomType        `json:"room_type"`
	Department  string          `json:"department"`
	BedCount    int             `json:"bed_count"`
	PricePerDay decimal.Decimal `json:"price_per_day"`
}

// SnapshotOf copies the printable fields of a room.
func SnapshotOf(r Room) RoomSnapshot {
	return RoomSnapshot{
		ID:          r.ID,
		RoomNumber:  r.RoomNumber,
		Type:        r.Type,
		Department:  r.Department,
		BedCount:    r.BedCount,
		PricePerDay: r.PricePerDay,
	}
}
