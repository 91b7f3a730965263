// Package queue defines the admission events exchanged over the message
// broker and the consumer that keeps the ward register.
package queue

import "encoding/json"

// QueueName is the durable queue all admission events are routed to.
const QueueName = "admission.events"

// Event type names carried in Envelope.Type.
const (
	TypeAdmissionCommitted = "admission.committed"
	TypeBedReleased        = "bed.released"
)

// Envelope wraps every message so one queue can carry several event types.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AdmissionCommittedEvent is published after an admission and its bed
// reservation both succeeded.  It carries enough of the snapshot for the
// register without querying the database.
type AdmissionCommittedEvent struct {
	AdmissionID   string `json:"admission_id"`
	PatientID     uint64 `json:"patient_id"`
	PatientName   string `json:"patient_name"`
	DoctorName    string `json:"doctor_name"`
	RoomID        uint64 `json:"room_id"`
	RoomNumber    string `json:"room_number"`
	BedNumber     int    `json:"bed_number"`
	AdmissionType string `json:"admission_type"`
	Deposit       string `json:"deposit"`
	Occupied      int    `json:"occupied"`
	BedCount      int    `json:"bed_count"`
	AdmittedAt    string `json:"admitted_at"`
}

// BedReleasedEvent is published whenever a bed is freed.  AdmissionID is
// empty for releases not tied to a discharge.
type BedReleasedEvent struct {
	RoomID      uint64 `json:"room_id"`
	AdmissionID string `json:"admission_id,omitempty"`
	Occupied    int    `json:"occupied"`
	ReleasedAt  string `json:"released_at"`
}
