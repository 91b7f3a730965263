package allocation

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hospital-frontdesk/internal/model"
)

// DefaultStayDays is the stay length the suggested deposit covers when no
// other value is configured.
const DefaultStayDays = 3

// State is the stage an admission attempt has reached.
type State string

const (
	StateCollecting State = "Collecting"
	StateValidated  State = "Validated"
	StateCommitted  State = "Committed"
	StateFailed     State = "Failed"
)

// Draft is what the desk collected for one admission attempt.  Every
// selection is an explicit field; nothing is read from shared state.
// A nil Deposit means "not entered".
type Draft struct {
	PatientID     uint64              `json:"patient_id"`
	DoctorID      uint64              `json:"doctor_id"`
	RoomID        uint64              `json:"room_id"`
	BedNumber     int                 `json:"bed_number"`
	Type          model.AdmissionType `json:"admission_type"`
	Deposit       *decimal.Decimal    `json:"deposit,omitempty"`
	DepositEdited bool                `json:"deposit_edited,omitempty"`
	Notes         string              `json:"notes"`
}

// SuggestedDeposit is price per day times the stay length.
func SuggestedDeposit(pricePerDay decimal.Decimal, stayDays int) decimal.Decimal {
	if stayDays < 1 {
		stayDays = DefaultStayDays
	}
	return pricePerDay.Mul(decimal.NewFromInt(int64(stayDays)))
}

// SelectRoom points the draft at room.  The suggested deposit is
// recomputed for the new room unless staff already edited the amount.
func (d *Draft) SelectRoom(room model.Room, stayDays int) {
	d.RoomID = room.ID
	if d.DepositEdited {
		return
	}
	v := SuggestedDeposit(room.PricePerDay, stayDays)
	d.Deposit = &v
}

// EditDeposit records an amount typed by staff.  Later room changes keep it.
func (d *Draft) EditDeposit(v decimal.Decimal) {
	d.Deposit = &v
	d.DepositEdited = true
}
