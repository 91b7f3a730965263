// Package allocation admits patients to beds.  An attempt moves from the
// desk's draft (Collecting) through Validate (Validated) to Commit
// (Committed) or stops in Failed.  Commit reserves a bed in the room
// inventory first and then writes the admission to the ledger; if the
// write fails the bed is released again before the error is returned.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hospital-frontdesk/internal/model"
	"github.com/iliyamo/hospital-frontdesk/internal/repository"
)

// Inventory is the room inventory as seen by the orchestrator.
type Inventory interface {
	GetByID(ctx context.Context, id uint64) (*model.Room, error)
	TryReserveBed(ctx context.Context, id uint64) (int, error)
	Release(ctx context.Context, id uint64) (int, error)
}

// Ledger is the admission ledger as seen by the orchestrator.
type Ledger interface {
	Create(ctx context.Context, a *model.Admission) error
	GetByID(ctx context.Context, id string) (*model.Admission, error)
	SetStatus(ctx context.Context, id string, status model.AdmissionStatus) (bool, error)
	ListActiveByRoom(ctx context.Context, roomID uint64) ([]model.Admission, error)
}

type PatientDirectory interface {
	GetByID(ctx context.Context, id uint64) (*model.Patient, error)
}

type DoctorDirectory interface {
	GetByID(ctx context.Context, id uint64) (*model.Doctor, error)
}

// EventPublisher is notified after an admission commits or a bed is freed.
// Publishing is best effort.
type EventPublisher interface {
	AdmissionCommitted(ctx context.Context, a model.Admission, occupied int) error
	BedReleased(ctx context.Context, roomID uint64, occupied int, admissionID string) error
}

// Recorder counts attempt outcomes.
type Recorder interface {
	Committed()
	Failed(reason string)
	Released()
}

// Validated is a draft that passed every rule together with the records
// it refers to.
type Validated struct {
	Draft   Draft
	Type    model.AdmissionType
	Deposit decimal.Decimal
	Room    model.Room
	Patient model.Patient
	Doctor  model.Doctor
}

// Committed is the outcome of a successful commit.  Occupied is the
// room's occupied-bed count right after the reservation.
type Committed struct {
	Admission model.Admission
	Occupied  int
}

// Attempt records how far one call to Admit got.
type Attempt struct {
	State     State
	Draft     Draft
	Validated *Validated
	Committed *Committed
	Err       error
}

// Orchestrator coordinates the room inventory and the admission ledger.
type Orchestrator struct {
	rooms    Inventory
	ledger   Ledger
	patients PatientDirectory
	doctors  DoctorDirectory

	publisher EventPublisher
	metrics   Recorder
	stayDays  int
	now       func() time.Time
	log       zerolog.Logger
}

// New builds an orchestrator.  Publisher and metrics are optional and set
// with SetPublisher and SetMetrics.
func New(rooms Inventory, ledger Ledger, patients PatientDirectory, doctors DoctorDirectory, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		rooms:    rooms,
		ledger:   ledger,
		patients: patients,
		doctors:  doctors,
		stayDays: DefaultStayDays,
		now:      time.Now,
		log:      logger.With().Str("component", "allocation").Logger(),
	}
}

func (o *Orchestrator) SetPublisher(p EventPublisher) { o.publisher = p }
func (o *Orchestrator) SetMetrics(m Recorder)         { o.metrics = m }

// SetDefaultStayDays changes the multiplier of the suggested deposit.
func (o *Orchestrator) SetDefaultStayDays(days int) {
	if days > 0 {
		o.stayDays = days
	}
}

func (o *Orchestrator) SetClock(now func() time.Time) {
	if now != nil {
		o.now = now
	}
}

// StayDays returns the configured deposit multiplier.
func (o *Orchestrator) StayDays() int { return o.stayDays }

// Validate checks d in a fixed order and stops at the first violation.
// Unknown rooms, patients and doctors are returned as not-found errors;
// rule violations as *ValidationError.
func (o *Orchestrator) Validate(ctx context.Context, d Draft) (*Validated, error) {
	switch {
	case d.PatientID == 0:
		return nil, invalid(CodeMissingPatient, "patient_id", "a patient must be selected")
	case d.DoctorID == 0:
		return nil, invalid(CodeMissingDoctor, "doctor_id", "a consultant must be selected")
	case d.RoomID == 0:
		return nil, invalid(CodeMissingRoom, "room_id", "a room must be selected")
	}

	room, err := o.rooms.GetByID(ctx, d.RoomID)
	if err != nil {
		return nil, persistence("load room", err)
	}
	if !room.IsActive {
		return nil, invalid(CodeRoomInactive, "room_id", "room %s is not accepting admissions", room.RoomNumber)
	}
	if d.BedNumber < 1 || d.BedNumber > room.BedCount {
		return nil, invalid(CodeBedNumberOutOfRange, "bed_number",
			"bed number %d is out of range [1, %d] for room %s", d.BedNumber, room.BedCount, room.RoomNumber)
	}

	deposit := SuggestedDeposit(room.PricePerDay, o.stayDays)
	if d.Deposit != nil {
		deposit = *d.Deposit
	}
	if deposit.IsNegative() {
		return nil, invalid(CodeNegativeDeposit, "deposit", "deposit must not be negative, got %s", deposit.StringFixed(2))
	}

	typ := d.Type
	if typ == "" {
		typ = model.AdmissionDirect
	}
	if !typ.Valid() {
		return nil, invalid(CodeInvalidAdmissionType, "admission_type",
			"admission type must be one of FromOPD, Direct, Emergency, got %q", d.Type)
	}

	held, err := o.ledger.ListActiveByRoom(ctx, room.ID)
	if err != nil {
		return nil, persistence("list room admissions", err)
	}
	for _, a := range held {
		if a.BedNumber == d.BedNumber {
			return nil, invalid(CodeBedNumberTaken, "bed_number",
				"bed %d in room %s is already occupied", d.BedNumber, room.RoomNumber)
		}
	}

	patient, err := o.patients.GetByID(ctx, d.PatientID)
	if err != nil {
		return nil, persistence("load patient", err)
	}
	doctor, err := o.doctors.GetByID(ctx, d.DoctorID)
	if err != nil {
		return nil, persistence("load doctor", err)
	}

	o.log.Debug().Str("state", string(StateValidated)).
		Uint64("room_id", room.ID).Int("bed_number", d.BedNumber).Msg("draft validated")

	return &Validated{
		Draft:   d,
		Type:    typ,
		Deposit: deposit,
		Room:    *room,
		Patient: *patient,
		Doctor:  *doctor,
	}, nil
}

// Commit reserves a bed and records the admission.  It is all or nothing:
// when the ledger write fails the reservation is released before the
// error is returned.  Cancellation of ctx is ignored once the commit has
// started so that a reservation is never left without its admission.
func (o *Orchestrator) Commit(ctx context.Context, v *Validated) (*Committed, error) {
	ctx = context.WithoutCancel(ctx)
	log := o.log.With().Uint64("room_id", v.Room.ID).Int("bed_number", v.Draft.BedNumber).Logger()

	occupied, err := o.rooms.TryReserveBed(ctx, v.Room.ID)
	if err != nil {
		reason := "reserve"
		if errors.Is(err, ErrCapacityExceeded) {
			reason = "capacity"
		}
		o.failed(reason)
		log.Warn().Err(err).Str("state", string(StateFailed)).Msg("bed reservation refused")
		return nil, persistence("reserve bed", err)
	}

	now := o.now()
	adm := &model.Admission{
		PatientID:  v.Patient.ID,
		DoctorID:   v.Doctor.ID,
		RoomID:     v.Room.ID,
		BedNumber:  v.Draft.BedNumber,
		AdmittedAt: now,
		Type:       v.Type,
		Deposit:    v.Deposit,
		Notes:      v.Draft.Notes,
		Snapshot: model.Snapshot{
			Patient:    v.Patient,
			Doctor:     v.Doctor,
			Room:       model.SnapshotOf(v.Room),
			CapturedAt: now,
		},
	}
	if err := o.ledger.Create(ctx, adm); err != nil {
		if _, relErr := o.rooms.Release(ctx, v.Room.ID); relErr != nil {
			log.Error().Err(relErr).AnErr("create_err", err).Msg("compensating release failed")
			o.failed("compensation")
			return nil, &PersistenceError{
				Op:  "create admission",
				Err: errors.Join(err, fmt.Errorf("compensating release: %w", relErr)),
			}
		}
		log.Warn().Err(err).Str("state", string(StateFailed)).Msg("admission not recorded, bed released")
		if errors.Is(err, repository.ErrBedTaken) {
			o.failed("bed_taken")
			return nil, invalid(CodeBedNumberTaken, "bed_number",
				"bed %d in room %s is already occupied", v.Draft.BedNumber, v.Room.RoomNumber)
		}
		o.failed("ledger")
		return nil, &PersistenceError{Op: "create admission", Err: err}
	}

	log.Info().Str("state", string(StateCommitted)).Str("admission_id", adm.ID).
		Int("occupied", occupied).Msg("admission committed")
	if o.metrics != nil {
		o.metrics.Committed()
	}
	if o.publisher != nil {
		if err := o.publisher.AdmissionCommitted(ctx, *adm, occupied); err != nil {
			log.Error().Err(err).Str("admission_id", adm.ID).Msg("publish admission event")
		}
	}
	return &Committed{Admission: *adm, Occupied: occupied}, nil
}

// Admit validates d and commits it.  The returned attempt is never nil and
// its Err equals the returned error.
func (o *Orchestrator) Admit(ctx context.Context, d Draft) (*Attempt, error) {
	at := &Attempt{State: StateCollecting, Draft: d}

	v, err := o.Validate(ctx, d)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			o.failed(string(ve.Code))
		} else {
			o.failed("validate")
		}
		o.log.Info().Err(err).Str("state", string(StateFailed)).Uint64("room_id", d.RoomID).Msg("draft rejected")
		at.State, at.Err = StateFailed, err
		return at, err
	}
	at.State, at.Validated = StateValidated, v

	c, err := o.Commit(ctx, v)
	if err != nil {
		at.State, at.Err = StateFailed, err
		return at, err
	}
	at.State, at.Committed = StateCommitted, c
	return at, nil
}

// Release frees one bed in the room and returns the new occupied count.
// The discharge workflow calls it; Discharge below does so itself.
func (o *Orchestrator) Release(ctx context.Context, roomID uint64) (int, error) {
	return o.release(ctx, roomID, "")
}

func (o *Orchestrator) release(ctx context.Context, roomID uint64, admissionID string) (int, error) {
	occupied, err := o.rooms.Release(ctx, roomID)
	if err != nil {
		return 0, persistence("release bed", err)
	}
	o.log.Info().Uint64("room_id", roomID).Str("admission_id", admissionID).
		Int("occupied", occupied).Msg("bed released")
	if o.metrics != nil {
		o.metrics.Released()
	}
	if o.publisher != nil {
		if err := o.publisher.BedReleased(ctx, roomID, occupied, admissionID); err != nil {
			o.log.Error().Err(err).Uint64("room_id", roomID).Msg("publish release event")
		}
	}
	return occupied, nil
}

// Discharge marks the admission Discharged and frees its bed.  Discharging
// an already discharged admission changes nothing.  If the bed cannot be
// freed the admission is put back to Active so the call can be retried.
func (o *Orchestrator) Discharge(ctx context.Context, admissionID string) (*model.Admission, error) {
	ctx = context.WithoutCancel(ctx)

	adm, err := o.ledger.GetByID(ctx, admissionID)
	if err != nil {
		return nil, persistence("load admission", err)
	}
	changed, err := o.ledger.SetStatus(ctx, admissionID, model.AdmissionDischarged)
	if err != nil {
		return nil, persistence("discharge admission", err)
	}
	if !changed {
		adm.Status = model.AdmissionDischarged
		return adm, nil
	}

	if _, err := o.release(ctx, adm.RoomID, adm.ID); err != nil {
		if _, revErr := o.ledger.SetStatus(ctx, admissionID, model.AdmissionActive); revErr != nil {
			o.log.Error().Err(revErr).Str("admission_id", admissionID).Msg("revert discharge failed")
		}
		return nil, err
	}
	adm.Status = model.AdmissionDischarged
	return adm, nil
}

func (o *Orchestrator) failed(reason string) {
	if o.metrics != nil {
		o.metrics.Failed(reason)
	}
}
