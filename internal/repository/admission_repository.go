package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hospital-frontdesk/internal/model"
)

// dateLayout is the storage format of admissions.admission_date.
const dateLayout = "2006-01-02"

// AdmissionRepo is the admission ledger and the only writer of admission
// status.  Besides the status column it maintains active_bed, which mirrors
// bed_number while the admission is Active and is NULL afterwards; the
// UNIQUE(room_id, active_bed) key therefore rejects two open admissions on
// the same bed slot.
type AdmissionRepo struct {
	db  *sql.DB
	loc *time.Location
	now func() time.Time
}

// NewAdmissionRepo returns a ledger that stamps admission dates in loc.
func NewAdmissionRepo(db *sql.DB, loc *time.Location) *AdmissionRepo {
	if loc == nil {
		loc = time.Local
	}
	return &AdmissionRepo{db: db, loc: loc, now: time.Now}
}

// SetClock replaces the time source; tests use it to pin admission dates.
func (r *AdmissionRepo) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

const admissionColumns = `id, patient_id, doctor_id, room_id, bed_number, admission_date, admitted_at,
	admission_type, deposit, status, notes, snapshot, created_at, updated_at`

func (r *AdmissionRepo) scan(s rowScanner) (*model.Admission, error) {
	var (
		a        model.Admission
		date     string
		typ      string
		status   string
		notes    sql.NullString
		snapshot string
	)
	if err := s.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.RoomID, &a.BedNumber, &date, &a.AdmittedAt,
		&typ, &a.Deposit, &status, &notes, &snapshot, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := time.ParseInLocation(dateLayout, date, r.loc)
	if err != nil {
		return nil, fmt.Errorf("admission %s: bad admission_date %q: %w", a.ID, date, err)
	}
	a.AdmissionDate = d
	a.AdmittedAt = a.AdmittedAt.In(r.loc)
	a.Type = model.AdmissionType(typ)
	a.Status = model.AdmissionStatus(status)
	a.Notes = notes.String
	if err := json.Unmarshal([]byte(snapshot), &a.Snapshot); err != nil {
		return nil, fmt.Errorf("admission %s: decode snapshot: %w", a.ID, err)
	}
	return &a, nil
}

// Create persists a new Active admission.  The id and admission date are
// assigned when absent.  ErrBedTaken is returned when another Active
// admission holds the same bed of the room.
func (r *AdmissionRepo) Create(ctx context.Context, a *model.Admission) error {
	if !a.Type.Valid() {
		return fmt.Errorf("invalid admission type %q", a.Type)
	}
	now := r.now().In(r.loc)
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AdmittedAt.IsZero() {
		a.AdmittedAt = now
	}
	if a.AdmissionDate.IsZero() {
		y, m, d := a.AdmittedAt.In(r.loc).Date()
		a.AdmissionDate = time.Date(y, m, d, 0, 0, 0, 0, r.loc)
	}
	a.Status = model.AdmissionActive
	a.CreatedAt = now
	a.UpdatedAt = now

	snapshot, err := json.Marshal(a.Snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	const q = `INSERT INTO admissions (id, patient_id, doctor_id, room_id, bed_number, active_bed,
	               admission_date, admitted_at, admission_type, deposit, status, notes, snapshot, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, q,
		a.ID, a.PatientID, a.DoctorID, a.RoomID, a.BedNumber, a.BedNumber,
		a.AdmissionDate.Format(dateLayout), a.AdmittedAt.UTC(), string(a.Type),
		a.Deposit.StringFixed(2), string(a.Status), a.Notes, string(snapshot),
		now.UTC(), now.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrBedTaken
		}
		return err
	}
	return nil
}

// GetByID returns the admission or ErrAdmissionNotFound.
func (r *AdmissionRepo) GetByID(ctx context.Context, id string) (*model.Admission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+admissionColumns+` FROM admissions WHERE id = ?`, id)
	a, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAdmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// SetStatus moves an admission to status and reports whether the stored
// status actually changed.  The compare and the write are one statement,
// so of two concurrent discharges exactly one observes changed=true.
func (r *AdmissionRepo) SetStatus(ctx context.Context, id string, status model.AdmissionStatus) (bool, error) {
	if !status.Valid() {
		return false, ErrInvalidStatus
	}
	activeBed := "NULL"
	if status == model.AdmissionActive {
		activeBed = "bed_number"
	}
	q := `UPDATE admissions SET status = ?, active_bed = ` + activeBed + `, updated_at = ?
	      WHERE id = ? AND status <> ?`
	res, err := r.db.ExecContext(ctx, q, string(status), r.now().UTC(), id, string(status))
	if err != nil {
		if isUniqueViolation(err) {
			return false, ErrBedTaken
		}
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM admissions WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrAdmissionNotFound
	}
	return false, err
}

// ListActiveByRoom returns the open admissions of a room ordered by bed.
func (r *AdmissionRepo) ListActiveByRoom(ctx context.Context, roomID uint64) ([]model.Admission, error) {
	return r.list(ctx, `SELECT `+admissionColumns+` FROM admissions
		WHERE room_id = ? AND status = ? ORDER BY bed_number`, roomID, string(model.AdmissionActive))
}

// ListByPatient returns every admission of a patient, newest first.
func (r *AdmissionRepo) ListByPatient(ctx context.Context, patientID uint64) ([]model.Admission, error) {
	return r.list(ctx, `SELECT `+admissionColumns+` FROM admissions
		WHERE patient_id = ? ORDER BY admitted_at DESC`, patientID)
}

func (r *AdmissionRepo) list(ctx context.Context, q string, args ...any) ([]model.Admission, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Admission, 0)
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
