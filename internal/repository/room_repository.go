package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/hospital-frontdesk/internal/model"
)

// RoomRepo is the room inventory.  Occupancy changes are applied with a
// single conditional UPDATE so concurrent reservations against the last
// free bed cannot both succeed.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo given a DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

const roomColumns = `id, room_number, room_type, bed_count, occupied_beds, price_per_day, department, is_active, created_at, updated_at`

func scanRoom(s rowScanner) (*model.Room, error) {
	var rm model.Room
	var roomType string
	if err := s.Scan(&rm.ID, &rm.RoomNumber, &roomType, &rm.BedCount, &rm.OccupiedBeds,
		&rm.PricePerDay, &rm.Department, &rm.IsActive, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
		return nil, err
	}
	rm.Type = model.RoomType(roomType)
	return &rm, nil
}

// Create inserts a new room with zero occupancy and populates its ID and
// timestamps.  Room management owns creation; the front desk uses it for
// seeding.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
	switch {
	case rm.BedCount <= 0:
		return fmt.Errorf("%w: bed count must be positive", ErrInvalidRoom)
	case rm.PricePerDay.IsNegative():
		return fmt.Errorf("%w: price per day must not be negative", ErrInvalidRoom)
	case !rm.Type.Valid():
		return fmt.Errorf("%w: unknown room type %q", ErrInvalidRoom, rm.Type)
	}
	const q = `INSERT INTO rooms (room_number, room_type, bed_count, occupied_beds, price_per_day, department, is_active)
	           VALUES (?, ?, ?, 0, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rm.RoomNumber, string(rm.Type), rm.BedCount,
		rm.PricePerDay.StringFixed(2), rm.Department, rm.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*rm = *created
	return nil
}

// GetByID returns the room with the given id or ErrRoomNotFound.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	rm, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return rm, nil
}

// ListAvailable returns rooms ordered by room number.  With activeOnly set,
// inactive rooms are skipped; they are never deleted.
func (r *RoomRepo) ListAvailable(ctx context.Context, activeOnly bool) ([]model.Room, error) {
	q := `SELECT ` + roomColumns + ` FROM rooms`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY room_number`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]model.Room, 0)
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *rm)
	}
	return rooms, rows.Err()
}

// TryReserveBed increments the occupied count of the room if a bed is
// free and returns the new count.  The capacity check and the increment
// are one statement; when it matches no row the room is looked up in the
// same transaction to tell ErrRoomNotFound from ErrCapacityExceeded.
func (r *RoomRepo) TryReserveBed(ctx context.Context, id uint64) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const upd = `UPDATE rooms SET occupied_beds = occupied_beds + 1, updated_at = CURRENT_TIMESTAMP
	             WHERE id = ? AND occupied_beds < bed_count`
	res, err := tx.ExecContext(ctx, upd, id)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	occupied, err := occupiedTx(ctx, tx, id)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return occupied, ErrCapacityExceeded
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return occupied, nil
}

// Release frees one bed of the room and returns the new occupied count.
// The count is clamped at zero.
func (r *RoomRepo) Release(ctx context.Context, id uint64) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// RowsAffected is not used here: MySQL reports 0 for a room that is
	// already empty.
	const upd = `UPDATE rooms
	             SET occupied_beds = CASE WHEN occupied_beds > 0 THEN occupied_beds - 1 ELSE 0 END,
	                 updated_at = CURRENT_TIMESTAMP
	             WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, id); err != nil {
		return 0, err
	}
	occupied, err := occupiedTx(ctx, tx, id)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return occupied, nil
}

// SetActive flips the availability flag of a room.
func (r *RoomRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM rooms WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRoomNotFound
	}
	return err
}

func occupiedTx(ctx context.Context, tx *sql.Tx, id uint64) (int, error) {
	var occupied int
	err := tx.QueryRowContext(ctx, `SELECT occupied_beds FROM rooms WHERE id = ?`, id).Scan(&occupied)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrRoomNotFound
	}
	return occupied, err
}
