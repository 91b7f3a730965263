package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/hospital-frontdesk/internal/model"
)

// DoctorRepo reads the doctor directory.
type DoctorRepo struct {
	db *sql.DB
}

func NewDoctorRepo(db *sql.DB) *DoctorRepo { return &DoctorRepo{db: db} }

func (r *DoctorRepo) GetByID(ctx context.Context, id uint64) (*model.Doctor, error) {
	const q = `SELECT id, name, department, specialization, is_active FROM doctors WHERE id = ?`
	var d model.Doctor
	err := r.db.QueryRowContext(ctx, q, id).Scan(&d.ID, &d.Name, &d.Department, &d.Specialization, &d.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListActive returns consultants that can be selected on an admission,
// ordered by name.
func (r *DoctorRepo) ListActive(ctx context.Context) ([]model.Doctor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, department, specialization, is_active FROM doctors WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Doctor, 0)
	for rows.Next() {
		var d model.Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Department, &d.Specialization, &d.IsActive); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DoctorRepo) Create(ctx context.Context, d *model.Doctor) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO doctors (name, department, specialization, is_active) VALUES (?, ?, ?, ?)`,
		d.Name, d.Department, d.Specialization, d.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}
