package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/hospital-frontdesk/internal/model"
)

// PatientRepo reads the patient directory.  Registration belongs to
// another part of the front desk; Create exists for seeding.
type PatientRepo struct {
	db *sql.DB
}

func NewPatientRepo(db *sql.DB) *PatientRepo { return &PatientRepo{db: db} }

func (r *PatientRepo) GetByID(ctx context.Context, id uint64) (*model.Patient, error) {
	const q = `SELECT id, name, age, gender, contact, emergency_contact, address, problem FROM patients WHERE id = ?`
	var p model.Patient
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.Name, &p.Age, &p.Gender, &p.Contact, &p.EmergencyContact, &p.Address, &p.Problem)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PatientRepo) Create(ctx context.Context, p *model.Patient) error {
	const q = `INSERT INTO patients (name, age, gender, contact, emergency_contact, address, problem)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.Name, p.Age, p.Gender, p.Contact, p.EmergencyContact, p.Address, p.Problem)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}
