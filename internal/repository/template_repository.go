package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/hospital-frontdesk/internal/model"
)

// TemplateRepo stores (module, document type) to template asset mappings.
type TemplateRepo struct {
	db *sql.DB
}

func NewTemplateRepo(db *sql.DB) *TemplateRepo { return &TemplateRepo{db: db} }

// FindActive returns the active template mapped to the pair or
// ErrTemplateNotFound.
func (r *TemplateRepo) FindActive(ctx context.Context, module, documentType string) (*model.Template, error) {
	const q = `SELECT id, module, document_type, name, object_key, url, mime_type, is_active, created_at
	           FROM document_templates
	           WHERE module = ? AND document_type = ? AND is_active = 1
	           ORDER BY id DESC LIMIT 1`
	var t model.Template
	err := r.db.QueryRowContext(ctx, q, module, documentType).Scan(
		&t.ID, &t.Module, &t.DocumentType, &t.Name, &t.ObjectKey, &t.URL, &t.MimeType, &t.IsActive, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Upsert maps t to its pair, deactivating the previously active mapping
// in the same transaction.  t.ID and t.CreatedAt are populated.
func (r *TemplateRepo) Upsert(ctx context.Context, t *model.Template) error {
	if t.Module == "" || t.DocumentType == "" || t.Name == "" {
		return fmt.Errorf("template module, document type and name are required")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`UPDATE document_templates SET is_active = 0 WHERE module = ? AND document_type = ? AND is_active = 1`,
		t.Module, t.DocumentType); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO document_templates (module, document_type, name, object_key, url, mime_type, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, 1)`,
		t.Module, t.DocumentType, t.Name, t.ObjectKey, t.URL, t.MimeType)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.QueryRowContext(ctx, `SELECT created_at FROM document_templates WHERE id = ?`, id).
		Scan(&t.CreatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	t.ID = uint64(id)
	t.IsActive = true
	return nil
}
