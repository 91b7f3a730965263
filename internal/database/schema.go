package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the tables used by the front desk if they do not exist.
// Statements are idempotent so the command can run on every deploy.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	for i, stmt := range schema(dialect) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return nil
}

func schema(d Dialect) []string {
	pk := "BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY"
	ref := "BIGINT UNSIGNED NOT NULL"
	tail := " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
	if d == SQLite {
		pk = "INTEGER PRIMARY KEY AUTOINCREMENT"
		ref = "INTEGER NOT NULL"
		tail = ""
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id ` + pk + `,
			room_number VARCHAR(32) NOT NULL UNIQUE,
			room_type VARCHAR(16) NOT NULL,
			bed_count INT NOT NULL,
			occupied_beds INT NOT NULL DEFAULT 0,
			price_per_day DECIMAL(12,2) NOT NULL DEFAULT 0,
			department VARCHAR(128) NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT chk_rooms_capacity CHECK (bed_count > 0),
			CONSTRAINT chk_rooms_occupancy CHECK (occupied_beds >= 0 AND occupied_beds <= bed_count),
			CONSTRAINT chk_rooms_price CHECK (price_per_day >= 0)
		)` + tail,
		`CREATE TABLE IF NOT EXISTS patients (
			id ` + pk + `,
			name VARCHAR(255) NOT NULL,
			age INT NOT NULL DEFAULT 0,
			gender VARCHAR(16) NOT NULL DEFAULT '',
			contact VARCHAR(64) NOT NULL DEFAULT '',
			emergency_contact VARCHAR(64) NOT NULL DEFAULT '',
			address VARCHAR(512) NOT NULL DEFAULT '',
			problem VARCHAR(512) NOT NULL DEFAULT ''
		)` + tail,
		`CREATE TABLE IF NOT EXISTS doctors (
			id ` + pk + `,
			name VARCHAR(255) NOT NULL,
			department VARCHAR(128) NOT NULL DEFAULT '',
			specialization VARCHAR(128) NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT 1
		)` + tail,
		// active_bed mirrors bed_number while the admission is Active and is
		// NULL afterwards, so the unique key only binds open admissions.
		`CREATE TABLE IF NOT EXISTS admissions (
			id CHAR(36) NOT NULL PRIMARY KEY,
			patient_id ` + ref + `,
			doctor_id ` + ref + `,
			room_id ` + ref + `,
			bed_number INT NOT NULL,
			active_bed INT NULL,
			admission_date VARCHAR(10) NOT NULL,
			admitted_at DATETIME NOT NULL,
			admission_type VARCHAR(16) NOT NULL,
			deposit DECIMAL(12,2) NOT NULL DEFAULT 0,
			status VARCHAR(16) NOT NULL,
			notes TEXT,
			snapshot TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT uq_admissions_active_bed UNIQUE (room_id, active_bed),
			CONSTRAINT fk_admissions_room FOREIGN KEY (room_id) REFERENCES rooms(id),
			CONSTRAINT chk_admissions_bed CHECK (bed_number >= 1),
			CONSTRAINT chk_admissions_deposit CHECK (deposit >= 0)
		)` + tail,
		`CREATE TABLE IF NOT EXISTS document_templates (
			id ` + pk + `,
			module VARCHAR(64) NOT NULL,
			document_type VARCHAR(64) NOT NULL,
			name VARCHAR(255) NOT NULL,
			object_key VARCHAR(512) NOT NULL DEFAULT '',
			url VARCHAR(1024) NOT NULL DEFAULT '',
			mime_type VARCHAR(128) NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)` + tail,
	}

	if d == SQLite {
		stmts = append(stmts,
			`CREATE INDEX IF NOT EXISTS idx_admissions_patient ON admissions (patient_id)`,
			`CREATE INDEX IF NOT EXISTS idx_templates_lookup ON document_templates (module, document_type, is_active)`,
		)
	}
	return stmts
}
