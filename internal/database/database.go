// Package database keeps a local sqlite audit trail of reservation
// submission attempts and their outcomes.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB represents the audit database connection.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

// SubmissionRecord is one audited submission attempt.
type SubmissionRecord struct {
	ID              int64     `json:"id"`
	ProviderID      string    `json:"provider_id"`
	ClientID        string    `json:"client_id"`
	Date            string    `json:"date"` // YYYY-MM-DD
	SelectedSlots   []string  `json:"selected_slots"`
	DurationMinutes int       `json:"duration_minutes"`
	SessionCount    int       `json:"session_count"`
	TotalFee        int64     `json:"total_fee"`
	Outcome         string    `json:"outcome"` // ok, conflict, error
	ReservationID   string    `json:"reservation_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewDB opens the audit database and creates tables if missing.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode and busy timeout keep concurrent API writes from failing.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	d := &DB{DB: db, logger: logger}
	if err := d.createTables(); err != nil {
		return nil, err
	}
	return d, nil
}

func (db *DB) createTables() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS submission_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			provider_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			date TEXT NOT NULL,
			selected_slots TEXT NOT NULL,
			duration_minutes INTEGER NOT NULL,
			session_count INTEGER NOT NULL,
			total_fee INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			reservation_id TEXT,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_submission_audit_provider_date
			ON submission_audit(provider_id, date);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// RecordSubmission appends a submission attempt to the audit trail.
func (db *DB) RecordSubmission(ctx context.Context, rec *SubmissionRecord) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO submission_audit (
			provider_id, client_id, date, selected_slots,
			duration_minutes, session_count, total_fee,
			outcome, reservation_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ProviderID, rec.ClientID, rec.Date, strings.Join(rec.SelectedSlots, ","),
		rec.DurationMinutes, rec.SessionCount, rec.TotalFee,
		rec.Outcome, rec.ReservationID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

// ListSubmissions returns audited attempts for a provider within a date
// range (inclusive, YYYY-MM-DD).
func (db *DB) ListSubmissions(ctx context.Context, providerID, from, to string) ([]SubmissionRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, provider_id, client_id, date, selected_slots,
		       duration_minutes, session_count, total_fee,
		       outcome, reservation_id, created_at
		FROM submission_audit
		WHERE provider_id = ? AND date >= ? AND date <= ?
		ORDER BY created_at, id`,
		providerID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SubmissionRecord
	for rows.Next() {
		var rec SubmissionRecord
		var slots string
		var reservationID sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.ProviderID, &rec.ClientID, &rec.Date, &slots,
			&rec.DurationMinutes, &rec.SessionCount, &rec.TotalFee,
			&rec.Outcome, &reservationID, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		if slots != "" {
			rec.SelectedSlots = strings.Split(slots, ",")
		}
		if reservationID.Valid {
			rec.ReservationID = reservationID.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
