// Package audit records every fraud-analysis run for compliance review. Two
// backends are provided: PostgreSQL alongside the claims database, and a
// standalone SQLite file for single-node deployments.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// SQLiteStore implements domain.AuditLogger using a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a SQLite audit store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		claim_id TEXT NOT NULL,
		claim_number TEXT DEFAULT '',
		action TEXT NOT NULL,
		risk_score REAL NOT NULL DEFAULT 0,
		status TEXT DEFAULT '',
		detail TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_audit_claim_id ON audit_log(claim_id);
	CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_log(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// RecordAnalysis appends one audit entry.
func (s *SQLiteStore) RecordAnalysis(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (claim_id, claim_number, action, risk_score, status, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ClaimID,
		entry.ClaimNumber,
		entry.Action,
		entry.RiskScore,
		string(entry.Status),
		entry.Detail,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording audit entry: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// ListByClaim returns the audit trail for one claim, oldest first.
func (s *SQLiteStore) ListByClaim(ctx context.Context, claimID string) ([]*domain.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, claim_id, claim_number, action, risk_score, status, detail, created_at
		 FROM audit_log WHERE claim_id = ? ORDER BY created_at ASC, id ASC`,
		claimID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner covers sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*domain.AuditEntry, error) {
	entry := &domain.AuditEntry{}
	var status string
	err := s.Scan(
		&entry.ID, &entry.ClaimID, &entry.ClaimNumber, &entry.Action,
		&entry.RiskScore, &status, &entry.Detail, &entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.Status = domain.ClaimStatus(status)
	return entry, nil
}

func scanEntries(rows *sql.Rows) ([]*domain.AuditEntry, error) {
	var entries []*domain.AuditEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
