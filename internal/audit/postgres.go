package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// PostgresStore implements domain.AuditLogger on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL audit store on an existing
// connection. The schema is created on first use.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createPostgresSchema(db); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a PostgreSQL audit store from a connection
// URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func createPostgresSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_log (
		id BIGSERIAL PRIMARY KEY,
		claim_id TEXT NOT NULL,
		claim_number TEXT DEFAULT '',
		action TEXT NOT NULL,
		risk_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT DEFAULT '',
		detail TEXT DEFAULT '',
		created_at TIMESTAMPTZ DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_audit_claim_id ON audit_log(claim_id);
	CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_log(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// RecordAnalysis appends one audit entry.
func (s *PostgresStore) RecordAnalysis(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_log (claim_id, claim_number, action, risk_score, status, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := s.db.QueryRowContext(ctx, query,
		entry.ClaimID,
		entry.ClaimNumber,
		entry.Action,
		entry.RiskScore,
		string(entry.Status),
		entry.Detail,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("recording audit entry: %w", err)
	}

	return nil
}

// ListByClaim returns the audit trail for one claim, oldest first.
func (s *PostgresStore) ListByClaim(ctx context.Context, claimID string) ([]*domain.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, claim_id, claim_number, action, risk_score, status, detail, created_at
		 FROM audit_log WHERE claim_id = $1 ORDER BY created_at ASC, id ASC`,
		claimID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Close closes the underlying database.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
