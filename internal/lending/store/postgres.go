// internal/lending/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lending-workers/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS lending_submissions (
	application_id TEXT PRIMARY KEY,
	priority       TEXT NOT NULL,
	payload        JSONB NOT NULL,
	submitted_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS lender_applications (
	application_id TEXT NOT NULL,
	lender_id      TEXT NOT NULL,
	status         TEXT NOT NULL,
	payload        JSONB NOT NULL,
	submitted_at   TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (application_id, lender_id)
);

CREATE INDEX IF NOT EXISTS idx_lender_applications_lender ON lender_applications (lender_id, status);`

// PostgresStore persists submissions and records as JSONB rows.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure lending schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveSubmission(ctx context.Context, sub *models.Submission) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO lending_submissions (application_id, priority, payload, submitted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (application_id)
		DO UPDATE SET priority = EXCLUDED.priority, payload = EXCLUDED.payload, submitted_at = EXCLUDED.submitted_at`,
		sub.ApplicationID, string(sub.Priority), payload, sub.SubmittedAt)
	if err != nil {
		return fmt.Errorf("upsert submission %s: %w", sub.ApplicationID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM lender_applications WHERE application_id = $1`, sub.ApplicationID); err != nil {
		return fmt.Errorf("clear records %s: %w", sub.ApplicationID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit submission %s: %w", sub.ApplicationID, err)
	}
	return nil
}

func (s *PostgresStore) GetSubmission(ctx context.Context, applicationID string) (*models.Submission, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM lending_submissions WHERE application_id = $1`, applicationID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: submission %s", ErrNotFound, applicationID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	var sub models.Submission
	if err := json.Unmarshal(payload, &sub); err != nil {
		return nil, fmt.Errorf("decode submission %s: %w", applicationID, err)
	}
	return &sub, nil
}

func (s *PostgresStore) PutRecord(ctx context.Context, rec *models.LenderApplication) error {
	stored := rec.Clone()
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO lender_applications (application_id, lender_id, status, payload, submitted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (application_id, lender_id)
		DO UPDATE SET status = EXCLUDED.status, payload = EXCLUDED.payload,
			submitted_at = EXCLUDED.submitted_at, updated_at = EXCLUDED.updated_at`,
		stored.ApplicationID, stored.LenderID, string(stored.Status), payload, stored.SubmittedAt, stored.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", stored.ID, err)
	}
	return nil
}

// UpdateRecord locks the row with SELECT ... FOR UPDATE for the duration of fn.
func (s *PostgresStore) UpdateRecord(ctx context.Context, applicationID, lenderID string, fn UpdateFunc) (*models.LenderApplication, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var payload []byte
	err = tx.QueryRowContext(ctx, `
		SELECT payload FROM lender_applications
		WHERE application_id = $1 AND lender_id = $2
		FOR UPDATE`, applicationID, lenderID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: record %s", ErrNotFound, models.LenderApplicationID(applicationID, lenderID))
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	var rec models.LenderApplication
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if err := fn(&rec); err != nil {
		return nil, err
	}
	rec.UpdatedAt = time.Now().UTC()

	out, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE lender_applications
		SET status = $3, payload = $4, updated_at = $5
		WHERE application_id = $1 AND lender_id = $2`,
		applicationID, lenderID, string(rec.Status), out, rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit record update: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) GetRecord(ctx context.Context, applicationID, lenderID string) (*models.LenderApplication, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM lender_applications
		WHERE application_id = $1 AND lender_id = $2`, applicationID, lenderID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: record %s", ErrNotFound, models.LenderApplicationID(applicationID, lenderID))
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	var rec models.LenderApplication
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, applicationID string) ([]models.LenderApplication, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM lender_applications
		WHERE application_id = $1
		ORDER BY submitted_at, lender_id`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return scanRecords(rows)
}

func (s *PostgresStore) ListAllRecords(ctx context.Context) ([]models.LenderApplication, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM lender_applications
		ORDER BY submitted_at, application_id, lender_id`)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]models.LenderApplication, error) {
	defer rows.Close()

	var out []models.LenderApplication
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec models.LenderApplication
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}
