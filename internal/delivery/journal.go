// internal/delivery/journal.go
package delivery

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"lead-funnel/internal/models"
)

// Journal records delivery attempts in Postgres so failed hand-offs can be
// replayed out of band. Strictly best-effort: a journal failure never blocks
// or reverses a capture completion.
type Journal struct {
	db *sql.DB
}

func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

const createJournalTable = `
CREATE TABLE IF NOT EXISTS lead_delivery_journal (
	id          BIGSERIAL PRIMARY KEY,
	email       TEXT NOT NULL,
	user_type   TEXT NOT NULL,
	payload     JSONB NOT NULL,
	status      TEXT NOT NULL,
	http_status INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL
)`

// Migrate creates the journal table if it does not exist.
func (j *Journal) Migrate(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, createJournalTable); err != nil {
		return fmt.Errorf("failed to create journal table: %w", err)
	}
	return nil
}

// Record inserts one attempt row.
func (j *Journal) Record(ctx context.Context, lead models.LeadRecord, status string, httpStatus int) error {
	payload, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("failed to marshal lead: %w", err)
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO lead_delivery_journal (email, user_type, payload, status, http_status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		lead.Email, string(lead.UserType), payload, status, httpStatus, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert journal row: %w", err)
	}
	return nil
}

// FailedSince lists the emails of failed deliveries newer than the cutoff,
// for the out-of-band replay tooling.
func (j *Journal) FailedSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT email FROM lead_delivery_journal WHERE status = 'error' AND created_at >= $1 ORDER BY created_at`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
