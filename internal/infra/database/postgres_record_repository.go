package database

import (
	"context"
	"database/sql"
	"fmt"

	"enforcement_watch_bot/internal/domain/record"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors
var ErrRecordNotFound = fmt.Errorf("enforcement record not found")

// PostgresRecordRepository persists enforcement records in the
// enforcement_records table, one row per identity key.
type PostgresRecordRepository struct {
	db *sql.DB
}

func NewPostgresRecordRepository(db *sql.DB) *PostgresRecordRepository {
	return &PostgresRecordRepository{db: db}
}

// Upsert inserts the record or refreshes the display fields of the existing
// row. The conflict branch deliberately leaves first_seen_run_id and
// created_at alone: the first run that stored a record owns it forever.
// A single statement, so each call commits atomically.
func (r *PostgresRecordRepository) Upsert(ctx context.Context, rec *record.EnforcementRecord) error {
	query := `INSERT INTO enforcement_records
                (identity_key, organisation, action_date, action_type, penalty_amount,
                 summary, page_url, pdf_url, pdf_id, first_seen_run_id)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
               ON CONFLICT (identity_key) DO UPDATE SET
                 organisation   = EXCLUDED.organisation,
                 action_date    = EXCLUDED.action_date,
                 action_type    = EXCLUDED.action_type,
                 penalty_amount = EXCLUDED.penalty_amount,
                 summary        = EXCLUDED.summary,
                 page_url       = EXCLUDED.page_url,
                 pdf_url        = EXCLUDED.pdf_url,
                 pdf_id         = EXCLUDED.pdf_id,
                 updated_at     = NOW()
               RETURNING first_seen_run_id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		rec.IdentityKey, rec.Organisation, rec.ActionDate, string(rec.ActionType), rec.PenaltyAmount,
		rec.Summary, rec.PageURL, rec.PDFURL, rec.PDFID, rec.FirstSeenRunID,
	).Scan(&rec.FirstSeenRunID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error upserting enforcement record %s: %w", rec.IdentityKey, err)
	}
	return nil
}

func (r *PostgresRecordRepository) KnownKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT identity_key FROM enforcement_records`)
	if err != nil {
		return nil, fmt.Errorf("error listing known keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("error scanning known key: %w", err)
		}
		keys[key] = struct{}{}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating known keys: %w", err)
	}
	return keys, nil
}

func (r *PostgresRecordRepository) GetByKey(ctx context.Context, identityKey string) (*record.EnforcementRecord, error) {
	query := `SELECT identity_key, organisation, action_date, action_type, penalty_amount,
                      summary, page_url, pdf_url, pdf_id, first_seen_run_id, created_at, updated_at
               FROM enforcement_records WHERE identity_key = $1`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, identityKey))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("error getting enforcement record by key: %w", err)
	}
	return rec, nil
}

func (r *PostgresRecordRepository) ListRecent(ctx context.Context, limit int) ([]*record.EnforcementRecord, error) {
	query := `SELECT identity_key, organisation, action_date, action_type, penalty_amount,
                      summary, page_url, pdf_url, pdf_id, first_seen_run_id, created_at, updated_at
               FROM enforcement_records
               ORDER BY action_date DESC, created_at DESC
               LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing recent enforcement records: %w", err)
	}
	defer rows.Close()

	records := make([]*record.EnforcementRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning recent enforcement record: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent enforcement records: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*record.EnforcementRecord, error) {
	rec := &record.EnforcementRecord{}
	var actionType string
	err := row.Scan(&rec.IdentityKey, &rec.Organisation, &rec.ActionDate, &actionType, &rec.PenaltyAmount,
		&rec.Summary, &rec.PageURL, &rec.PDFURL, &rec.PDFID, &rec.FirstSeenRunID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.ActionType = record.ActionType(actionType)
	return rec, nil
}
