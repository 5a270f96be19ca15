package record

import "context"

// Repository defines the durable keyed store over enforcement records.
type Repository interface {
	// Upsert inserts the record, or refreshes the display fields of an
	// existing one. FirstSeenRunID and CreatedAt are never changed once set.
	// Each call commits atomically.
	Upsert(ctx context.Context, rec *EnforcementRecord) error
	// KnownKeys returns the identity keys of every stored record.
	KnownKeys(ctx context.Context) (map[string]struct{}, error)
	GetByKey(ctx context.Context, identityKey string) (*EnforcementRecord, error)
	// ListRecent returns up to limit records, most recent action first.
	ListRecent(ctx context.Context, limit int) ([]*EnforcementRecord, error)
}
