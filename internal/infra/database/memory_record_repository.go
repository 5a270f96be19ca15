package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"enforcement_watch_bot/internal/domain/record"
)

// InMemoryRecordRepository keeps records in memory for tests and dry runs.
// Upsert semantics match the Postgres repository: display fields refresh,
// FirstSeenRunID and CreatedAt stick.
type InMemoryRecordRepository struct {
	mu      sync.RWMutex
	records map[string]*record.EnforcementRecord
}

func NewInMemoryRecordRepository() *InMemoryRecordRepository {
	return &InMemoryRecordRepository{records: make(map[string]*record.EnforcementRecord)}
}

func (s *InMemoryRecordRepository) Upsert(_ context.Context, rec *record.EnforcementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	stored := *rec
	if existing, ok := s.records[rec.IdentityKey]; ok {
		stored.FirstSeenRunID = existing.FirstSeenRunID
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.records[rec.IdentityKey] = &stored

	rec.FirstSeenRunID = stored.FirstSeenRunID
	rec.CreatedAt = stored.CreatedAt
	rec.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *InMemoryRecordRepository) KnownKeys(_ context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make(map[string]struct{}, len(s.records))
	for key := range s.records {
		keys[key] = struct{}{}
	}
	return keys, nil
}

func (s *InMemoryRecordRepository) GetByKey(_ context.Context, identityKey string) (*record.EnforcementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[identityKey]
	if !ok {
		return nil, ErrRecordNotFound
	}
	out := *rec
	return &out, nil
}

func (s *InMemoryRecordRepository) ListRecent(_ context.Context, limit int) ([]*record.EnforcementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*record.EnforcementRecord, 0, len(s.records))
	for _, rec := range s.records {
		out := *rec
		all = append(all, &out)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].ActionDate.Equal(all[j].ActionDate) {
			return all[i].ActionDate.After(all[j].ActionDate)
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
