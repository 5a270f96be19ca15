package app

import (
	"context"
	"fmt"

	"enforcement_watch_bot/internal/domain/record"
	"enforcement_watch_bot/internal/domain/run"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")
var ErrNoCompletedRuns = fmt.Errorf("no runs have completed yet")

const (
	defaultRecentRecords = 5
	maxRecentRecords     = 20
)

// AdminService gates the operator commands behind the configured admin chat.
type AdminService struct {
	watch           WatchRunner
	recordRepo      record.Repository
	lastSummary     func() *run.Summary
	adminTelegramID int64
}

func NewAdminService(watch *WatchService, rr record.Repository, adminID int64) *AdminService {
	return &AdminService{
		watch:           watch,
		recordRepo:      rr,
		lastSummary:     watch.LastSummary,
		adminTelegramID: adminID,
	}
}

// TriggerRun starts a pipeline pass immediately on the operator's behalf.
func (s *AdminService) TriggerRun(ctx context.Context, performingAdminID int64) (*run.Summary, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	return s.watch.RunOnce(ctx)
}

// LastRun reports the most recent run summary.
func (s *AdminService) LastRun(performingAdminID int64) (*run.Summary, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	sum := s.lastSummary()
	if sum == nil {
		return nil, ErrNoCompletedRuns
	}
	return sum, nil
}

// RecentRecords lists the most recently dated stored records for display.
func (s *AdminService) RecentRecords(ctx context.Context, performingAdminID int64, limit int) ([]*record.EnforcementRecord, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	if limit <= 0 {
		limit = defaultRecentRecords
	}
	if limit > maxRecentRecords {
		limit = maxRecentRecords
	}
	return s.recordRepo.ListRecent(ctx, limit)
}
