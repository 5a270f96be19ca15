package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"enforcement_watch_bot/internal/domain/publisher"
	"enforcement_watch_bot/internal/domain/record"
	"enforcement_watch_bot/internal/domain/run"
	"enforcement_watch_bot/internal/domain/source"

	"github.com/sirupsen/logrus"
)

// WatchRunner is the surface the scheduler and operator commands trigger.
type WatchRunner interface {
	RunOnce(ctx context.Context) (*run.Summary, error)
}

// ErrRunInProgress is returned when a run is triggered while another run is
// still executing.
var ErrRunInProgress = fmt.Errorf("a run is already in progress")

// WatchService coordinates one fetch → normalize → diff → persist → notify
// pass over the regulator's published list. All collaborators are injected;
// the service holds no ambient state beyond the last run summary.
type WatchService struct {
	source     source.Source
	recordRepo record.Repository
	publisher  publisher.Client
	logger     *logrus.Entry

	// runMu serializes pipeline passes. The cron job and the operator's
	// /run command share one service in-process, and two interleaved runs
	// could both diff against the same key set and announce a record twice.
	runMu sync.Mutex

	mu          sync.Mutex
	lastSummary *run.Summary
}

func NewWatchService(
	src source.Source,
	rr record.Repository,
	pub publisher.Client,
	logger *logrus.Entry,
) *WatchService {
	return &WatchService{
		source:     src,
		recordRepo: rr,
		publisher:  pub,
		logger:     logger,
	}
}

// RunOnce executes a single pipeline pass. Every candidate, new or known, is
// upserted before the first publish call: after a crash between persist and
// notify the next run finds the records known and stays silent, which is the
// accepted failure mode (a missed post beats a duplicate post on a public
// feed).
//
// At most one run executes at a time: a trigger arriving while another run
// is still in flight is refused with ErrRunInProgress rather than queued,
// so every run diffs against a settled key set.
//
// Except for ErrRunInProgress the returned summary is non-nil; err is
// non-nil only for fatal failures (fetch transport, store access).
// Per-record normalization and publish failures are counted in the summary,
// never returned.
func (s *WatchService) RunOnce(ctx context.Context) (*run.Summary, error) {
	if !s.runMu.TryLock() {
		s.logger.Warn("Run trigger refused, another run is in progress")
		return nil, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	r := run.New(time.Now())
	log := s.logger.WithField("run_id", r.ID)
	log.Info("Run started")

	summary := &run.Summary{RunID: r.ID, Started: r.StartedAt, Outcomes: r.Outcomes}
	fail := func(err error) (*run.Summary, error) {
		r.State = run.StateFailed
		summary.State = run.StateFailed
		summary.Finished = time.Now()
		s.remember(summary)
		return summary, err
	}

	// FETCHING. A transport failure aborts before any store mutation.
	raws, err := s.source.Fetch(ctx)
	if err != nil {
		log.WithError(err).Error("Fetch failed, store untouched")
		return fail(fmt.Errorf("fetch: %w", err))
	}

	// NORMALIZING. A malformed candidate is skipped and logged; one bad
	// entry must not block the rest of the run.
	r.State = run.StateNormalizing
	candidates := make([]*record.EnforcementRecord, 0, len(raws))
	for _, raw := range raws {
		rec, err := record.Normalize(raw)
		if err != nil {
			summary.Skipped++
			log.WithError(err).WithField("page_url", raw.PageURL).Warn("Skipping malformed candidate")
			continue
		}
		rec.FirstSeenRunID = r.ID // the store preserves the original on conflict
		candidates = append(candidates, rec)
	}
	r.Candidates = candidates
	summary.Candidates = len(candidates)

	// DIFFING.
	r.State = run.StateDiffing
	known, err := s.recordRepo.KnownKeys(ctx)
	if err != nil {
		log.WithError(err).Error("Could not read known keys")
		return fail(fmt.Errorf("known keys: %w", err))
	}
	fresh, seen := record.Diff(candidates, known)
	summary.New = len(fresh)
	summary.Known = len(seen)
	for _, rec := range fresh {
		r.NewKeys = append(r.NewKeys, rec.IdentityKey)
	}

	// PERSISTING. A failure here leaves an unknown subset stored; that
	// state is logged loudly for manual reconciliation and no publish
	// happens this run.
	r.State = run.StatePersisting
	for i, rec := range candidates {
		if err := s.recordRepo.Upsert(ctx, rec); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"identity_key": rec.IdentityKey,
				"persisted":    i,
				"total":        len(candidates),
			}).Error("Store upsert failed mid-run, stored subset is ambiguous, reconcile manually")
			return fail(fmt.Errorf("upsert %s: %w", rec.IdentityKey, err))
		}
	}

	// NOTIFYING. Proceeds even with zero new records. A failed publish is a
	// delivery gap: the record stays known and is never retried in a later
	// run.
	r.State = run.StateNotifying
	for _, rec := range fresh {
		if err := s.publisher.Publish(record.PostText(rec)); err != nil {
			r.Outcomes[rec.IdentityKey] = run.OutcomeFailed
			summary.DeliveryGaps = append(summary.DeliveryGaps, rec.IdentityKey)
			log.WithError(err).WithField("identity_key", rec.IdentityKey).Warn("Publish failed, record stays known and will not be retried")
			continue
		}
		r.Outcomes[rec.IdentityKey] = run.OutcomeSent
		summary.Sent++
	}

	r.State = run.StateDone
	summary.State = run.StateDone
	summary.Finished = time.Now()
	s.remember(summary)

	doneLog := log.WithFields(logrus.Fields{
		"candidates": summary.Candidates,
		"skipped":    summary.Skipped,
		"new":        summary.New,
		"known":      summary.Known,
		"sent":       summary.Sent,
	})
	if len(summary.DeliveryGaps) > 0 {
		doneLog.WithFields(logrus.Fields{
			"delivery_gaps": len(summary.DeliveryGaps),
			"gap_keys":      summary.DeliveryGaps,
		}).Warn("Run finished with records stored but not announced")
	} else {
		doneLog.Info("Run finished")
	}
	return summary, nil
}

// LastSummary returns the most recent run's summary, or nil before the
// first run completes or fails.
func (s *WatchService) LastSummary() *run.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSummary
}

func (s *WatchService) remember(sum *run.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSummary = sum
}
