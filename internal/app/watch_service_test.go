package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"enforcement_watch_bot/internal/domain/record"
	"enforcement_watch_bot/internal/domain/run"
	idb "enforcement_watch_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	raws []record.Raw
	err  error
}

func (f *fakeSource) Fetch(context.Context) ([]record.Raw, error) {
	return f.raws, f.err
}

type fakePublisher struct {
	posts    []string
	failWhen func(text string) bool
}

func (f *fakePublisher) Publish(text string) error {
	if f.failWhen != nil && f.failWhen(text) {
		return errors.New("transport down")
	}
	f.posts = append(f.posts, text)
	return nil
}

// failingRepo wraps the in-memory repository to inject store failures.
type failingRepo struct {
	record.Repository
	failUpsert bool
}

func (f *failingRepo) Upsert(ctx context.Context, rec *record.EnforcementRecord) error {
	if f.failUpsert {
		return errors.New("disk full")
	}
	return f.Repository.Upsert(ctx, rec)
}

func rawFor(org string) record.Raw {
	return record.Raw{
		Title:       org,
		Date:        "21 December 2017",
		Description: org + " has been fined £120,000 for nuisance calls.",
		PageURL:     "https://ico.org.uk/action-weve-taken/enforcement/" + strings.ToLower(org) + "/",
		PDFURL:      "https://ico.org.uk/media/action-weve-taken/mpns/2172874/" + strings.ToLower(org) + ".pdf",
	}
}

func keyFor(t *testing.T, raw record.Raw) string {
	t.Helper()
	rec, err := record.Normalize(raw)
	require.NoError(t, err)
	return rec.IdentityKey
}

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log.WithField("component", "test")
}

func newTestService(raws ...record.Raw) (*WatchService, *fakeSource, *idb.InMemoryRecordRepository, *fakePublisher) {
	src := &fakeSource{raws: raws}
	repo := idb.NewInMemoryRecordRepository()
	pub := &fakePublisher{}
	return NewWatchService(src, repo, pub, testLogger()), src, repo, pub
}

func TestRunStoresAndNotifiesAllNewRecords(t *testing.T) {
	svc, _, repo, pub := newTestService(rawFor("Alpha"), rawFor("Bravo"), rawFor("Charlie"))

	summary, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, run.StateDone, summary.State)
	assert.Equal(t, 3, summary.Candidates)
	assert.Equal(t, 3, summary.New)
	assert.Equal(t, 3, summary.Sent)
	assert.Len(t, pub.posts, 3)

	keys, err := repo.KnownKeys(context.Background())
	require.NoError(t, err)
	assert.Len(t, keys, 3)
}

func TestRunNotifiesOnlyUnknownRecords(t *testing.T) {
	svc, src, repo, pub := newTestService(rawFor("Alpha"))
	_, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	pub.posts = nil

	src.raws = []record.Raw{rawFor("Alpha"), rawFor("Bravo")}
	summary, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.New)
	assert.Equal(t, 1, summary.Known)
	assert.Equal(t, 1, summary.Sent)
	require.Len(t, pub.posts, 1)
	assert.Contains(t, pub.posts[0], "Bravo")

	keys, err := repo.KnownKeys(context.Background())
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestRunIsIdempotent(t *testing.T) {
	svc, _, repo, pub := newTestService(rawFor("Alpha"), rawFor("Bravo"))

	first, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, first.Sent)

	stored, err := repo.GetByKey(context.Background(), keyFor(t, rawFor("Alpha")))
	require.NoError(t, err)
	assert.Equal(t, first.RunID, stored.FirstSeenRunID)

	second, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, second.New)
	assert.Equal(t, 0, second.Sent)
	assert.Len(t, pub.posts, 2) // no new posts on the second run

	// FirstSeenRunID survives the refreshing upsert of the second run.
	stored, err = repo.GetByKey(context.Background(), keyFor(t, rawFor("Alpha")))
	require.NoError(t, err)
	assert.Equal(t, first.RunID, stored.FirstSeenRunID)
}

func TestRunDuplicateOfKnownRecord(t *testing.T) {
	svc, src, _, pub := newTestService(rawFor("Alpha"))
	_, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	pub.posts = nil

	src.raws = []record.Raw{rawFor("Alpha"), rawFor("Alpha")}
	summary, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.New)
	assert.Equal(t, 2, summary.Known)
	assert.Empty(t, pub.posts)
}

func TestRunIntraRunDuplicateNotifiedOnce(t *testing.T) {
	svc, _, _, pub := newTestService(rawFor("Alpha"), rawFor("Alpha"))

	summary, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.New)
	assert.Equal(t, 1, summary.Known)
	assert.Len(t, pub.posts, 1)
}

func TestRunSkipsMalformedCandidate(t *testing.T) {
	malformed := rawFor("Broken")
	malformed.Date = "not a date"
	svc, _, repo, pub := newTestService(malformed, rawFor("Bravo"))

	summary, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, run.StateDone, summary.State)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Candidates)
	assert.Equal(t, 1, summary.Sent)
	assert.Len(t, pub.posts, 1)

	keys, err := repo.KnownKeys(context.Background())
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestRunFetchErrorLeavesStoreUntouched(t *testing.T) {
	svc, src, repo, pub := newTestService()
	src.err = errors.New("connection refused")

	summary, err := svc.RunOnce(context.Background())
	require.Error(t, err)

	assert.Equal(t, run.StateFailed, summary.State)
	assert.Empty(t, pub.posts)
	keys, kerr := repo.KnownKeys(context.Background())
	require.NoError(t, kerr)
	assert.Empty(t, keys)
}

func TestRunStoreFailureSuppressesAllPublishes(t *testing.T) {
	src := &fakeSource{raws: []record.Raw{rawFor("Alpha"), rawFor("Bravo")}}
	repo := &failingRepo{Repository: idb.NewInMemoryRecordRepository(), failUpsert: true}
	pub := &fakePublisher{}
	svc := NewWatchService(src, repo, pub, testLogger())

	summary, err := svc.RunOnce(context.Background())
	require.Error(t, err)

	assert.Equal(t, run.StateFailed, summary.State)
	assert.Empty(t, pub.posts)
}

func TestRunPublishFailureIsDeliveryGapNotRetried(t *testing.T) {
	svc, src, repo, pub := newTestService(rawFor("Alpha"))
	pub.failWhen = func(text string) bool { return strings.Contains(text, "Alpha") }

	summary, err := svc.RunOnce(context.Background())
	require.NoError(t, err) // a delivery gap is not a run failure

	assert.Equal(t, run.StateDone, summary.State)
	assert.Equal(t, 1, summary.New)
	assert.Equal(t, 0, summary.Sent)
	require.Len(t, summary.DeliveryGaps, 1)
	assert.Equal(t, run.OutcomeFailed, summary.Outcomes[summary.DeliveryGaps[0]])

	// The record is stored regardless of the failed publish.
	keys, err := repo.KnownKeys(context.Background())
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	// A later run never retries the gap, even with a healthy transport.
	pub.failWhen = nil
	src.raws = []record.Raw{rawFor("Alpha")}
	second, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.New)
	assert.Empty(t, pub.posts)
}

// gatedSource signals when a fetch starts and blocks it until released,
// holding a run open so a second trigger can arrive mid-run.
type gatedSource struct {
	raws    []record.Raw
	started chan struct{}
	release chan struct{}
}

func (g *gatedSource) Fetch(context.Context) ([]record.Raw, error) {
	close(g.started)
	<-g.release
	return g.raws, nil
}

func TestOverlappingRunIsRefusedAndKeyPublishedOnce(t *testing.T) {
	src := &gatedSource{
		raws:    []record.Raw{rawFor("Alpha")},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	repo := idb.NewInMemoryRecordRepository()
	pub := &fakePublisher{}
	svc := NewWatchService(src, repo, pub, testLogger())

	type result struct {
		sum *run.Summary
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		sum, err := svc.RunOnce(context.Background())
		resCh <- result{sum, err}
	}()

	// Trigger a second run while the first is still fetching.
	<-src.started
	sum, err := svc.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Nil(t, sum)

	close(src.release)
	res := <-resCh
	require.NoError(t, res.err)
	assert.Equal(t, 1, res.sum.Sent)

	// Across both triggers the identity key was published exactly once.
	require.Len(t, pub.posts, 1)
	keys, err := repo.KnownKeys(context.Background())
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestRunTriggerAcceptedAfterPreviousRunFinishes(t *testing.T) {
	svc, _, _, pub := newTestService(rawFor("Alpha"))

	first, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, run.StateDone, first.State)

	second, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, run.StateDone, second.State)
	assert.Equal(t, 0, second.New)
	assert.Len(t, pub.posts, 1)
}

func TestLastSummaryTracksMostRecentRun(t *testing.T) {
	svc, _, _, _ := newTestService(rawFor("Alpha"))
	assert.Nil(t, svc.LastSummary())

	summary, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, summary, svc.LastSummary())
}
