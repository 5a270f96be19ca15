package scheduler

import (
	"context"
	"time"

	"enforcement_watch_bot/internal/app" // For WatchRunner interface

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// A single run walks the full list of action pages; ten minutes bounds a
// slow source without letting a hung fetch pin the process forever.
const runTimeout = 10 * time.Minute

type ScrapeScheduler struct {
	cronEngine *cron.Cron
	watch      app.WatchRunner // Using the interface
	logger     *logrus.Entry
	cronSpec   string
}

func NewScrapeScheduler(
	watch app.WatchRunner,
	logger *logrus.Entry,
	cronSpec string, // e.g., "0 */6 * * *" (every 6 hours)
) *ScrapeScheduler {
	return &ScrapeScheduler{
		cronEngine: cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		watch:      watch,
		logger:     logger,
		cronSpec:   cronSpec,
	}
}

func (s *ScrapeScheduler) Start() {
	s.logger.Info("Starting scrape scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Info("Cron job triggered for scheduled scrape run")
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		summary, err := s.watch.RunOnce(ctx)
		if err != nil {
			if err == app.ErrRunInProgress {
				s.logger.Warn("Skipping scheduled run, another run is still in progress")
				return
			}
			s.logger.WithError(err).Error("Scheduled run failed")
			return
		}
		s.logger.WithFields(logrus.Fields{
			"run_id": summary.RunID,
			"new":    summary.New,
			"sent":   summary.Sent,
		}).Info("Scheduled run finished")
	})
	if err != nil {
		s.logger.WithError(err).Fatal("Could not add scrape cron job")
	}

	s.cronEngine.Start()
	s.logger.WithField("cron_spec", s.cronSpec).Info("Scrape scheduler started")
}

func (s *ScrapeScheduler) Stop() {
	s.logger.Info("Stopping scrape scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Scrape scheduler gracefully stopped")
}
