package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"enforcement_watch_bot/internal/app"
	"enforcement_watch_bot/internal/domain/publisher"
	"enforcement_watch_bot/internal/domain/record"
	"enforcement_watch_bot/internal/infra/config"
	idb "enforcement_watch_bot/internal/infra/database"
	"enforcement_watch_bot/internal/infra/logger"
	"enforcement_watch_bot/internal/infra/scheduler"
	"enforcement_watch_bot/internal/infra/scraper"
	"enforcement_watch_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	once := flag.Bool("once", false, "run one scrape-and-notify pass and exit")
	dryRun := flag.Bool("dry-run", false, "use an in-memory store and log posts instead of publishing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Could not load application configuration")
	}

	logger.Init(cfg)
	mainLogger := logger.Get().WithField("component", "main")
	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"once":        *once,
		"dry_run":     *dryRun,
	}).Info("Enforcement Watch Bot starting")

	var recordRepo record.Repository
	if *dryRun {
		recordRepo = idb.NewInMemoryRecordRepository()
		mainLogger.Info("Dry run: using in-memory record repository")
	} else {
		db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to database")
		}
		defer db.Close()
		recordRepo = idb.NewPostgresRecordRepository(db)
		mainLogger.Info("Database connection established")
	}

	var bot *telebot.Bot
	var pub publisher.Client
	if *dryRun {
		pub = logPublisher{logger: logger.Get().WithField("component", "publisher")}
	} else {
		pref := telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) { // Global error handler
				entry := logger.Get().WithField("component", "telebot").WithError(err)
				if c != nil && c.Sender() != nil {
					entry = entry.WithField("sender_id", c.Sender().ID)
				}
				entry.Error("Telegram error")
			},
		}
		bot, err = telebot.NewBot(pref)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		pub = telegram.NewChannelPublisher(bot, cfg.ChannelChatID)
	}

	src := scraper.NewICOSource(cfg.SourceBaseURL, cfg.HTTPTimeout, logger.Get().WithField("component", "scraper"))
	watchService := app.NewWatchService(src, recordRepo, pub, logger.Get().WithField("component", "watch"))

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := watchService.RunOnce(ctx); err != nil {
			mainLogger.WithError(err).Error("Run failed")
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scrapeScheduler := scheduler.NewScrapeScheduler(watchService, logger.Get().WithField("component", "scheduler"), cfg.CronSpecScrape)
	scrapeScheduler.Start()

	if bot != nil {
		adminService := app.NewAdminService(watchService, recordRepo, cfg.AdminTelegramID)
		telegram.RegisterOperatorHandlers(ctx, bot, adminService, cfg.AdminTelegramID, logger.Get().WithField("component", "telegram"))
		mainLogger.Info("Operator command handlers registered")

		// Start bot in a goroutine so it doesn't block graceful shutdown handling
		go bot.Start()
	}

	mainLogger.Info("Application setup complete")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	scrapeScheduler.Stop()
	if bot != nil {
		bot.Stop()
	}
	mainLogger.Info("Application shut down gracefully")
}

// logPublisher stands in for the channel during dry runs.
type logPublisher struct {
	logger *logrus.Entry
}

func (p logPublisher) Publish(text string) error {
	p.logger.WithField("post", text).Info("Dry run publish")
	return nil
}
