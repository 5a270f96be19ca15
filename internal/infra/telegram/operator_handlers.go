package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"enforcement_watch_bot/internal/app"
	"enforcement_watch_bot/internal/domain/run"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterOperatorHandlers registers the admin-only operator commands.
// It requires the bot instance, admin service, and the configured admin Telegram ID.
func RegisterOperatorHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, adminTelegramID int64, baseLogger *logrus.Entry) {
	b.Handle("/run", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/run",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("You are not authorized to use this command.")
		}

		if err := c.Send("Run started..."); err != nil {
			handlerLogger.WithError(err).Warn("Could not acknowledge command")
		}

		summary, err := adminService.TriggerRun(ctx, c.Sender().ID)
		if err != nil {
			if err == app.ErrRunInProgress {
				handlerLogger.Warn("Run refused, another run is in progress")
				return c.Send("A run is already in progress; try again once it finishes.")
			}
			handlerLogger.WithError(err).Error("Run failed")
			if summary != nil {
				return c.Send(fmt.Sprintf("Run %s FAILED: %s", summary.RunID, err.Error()))
			}
			return c.Send(fmt.Sprintf("Run failed: %s", err.Error()))
		}

		handlerLogger.WithField("run_id", summary.RunID).Info("Run completed via command")
		return c.Send(summaryText(summary))
	})

	b.Handle("/status", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/status",
			"sender_id": c.Sender().ID,
		})
		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("You are not authorized to use this command.")
		}

		summary, err := adminService.LastRun(c.Sender().ID)
		if err != nil {
			if err == app.ErrNoCompletedRuns {
				return c.Send("No runs have completed yet.")
			}
			handlerLogger.WithError(err).Error("Failed to read last run summary")
			return c.Send(fmt.Sprintf("Could not read last run: %s", err.Error()))
		}
		return c.Send(summaryText(summary))
	})

	b.Handle("/recent", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/recent",
			"sender_id": c.Sender().ID,
		})
		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("You are not authorized to use this command.")
		}

		limit := 0
		if args := c.Args(); len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				handlerLogger.WithField("arg", args[0]).Warn("Invalid limit argument")
				return c.Send("Usage: /recent [n], where n is a positive number.")
			}
			limit = n
		}

		records, err := adminService.RecentRecords(ctx, c.Sender().ID, limit)
		if err != nil {
			handlerLogger.WithError(err).Error("Failed to list recent records")
			return c.Send(fmt.Sprintf("Could not list recent records: %s", err.Error()))
		}
		if len(records) == 0 {
			return c.Send("No enforcement records stored yet.")
		}

		var response strings.Builder
		response.WriteString("Most recent enforcement actions:\n")
		for _, rec := range records {
			line := fmt.Sprintf("- %s (%s", rec.Organisation, rec.ActionDate.Format("2 Jan 2006"))
			if rec.PenaltyAmount != "" {
				line += ", " + rec.PenaltyAmount
			}
			line += ")\n  " + rec.PageURL + "\n"
			response.WriteString(line)
		}
		return c.Send(response.String())
	})

	b.Handle("/start", func(c telebot.Context) error {
		if c.Sender().ID != adminTelegramID {
			return c.Send("This bot publishes ICO enforcement actions to its channel. There are no commands available for you.")
		}
		return c.Send(fmt.Sprintf("Hello, %s! I watch the ICO enforcement list and post new actions to the channel. Use /help for commands.", c.Sender().FirstName))
	})

	b.Handle("/help", func(c telebot.Context) error {
		if c.Sender().ID != adminTelegramID {
			return c.Send("There are no commands available for you.")
		}
		var helpText strings.Builder
		helpText.WriteString("Available operator commands:\n\n")
		helpText.WriteString("`/run`\n - Trigger a scrape-and-notify pass now.\n\n")
		helpText.WriteString("`/status`\n - Show the last run's summary.\n\n")
		helpText.WriteString("`/recent [n]`\n - Show the n most recent stored actions (default 5, max 20).\n\n")
		helpText.WriteString("`/help`\n - Show this help message.")
		return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}

func summaryText(summary *run.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %s\n", summary.RunID, summary.State)
	fmt.Fprintf(&b, "Candidates: %d (skipped: %d)\n", summary.Candidates, summary.Skipped)
	fmt.Fprintf(&b, "New: %d, known: %d, sent: %d\n", summary.New, summary.Known, summary.Sent)
	if len(summary.DeliveryGaps) > 0 {
		fmt.Fprintf(&b, "WARNING: %d record(s) stored but not announced:\n", len(summary.DeliveryGaps))
		for _, key := range summary.DeliveryGaps {
			fmt.Fprintf(&b, "  %s\n", key)
		}
	}
	return b.String()
}
