package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coder/quartz"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/config"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/notifier"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/repository"
)

const (
	tagReminder = "reminder"
	tagArchive  = "archive"
)

// Report counts what one pass did.
type Report struct {
	Reminded int
	Rearmed  int
	Expired  int
	Archived int
	Skipped  int
}

// Sweeper runs the periodic maintenance of stored matches. It only touches lifecycle
// fields and writes through the same version check as request handlers.
type Sweeper struct {
	logger  *slog.Logger
	matches repository.MatchRepository
	players repository.PlayerRepository
	sender  notifier.Sender
	clock   quartz.Clock
	policy  config.Policy
}

func NewSweeper(
	logger *slog.Logger,
	matches repository.MatchRepository,
	players repository.PlayerRepository,
	sender notifier.Sender,
	clock quartz.Clock,
	policy config.Policy,
) *Sweeper {
	return &Sweeper{
		logger:  logger.With("component", "sweeper"),
		matches: matches,
		players: players,
		sender:  sender,
		clock:   clock,
		policy:  policy,
	}
}

// Start schedules both passes on their own tickers. The returned waiters finish once ctx is done.
func (that *Sweeper) Start(ctx context.Context) (reminders, archival quartz.Waiter) {
	reminders = that.clock.TickerFunc(ctx, that.policy.ReminderEvery, func() error {
		if _, err := that.RemindPass(ctx); err != nil {
			that.logger.Error("reminder pass failed", "error", err)
		}
		return nil
	}, tagReminder)

	archival = that.clock.TickerFunc(ctx, that.policy.ArchiveEvery, func() error {
		if _, err := that.ArchivePass(ctx); err != nil {
			that.logger.Error("archive pass failed", "error", err)
		}
		return nil
	}, tagArchive)

	return reminders, archival
}

// Run blocks until ctx is cancelled.
func (that *Sweeper) Run(ctx context.Context) error {
	reminders, archival := that.Start(ctx)

	errReminders := reminders.Wait(tagReminder)
	errArchival := archival.Wait(tagArchive)

	if err := errors.Join(errReminders, errArchival); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// RunOnce executes every pass a single time.
func (that *Sweeper) RunOnce(ctx context.Context) (Report, error) {
	report, err := that.RemindPass(ctx)
	if err != nil {
		return report, err
	}

	archived, err := that.ArchivePass(ctx)
	report.Archived = archived.Archived
	report.Skipped += archived.Skipped

	return report, err
}

// RemindPass expires abandoned waiting matches and fires at most one reminder per
// stale period of an active match.
func (that *Sweeper) RemindPass(ctx context.Context) (Report, error) {
	log := that.logger.With("method", "RemindPass")

	var report Report

	matches, err := that.matches.List(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list matches: %w", err)
	}

	now := that.clock.Now()

	for _, match := range matches {
		switch {
		case match.IsWaiting() && match.Stale(now, that.policy.WaitingExpiry):
			match.Close(entity.CloseReasonExpired)

			if that.update(ctx, log, match, &report) {
				report.Expired++
			}

		case !match.IsActive():
			continue

		case match.Stale(now, that.policy.ReminderAfter) && match.Notification == entity.NotificationArmed:
			match.Notification = entity.NotificationDisarmed

			// disarm first so that a lost race never produces a second reminder
			if that.update(ctx, log, match, &report) {
				that.remind(ctx, log, match)
				report.Reminded++
			}

		case !match.Stale(now, that.policy.ReminderAfter) && match.Notification == entity.NotificationDisarmed:
			match.Notification = entity.NotificationArmed

			if that.update(ctx, log, match, &report) {
				report.Rearmed++
			}
		}
	}

	if report != (Report{}) {
		log.Info("reminder pass done",
			"reminded", report.Reminded,
			"rearmed", report.Rearmed,
			"expired", report.Expired,
			"skipped", report.Skipped,
		)
	}

	return report, nil
}

// ArchivePass deletes every closed match.
func (that *Sweeper) ArchivePass(ctx context.Context) (Report, error) {
	log := that.logger.With("method", "ArchivePass")

	var report Report

	matches, err := that.matches.List(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list matches: %w", err)
	}

	for _, match := range matches {
		if !match.IsClosed() {
			continue
		}

		err = that.matches.DeleteByID(ctx, match.ID)
		if errors.Is(err, apperror.ErrNotFound) {
			continue
		}

		if err != nil {
			log.Error("failed to delete match", "id", match.ID, "error", err)
			report.Skipped++
			continue
		}

		report.Archived++
	}

	if report.Archived > 0 {
		log.Info("archive pass done", "archived", report.Archived)
	}

	return report, nil
}

// update writes a lifecycle change; a conflicting write is left for the next tick.
func (that *Sweeper) update(ctx context.Context, log *slog.Logger, match *entity.Match, report *Report) bool {
	err := that.matches.Update(ctx, match)
	if err == nil {
		return true
	}

	if errors.Is(err, apperror.ErrStaleWrite) || errors.Is(err, apperror.ErrNotFound) {
		log.Debug("match changed during sweep", "code", match.Code)
	} else {
		log.Error("failed to update match", "code", match.Code, "error", err)
	}

	report.Skipped++

	return false
}

func (that *Sweeper) remind(ctx context.Context, log *slog.Logger, match *entity.Match) {
	recipient := that.player(ctx, log, match.TurnOwner)
	opponent := that.player(ctx, log, match.Opponent(match.TurnOwner))

	reminder := notifier.Reminder{
		RecipientID:    recipient.ID,
		RecipientName:  recipient.Name,
		RecipientEmail: recipient.Email,
		MatchCode:      match.Code,
		OpponentName:   opponent.DisplayName(),
	}

	if err := that.sender.SendTurnReminder(ctx, reminder); err != nil {
		log.Error("failed to send turn reminder", "code", match.Code, "recipient", recipient.ID, "error", err)
	}
}

// player looks id up in the directory, falling back to a bare entry.
func (that *Sweeper) player(ctx context.Context, log *slog.Logger, id string) *entity.Player {
	player, err := that.players.GetByID(ctx, id)
	if err != nil {
		log.Warn("player not in directory", "player", id, "error", err)
		return &entity.Player{ID: id}
	}

	return player
}
