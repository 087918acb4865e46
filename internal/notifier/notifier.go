package notifier

import (
	"context"
	"log/slog"
)

// Reminder is a nudge to the player who owns the turn of a stale match.
type Reminder struct {
	RecipientID    string `json:"recipient_id"`
	RecipientName  string `json:"recipient_name,omitempty"`
	RecipientEmail string `json:"recipient_email,omitempty"`
	MatchCode      string `json:"match_code"`
	OpponentName   string `json:"opponent_name"`
}

// Sender delivers turn reminders. Delivery is fire-and-forget for callers:
// an error is only reported for logging and never changes match state.
type Sender interface {
	SendTurnReminder(ctx context.Context, reminder Reminder) error
}

type logSender struct {
	logger *slog.Logger
}

// NewLogSender returns a Sender that only writes the reminder to the log.
func NewLogSender(logger *slog.Logger) Sender {
	return &logSender{
		logger: logger.With("component", "notifier"),
	}
}

func (that *logSender) SendTurnReminder(ctx context.Context, reminder Reminder) error {
	that.logger.InfoContext(ctx, "turn reminder",
		"recipient", reminder.RecipientID,
		"email", reminder.RecipientEmail,
		"code", reminder.MatchCode,
		"opponent", reminder.OpponentName,
	)

	return nil
}
