package entity

import (
	"time"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
)

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
	StatusClosed  Status = "closed"
)

const (
	// NotificationSuppressed - no reminder may fire (match waiting or closed).
	NotificationSuppressed NotificationState = "suppressed"
	// NotificationArmed - a reminder fires once the match goes stale.
	NotificationArmed NotificationState = "armed"
	// NotificationDisarmed - the reminder for the current stale period was sent.
	NotificationDisarmed NotificationState = "disarmed"
)

const (
	CloseReasonNone     CloseReason = ""
	CloseReasonFinished CloseReason = "finished"
	CloseReasonResigned CloseReason = "resigned"
	CloseReasonExpired  CloseReason = "expired"
)

type (
	Status            string
	NotificationState string
	CloseReason       string
)

// Match is the persisted session record of one game.
type Match struct {
	ID   string `json:"id"`
	Code string `json:"code"`

	Board Board `json:"state"`

	PlayerX   string `json:"player_x,omitempty"`
	PlayerO   string `json:"player_o,omitempty"`
	TurnOwner string `json:"turn_owner,omitempty"`

	Status       Status            `json:"status"`
	Notification NotificationState `json:"notification"`
	Resigned     bool              `json:"resigned"`
	CloseReason  CloseReason       `json:"close_reason,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`

	Version int64 `json:"version"`
}

func NewMatch(id, code string, now time.Time) *Match {
	return &Match{
		ID:           id,
		Code:         code,
		Board:        NewBoard(),
		Status:       StatusWaiting,
		Notification: NotificationSuppressed,
		CreatedAt:    now,
		LastActivity: now,
	}
}

func (that *Match) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Match) IsActive() bool {
	return that.Status == StatusActive
}

func (that *Match) IsClosed() bool {
	return that.Status == StatusClosed
}

// MarkOf returns the seat mark held by playerID, or the empty mark.
func (that *Match) MarkOf(playerID string) Mark {
	switch {
	case playerID == "":
		return MarkEmpty
	case that.PlayerX == playerID:
		return PlayerX
	case that.PlayerO == playerID:
		return PlayerO
	default:
		return MarkEmpty
	}
}

func (that *Match) IsSeated(playerID string) bool {
	return !that.MarkOf(playerID).IsEmpty()
}

// SeatOf returns the player id holding mark.
func (that *Match) SeatOf(mark Mark) string {
	switch mark {
	case PlayerX:
		return that.PlayerX
	case PlayerO:
		return that.PlayerO
	default:
		return ""
	}
}

// Opponent returns the id of the other seated player.
func (that *Match) Opponent(playerID string) string {
	return that.SeatOf(that.MarkOf(playerID).Opponent())
}

// Seat binds playerID to the open seat: the host seat O first, then X.
// Once both seats are held the match becomes active and X's holder owns the turn.
func (that *Match) Seat(playerID string, now time.Time) error {
	if that.IsSeated(playerID) {
		return apperror.ErrAlreadySeated
	}

	switch {
	case that.PlayerO == "":
		that.PlayerO = playerID
	case that.PlayerX == "":
		that.PlayerX = playerID
	default:
		return apperror.ErrMatchFull
	}

	that.LastActivity = now

	if that.PlayerX != "" && that.PlayerO != "" {
		that.Status = StatusActive
		that.TurnOwner = that.SeatOf(that.Board.CurrentPlayer)
	}

	return nil
}

// Close moves the match to closed and silences reminders.
func (that *Match) Close(reason CloseReason) {
	that.Status = StatusClosed
	that.CloseReason = reason
	that.Notification = NotificationSuppressed
	that.TurnOwner = ""
}

// Stale reports whether the match has been idle longer than window at now.
func (that *Match) Stale(now time.Time, window time.Duration) bool {
	return now.Sub(that.LastActivity) > window
}
