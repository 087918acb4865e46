package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coder/quartz"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/config"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/pkg"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/tictactoe"
)

type matchRepo interface {
	Create(ctx context.Context, match *entity.Match) error
	GetByCode(ctx context.Context, code string) (*entity.Match, error)
	Update(ctx context.Context, match *entity.Match) error
}

// MatchManager drives a match through waiting, active and closed.
// Every mutation is one compare-and-set on the match version, so a move racing a
// resignation or an expiry resolves to the first committed write and the loser gets
// apperror.ErrStaleWrite.
type MatchManager struct {
	logger    *slog.Logger
	matchRepo matchRepo
	clock     quartz.Clock
	policy    config.Policy
}

func NewMatchManager(logger *slog.Logger, matchRepo matchRepo, clock quartz.Clock, policy config.Policy) *MatchManager {
	return &MatchManager{
		logger: logger.With("component", "match_manager"),

		matchRepo: matchRepo,
		clock:     clock,
		policy:    policy,
	}
}

// Create allocates a waiting match under a fresh join code.
func (that *MatchManager) Create(ctx context.Context) (*entity.Match, error) {
	log := that.logger.With("method", "Create")

	attempts := max(that.policy.CodeMaxRetries, 1)

	for range attempts {
		code, err := pkg.GenerateJoinCode(that.policy.CodeAlphabet, that.policy.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate join code: %w", err)
		}

		match := entity.NewMatch(pkg.GenerateMatchID(), code, that.clock.Now())

		err = that.matchRepo.Create(ctx, match)
		if errors.Is(err, apperror.ErrCodeTaken) {
			log.Debug("join code collision", "code", code)
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to create match: %w", err)
		}

		log.Info("match created", "id", match.ID, "code", match.Code)

		return match, nil
	}

	return nil, fmt.Errorf("failed to allocate join code after %d attempts: %w", attempts, apperror.ErrCodeTaken)
}

// Host creates a match and seats playerID in it.
func (that *MatchManager) Host(ctx context.Context, playerID string) (*entity.Match, error) {
	match, err := that.Create(ctx)
	if err != nil {
		return nil, err
	}

	return that.Join(ctx, match.Code, playerID)
}

// Join seats playerID in the match behind code. Joining a match one already sits in is a no-op.
func (that *MatchManager) Join(ctx context.Context, code, playerID string) (*entity.Match, error) {
	log := that.logger.With("method", "Join")

	match, err := that.load(ctx, code)
	if err != nil {
		return nil, err
	}

	if match.IsClosed() {
		return nil, closedError(match)
	}

	err = match.Seat(playerID, that.clock.Now())
	if errors.Is(err, apperror.ErrAlreadySeated) {
		return match, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to join match %s: %w", match.Code, err)
	}

	if err = that.save(ctx, match); err != nil {
		return nil, err
	}

	log.Info("player joined", "code", match.Code, "player", playerID, "status", match.Status)

	return match, nil
}

// Get returns the match behind code as seen by playerID.
// Once both seats are taken only the seated players may look at it.
func (that *MatchManager) Get(ctx context.Context, code, playerID string) (*entity.Match, error) {
	match, err := that.load(ctx, code)
	if err != nil {
		return nil, err
	}

	if match.PlayerX != "" && match.PlayerO != "" && !match.IsSeated(playerID) {
		return nil, apperror.ErrNotAParticipant
	}

	return match, nil
}

func (that *MatchManager) Move(ctx context.Context, code, playerID string, subBoard, cell int) (*entity.Match, error) {
	log := that.logger.With("method", "Move")

	match, err := that.load(ctx, code)
	if err != nil {
		return nil, err
	}

	if match.IsClosed() {
		return nil, closedError(match)
	}

	mark := match.MarkOf(playerID)
	if mark.IsEmpty() {
		return nil, apperror.ErrNotAParticipant
	}

	if match.IsWaiting() {
		return nil, apperror.ErrGameIsNotStarted
	}

	if match.TurnOwner != playerID || match.Board.CurrentPlayer != mark {
		return nil, apperror.ErrNotYourTurn
	}

	board, err := tictactoe.ApplyMove(match.Board, subBoard, cell, mark)
	if err != nil {
		return nil, err
	}

	match.Board = board
	match.LastActivity = that.clock.Now()
	match.Notification = entity.NotificationArmed
	match.TurnOwner = match.SeatOf(board.CurrentPlayer)

	if board.Outcome.IsTerminal() {
		match.Close(entity.CloseReasonFinished)
	}

	if err = that.save(ctx, match); err != nil {
		return nil, err
	}

	if match.IsClosed() {
		log.Info("match finished", "code", match.Code, "outcome", match.Board.Outcome)
	}

	return match, nil
}

// Resign ends the match in favour of the opponent of playerID.
func (that *MatchManager) Resign(ctx context.Context, code, playerID string) (*entity.Match, error) {
	log := that.logger.With("method", "Resign")

	match, err := that.load(ctx, code)
	if err != nil {
		return nil, err
	}

	if match.IsClosed() {
		return nil, closedError(match)
	}

	mark := match.MarkOf(playerID)
	if mark.IsEmpty() {
		return nil, apperror.ErrNotAParticipant
	}

	match.Board.Outcome = entity.WonBy(mark.Opponent())
	match.Resigned = true
	match.LastActivity = that.clock.Now()
	match.Close(entity.CloseReasonResigned)

	if err = that.save(ctx, match); err != nil {
		return nil, err
	}

	log.Info("player resigned", "code", match.Code, "player", playerID)

	return match, nil
}

// load fetches the match and applies passive expiry to it.
func (that *MatchManager) load(ctx context.Context, code string) (*entity.Match, error) {
	match, err := that.matchRepo.GetByCode(ctx, pkg.NormalizeJoinCode(code))
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	if match.IsWaiting() && match.Stale(that.clock.Now(), that.policy.WaitingExpiry) {
		match.Close(entity.CloseReasonExpired)

		if err = that.save(ctx, match); err != nil {
			return nil, err
		}

		that.logger.Info("match expired", "code", match.Code)
	}

	return match, nil
}

func (that *MatchManager) save(ctx context.Context, match *entity.Match) error {
	if err := that.matchRepo.Update(ctx, match); err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}

	return nil
}

func closedError(match *entity.Match) error {
	if match.CloseReason == entity.CloseReasonExpired {
		return apperror.ErrMatchExpired
	}

	return apperror.ErrMatchClosed
}
