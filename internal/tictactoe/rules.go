package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

// ApplyMove places mover at (subBoard, cell) and returns the resulting board.
// The input board is never modified, so callers may use it for previews.
// Turn order is not checked here: the caller decides which mark moves.
func ApplyMove(board entity.Board, subBoard, cell int, mover entity.Mark) (entity.Board, error) {
	if err := validateMove(&board, subBoard, cell, mover); err != nil {
		return board, fmt.Errorf("invalid turn: %w", err)
	}

	next := board.Clone()

	next.SubBoards[subBoard][cell] = mover
	if next.SubBoards[subBoard].Winner() != entity.MarkEmpty {
		next.SuperMarks[subBoard] = mover
	}

	forced := NextSubBoard(cell)
	if next.SuperMarks[forced].IsEmpty() {
		next.SetForced(forced)
	} else {
		next.ClearForced()
	}

	updateOutcome(&next)

	next.CurrentPlayer = mover.Opponent()
	next.SetLastMove(subBoard, cell)

	return next, nil
}

// NextSubBoard maps the cell just played to the sub-board the opponent must answer in:
// the cell's position inside its grid selects the sub-board at the same position.
func NextSubBoard(cell int) int {
	return cell
}

// validateMove - checks the preconditions of a move in order.
func validateMove(board *entity.Board, subBoard, cell int, mover entity.Mark) error {
	if board.Outcome.IsTerminal() {
		return apperror.ErrMatchClosed
	}

	if subBoard < 0 || subBoard >= entity.BoardSize || cell < 0 || cell >= entity.BoardSize {
		return fmt.Errorf("%w: board %d cell %d", apperror.ErrInvalidCell, subBoard, cell)
	}

	if mover != entity.PlayerX && mover != entity.PlayerO {
		return fmt.Errorf("%w: %q", apperror.ErrInvalidMark, mover)
	}

	if !board.SuperMarks[subBoard].IsEmpty() {
		return apperror.ErrBoardDecided
	}

	if forced, ok := effectiveForced(board); ok && forced != subBoard {
		return fmt.Errorf("%w: you must play in board %d", apperror.ErrWrongBoard, forced)
	}

	if !board.SubBoards[subBoard][cell].IsEmpty() {
		return apperror.ErrCellOccupied
	}

	return nil
}

// effectiveForced returns the forced sub-board unless it has no empty cell left,
// in which case the mover gets a free choice.
func effectiveForced(board *entity.Board) (int, bool) {
	forced, ok := board.ForcedSubBoard()
	if !ok {
		return 0, false
	}

	if board.SubBoards[forced].Full() {
		return 0, false
	}

	return forced, true
}

// updateOutcome - derives the outcome from the super-board after a move.
func updateOutcome(board *entity.Board) {
	if winner := entity.LineWinner(board.SuperMarks); winner != entity.MarkEmpty {
		board.Outcome = entity.WonBy(winner)
		return
	}

	if noMovesLeft(board) {
		board.Outcome = entity.OutcomeTie
	}
}

// noMovesLeft reports whether every sub-board is either decided or full.
func noMovesLeft(board *entity.Board) bool {
	for i, sub := range board.SubBoards {
		if board.SuperMarks[i].IsEmpty() && !sub.Full() {
			return false
		}
	}
	return true
}

// LegalMoves lists every move the side to move may play.
func LegalMoves(board entity.Board) []entity.Move {
	if board.Outcome.IsTerminal() {
		return nil
	}

	var moves []entity.Move

	for sub := range entity.BoardSize {
		for cell := range entity.BoardSize {
			if validateMove(&board, sub, cell, board.CurrentPlayer) == nil {
				moves = append(moves, entity.Move{SubBoard: sub, Cell: cell})
			}
		}
	}

	return moves
}
