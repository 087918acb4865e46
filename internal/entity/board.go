package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

const BoardSize = 9

const (
	MarkEmpty Mark = ""
	PlayerX   Mark = "X"
	PlayerO   Mark = "O"
)

const (
	OutcomeInProgress Outcome = "in_progress"
	OutcomeXWon       Outcome = "x_won"
	OutcomeOWon       Outcome = "o_won"
	OutcomeTie        Outcome = "tie"
)

var (
	ErrUnknownMark    = errors.New("unknown mark")
	ErrUnknownOutcome = errors.New("unknown outcome")
	ErrMalformedBoard = errors.New("malformed board state")

	// WinCombos are the 8 lines of a 3x3 grid: rows, columns, diagonals.
	WinCombos = [8][3]int{
		{0, 1, 2},
		{3, 4, 5},
		{6, 7, 8},
		{0, 3, 6},
		{1, 4, 7},
		{2, 5, 8},
		{0, 4, 8},
		{2, 4, 6},
	}
)

// Mark is the content of a cell or of a super-board entry.
type Mark string

func (that Mark) IsEmpty() bool {
	return that == MarkEmpty
}

func (that Mark) Valid() bool {
	return that == MarkEmpty || that == PlayerX || that == PlayerO
}

// Opponent returns the other player mark. The empty mark has no opponent.
func (that Mark) Opponent() Mark {
	switch that {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return MarkEmpty
	}
}

func (that *Mark) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownMark, string(data))
	}

	if raw == nil {
		*that = MarkEmpty
		return nil
	}

	mark := Mark(*raw)
	if !mark.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMark, *raw)
	}

	*that = mark

	return nil
}

// Outcome is the result of a match as derived by the rules engine.
type Outcome string

func (that Outcome) IsTerminal() bool {
	return that == OutcomeXWon || that == OutcomeOWon || that == OutcomeTie
}

// Winner returns the winning mark, or the empty mark for a tie or a game in progress.
func (that Outcome) Winner() Mark {
	switch that {
	case OutcomeXWon:
		return PlayerX
	case OutcomeOWon:
		return PlayerO
	default:
		return MarkEmpty
	}
}

func WonBy(mark Mark) Outcome {
	if mark == PlayerO {
		return OutcomeOWon
	}
	return OutcomeXWon
}

func (that *Outcome) UnmarshalText(text []byte) error {
	switch outcome := Outcome(text); outcome {
	case OutcomeInProgress, OutcomeXWon, OutcomeOWon, OutcomeTie:
		*that = outcome
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutcome, string(text))
	}
}

// SubBoard is one inner 3x3 grid, cells 0..8 row-major.
type SubBoard [BoardSize]Mark

// Winner returns the mark that completed a line, scanning WinCombos in order.
func (that SubBoard) Winner() Mark {
	return LineWinner(that)
}

func (that SubBoard) Full() bool {
	for _, cell := range that {
		if cell.IsEmpty() {
			return false
		}
	}
	return true
}

// LineWinner returns the first three-in-a-row of a non-empty mark found in marks.
func LineWinner(marks [BoardSize]Mark) Mark {
	for _, combo := range WinCombos {
		a, b, c := marks[combo[0]], marks[combo[1]], marks[combo[2]]
		if !a.IsEmpty() && a == b && b == c {
			return a
		}
	}
	return MarkEmpty
}

// Move addresses one cell of the super-board. It is encoded as [board, cell].
type Move struct {
	SubBoard int
	Cell     int
}

func (that Move) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{that.SubBoard, that.Cell})
}

func (that *Move) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("%w: last move: %w", ErrMalformedBoard, err)
	}

	that.SubBoard, that.Cell = pair[0], pair[1]

	return nil
}

func (that Move) Valid() bool {
	return validIndex(that.SubBoard) && validIndex(that.Cell)
}

// Board is the full match board state: nine sub-boards and the super-board derived from them.
type Board struct {
	SubBoards     [BoardSize]SubBoard `json:"boards"`
	SuperMarks    [BoardSize]Mark     `json:"big_board"`
	Forced        *int                `json:"forced_board"`
	CurrentPlayer Mark                `json:"current_player"`
	Outcome       Outcome             `json:"outcome"`
	LastMove      *Move               `json:"last_move"`
}

func NewBoard() Board {
	return Board{
		CurrentPlayer: PlayerX,
		Outcome:       OutcomeInProgress,
	}
}

// ForcedSubBoard reports the sub-board the next move must target, if any.
func (that *Board) ForcedSubBoard() (int, bool) {
	if that.Forced == nil {
		return 0, false
	}
	return *that.Forced, true
}

func (that *Board) SetForced(index int) {
	that.Forced = &index
}

func (that *Board) ClearForced() {
	that.Forced = nil
}

func (that *Board) SetLastMove(subBoard, cell int) {
	that.LastMove = &Move{SubBoard: subBoard, Cell: cell}
}

// Clone returns a copy that shares no memory with the receiver.
func (that *Board) Clone() Board {
	clone := *that

	if that.Forced != nil {
		clone.SetForced(*that.Forced)
	}

	if that.LastMove != nil {
		move := *that.LastMove
		clone.LastMove = &move
	}

	return clone
}

// Validate checks structural consistency of a decoded board.
func (that *Board) Validate() error {
	if that.Forced != nil && !validIndex(*that.Forced) {
		return fmt.Errorf("%w: forced board %d", ErrMalformedBoard, *that.Forced)
	}

	if that.LastMove != nil && !that.LastMove.Valid() {
		return fmt.Errorf("%w: last move %v", ErrMalformedBoard, *that.LastMove)
	}

	if that.CurrentPlayer != PlayerX && that.CurrentPlayer != PlayerO {
		return fmt.Errorf("%w: current player %q", ErrMalformedBoard, that.CurrentPlayer)
	}

	return nil
}

// MarshalBoard is the persistence encoding of a board.
func MarshalBoard(board Board) ([]byte, error) {
	data, err := json.Marshal(board)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal board: %w", err)
	}
	return data, nil
}

func UnmarshalBoard(data []byte) (Board, error) {
	var board Board
	if err := json.Unmarshal(data, &board); err != nil {
		return Board{}, fmt.Errorf("failed to unmarshal board: %w", err)
	}

	if err := board.Validate(); err != nil {
		return Board{}, err
	}

	return board, nil
}

func validIndex(i int) bool {
	return i >= 0 && i < BoardSize
}
