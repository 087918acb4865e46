package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	ErrIllegalMove  = errors.New("illegal move")
	ErrBoardDecided = fmt.Errorf("%w: board already won", ErrIllegalMove)
	ErrWrongBoard   = fmt.Errorf("%w: wrong board", ErrIllegalMove)
	ErrCellOccupied = fmt.Errorf("%w: cell already occupied", ErrIllegalMove)
	ErrInvalidCell  = fmt.Errorf("%w: invalid board or cell index", ErrIllegalMove)
	ErrInvalidMark  = fmt.Errorf("%w: invalid player mark", ErrIllegalMove)

	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrNotAParticipant  = errors.New("not a participant of this match")
	ErrGameIsNotStarted = errors.New("game is not started")

	ErrMatchClosed  = errors.New("match is closed")
	ErrMatchExpired = fmt.Errorf("%w: expired due to inactivity", ErrMatchClosed)

	ErrMatchFull     = errors.New("match is private and already full")
	ErrAlreadySeated = errors.New("player already holds a seat")

	ErrStaleWrite = errors.New("match was modified concurrently, reload and retry")
	ErrCodeTaken  = errors.New("join code already in use")
)
