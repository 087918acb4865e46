package rest

import (
	"errors"
	"net/http"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrIllegalMove):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrNotYourTurn),
		errors.Is(err, apperror.ErrNotAParticipant),
		errors.Is(err, apperror.ErrMatchFull):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrMatchExpired):
		return http.StatusGone
	case errors.Is(err, apperror.ErrMatchClosed),
		errors.Is(err, apperror.ErrGameIsNotStarted),
		errors.Is(err, apperror.ErrStaleWrite):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError surfaces rejections verbatim and hides faults behind a generic message.
func (that *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)

	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", status)
		return
	}

	that.writeJSON(w, status, map[string]string{"error": rejectionMessage(err)})
}

// rejectionMessage drops the wrapping added on the way up and keeps the innermost rejection text.
func rejectionMessage(err error) string {
	for _, sentinel := range []error{
		apperror.ErrBoardDecided,
		apperror.ErrCellOccupied,
		apperror.ErrMatchExpired,
		apperror.ErrMatchClosed,
		apperror.ErrNotYourTurn,
		apperror.ErrNotAParticipant,
		apperror.ErrMatchFull,
		apperror.ErrGameIsNotStarted,
		apperror.ErrStaleWrite,
		apperror.ErrNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}

	return err.Error()
}
