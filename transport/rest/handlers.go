package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/tictactoe"
)

type matchUseCase interface {
	Host(ctx context.Context, playerID string) (*entity.Match, error)
	Join(ctx context.Context, code, playerID string) (*entity.Match, error)
	Get(ctx context.Context, code, playerID string) (*entity.Match, error)
	Move(ctx context.Context, code, playerID string, subBoard, cell int) (*entity.Match, error)
	Resign(ctx context.Context, code, playerID string) (*entity.Match, error)
}

type playerUseCase interface {
	Register(ctx context.Context, player *entity.Player) (*entity.Player, error)
}

type identityProvider interface {
	Resolve(token string) (string, error)
}

type handlers struct {
	logger  *slog.Logger
	matches matchUseCase
	players playerUseCase
}

// NewRouter wires every route. All routes but /ping require a bearer token.
func NewRouter(logger *slog.Logger, identity identityProvider, matches matchUseCase, players playerUseCase) http.Handler {
	that := &handlers{
		logger:  logger.With("component", "rest"),
		matches: matches,
		players: players,
	}

	auth := requireIdentity(that.logger, identity)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", pingHandler)
	mux.Handle("POST /matches", auth(that.hostMatch))
	mux.Handle("GET /matches/{code}", auth(that.getMatch))
	mux.Handle("POST /matches/{code}/join", auth(that.joinMatch))
	mux.Handle("POST /matches/{code}/moves", auth(that.makeMove))
	mux.Handle("POST /matches/{code}/resign", auth(that.resign))
	mux.Handle("PUT /players/me", auth(that.registerPlayer))

	return mux
}

type moveRequest struct {
	Board *int `json:"board"`
	Cell  *int `json:"cell"`
}

type playerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type matchResponse struct {
	ID           string                   `json:"id"`
	Code         string                   `json:"code"`
	Status       entity.Status            `json:"status"`
	State        entity.Board             `json:"state"`
	PlayerX      string                   `json:"player_x,omitempty"`
	PlayerO      string                   `json:"player_o,omitempty"`
	TurnOwner    string                   `json:"turn_owner,omitempty"`
	YourMark     entity.Mark              `json:"your_mark,omitempty"`
	YourTurn     bool                     `json:"your_turn"`
	LegalMoves   []entity.Move            `json:"legal_moves,omitempty"`
	Resigned     bool                     `json:"resigned"`
	CloseReason  entity.CloseReason       `json:"close_reason,omitempty"`
	LastActivity time.Time                `json:"last_activity"`
	Notification entity.NotificationState `json:"notification"`
}

func toMatchResponse(match *entity.Match, playerID string) matchResponse {
	response := matchResponse{
		ID:           match.ID,
		Code:         match.Code,
		Status:       match.Status,
		State:        match.Board,
		PlayerX:      match.PlayerX,
		PlayerO:      match.PlayerO,
		TurnOwner:    match.TurnOwner,
		YourMark:     match.MarkOf(playerID),
		Resigned:     match.Resigned,
		CloseReason:  match.CloseReason,
		LastActivity: match.LastActivity,
		Notification: match.Notification,
	}

	if match.IsActive() && match.TurnOwner == playerID {
		response.YourTurn = true
		response.LegalMoves = tictactoe.LegalMoves(match.Board)
	}

	return response
}

func (that *handlers) hostMatch(w http.ResponseWriter, r *http.Request) {
	playerID := playerFromContext(r.Context())

	match, err := that.matches.Host(r.Context(), playerID)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusCreated, toMatchResponse(match, playerID))
}

func (that *handlers) getMatch(w http.ResponseWriter, r *http.Request) {
	playerID := playerFromContext(r.Context())

	match, err := that.matches.Get(r.Context(), r.PathValue("code"), playerID)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, toMatchResponse(match, playerID))
}

func (that *handlers) joinMatch(w http.ResponseWriter, r *http.Request) {
	playerID := playerFromContext(r.Context())

	match, err := that.matches.Join(r.Context(), r.PathValue("code"), playerID)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, toMatchResponse(match, playerID))
}

func (that *handlers) makeMove(w http.ResponseWriter, r *http.Request) {
	playerID := playerFromContext(r.Context())

	var request moveRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Board == nil || request.Cell == nil {
		http.Error(w, "body must be {\"board\": <0-8>, \"cell\": <0-8>}", http.StatusBadRequest)
		return
	}

	match, err := that.matches.Move(r.Context(), r.PathValue("code"), playerID, *request.Board, *request.Cell)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, toMatchResponse(match, playerID))
}

func (that *handlers) resign(w http.ResponseWriter, r *http.Request) {
	playerID := playerFromContext(r.Context())

	match, err := that.matches.Resign(r.Context(), r.PathValue("code"), playerID)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, toMatchResponse(match, playerID))
}

func (that *handlers) registerPlayer(w http.ResponseWriter, r *http.Request) {
	var request playerRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "invalid player body", http.StatusBadRequest)
		return
	}

	player, err := that.players.Register(r.Context(), &entity.Player{
		ID:    playerFromContext(r.Context()),
		Name:  request.Name,
		Email: request.Email,
	})
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, player)
}

func (that *handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}
