package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/config"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/identity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/pkg"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/repository/storage/sqlite"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/usecase"
)

type testServer struct {
	*httptest.Server
	identity identity.Provider
	clock    *quartz.Mock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	st, err := sqlite.New(filepath.Join(t.TempDir(), "rest.db"))
	require.NoError(t, err)
	require.NoError(t, st.Init(ctx))
	t.Cleanup(func() { _ = st.Close() })

	clock := quartz.NewMock(t)
	clock.Set(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	policy := config.Policy{
		WaitingExpiry:  72 * time.Hour,
		CodeAlphabet:   pkg.DefaultCodeAlphabet,
		CodeLength:     6,
		CodeMaxRetries: 4,
	}

	provider := identity.NewProvider("test-secret", clock)
	matches := usecase.NewMatchManager(logger, sqlite.NewMatchRepository(st), clock, policy)
	players := usecase.NewPlayerUseCase(sqlite.NewPlayerRepository(st))

	srv := httptest.NewServer(NewRouter(logger, provider, matches, players))
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, identity: provider, clock: clock}
}

func (that *testServer) do(t *testing.T, method, path, playerID string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, that.URL+path, reader)
	require.NoError(t, err)

	if playerID != "" {
		token, err := that.identity.Issue(playerID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)

	return resp, decoded
}

func TestPing(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
}

func TestMatchFlow(t *testing.T) {
	srv := newTestServer(t)

	// Given: a host opens a match
	resp, hosted := srv.do(t, http.MethodPost, "/matches", "alice", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "waiting", hosted["status"])
	assert.Equal(t, "O", hosted["your_mark"])

	code, ok := hosted["code"].(string)
	require.True(t, ok)

	// When: a guest joins
	resp, joined := srv.do(t, http.MethodPost, "/matches/"+code+"/join", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Then: the guest holds X and may move anywhere
	assert.Equal(t, "active", joined["status"])
	assert.Equal(t, "X", joined["your_mark"])
	assert.Equal(t, true, joined["your_turn"])
	assert.Len(t, joined["legal_moves"], 81)

	// And: the host has to wait
	resp, _ = srv.do(t, http.MethodPost, "/matches/"+code+"/moves", "alice", map[string]int{"board": 4, "cell": 0})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, moved := srv.do(t, http.MethodPost, "/matches/"+code+"/moves", "bob", map[string]int{"board": 4, "cell": 0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state, ok := moved["state"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(0), state["forced_board"])
	assert.Equal(t, "O", state["current_player"])

	// an illegal move is rejected with its reason
	resp, rejected := srv.do(t, http.MethodPost, "/matches/"+code+"/moves", "alice", map[string]int{"board": 5, "cell": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, rejected["error"], "you must play in board 0")

	// outsiders cannot look at a full match
	resp, _ = srv.do(t, http.MethodGet, "/matches/"+code, "mallory", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, viewed := srv.do(t, http.MethodGet, "/matches/"+code, "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, viewed["your_turn"])

	// When: the host resigns
	resp, resigned := srv.do(t, http.MethodPost, "/matches/"+code+"/resign", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "closed", resigned["status"])
	assert.Equal(t, true, resigned["resigned"])

	resp, closed := srv.do(t, http.MethodPost, "/matches/"+code+"/moves", "bob", map[string]int{"board": 0, "cell": 0})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, apperror.ErrMatchClosed.Error(), closed["error"])
}

func TestMatchExpired(t *testing.T) {
	srv := newTestServer(t)

	resp, hosted := srv.do(t, http.MethodPost, "/matches", "alice", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	srv.clock.Advance(73 * time.Hour)

	// the token of the joiner is issued after the advance, so it is still valid
	resp, body := srv.do(t, http.MethodPost, fmt.Sprintf("/matches/%s/join", hosted["code"]), "bob", nil)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	assert.Equal(t, apperror.ErrMatchExpired.Error(), body["error"])
}

func TestRequests_Rejected(t *testing.T) {
	srv := newTestServer(t)

	t.Run("Missing token", func(t *testing.T) {
		resp, _ := srv.do(t, http.MethodPost, "/matches", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Unknown code", func(t *testing.T) {
		resp, _ := srv.do(t, http.MethodGet, "/matches/ZZZZZZ", "alice", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Malformed move", func(t *testing.T) {
		resp, hosted := srv.do(t, http.MethodPost, "/matches", "alice", nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp, _ = srv.do(t, http.MethodPost, fmt.Sprintf("/matches/%s/moves", hosted["code"]), "alice", map[string]int{"board": 1})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRegisterPlayer(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodPut, "/players/me", "alice", map[string]string{"name": "Alice", "email": "alice@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["id"])
	assert.Equal(t, "Alice", body["name"])
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperror.ErrCellOccupied, http.StatusBadRequest},
		{apperror.ErrNotYourTurn, http.StatusForbidden},
		{apperror.ErrMatchFull, http.StatusForbidden},
		{apperror.ErrMatchExpired, http.StatusGone},
		{apperror.ErrMatchClosed, http.StatusConflict},
		{apperror.ErrStaleWrite, http.StatusConflict},
		{fmt.Errorf("failed to get match: %w", apperror.ErrNotFound), http.StatusNotFound},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, statusOf(tc.err), tc.err.Error())
	}
}
