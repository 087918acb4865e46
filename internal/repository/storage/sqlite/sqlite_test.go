package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T) (context.Context, *Storage) {
	t.Helper()

	ctx := context.Background()

	st, err := New(filepath.Join(t.TempDir(), "matches.db"))
	require.NoError(t, err)

	require.NoError(t, st.Init(ctx))

	t.Cleanup(func() {
		_ = st.Close()
	})

	return ctx, st
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New("  ")
	require.Error(t, err)
}

func TestMatchRepository_CreateAndGet(t *testing.T) {
	ctx, st := newStorage(t)

	matchRepo := NewMatchRepository(st)

	// Given: a stored match with a move played
	match := entity.NewMatch("m1", "ABC234", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	match.Board.SubBoards[4][4] = entity.PlayerX
	match.Board.CurrentPlayer = entity.PlayerO
	match.Board.SetForced(4)
	match.Board.SetLastMove(4, 4)

	require.NoError(t, matchRepo.Create(ctx, match))

	// When: it is fetched by id and by code
	byID, err := matchRepo.GetByID(ctx, "m1")
	require.NoError(t, err)

	byCode, err := matchRepo.GetByCode(ctx, "ABC234")
	require.NoError(t, err)

	// Then: both return the same record
	assert.Equal(t, match, byID)
	assert.Equal(t, match, byCode)
}

func TestMatchRepository_CodeTaken(t *testing.T) {
	ctx, st := newStorage(t)

	matchRepo := NewMatchRepository(st)
	now := time.Now().UTC()

	require.NoError(t, matchRepo.Create(ctx, entity.NewMatch("m1", "ABC234", now)))

	err := matchRepo.Create(ctx, entity.NewMatch("m2", "ABC234", now))
	require.ErrorIs(t, err, apperror.ErrCodeTaken)
}

func TestMatchRepository_NotFound(t *testing.T) {
	ctx, st := newStorage(t)

	matchRepo := NewMatchRepository(st)

	_, err := matchRepo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrMatchNotFound)

	_, err = matchRepo.GetByCode(ctx, "ZZZZZZ")
	require.ErrorIs(t, err, repository.ErrMatchNotFound)

	err = matchRepo.Update(ctx, entity.NewMatch("missing", "ZZZZZZ", time.Now()))
	require.ErrorIs(t, err, repository.ErrMatchNotFound)

	err = matchRepo.DeleteByID(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrMatchNotFound)
}

func TestMatchRepository_Update(t *testing.T) {
	t.Run("Update_BumpsVersion", func(t *testing.T) {
		ctx, st := newStorage(t)

		matchRepo := NewMatchRepository(st)
		require.NoError(t, matchRepo.Create(ctx, entity.NewMatch("m1", "ABC234", time.Now().UTC())))

		loaded, err := matchRepo.GetByID(ctx, "m1")
		require.NoError(t, err)

		// When: a seat is taken and saved twice
		loaded.PlayerO = "alice"
		require.NoError(t, matchRepo.Update(ctx, loaded))

		loaded.PlayerX = "bob"
		require.NoError(t, matchRepo.Update(ctx, loaded))

		// Then: every write advanced the version
		stored, err := matchRepo.GetByID(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), stored.Version)
		assert.Equal(t, "alice", stored.PlayerO)
		assert.Equal(t, "bob", stored.PlayerX)
	})

	t.Run("Update_StaleWrite", func(t *testing.T) {
		ctx, st := newStorage(t)

		matchRepo := NewMatchRepository(st)
		require.NoError(t, matchRepo.Create(ctx, entity.NewMatch("m1", "ABC234", time.Now().UTC())))

		// Given: two readers of the same version
		first, err := matchRepo.GetByID(ctx, "m1")
		require.NoError(t, err)
		second, err := matchRepo.GetByID(ctx, "m1")
		require.NoError(t, err)

		// When: both try to write
		first.Close(entity.CloseReasonResigned)
		require.NoError(t, matchRepo.Update(ctx, first))

		second.PlayerO = "mallory"
		err = matchRepo.Update(ctx, second)

		// Then: the later writer loses
		require.ErrorIs(t, err, apperror.ErrStaleWrite)
		assert.Equal(t, int64(0), second.Version)

		stored, err := matchRepo.GetByID(ctx, "m1")
		require.NoError(t, err)
		assert.True(t, stored.IsClosed())
		assert.Empty(t, stored.PlayerO)
	})
}

func TestMatchRepository_DeleteAndList(t *testing.T) {
	ctx, st := newStorage(t)

	matchRepo := NewMatchRepository(st)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, matchRepo.Create(ctx, entity.NewMatch("m2", "BBBBBB", base.Add(time.Minute))))
	require.NoError(t, matchRepo.Create(ctx, entity.NewMatch("m1", "AAAAAA", base)))

	matches, err := matchRepo.List(ctx)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "m1", matches[0].ID)
	assert.Equal(t, "m2", matches[1].ID)

	require.NoError(t, matchRepo.DeleteByID(ctx, "m1"))

	matches, err = matchRepo.List(ctx)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "m2", matches[0].ID)

	// the code of a deleted match is free again
	require.NoError(t, matchRepo.Create(ctx, entity.NewMatch("m3", "AAAAAA", base)))
}

func TestPlayerRepository(t *testing.T) {
	ctx, st := newStorage(t)

	playerRepo := NewPlayerRepository(st)

	_, err := playerRepo.GetByID(ctx, "p1")
	require.ErrorIs(t, err, repository.ErrPlayerNotFound)

	player := &entity.Player{ID: "p1", Name: "Alice", Email: "alice@example.com"}
	require.NoError(t, playerRepo.CreateOrUpdate(ctx, player))

	player.Name = "Alicia"
	require.NoError(t, playerRepo.CreateOrUpdate(ctx, player))

	stored, err := playerRepo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, player, stored)

	require.Error(t, playerRepo.CreateOrUpdate(ctx, &entity.Player{}))
}
