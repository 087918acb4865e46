package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/repository"
)

type playerStore struct {
	db *sql.DB
}

func NewPlayerRepository(storage *Storage) repository.PlayerRepository {
	return &playerStore{
		db: storage.Connection,
	}
}

func (that *playerStore) CreateOrUpdate(ctx context.Context, player *entity.Player) error {
	if player.ID == "" {
		return fmt.Errorf("player id is required")
	}

	_, err := that.db.ExecContext(ctx,
		`INSERT INTO players (id, name, email) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email`,
		player.ID, player.Name, player.Email,
	)
	if err != nil {
		return fmt.Errorf("failed to set player: %w", err)
	}

	return nil
}

func (that *playerStore) GetByID(ctx context.Context, id string) (*entity.Player, error) {
	var player entity.Player

	err := that.db.QueryRowContext(ctx, `SELECT id, name, email FROM players WHERE id = ?`, id).
		Scan(&player.ID, &player.Name, &player.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrPlayerNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get player by ID: %w", err)
	}

	return &player, nil
}
