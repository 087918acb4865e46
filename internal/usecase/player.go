package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

type PlayerUseCase interface {
	Register(ctx context.Context, player *entity.Player) (*entity.Player, error)
}

type playerRepo interface {
	CreateOrUpdate(ctx context.Context, player *entity.Player) error
}

type playerUseCase struct {
	repo playerRepo
}

// NewPlayerUseCase keeps the directory of display names and contacts used by reminders.
func NewPlayerUseCase(repo playerRepo) PlayerUseCase {
	return &playerUseCase{
		repo: repo,
	}
}

func (that *playerUseCase) Register(ctx context.Context, player *entity.Player) (*entity.Player, error) {
	if player.ID == "" {
		return nil, fmt.Errorf("player id is required")
	}

	player.Name = strings.TrimSpace(player.Name)
	player.Email = strings.TrimSpace(player.Email)

	if err := that.repo.CreateOrUpdate(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to save player into storage: %w", err)
	}

	return player, nil
}
