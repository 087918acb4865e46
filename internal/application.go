package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/config"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/identity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/maintenance"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/notifier"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/repository"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/repository/storage"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/repository/storage/sqlite"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/usecase"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/transport/rest"
)

var (
	ErrAddrNotFound  = errors.New("redis address string is empty")
	ErrMissingSecret = errors.New("jwt secret key is not configured")
)

// deps are the collaborators shared by every command.
type deps struct {
	matches repository.MatchRepository
	players repository.PlayerRepository
	sender  notifier.Sender
	clock   quartz.Clock
	closers []func() error
}

func (that *deps) close(log *slog.Logger) {
	for i := len(that.closers) - 1; i >= 0; i-- {
		if err := that.closers[i](); err != nil {
			log.Error("could not close storage", "error", err)
		}
	}
}

func connect(ctx context.Context, logger *slog.Logger, conf *config.Config) (*deps, error) {
	d := &deps{clock: quartz.NewReal()}

	var redisStorage *storage.RedisStorage

	redisClient := func() (*storage.RedisStorage, error) {
		if redisStorage != nil {
			return redisStorage, nil
		}

		addr := conf.Redis.GetRedisAddr()
		if addr == "" {
			return nil, ErrAddrNotFound
		}

		st, err := storage.NewRedisStorage(ctx, addr, conf.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}

		redisStorage = st
		d.closers = append(d.closers, st.Close)

		return st, nil
	}

	switch conf.Storage {
	case config.StorageSQLite:
		st, err := sqlite.New(conf.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("could not open sqlite storage: %w", err)
		}

		d.closers = append(d.closers, st.Close)

		if err = st.Init(ctx); err != nil {
			d.close(logger)
			return nil, err
		}

		d.matches = sqlite.NewMatchRepository(st)
		d.players = sqlite.NewPlayerRepository(st)
	default:
		st, err := redisClient()
		if err != nil {
			return nil, err
		}

		d.matches = repository.NewMatchRepository(st.Connection)
		d.players = repository.NewPlayerRepository(st.Connection)
	}

	switch conf.Notifier.Driver {
	case config.NotifierRedis:
		st, err := redisClient()
		if err != nil {
			d.close(logger)
			return nil, err
		}

		d.sender = notifier.NewRedisSender(st.Connection, conf.Notifier.Channel)
	default:
		d.sender = notifier.NewLogSender(logger)
	}

	return d, nil
}

// RunApp - serves the REST API and runs the maintenance sweeper until ctx is done.
func RunApp(ctx context.Context, logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	if conf.JWTSecretKey == "" {
		return ErrMissingSecret
	}

	d, err := connect(ctx, logger, conf)
	if err != nil {
		return err
	}
	defer d.close(log)

	matchManager := usecase.NewMatchManager(logger, d.matches, d.clock, conf.Policy)
	playerUseCase := usecase.NewPlayerUseCase(d.players)
	provider := identity.NewProvider(conf.JWTSecretKey, d.clock)
	sweeper := maintenance.NewSweeper(logger, d.matches, d.players, d.sender, d.clock, conf.Policy)

	server := rest.New(logger, conf.HTTPPort, rest.NewRouter(logger, provider, matchManager, playerUseCase))

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return server.Start(groupCtx)
	})

	group.Go(func() error {
		log.Info("Starting maintenance sweeper",
			"reminder_every", conf.Policy.ReminderEvery,
			"archive_every", conf.Policy.ArchiveEvery,
		)
		return sweeper.Run(groupCtx)
	})

	if err = group.Wait(); err != nil {
		return fmt.Errorf("application stopped: %w", err)
	}

	log.Info("Application context canceled, shutting down")

	return nil
}

// RunSweep - runs every maintenance pass once.
func RunSweep(ctx context.Context, logger *slog.Logger, conf *config.Config) (maintenance.Report, error) {
	d, err := connect(ctx, logger, conf)
	if err != nil {
		return maintenance.Report{}, err
	}
	defer d.close(logger)

	sweeper := maintenance.NewSweeper(logger, d.matches, d.players, d.sender, d.clock, conf.Policy)

	return sweeper.RunOnce(ctx)
}

// IssueToken - signs a bearer token for userID with the configured secret.
func IssueToken(conf *config.Config, userID string) (string, error) {
	if conf.JWTSecretKey == "" {
		return "", ErrMissingSecret
	}

	return identity.NewProvider(conf.JWTSecretKey, quartz.NewReal()).Issue(userID)
}
