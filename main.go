package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	app "github.com/rocketscienceinc/ultimate-tictactoe-backend/internal"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/config"
)

type Globals struct {
	Config string `help:"Path to the YAML config file; environment only when empty." type:"path" env:"CONFIG_PATH"`
}

type ServeCmd struct{}

func (that *ServeCmd) Run(globals *Globals) error {
	conf, logger, err := setup(globals)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.RunApp(ctx, logger, conf)
}

type SweepCmd struct{}

func (that *SweepCmd) Run(globals *Globals) error {
	conf, logger, err := setup(globals)
	if err != nil {
		return err
	}

	report, err := app.RunSweep(context.Background(), logger, conf)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	fmt.Printf("reminded=%d rearmed=%d expired=%d archived=%d skipped=%d\n",
		report.Reminded, report.Rearmed, report.Expired, report.Archived, report.Skipped)

	return nil
}

type TokenCmd struct {
	User string `arg:"" help:"Player id to issue a bearer token for."`
}

func (that *TokenCmd) Run(globals *Globals) error {
	conf, _, err := setup(globals)
	if err != nil {
		return err
	}

	token, err := app.IssueToken(conf, that.User)
	if err != nil {
		return err
	}

	fmt.Println(token)

	return nil
}

type CLI struct {
	Globals

	Serve ServeCmd `cmd:"" default:"1" help:"Serve the REST API and run the maintenance sweeper."`
	Sweep SweepCmd `cmd:"" help:"Run every maintenance pass once and exit."`
	Token TokenCmd `cmd:"" help:"Print a bearer token for a player id."`
}

// main - is the entry point of the application.
func main() {
	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("ultimate-tictactoe"),
		kong.Description("Asynchronous ultimate tic-tac-toe match server."),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

func setup(globals *Globals) (*config.Config, *slog.Logger, error) {
	conf, err := config.Load(globals.Config)
	if err != nil {
		return nil, nil, err
	}

	return conf, initLogger(conf), nil
}

// initialize logger.
func initLogger(conf *config.Config) *slog.Logger {
	var level slog.Level

	switch conf.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
