package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"forumdata/internal/auth"
	"forumdata/internal/config"
	"forumdata/internal/db"
	"forumdata/internal/models"
	"forumdata/internal/ratelimit"
)

// app is the wired data layer every command works against.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	store   db.Store
	data    *models.DB
	limiter *ratelimit.Limiter
	auth    *auth.Engine
}

func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	cfg.ApplyEnv(opts.getenv)
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open storage", err)
	}
	logger.Debug("storage opened", "driver", cfg.Storage.Driver, "path", cfg.Storage.Path)

	data := models.New(store, models.WithLogger(logger))
	limiter := ratelimit.New(nil, cfg.RateLimits)
	return &app{
		cfg:     cfg,
		log:     logger,
		store:   store,
		data:    data,
		limiter: limiter,
		auth:    auth.New(data, limiter, auth.WithLogger(logger), auth.WithCost(cfg.BcryptCost)),
	}, nil
}

func openStore(s config.Storage) (db.Store, error) {
	if s.Driver == config.DriverMemory {
		return db.NewMemory(), nil
	}
	st, err := db.Open(s.Path)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("close storage", "err", err)
	}
}
