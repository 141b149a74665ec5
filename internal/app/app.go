// Package app wires the configured components into a tester.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/programme-lv/executor/internal"
	"github.com/programme-lv/executor/internal/database"
	"github.com/programme-lv/executor/internal/environment"
	"github.com/programme-lv/executor/internal/filestore"
	"github.com/programme-lv/executor/internal/gatherer/dbgath"
	"github.com/programme-lv/executor/internal/sqlexec"
	"github.com/programme-lv/executor/internal/sqlexec/mysqlexec"
	"github.com/programme-lv/executor/internal/sqlexec/sqliteexec"
	"github.com/programme-lv/executor/internal/tester"
	"github.com/programme-lv/executor/internal/xdg"
)

type App struct {
	Config *environment.Config
	Tester *tester.Tester
	Store  *database.Store
	Logger *slog.Logger

	cancel context.CancelFunc
}

// New builds the tester with every strategy the configuration enables and
// starts the file store in the background.
func New(ctx context.Context, cfg *environment.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if err := xdg.EnsureDir(filepath.Dir(cfg.Database.Path)); err != nil {
		return nil, err
	}
	store, err := database.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	a.Store = store

	files := filestore.New(cfg.FileStore.FilesDir, cfg.FileStore.DownloadDir,
		filestore.WithLogger(logger.With("component", "filestore")))
	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	go func() {
		if err := files.Start(bg); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("file store stopped", "error", err)
		}
	}()

	a.Tester = tester.NewTester(
		tester.WithFileStore(files),
		tester.WithCheckerCatalog(store),
		tester.WithLogger(logger.With("component", "tester")),
	)

	var mysqlProv, sqliteProv sqlexec.Provisioner
	if cfg.MySQL.SysDSN != "" {
		p, err := mysqlexec.New(cfg.MySQL.SysDSN, cfg.MySQL.RestrictedUser, cfg.MySQL.RestrictedPassword,
			logger.With("component", "mysql"))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to set up mysql strategies: %w", err)
		}
		mysqlProv = p
	}
	if cfg.SQLite.Enabled {
		p, err := sqliteexec.New(cfg.SQLite.WorkDir)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to set up sqlite strategies: %w", err)
		}
		sqliteProv = p
	}
	if mysqlProv == nil && sqliteProv == nil {
		a.Close()
		return nil, errors.New("no execution strategy is enabled")
	}
	a.Tester.RegisterSQL(mysqlProv, sqliteProv)

	logger.Info("tester ready", "strategies", len(a.Tester.Strategies()))
	return a, nil
}

// TestRunGatherer returns a gatherer persisting test runs, or a no-op one when
// persistence is disabled.
func (a *App) TestRunGatherer(sub *internal.Submission) internal.ResultGatherer {
	if !a.Config.Database.PersistTestRuns {
		return internal.NopGatherer{}
	}
	return dbgath.New(a.Store, sub.ID, a.Logger)
}

func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn("failed to close database", "error", err)
		}
	}
}
