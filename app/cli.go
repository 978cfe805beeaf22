// Package app is the main cmd app
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/htol/calibre-export/config"
	"github.com/htol/calibre-export/logger"
	"github.com/htol/calibre-export/metrics"
	"github.com/htol/calibre-export/repo"
	"github.com/htol/calibre-export/service"
)

func CLI(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return cli(ctx, args, os.Stdout, os.Stderr)
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := appEnv{stdout: stdout}
	if err := app.fromArgs(args, stderr); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	if err := app.run(ctx); err != nil {
		logger.Error("Export failed", "error", err)
		return 1
	}
	return 0
}

type appEnv struct {
	config  *config.Config
	stdout  io.Writer
	metrics *metrics.ExportMetrics
	runID   string
}

func (app *appEnv) fromArgs(args []string, stderr io.Writer) error {
	fl := flag.NewFlagSet("calibre-export", flag.ContinueOnError)
	fl.SetOutput(stderr)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// CLI flags override environment variables
	libPath := cfg.Library.Path
	fl.StringVar(&libPath, "l", cfg.Library.Path, "Path to calibre library (default: from calibre preferences)")

	if err := fl.Parse(args); err != nil {
		return err
	}
	if fl.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fl.Args())
	}

	cfg.Library.Path = libPath
	app.config = cfg
	return nil
}

func (app *appEnv) run(ctx context.Context) (err error) {
	logger.Init(app.config.LogLevel)
	logger.SetJSON(app.config.LogFormat == "json")

	app.runID = uuid.New().String()
	logger.WithRun(app.runID)
	app.metrics = metrics.NewExportMetrics()
	app.metrics.SetRun(app.runID)

	rt := app.config.Runtime
	logger.Debug("Calibre runtime locations",
		"python_path", rt.PythonPath,
		"resources_path", rt.ResourcesPath,
		"extensions_path", rt.ExtensionsPath,
		"executables_path", rt.ExecutablesPath,
	)

	start := time.Now()
	var records int
	defer func() {
		app.recordRun(records, time.Since(start), err)
	}()

	records, err = app.export(ctx)
	if err != nil {
		return err
	}

	logger.Info("Catalog exported",
		"records", records,
		"library", app.config.Library.Path,
		"duration", time.Since(start),
	)
	return nil
}

func (app *appEnv) export(ctx context.Context) (int, error) {
	if err := app.config.ResolveLibraryPath(); err != nil {
		return 0, err
	}

	storage, err := repo.Open(ctx, app.config.Library.Path, app.config.Database)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Error("Error closing storage", "error", err)
		}
	}()
	logger.Debug("Reading catalog", "store", storage.Path())

	return service.New(storage, app.config.Library.Path).Export(ctx, app.stdout)
}

func (app *appEnv) recordRun(records int, took time.Duration, err error) {
	path := app.config.Metrics.Textfile
	if path != "" {
		if rerr := app.metrics.RestoreLastSuccess(path); rerr != nil {
			logger.Warn("Failed to read previous metrics textfile", "path", path, "error", rerr)
		}
	}

	if err != nil {
		app.metrics.ObserveFailure(failureKind(err), took)
	} else {
		app.metrics.ObserveSuccess(records, took, time.Now())
	}

	if path == "" {
		return
	}
	if werr := app.metrics.WriteTextfile(path); werr != nil {
		logger.Warn("Failed to write metrics textfile", "path", path, "error", werr)
	}
}

func failureKind(err error) string {
	var (
		resErr    *config.ResolutionError
		accessErr *repo.StoreAccessError
		queryErr  *repo.QueryError
	)
	switch {
	case errors.As(err, &resErr):
		return metrics.KindConfig
	case errors.As(err, &accessErr):
		return metrics.KindStore
	case errors.As(err, &queryErr):
		return metrics.KindQuery
	default:
		return metrics.KindOutput
	}
}
