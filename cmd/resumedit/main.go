package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/thomhug/resumedit/internal/cli"
	"github.com/thomhug/resumedit/internal/config"
	"github.com/thomhug/resumedit/internal/db"
	"github.com/thomhug/resumedit/internal/repository"
	"github.com/thomhug/resumedit/internal/service"
	"github.com/thomhug/resumedit/internal/store"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig("")
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// The server of record stands in for the remote backend and lives in
	// its own database so local state can be wiped independently.
	serverDB, err := db.OpenDB(cfg.ServerDBPath)
	if err != nil {
		return fmt.Errorf("opening server database: %w", err)
	}
	defer serverDB.Close()

	localDB, err := db.OpenDB(cfg.LocalDBPath)
	if err != nil {
		return fmt.Errorf("opening local database: %w", err)
	}
	defer localDB.Close()

	server := service.NewServerOfRecord(
		repository.NewSQLiteNodeRepo(serverDB),
		db.NewSQLiteUnitOfWork(serverDB),
		service.NewLogUseCaseObserver(logger.Named("server")),
	)
	stores := store.NewRegistry(repository.NewSQLiteLocalStateRepo(localDB), store.Options{
		Logger:   logger.Named("store"),
		LogMerge: cfg.LogMerge,
	})

	app := &cli.App{
		Server: server,
		Stores: stores,
		Walker: service.NewBootstrapper(server, logger.Named("walk")),
		Config: cfg,
		Logger: logger,
		Plain:  !(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())),
	}
	logger.Debug("starting",
		zap.String("local_db", cfg.LocalDBPath),
		zap.String("server_db", cfg.ServerDBPath),
		zap.Int("sync_interval_seconds", cfg.SyncIntervalSeconds))

	return cli.NewRootCmd(app).Execute()
}
