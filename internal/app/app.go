package app

import (
	"fmt"
	"os"
	"time"

	"lt-go/internal/config"
	"lt-go/internal/lt"
	"lt-go/internal/storage"
)

// App is the application layer between the CLI and TrackerService.
// It constructs all dependencies from config, exposes the service and
// storage, and manages their lifecycle on Close.
type App struct {
	cfg     *config.Config
	storage lt.Storage
	service *lt.TrackerService
	logFile *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "LogHabit", "Sync").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	opID := time.Now().UTC().Format("20060102T150405Z") + "-" + operation
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	resolver := NewDataDirLocation(cfg.Storage.DataDir)

	adapter := &slogAdapter{l: logger}
	store, err := storage.NewStorageFromConfig(cfg.Storage, resolver, adapter)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating storage: %w", err)
	}

	svc := lt.NewTrackerService(store, adapter, lt.RealClock{}, lt.UUIDGenerator{})

	return &App{
		cfg:     cfg,
		storage: store,
		service: svc,
		logFile: logFile,
	}, nil
}

// Service returns the tracker service.
func (a *App) Service() *lt.TrackerService { return a.service }

// Storage returns the storage backend for direct reads.
func (a *App) Storage() lt.Storage { return a.storage }

// Close shuts down the storage backend (stopping the outbox relay and
// closing the database) and the log file.
func (a *App) Close() error {
	var firstErr error

	if err := a.storage.Close(); err != nil {
		firstErr = fmt.Errorf("closing storage: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
