// Package storage holds the static registry of persistence plugins.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"lt-go/internal/config"
	"lt-go/internal/lt"
	"lt-go/internal/storage/jsonl"
	"lt-go/internal/storage/sqlite"
)

// DBFileName is the sqlite database file within the configured directory.
const DBFileName = "lt.db"

// DefaultPluginID selects the backend used when the config names none.
const DefaultPluginID = sqlite.PluginID

// Plugin describes a pluggable persistence backend: identity for config
// and UI, plus a factory producing a ready-to-use Storage.
type Plugin struct {
	ID          string
	DisplayName string
	Description string
	New         func(cfg config.StorageConfig, resolver lt.LocationResolver, logger lt.Logger) (lt.Storage, error)
}

// plugins is the compiled-in registry. No dynamic loading: a static list
// suffices, and the Storage interface keeps call sites backend-agnostic.
var plugins = []Plugin{
	{
		ID:          sqlite.PluginID,
		DisplayName: "SQLite Storage",
		Description: "Persists data in SQLite with a flat-file outbox mirror.",
		New:         newSQLiteStorage,
	},
	{
		ID:          jsonl.PluginID,
		DisplayName: "JSONL Storage",
		Description: "Stores data as JSON lines files. Lightweight and portable.",
		New:         newJSONLStorage,
	},
}

// Plugins returns the registered plugins in display order.
func Plugins() []Plugin {
	out := make([]Plugin, len(plugins))
	copy(out, plugins)
	return out
}

// PluginByID returns the plugin with the given id, or nil if unknown.
func PluginByID(id string) *Plugin {
	for i := range plugins {
		if plugins[i].ID == id {
			return &plugins[i]
		}
	}
	return nil
}

// NewStorageFromConfig creates a Storage from the selected (or default)
// plugin.
func NewStorageFromConfig(cfg config.StorageConfig, resolver lt.LocationResolver, logger lt.Logger) (lt.Storage, error) {
	id := cfg.Plugin
	if id == "" {
		id = DefaultPluginID
	}
	p := PluginByID(id)
	if p == nil {
		return nil, fmt.Errorf("unknown storage plugin: %s", id)
	}
	return p.New(cfg, resolver, logger)
}

func newJSONLStorage(cfg config.StorageConfig, resolver lt.LocationResolver, logger lt.Logger) (lt.Storage, error) {
	return jsonl.New(resolver, logger), nil
}

func newSQLiteStorage(cfg config.StorageConfig, resolver lt.LocationResolver, logger lt.Logger) (lt.Storage, error) {
	dbDir := cfg.DBDir
	if dbDir == "" {
		dbDir = cfg.DataDir
	}
	if dbDir == "" {
		return nil, fmt.Errorf("sqlite storage requires data_dir or db_dir to be set")
	}
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	mirror := jsonl.New(resolver, logger)
	return sqlite.New(filepath.Join(dbDir, DBFileName), mirror, logger, lt.RealClock{}, cfg.RelayBatchSize)
}
