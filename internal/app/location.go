package app

import (
	"fmt"
	"os"

	"lt-go/internal/lt"
)

// dataDirLocation resolves the flat-file directory from the configured
// path. Resolution runs on every call: the directory is created if it went
// missing since the last access, and backends never cache the result.
type dataDirLocation struct {
	dir string
}

// NewDataDirLocation creates a LocationResolver for a fixed configured path.
func NewDataDirLocation(dir string) lt.LocationResolver {
	return &dataDirLocation{dir: dir}
}

func (l *dataDirLocation) ResolveDir() (string, error) {
	if l.dir == "" {
		return "", fmt.Errorf("storage data directory is not configured")
	}
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return l.dir, nil
}
