package testutil

import "sync"

// StaticLocation is a location resolver pinned to a directory that tests can
// repoint mid-run to exercise re-resolution.
type StaticLocation struct {
	mu  sync.Mutex
	dir string
}

func NewStaticLocation(dir string) *StaticLocation {
	return &StaticLocation{dir: dir}
}

func (l *StaticLocation) ResolveDir() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dir, nil
}

// SetDir repoints the resolver at dir.
func (l *StaticLocation) SetDir(dir string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dir = dir
}
