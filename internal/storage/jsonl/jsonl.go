// Package jsonl implements the flat-file storage backend. Each collection
// is one JSON array document, except the event stream which is append-only
// JSON Lines. Reads are tolerant: corrupt files or lines degrade to "no
// data" with a logged warning, never an error.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lt-go/internal/lt"
	"lt-go/internal/model"
)

// PluginID identifies this backend in the plugin registry and in logs.
const PluginID = "jsonl"

// File names within the resolved storage directory.
const (
	EventsFile        = "events.jsonl"
	HabitsFile        = "habits.json"
	TagsFile          = "tags.json"
	TaskListsFile     = "task_lists.json"
	TasksFile         = "tasks.json"
	MoodEntriesFile   = "mood_entries.json"
	SleepSessionsFile = "sleep_sessions.json"
)

// exportFiles is the full flat-file layout, in export order.
var exportFiles = []string{
	EventsFile,
	HabitsFile,
	TagsFile,
	TaskListsFile,
	TasksFile,
	MoodEntriesFile,
	SleepSessionsFile,
}

// Storage is the flat-file implementation of lt.Storage.
//
// The storage directory is re-resolved through the LocationResolver on
// every access: the configured location can change between runs, so the
// directory is never cached.
type Storage struct {
	resolver lt.LocationResolver
	logger   lt.Logger
}

// New creates a flat-file storage backend.
func New(resolver lt.LocationResolver, logger lt.Logger) *Storage {
	return &Storage{resolver: resolver, logger: logger}
}

// filePath resolves the current directory for the given file name.
func (s *Storage) filePath(name string) (string, error) {
	dir, err := s.resolver.ResolveDir()
	if err != nil {
		return "", fmt.Errorf("resolving storage directory: %w", err)
	}
	return filepath.Join(dir, name), nil
}

// AppendEvent serializes the event as one JSON line and appends it to the
// event stream. Write failures propagate to the caller.
func (s *Storage) AppendEvent(event model.Event) error {
	path, err := s.filePath(EventsFile)
	if err != nil {
		return err
	}

	line, err := json.Marshal(event.EnsureMetadata())
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening event stream: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}

// ReadEvents decodes the full event stream. Corrupt lines are skipped with
// a warning so one bad line never loses the rest of the history.
func (s *Storage) ReadEvents() ([]model.Event, error) {
	path, err := s.filePath(EventsFile)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.Event{}, nil
		}
		s.logger.Error("failed to read event stream", "plugin", PluginID, "file", EventsFile, "error", err)
		return []model.Event{}, nil
	}
	defer f.Close()

	var events []model.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event model.Event
		if err := json.Unmarshal(line, &event); err != nil {
			s.logger.Warn("failed to decode event line; skipping", "plugin", PluginID, "file", EventsFile, "error", err)
			continue
		}
		events = append(events, event.EnsureMetadata())
	}
	if err := scanner.Err(); err != nil {
		s.logger.Error("failed to read event stream", "plugin", PluginID, "file", EventsFile, "error", err)
	}

	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

// ReadEventsByDateRange loads the full event history and filters by parsed
// timestamp, both bounds inclusive. There is no indexing here: this backend
// is the durability and export fallback, not the primary query path.
func (s *Storage) ReadEventsByDateRange(start, end time.Time) ([]model.Event, error) {
	events, err := s.ReadEvents()
	if err != nil {
		return nil, err
	}

	filtered := make([]model.Event, 0, len(events))
	for _, event := range events {
		ts, err := model.ParseTimestamp(event.Timestamp)
		if err != nil {
			s.logger.Warn("event has unparseable timestamp; skipping", "plugin", PluginID, "id", event.EventID, "error", err)
			continue
		}
		if ts.Before(start) || ts.After(end) {
			continue
		}
		filtered = append(filtered, event)
	}
	return filtered, nil
}

// ExportFiles returns the flat files that currently exist.
func (s *Storage) ExportFiles() ([]string, error) {
	dir, err := s.resolver.ResolveDir()
	if err != nil {
		return nil, fmt.Errorf("resolving storage directory: %w", err)
	}

	var paths []string
	for _, name := range exportFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func (s *Storage) SaveHabits(habits []model.Habit) error {
	return saveList(s, HabitsFile, habits)
}

func (s *Storage) ReadHabits() ([]model.Habit, error) {
	return readList[model.Habit](s, HabitsFile)
}

func (s *Storage) SaveTags(tags []model.QuickLogTag) error {
	return saveList(s, TagsFile, tags)
}

func (s *Storage) ReadTags() ([]model.QuickLogTag, error) {
	return readList[model.QuickLogTag](s, TagsFile)
}

func (s *Storage) SaveTaskLists(lists []model.TaskList) error {
	return saveList(s, TaskListsFile, lists)
}

func (s *Storage) ReadTaskLists() ([]model.TaskList, error) {
	return readList[model.TaskList](s, TaskListsFile)
}

func (s *Storage) SaveTasks(tasks []model.Task) error {
	return saveList(s, TasksFile, tasks)
}

func (s *Storage) ReadTasks() ([]model.Task, error) {
	return readList[model.Task](s, TasksFile)
}

func (s *Storage) SaveMoodEntries(entries []model.MoodEntry) error {
	return saveList(s, MoodEntriesFile, entries)
}

func (s *Storage) ReadMoodEntries() ([]model.MoodEntry, error) {
	return readList[model.MoodEntry](s, MoodEntriesFile)
}

func (s *Storage) SaveSleepSessions(sessions []model.SleepSession) error {
	return saveList(s, SleepSessionsFile, sessions)
}

func (s *Storage) ReadSleepSessions() ([]model.SleepSession, error) {
	return readList[model.SleepSession](s, SleepSessionsFile)
}

// Close is a no-op: the backend holds no open resources between calls.
func (s *Storage) Close() error { return nil }

// saveList overwrites a collection document wholesale. A nil slice is
// written as an empty array so a later read round-trips to empty, not null.
func saveList[T any](s *Storage, name string, list []T) error {
	path, err := s.filePath(name)
	if err != nil {
		return err
	}

	if list == nil {
		list = []T{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// readList reads a collection document, treating a missing, unreadable, or
// unparseable file as an empty collection. An unreadable file is logged at
// error level, invalid JSON at warn level; neither propagates.
func readList[T any](s *Storage, name string) ([]T, error) {
	path, err := s.filePath(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []T{}, nil
		}
		s.logger.Error("failed to read file; returning empty", "plugin", PluginID, "file", name, "error", err)
		return []T{}, nil
	}
	if len(data) == 0 {
		return []T{}, nil
	}

	var list []T
	if err := json.Unmarshal(data, &list); err != nil {
		s.logger.Warn("failed to decode file; returning empty", "plugin", PluginID, "file", name, "error", err)
		return []T{}, nil
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}

// Compile-time check that Storage implements lt.Storage
var _ lt.Storage = (*Storage)(nil)
