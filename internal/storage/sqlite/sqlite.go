// Package sqlite implements the relational storage backend. Entities live
// in SQLite tables carrying a denormalized json blob plus a few indexed
// query columns. Every event append also enqueues a durable outbox record
// in the same transaction; a background relay replays the outbox to the
// flat-file mirror, keeping it eventually consistent.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"lt-go/internal/lt"
	"lt-go/internal/model"
	"lt-go/internal/storage/jsonl"
	"lt-go/internal/storage/sqlite/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// PluginID identifies this backend in the plugin registry and in logs.
const PluginID = "sqlite"

// Storage is the SQLite-backed implementation of lt.Storage. It is the
// source of truth for reads; the wrapped flat-file mirror is kept current
// through the outbox relay and powers seeding and exports.
type Storage struct {
	db     *sql.DB
	path   string
	mirror *jsonl.Storage
	logger lt.Logger
	clock  lt.Clock
	batch  int
	relay  *relayScheduler

	// seeded flips true on the first read; resets to false when a seed
	// pass failed so a later read retries. Per-instance, never shared.
	seeded atomic.Bool
}

// New opens (or creates) the database at path, applies pending migrations,
// and starts the background outbox relay. batchSize <= 0 selects the
// default relay batch cap.
func New(path string, mirror *jsonl.Storage, logger lt.Logger, clock lt.Clock, batchSize int) (*Storage, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return newStorage(db, path, mirror, logger, clock, batchSize, true), nil
}

// newStorage wires a Storage around an already-open, migrated connection.
// Tests use it with startRelay=false to drive the relay synchronously.
func newStorage(db *sql.DB, path string, mirror *jsonl.Storage, logger lt.Logger, clock lt.Clock, batchSize int, startRelay bool) *Storage {
	if batchSize <= 0 {
		batchSize = DefaultRelayBatchSize
	}
	s := &Storage{
		db:     db,
		path:   path,
		mirror: mirror,
		logger: logger,
		clock:  clock,
		batch:  batchSize,
	}
	if startRelay {
		s.relay = newRelayScheduler(s.drainOutbox, logger)
	}
	return s
}

// OpenConnection opens and configures a SQLite connection. path can be a
// file path or ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// The relay goroutine writes concurrently with reads; wait for locks
	// instead of failing with SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if path == ":memory:" {
		// Each pool connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// AppendEvent inserts the event row and its outbox record in a single
// transaction: they commit together or not at all. On success the relay is
// scheduled to replay the outbox to the flat-file mirror.
func (s *Storage) AppendEvent(event model.Event) error {
	ctx := context.Background()
	enriched := event.EnsureMetadata()

	payload, err := json.Marshal(enriched)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	tags, err := json.Marshal(enriched.Metadata.Tags)
	if err != nil {
		return fmt.Errorf("encoding event tags: %w", err)
	}
	details, err := json.Marshal(enriched.Metadata.Details)
	if err != nil {
		return fmt.Errorf("encoding event details: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO events (event_id, timestamp, type, json, tags_json, details_json) VALUES (?, ?, ?, ?, ?, ?)`,
		enriched.EventID, enriched.Timestamp, string(enriched.Type), string(payload), string(tags), string(details))
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO json_outbox (id, payload_json, created_at, processed_at) VALUES (?, ?, ?, NULL)`,
		enriched.EventID, string(payload), s.clock.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("enqueueing outbox record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	if s.relay != nil {
		s.relay.Schedule()
	}
	s.logger.Info("event appended and enqueued for flat-file sync", "plugin", PluginID, "id", enriched.EventID)
	return nil
}

// ReadEventsByDateRange queries the indexed timestamp column directly, both
// bounds inclusive.
func (s *Storage) ReadEventsByDateRange(start, end time.Time) ([]model.Event, error) {
	s.ensureSeeded()
	return s.queryEvents(
		`SELECT event_id, json FROM events WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC`,
		model.FormatTimestamp(start), model.FormatTimestamp(end))
}

// ReadEventsByType queries by the composite (type, timestamp) index.
func (s *Storage) ReadEventsByType(eventType model.EventType, start, end time.Time) ([]model.Event, error) {
	s.ensureSeeded()
	return s.queryEvents(
		`SELECT event_id, json FROM events WHERE type = ? AND timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC`,
		string(eventType), model.FormatTimestamp(start), model.FormatTimestamp(end))
}

// CountEventsByType returns per-type counts from a grouped query, without
// deserializing any event blobs.
func (s *Storage) CountEventsByType(start, end time.Time) ([]lt.EventTypeCount, error) {
	s.ensureSeeded()

	rows, err := s.db.QueryContext(context.Background(),
		`SELECT type, COUNT(*) FROM events WHERE timestamp >= ? AND timestamp <= ? GROUP BY type ORDER BY type ASC`,
		model.FormatTimestamp(start), model.FormatTimestamp(end))
	if err != nil {
		return nil, fmt.Errorf("counting events: %w", err)
	}
	defer rows.Close()

	var counts []lt.EventTypeCount
	for rows.Next() {
		var c lt.EventTypeCount
		if err := rows.Scan(&c.Type, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning event count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading event counts: %w", err)
	}
	return counts, nil
}

func (s *Storage) queryEvents(query string, args ...any) ([]model.Event, error) {
	rows, err := s.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var id, blob string
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		var event model.Event
		if err := json.Unmarshal([]byte(blob), &event); err != nil {
			s.logger.Warn("failed to decode event row; skipping", "plugin", PluginID, "id", id, "error", err)
			continue
		}
		events = append(events, event.EnsureMetadata())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading event rows: %w", err)
	}
	return events, nil
}

// ExportFiles returns the database file (when it exists on disk) plus
// everything the flat-file mirror exports.
func (s *Storage) ExportFiles() ([]string, error) {
	var paths []string
	if s.path != "" && s.path != ":memory:" {
		if _, err := os.Stat(s.path); err == nil {
			paths = append(paths, s.path)
		}
	}

	mirrorFiles, err := s.mirror.ExportFiles()
	if err != nil {
		return nil, err
	}
	return append(paths, mirrorFiles...), nil
}

// Collection save/read. Saves replace the whole table inside one
// transaction, then write the same list through to the flat-file mirror.

func (s *Storage) SaveHabits(habits []model.Habit) error {
	err := s.replaceAll("habits", len(habits), func(tx *sql.Tx) error {
		for _, h := range habits {
			if err := insertHabit(tx, h); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.mirror.SaveHabits(habits)
}

func (s *Storage) ReadHabits() ([]model.Habit, error) {
	s.ensureSeeded()
	return readRows[model.Habit](s, `SELECT id, json FROM habits ORDER BY created_at ASC`)
}

func (s *Storage) SaveTags(tags []model.QuickLogTag) error {
	err := s.replaceAll("quick_log_tags", len(tags), func(tx *sql.Tx) error {
		for _, t := range tags {
			if err := insertTag(tx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.mirror.SaveTags(tags)
}

func (s *Storage) ReadTags() ([]model.QuickLogTag, error) {
	s.ensureSeeded()
	return readRows[model.QuickLogTag](s, `SELECT id, json FROM quick_log_tags ORDER BY created_at ASC`)
}

func (s *Storage) SaveTaskLists(lists []model.TaskList) error {
	err := s.replaceAll("task_lists", len(lists), func(tx *sql.Tx) error {
		for _, l := range lists {
			if err := insertTaskList(tx, l); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.mirror.SaveTaskLists(lists)
}

func (s *Storage) ReadTaskLists() ([]model.TaskList, error) {
	s.ensureSeeded()
	return readRows[model.TaskList](s, `SELECT id, json FROM task_lists ORDER BY sort_order ASC`)
}

func (s *Storage) SaveTasks(tasks []model.Task) error {
	err := s.replaceAll("tasks", len(tasks), func(tx *sql.Tx) error {
		for _, t := range tasks {
			if err := insertTask(tx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.mirror.SaveTasks(tasks)
}

func (s *Storage) ReadTasks() ([]model.Task, error) {
	s.ensureSeeded()
	return readRows[model.Task](s, `SELECT id, json FROM tasks ORDER BY created_at ASC`)
}

func (s *Storage) SaveMoodEntries(entries []model.MoodEntry) error {
	err := s.replaceAll("mood_entries", len(entries), func(tx *sql.Tx) error {
		for _, e := range entries {
			if err := insertMoodEntry(tx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.mirror.SaveMoodEntries(entries)
}

func (s *Storage) ReadMoodEntries() ([]model.MoodEntry, error) {
	s.ensureSeeded()
	return readRows[model.MoodEntry](s, `SELECT entry_id, json FROM mood_entries ORDER BY recorded_at DESC`)
}

func (s *Storage) SaveSleepSessions(sessions []model.SleepSession) error {
	err := s.replaceAll("sleep_sessions", len(sessions), func(tx *sql.Tx) error {
		for _, sess := range sessions {
			if err := insertSleepSession(tx, sess); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.mirror.SaveSleepSessions(sessions)
}

func (s *Storage) ReadSleepSessions() ([]model.SleepSession, error) {
	s.ensureSeeded()
	return readRows[model.SleepSession](s, `SELECT session_id, json FROM sleep_sessions ORDER BY started_at DESC`)
}

// replaceAll clears a table and re-fills it inside one transaction so a
// partial overwrite is never visible to readers.
func (s *Storage) replaceAll(table string, count int, fill func(tx *sql.Tx) error) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}
	if err := fill(tx); err != nil {
		return fmt.Errorf("filling %s: %w", table, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("collection replaced", "plugin", PluginID, "table", table, "count", count)
	return nil
}

// readRows decodes the json blob column of every row. Undecodable rows are
// skipped with a warning rather than failing the whole read.
func readRows[T any](s *Storage, query string) ([]T, error) {
	rows, err := s.db.QueryContext(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("querying rows: %w", err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		var id, blob string
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		var item T
		if err := json.Unmarshal([]byte(blob), &item); err != nil {
			s.logger.Warn("failed to decode row; skipping", "plugin", PluginID, "id", id, "error", err)
			continue
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	return items, nil
}

// Row insert helpers. Each stores the full entity as a json blob alongside
// its indexed query columns, mirroring the flat-file representation.

func insertHabit(tx *sql.Tx, h model.Habit) error {
	blob, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encoding habit %s: %w", h.ID, err)
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO habits (id, created_at, json) VALUES (?, ?, ?)`,
		h.ID, h.CreatedAt, string(blob))
	return err
}

func insertTag(tx *sql.Tx, t model.QuickLogTag) error {
	blob, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding tag %s: %w", t.ID, err)
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO quick_log_tags (id, created_at, json) VALUES (?, ?, ?)`,
		t.ID, t.CreatedAt, string(blob))
	return err
}

func insertTaskList(tx *sql.Tx, l model.TaskList) error {
	blob, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encoding task list %s: %w", l.ID, err)
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO task_lists (id, sort_order, json) VALUES (?, ?, ?)`,
		l.ID, l.SortOrder, string(blob))
	return err
}

func insertTask(tx *sql.Tx, t model.Task) error {
	blob, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding task %s: %w", t.ID, err)
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO tasks (id, list_id, created_at, json) VALUES (?, ?, ?, ?)`,
		t.ID, t.ListID, t.CreatedAt, string(blob))
	return err
}

func insertMoodEntry(tx *sql.Tx, e model.MoodEntry) error {
	blob, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding mood entry %s: %w", e.EntryID, err)
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO mood_entries (entry_id, recorded_at, slot, json) VALUES (?, ?, ?, ?)`,
		e.EntryID, e.RecordedAt, string(e.Slot), string(blob))
	return err
}

func insertSleepSession(tx *sql.Tx, sess model.SleepSession) error {
	blob, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding sleep session %s: %w", sess.SessionID, err)
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO sleep_sessions (session_id, started_at, ended_at, source, json) VALUES (?, ?, ?, ?, ?)`,
		sess.SessionID, sess.StartedAt, sess.EndedAt, string(sess.Source), string(blob))
	return err
}

func insertEvent(tx *sql.Tx, event model.Event) error {
	enriched := event.EnsureMetadata()
	payload, err := json.Marshal(enriched)
	if err != nil {
		return fmt.Errorf("encoding event %s: %w", enriched.EventID, err)
	}
	tags, err := json.Marshal(enriched.Metadata.Tags)
	if err != nil {
		return fmt.Errorf("encoding event tags: %w", err)
	}
	details, err := json.Marshal(enriched.Metadata.Details)
	if err != nil {
		return fmt.Errorf("encoding event details: %w", err)
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO events (event_id, timestamp, type, json, tags_json, details_json) VALUES (?, ?, ?, ?, ?, ?)`,
		enriched.EventID, enriched.Timestamp, string(enriched.Type), string(payload), string(tags), string(details))
	return err
}

// Path returns the database file path (or ":memory:").
func (s *Storage) Path() string { return s.path }

// Close stops the background relay and closes the database connection.
func (s *Storage) Close() error {
	if s.relay != nil {
		s.relay.Stop()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time checks against the storage contracts
var (
	_ lt.Storage        = (*Storage)(nil)
	_ lt.EventAnalytics = (*Storage)(nil)
)
