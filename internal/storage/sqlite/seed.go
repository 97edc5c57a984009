package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"lt-go/internal/model"
)

// ensureSeeded backfills empty relational tables from the flat-file mirror,
// at most once per Storage instance. Every read path calls it first.
//
// Concurrent first reads race on the compare-and-set: exactly one caller
// runs the seed pass, the rest proceed without seeding and may observe the
// store mid-seed. That is acceptable because seeding only adds historical
// data, never removes anything a concurrent reader needs. On failure the
// flag resets so a later read retries, and the read that triggered seeding
// proceeds with whatever the relational store already had.
func (s *Storage) ensureSeeded() {
	if !s.seeded.CompareAndSwap(false, true) {
		return
	}
	if err := s.seed(); err != nil {
		s.seeded.Store(false)
		s.logger.Error("failed to seed relational store from flat files", "plugin", PluginID, "error", err)
	}
}

// seed gathers flat-file data for every empty collection, then inserts all
// of it inside one transaction. Non-empty collections are never touched, so
// repeated invocations preserve partially-seeded prior state.
func (s *Storage) seed() error {
	var (
		lists    []model.TaskList
		tasks    []model.Task
		habits   []model.Habit
		tags     []model.QuickLogTag
		events   []model.Event
		moods    []model.MoodEntry
		sleeps   []model.SleepSession
		anything bool
		err      error
	)

	gather := func(table string, read func() error) error {
		n, countErr := s.countRows(table)
		if countErr != nil {
			return countErr
		}
		if n > 0 {
			return nil
		}
		return read()
	}

	if err = gather("task_lists", func() error {
		lists, err = s.mirror.ReadTaskLists()
		return err
	}); err != nil {
		return err
	}
	if err = gather("tasks", func() error {
		tasks, err = s.mirror.ReadTasks()
		return err
	}); err != nil {
		return err
	}
	if err = gather("habits", func() error {
		habits, err = s.mirror.ReadHabits()
		return err
	}); err != nil {
		return err
	}
	if err = gather("quick_log_tags", func() error {
		tags, err = s.mirror.ReadTags()
		return err
	}); err != nil {
		return err
	}
	if err = gather("events", func() error {
		events, err = s.mirror.ReadEvents()
		return err
	}); err != nil {
		return err
	}
	if err = gather("mood_entries", func() error {
		moods, err = s.mirror.ReadMoodEntries()
		return err
	}); err != nil {
		return err
	}
	if err = gather("sleep_sessions", func() error {
		sleeps, err = s.mirror.ReadSleepSessions()
		return err
	}); err != nil {
		return err
	}

	anything = len(lists) > 0 || len(tasks) > 0 || len(habits) > 0 || len(tags) > 0 ||
		len(events) > 0 || len(moods) > 0 || len(sleeps) > 0
	if !anything {
		return nil
	}

	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := seedCollection(tx, lists, insertTaskList); err != nil {
		return err
	}
	if err := seedCollection(tx, tasks, insertTask); err != nil {
		return err
	}
	if err := seedCollection(tx, habits, insertHabit); err != nil {
		return err
	}
	if err := seedCollection(tx, tags, insertTag); err != nil {
		return err
	}
	if err := seedCollection(tx, events, insertEvent); err != nil {
		return err
	}
	if err := seedCollection(tx, moods, insertMoodEntry); err != nil {
		return err
	}
	if err := seedCollection(tx, sleeps, insertSleepSession); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Info("seeded relational store from flat files", "plugin", PluginID,
		"taskLists", len(lists), "tasks", len(tasks), "habits", len(habits),
		"tags", len(tags), "events", len(events), "moodEntries", len(moods),
		"sleepSessions", len(sleeps))
	return nil
}

func seedCollection[T any](tx *sql.Tx, items []T, insert func(*sql.Tx, T) error) error {
	for _, item := range items {
		if err := insert(tx, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) countRows(table string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}
