package lt

import (
	"fmt"
	"time"

	"lt-go/internal/model"
)

// EventSource identifies events recorded through this process.
const EventSource = "cli"

// TrackerService is the orchestration layer between the CLI and the
// storage backend. It owns event construction (ids, timestamps, metadata)
// and the read-modify-save cycle for mutable collections.
type TrackerService struct {
	storage Storage
	logger  Logger
	clock   Clock
	idgen   IDGenerator
}

// NewTrackerService creates a TrackerService with the provided dependencies.
func NewTrackerService(storage Storage, logger Logger, clock Clock, idgen IDGenerator) *TrackerService {
	return &TrackerService{
		storage: storage,
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
	}
}

// Storage returns the underlying storage backend for read-only callers.
func (s *TrackerService) Storage() Storage { return s.storage }

// appendEvent builds an event around payload, derives its metadata, and
// appends it to the storage backend.
func (s *TrackerService) appendEvent(eventType model.EventType, payload any) (model.Event, error) {
	raw, err := model.MarshalPayload(payload)
	if err != nil {
		return model.Event{}, err
	}

	event := model.Event{
		EventID:   s.idgen.New(),
		Timestamp: model.FormatTimestamp(s.clock.Now()),
		Source:    EventSource,
		Type:      eventType,
		Payload:   raw,
	}.EnsureMetadata()

	if err := s.storage.AppendEvent(event); err != nil {
		return model.Event{}, fmt.Errorf("appending event: %w", err)
	}

	s.logger.Debug("event recorded", "type", eventType, "id", event.EventID)
	return event, nil
}

// LogHabitCompletion records that a habit was completed.
func (s *TrackerService) LogHabitCompletion(habitID, notes string) (model.Event, error) {
	return s.appendEvent(model.EventHabitCompleted, model.HabitCompletedPayload{
		HabitID: habitID,
		Notes:   notes,
	})
}

// LogQuick records an ad-hoc quick log against a tag.
func (s *TrackerService) LogQuick(tag string, value *float64, context string) (model.Event, error) {
	return s.appendEvent(model.EventLogQuick, model.QuickLogPayload{
		Tag:     tag,
		Value:   value,
		Context: context,
	})
}

// LogTaskCompletion records that a task was completed.
func (s *TrackerService) LogTaskCompletion(taskID, projectID, notes string) (model.Event, error) {
	return s.appendEvent(model.EventTaskCompleted, model.TaskCompletedPayload{
		TaskID:          taskID,
		ProjectID:       projectID,
		CompletionNotes: notes,
	})
}

// LogPomodoroCompletion records a finished pomodoro session.
func (s *TrackerService) LogPomodoroCompletion(targetType model.PomodoroTargetType, targetID string, focusSeconds int, breakSeconds *int, startedAt, endedAt time.Time, interrupted bool) (model.Event, error) {
	return s.appendEvent(model.EventPomodoroCompleted, model.PomodoroCompletedPayload{
		TargetType:           targetType,
		TargetID:             targetID,
		FocusDurationSeconds: focusSeconds,
		BreakDurationSeconds: breakSeconds,
		StartedAt:            model.FormatTimestamp(startedAt),
		EndedAt:              model.FormatTimestamp(endedAt),
		Interrupted:          interrupted,
	})
}

// AddHabit creates a new habit and persists the updated collection.
func (s *TrackerService) AddHabit(name, description, color, icon string) (model.Habit, error) {
	habits, err := s.storage.ReadHabits()
	if err != nil {
		return model.Habit{}, fmt.Errorf("reading habits: %w", err)
	}

	habit := model.Habit{
		ID:          s.idgen.New(),
		Name:        name,
		Description: description,
		Color:       color,
		Icon:        icon,
		CreatedAt:   model.FormatTimestamp(s.clock.Now()),
	}
	if habit.Color == "" {
		habit.Color = "#6200EE"
	}
	if habit.Icon == "" {
		habit.Icon = "\U0001F4AA"
	}

	if err := s.storage.SaveHabits(append(habits, habit)); err != nil {
		return model.Habit{}, fmt.Errorf("saving habits: %w", err)
	}

	s.logger.Info("habit added", "id", habit.ID, "name", habit.Name)
	return habit, nil
}

// ArchiveHabit marks a habit archived. Unknown ids are an error.
func (s *TrackerService) ArchiveHabit(habitID string) error {
	habits, err := s.storage.ReadHabits()
	if err != nil {
		return fmt.Errorf("reading habits: %w", err)
	}

	found := false
	for i := range habits {
		if habits[i].ID == habitID {
			habits[i].IsArchived = true
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("habit not found: %s", habitID)
	}

	if err := s.storage.SaveHabits(habits); err != nil {
		return fmt.Errorf("saving habits: %w", err)
	}
	return nil
}

// AddTag creates a new quick log tag.
func (s *TrackerService) AddTag(name string, logType model.LogType, unit string, min, max *float64) (model.QuickLogTag, error) {
	tags, err := s.storage.ReadTags()
	if err != nil {
		return model.QuickLogTag{}, fmt.Errorf("reading tags: %w", err)
	}

	tag := model.QuickLogTag{
		ID:        s.idgen.New(),
		Name:      name,
		Type:      logType,
		Unit:      unit,
		Min:       min,
		Max:       max,
		CreatedAt: model.FormatTimestamp(s.clock.Now()),
	}

	if err := s.storage.SaveTags(append(tags, tag)); err != nil {
		return model.QuickLogTag{}, fmt.Errorf("saving tags: %w", err)
	}
	return tag, nil
}

// AddTaskList creates a new task list at the end of the sort order.
func (s *TrackerService) AddTaskList(name, icon, color string) (model.TaskList, error) {
	lists, err := s.storage.ReadTaskLists()
	if err != nil {
		return model.TaskList{}, fmt.Errorf("reading task lists: %w", err)
	}

	list := model.TaskList{
		ID:        s.idgen.New(),
		Name:      name,
		Icon:      icon,
		Color:     color,
		CreatedAt: model.FormatTimestamp(s.clock.Now()),
		SortOrder: len(lists),
	}
	if list.Icon == "" {
		list.Icon = "\U0001F4DD"
	}
	if list.Color == "" {
		list.Color = "#2196F3"
	}

	if err := s.storage.SaveTaskLists(append(lists, list)); err != nil {
		return model.TaskList{}, fmt.Errorf("saving task lists: %w", err)
	}

	s.logger.Info("task list added", "id", list.ID, "name", list.Name)
	return list, nil
}

// AddTask creates a new task in the given list.
func (s *TrackerService) AddTask(listID, title, notes string, important bool, dueDate string) (model.Task, error) {
	lists, err := s.storage.ReadTaskLists()
	if err != nil {
		return model.Task{}, fmt.Errorf("reading task lists: %w", err)
	}
	known := false
	for _, l := range lists {
		if l.ID == listID {
			known = true
			break
		}
	}
	if !known {
		return model.Task{}, fmt.Errorf("task list not found: %s", listID)
	}

	tasks, err := s.storage.ReadTasks()
	if err != nil {
		return model.Task{}, fmt.Errorf("reading tasks: %w", err)
	}

	task := model.Task{
		ID:          s.idgen.New(),
		ListID:      listID,
		Title:       title,
		Notes:       notes,
		IsImportant: important,
		DueDate:     dueDate,
		CreatedAt:   model.FormatTimestamp(s.clock.Now()),
	}

	if err := s.storage.SaveTasks(append(tasks, task)); err != nil {
		return model.Task{}, fmt.Errorf("saving tasks: %w", err)
	}

	s.logger.Info("task added", "id", task.ID, "list", listID)
	return task, nil
}

// CompleteTask marks a task completed and records a TASK_COMPLETED event.
// Completing an already-completed task is a no-op.
func (s *TrackerService) CompleteTask(taskID, notes string) error {
	tasks, err := s.storage.ReadTasks()
	if err != nil {
		return fmt.Errorf("reading tasks: %w", err)
	}

	var completed *model.Task
	for i := range tasks {
		if tasks[i].ID == taskID {
			if tasks[i].IsCompleted {
				return nil
			}
			tasks[i].IsCompleted = true
			tasks[i].CompletedAt = model.FormatTimestamp(s.clock.Now())
			completed = &tasks[i]
			break
		}
	}
	if completed == nil {
		return fmt.Errorf("task not found: %s", taskID)
	}

	if err := s.storage.SaveTasks(tasks); err != nil {
		return fmt.Errorf("saving tasks: %w", err)
	}

	if _, err := s.LogTaskCompletion(taskID, completed.ListID, notes); err != nil {
		return err
	}
	return nil
}

// TodayCompletedHabits returns the ids of habits completed since local
// midnight.
func (s *TrackerService) TodayCompletedHabits() (map[string]bool, error) {
	now := s.clock.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	events, err := s.storage.ReadEventsByDateRange(start, now)
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}

	completed := make(map[string]bool)
	for _, e := range events {
		if e.Type != model.EventHabitCompleted {
			continue
		}
		if id := e.Metadata.Details["habitId"]; id != "" {
			completed[id] = true
		}
	}
	return completed, nil
}

// RecordMoodEntry appends a mood sample to the stored collection.
func (s *TrackerService) RecordMoodEntry(slot model.MoodSlot, score int, note string, tags []string) (model.MoodEntry, error) {
	entries, err := s.storage.ReadMoodEntries()
	if err != nil {
		return model.MoodEntry{}, fmt.Errorf("reading mood entries: %w", err)
	}

	entry := model.MoodEntry{
		EntryID:    s.idgen.New(),
		RecordedAt: model.FormatTimestamp(s.clock.Now()),
		Slot:       slot,
		Score:      score,
		Note:       note,
		Tags:       tags,
	}

	if err := s.storage.SaveMoodEntries(append(entries, entry)); err != nil {
		return model.MoodEntry{}, fmt.Errorf("saving mood entries: %w", err)
	}
	return entry, nil
}

// RecordSleepSession appends a sleep session to the stored collection.
func (s *TrackerService) RecordSleepSession(startedAt, endedAt time.Time, source model.SleepSessionSource, quality model.SleepQuality, note string) (model.SleepSession, error) {
	sessions, err := s.storage.ReadSleepSessions()
	if err != nil {
		return model.SleepSession{}, fmt.Errorf("reading sleep sessions: %w", err)
	}

	session := model.SleepSession{
		SessionID: s.idgen.New(),
		StartedAt: model.FormatTimestamp(startedAt),
		EndedAt:   model.FormatTimestamp(endedAt),
		Source:    source,
		Quality:   quality,
		Note:      note,
	}

	if err := s.storage.SaveSleepSessions(append(sessions, session)); err != nil {
		return model.SleepSession{}, fmt.Errorf("saving sleep sessions: %w", err)
	}
	return session, nil
}

// EventCountsByType returns per-type event counts for [start, end].
// Backends implementing EventAnalytics answer from indexed columns; other
// backends fall back to a stream scan.
func (s *TrackerService) EventCountsByType(start, end time.Time) ([]EventTypeCount, error) {
	if analytics, ok := s.storage.(EventAnalytics); ok {
		counts, err := analytics.CountEventsByType(start, end)
		if err != nil {
			return nil, fmt.Errorf("counting events: %w", err)
		}
		return counts, nil
	}

	events, err := s.storage.ReadEventsByDateRange(start, end)
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}

	byType := make(map[model.EventType]int64)
	for _, e := range events {
		byType[e.Type]++
	}
	counts := make([]EventTypeCount, 0, len(byType))
	for _, t := range []model.EventType{model.EventHabitCompleted, model.EventTaskCompleted, model.EventLogQuick, model.EventPomodoroCompleted} {
		if n, ok := byType[t]; ok {
			counts = append(counts, EventTypeCount{Type: t, Count: n})
		}
	}
	return counts, nil
}

// ExportFiles returns the backend's export file paths.
func (s *TrackerService) ExportFiles() ([]string, error) {
	return s.storage.ExportFiles()
}
