package lt

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"lt-go/internal/model"
)

// fakeStorage is an in-memory Storage for service tests. It deliberately
// does not implement EventAnalytics so the service's fallback paths are
// exercised; analyticsStorage below adds that interface.
type fakeStorage struct {
	events   []model.Event
	habits   []model.Habit
	tags     []model.QuickLogTag
	lists    []model.TaskList
	tasks    []model.Task
	moods    []model.MoodEntry
	sleeps   []model.SleepSession
	failWith error
}

func (f *fakeStorage) AppendEvent(event model.Event) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.events = append(f.events, event.EnsureMetadata())
	return nil
}

func (f *fakeStorage) ReadEventsByDateRange(start, end time.Time) ([]model.Event, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []model.Event
	for _, e := range f.events {
		ts, err := model.ParseTimestamp(e.Timestamp)
		if err != nil {
			continue
		}
		if ts.Before(start) || ts.After(end) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStorage) ExportFiles() ([]string, error) { return []string{"events.jsonl"}, nil }

func (f *fakeStorage) SaveHabits(habits []model.Habit) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.habits = habits
	return nil
}
func (f *fakeStorage) ReadHabits() ([]model.Habit, error) { return f.habits, f.failWith }

func (f *fakeStorage) SaveTags(tags []model.QuickLogTag) error {
	f.tags = tags
	return nil
}
func (f *fakeStorage) ReadTags() ([]model.QuickLogTag, error) { return f.tags, nil }

func (f *fakeStorage) SaveTaskLists(lists []model.TaskList) error {
	f.lists = lists
	return nil
}
func (f *fakeStorage) ReadTaskLists() ([]model.TaskList, error) { return f.lists, nil }

func (f *fakeStorage) SaveTasks(tasks []model.Task) error {
	f.tasks = tasks
	return nil
}
func (f *fakeStorage) ReadTasks() ([]model.Task, error) { return f.tasks, nil }

func (f *fakeStorage) SaveMoodEntries(entries []model.MoodEntry) error {
	f.moods = entries
	return nil
}
func (f *fakeStorage) ReadMoodEntries() ([]model.MoodEntry, error) { return f.moods, nil }

func (f *fakeStorage) SaveSleepSessions(sessions []model.SleepSession) error {
	f.sleeps = sessions
	return nil
}
func (f *fakeStorage) ReadSleepSessions() ([]model.SleepSession, error) { return f.sleeps, nil }

func (f *fakeStorage) Close() error { return nil }

var _ Storage = (*fakeStorage)(nil)

// analyticsStorage adds canned EventAnalytics answers on top of fakeStorage.
type analyticsStorage struct {
	fakeStorage
	counts []EventTypeCount
}

func (a *analyticsStorage) ReadEventsByType(eventType model.EventType, start, end time.Time) ([]model.Event, error) {
	return nil, nil
}

func (a *analyticsStorage) CountEventsByType(start, end time.Time) ([]EventTypeCount, error) {
	return a.counts, nil
}

var _ EventAnalytics = (*analyticsStorage)(nil)

// stubClock and stubIDs mirror the shared test doubles; defined locally to
// keep this package free of a testutil import cycle.
type stubClock struct{ now time.Time }

func (c *stubClock) Now() time.Time { return c.now }

type stubIDs struct{ n int }

func (g *stubIDs) New() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

func newTestService(storage Storage) *TrackerService {
	clock := &stubClock{now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
	return NewTrackerService(storage, NewNopLogger(), clock, &stubIDs{})
}

func TestLogHabitCompletion(t *testing.T) {
	fake := &fakeStorage{}
	svc := newTestService(fake)

	event, err := svc.LogHabitCompletion("habit-1", "before breakfast")
	if err != nil {
		t.Fatalf("LogHabitCompletion() error = %v", err)
	}

	if event.EventID != "id-1" {
		t.Errorf("EventID = %q, want id-1", event.EventID)
	}
	if event.Timestamp != "2024-01-15T10:30:00.000Z" {
		t.Errorf("Timestamp = %q, want fixed clock time", event.Timestamp)
	}
	if event.Source != EventSource {
		t.Errorf("Source = %q, want %q", event.Source, EventSource)
	}
	if event.Type != model.EventHabitCompleted {
		t.Errorf("Type = %q, want %q", event.Type, model.EventHabitCompleted)
	}
	if event.Metadata.Details["habitId"] != "habit-1" {
		t.Errorf("Metadata = %v, want derived habitId", event.Metadata)
	}
	if len(fake.events) != 1 {
		t.Errorf("stored events = %d, want 1", len(fake.events))
	}
}

func TestLogQuick(t *testing.T) {
	fake := &fakeStorage{}
	svc := newTestService(fake)

	value := 2.5
	event, err := svc.LogQuick("water", &value, "after run")
	if err != nil {
		t.Fatalf("LogQuick() error = %v", err)
	}

	var payload model.QuickLogPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if payload.Tag != "water" || payload.Value == nil || *payload.Value != 2.5 {
		t.Errorf("payload = %+v, want water/2.5", payload)
	}
	if event.Metadata.Details["value"] != "2.5" {
		t.Errorf("Metadata = %v, want value detail", event.Metadata)
	}
}

func TestLogPomodoroCompletion(t *testing.T) {
	fake := &fakeStorage{}
	svc := newTestService(fake)

	started := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	ended := time.Date(2024, 1, 15, 10, 25, 0, 0, time.UTC)
	event, err := svc.LogPomodoroCompletion(model.PomodoroTargetTask, "task-1", 1500, nil, started, ended, false)
	if err != nil {
		t.Fatalf("LogPomodoroCompletion() error = %v", err)
	}

	var payload model.PomodoroCompletedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if payload.StartedAt != "2024-01-15T10:00:00.000Z" || payload.EndedAt != "2024-01-15T10:25:00.000Z" {
		t.Errorf("payload times = %q / %q, want formatted UTC", payload.StartedAt, payload.EndedAt)
	}
	if event.Metadata.Tags[1] != "task" {
		t.Errorf("Tags = %v, want lowercase target type tag", event.Metadata.Tags)
	}
}

func TestAddHabit_Defaults(t *testing.T) {
	fake := &fakeStorage{}
	svc := newTestService(fake)

	habit, err := svc.AddHabit("Meditate", "10 minutes", "", "")
	if err != nil {
		t.Fatalf("AddHabit() error = %v", err)
	}

	if habit.ID != "id-1" {
		t.Errorf("ID = %q, want id-1", habit.ID)
	}
	if habit.Color != "#6200EE" {
		t.Errorf("Color = %q, want default", habit.Color)
	}
	if habit.Icon == "" {
		t.Error("Icon empty, want default")
	}
	if len(fake.habits) != 1 {
		t.Errorf("stored habits = %d, want 1", len(fake.habits))
	}
}

func TestArchiveHabit(t *testing.T) {
	fake := &fakeStorage{habits: []model.Habit{{ID: "h-1"}, {ID: "h-2"}}}
	svc := newTestService(fake)

	if err := svc.ArchiveHabit("h-2"); err != nil {
		t.Fatalf("ArchiveHabit() error = %v", err)
	}
	if fake.habits[0].IsArchived {
		t.Error("h-1 archived, want untouched")
	}
	if !fake.habits[1].IsArchived {
		t.Error("h-2 not archived")
	}

	if err := svc.ArchiveHabit("h-missing"); err == nil {
		t.Error("ArchiveHabit(unknown) succeeded, want error")
	}
}

func TestAddTaskList_SortOrderAppends(t *testing.T) {
	fake := &fakeStorage{lists: []model.TaskList{{ID: "l-1", SortOrder: 0}}}
	svc := newTestService(fake)

	list, err := svc.AddTaskList("Work", "", "")
	if err != nil {
		t.Fatalf("AddTaskList() error = %v", err)
	}
	if list.SortOrder != 1 {
		t.Errorf("SortOrder = %d, want 1", list.SortOrder)
	}
	if list.Icon == "" || list.Color == "" {
		t.Errorf("list = %+v, want default icon and color", list)
	}
}

func TestAddTask_UnknownListRejected(t *testing.T) {
	fake := &fakeStorage{}
	svc := newTestService(fake)

	if _, err := svc.AddTask("no-such-list", "Laundry", "", false, ""); err == nil {
		t.Error("AddTask(unknown list) succeeded, want error")
	}
	if len(fake.tasks) != 0 {
		t.Errorf("stored tasks = %d, want 0", len(fake.tasks))
	}
}

func TestCompleteTask(t *testing.T) {
	fake := &fakeStorage{
		lists: []model.TaskList{{ID: "l-1"}},
		tasks: []model.Task{{ID: "t-1", ListID: "l-1", Title: "Laundry"}},
	}
	svc := newTestService(fake)

	if err := svc.CompleteTask("t-1", "all folded"); err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}

	if !fake.tasks[0].IsCompleted {
		t.Error("task not marked completed")
	}
	if fake.tasks[0].CompletedAt != "2024-01-15T10:30:00.000Z" {
		t.Errorf("CompletedAt = %q, want fixed clock time", fake.tasks[0].CompletedAt)
	}
	if len(fake.events) != 1 {
		t.Fatalf("events = %d, want 1 completion event", len(fake.events))
	}
	if fake.events[0].Type != model.EventTaskCompleted {
		t.Errorf("event type = %q, want %q", fake.events[0].Type, model.EventTaskCompleted)
	}
	if fake.events[0].Metadata.Details["projectId"] != "l-1" {
		t.Errorf("event metadata = %v, want list recorded as projectId", fake.events[0].Metadata)
	}
}

func TestCompleteTask_AlreadyCompletedIsNoOp(t *testing.T) {
	fake := &fakeStorage{
		tasks: []model.Task{{ID: "t-1", IsCompleted: true, CompletedAt: "2024-01-01T00:00:00.000Z"}},
	}
	svc := newTestService(fake)

	if err := svc.CompleteTask("t-1", ""); err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	if len(fake.events) != 0 {
		t.Errorf("events = %d, want no duplicate completion event", len(fake.events))
	}
	if fake.tasks[0].CompletedAt != "2024-01-01T00:00:00.000Z" {
		t.Errorf("CompletedAt = %q, want original preserved", fake.tasks[0].CompletedAt)
	}
}

func TestCompleteTask_Unknown(t *testing.T) {
	svc := newTestService(&fakeStorage{})

	if err := svc.CompleteTask("t-missing", ""); err == nil {
		t.Error("CompleteTask(unknown) succeeded, want error")
	}
}

func TestTodayCompletedHabits(t *testing.T) {
	fake := &fakeStorage{}
	svc := newTestService(fake)

	if _, err := svc.LogHabitCompletion("habit-1", ""); err != nil {
		t.Fatalf("LogHabitCompletion() error = %v", err)
	}
	// Yesterday's completion must not count.
	payload, _ := model.MarshalPayload(model.HabitCompletedPayload{HabitID: "habit-old"})
	fake.events = append(fake.events, model.Event{
		EventID:   "old",
		Timestamp: "2024-01-14T22:00:00.000Z",
		Type:      model.EventHabitCompleted,
		Payload:   payload,
	}.EnsureMetadata())

	done, err := svc.TodayCompletedHabits()
	if err != nil {
		t.Fatalf("TodayCompletedHabits() error = %v", err)
	}
	if !done["habit-1"] {
		t.Errorf("done = %v, want habit-1 marked", done)
	}
	if done["habit-old"] {
		t.Errorf("done = %v, yesterday's habit must not count", done)
	}
}

func TestRecordMoodEntry(t *testing.T) {
	fake := &fakeStorage{}
	svc := newTestService(fake)

	entry, err := svc.RecordMoodEntry(model.MoodMorning, 4, "slept well", []string{"rested"})
	if err != nil {
		t.Fatalf("RecordMoodEntry() error = %v", err)
	}
	if entry.Slot != model.MoodMorning || entry.Score != 4 {
		t.Errorf("entry = %+v, want morning/4", entry)
	}
	if len(fake.moods) != 1 {
		t.Errorf("stored moods = %d, want 1", len(fake.moods))
	}
}

func TestRecordSleepSession(t *testing.T) {
	fake := &fakeStorage{}
	svc := newTestService(fake)

	started := time.Date(2024, 1, 14, 23, 0, 0, 0, time.UTC)
	ended := time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)
	session, err := svc.RecordSleepSession(started, ended, model.SleepManual, model.SleepGood, "")
	if err != nil {
		t.Fatalf("RecordSleepSession() error = %v", err)
	}
	if session.StartedAt != "2024-01-14T23:00:00.000Z" {
		t.Errorf("StartedAt = %q, want formatted UTC", session.StartedAt)
	}
	if len(fake.sleeps) != 1 {
		t.Errorf("stored sessions = %d, want 1", len(fake.sleeps))
	}
}

func TestEventCountsByType_FallbackScan(t *testing.T) {
	fake := &fakeStorage{}
	svc := newTestService(fake)

	for i := 0; i < 2; i++ {
		if _, err := svc.LogHabitCompletion("habit-1", ""); err != nil {
			t.Fatalf("LogHabitCompletion() error = %v", err)
		}
	}
	if _, err := svc.LogQuick("water", nil, ""); err != nil {
		t.Fatalf("LogQuick() error = %v", err)
	}

	counts, err := svc.EventCountsByType(
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("EventCountsByType() error = %v", err)
	}

	got := map[model.EventType]int64{}
	for _, c := range counts {
		got[c.Type] = c.Count
	}
	if got[model.EventHabitCompleted] != 2 || got[model.EventLogQuick] != 1 {
		t.Errorf("counts = %v, want 2 habit / 1 quick-log", got)
	}
}

func TestEventCountsByType_UsesAnalyticsBackend(t *testing.T) {
	canned := []EventTypeCount{{Type: model.EventHabitCompleted, Count: 42}}
	svc := newTestService(&analyticsStorage{counts: canned})

	counts, err := svc.EventCountsByType(time.Time{}, time.Now())
	if err != nil {
		t.Fatalf("EventCountsByType() error = %v", err)
	}
	if len(counts) != 1 || counts[0].Count != 42 {
		t.Errorf("counts = %v, want the backend's canned answer", counts)
	}
}

func TestAppendEvent_StorageErrorPropagates(t *testing.T) {
	fake := &fakeStorage{failWith: fmt.Errorf("disk full")}
	svc := newTestService(fake)

	if _, err := svc.LogHabitCompletion("habit-1", ""); err == nil {
		t.Error("LogHabitCompletion() succeeded, want storage error")
	}
}
