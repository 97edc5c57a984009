package lt

import (
	"time"

	"lt-go/internal/model"
)

// Storage is the persistence contract every backend plugin implements.
// Callers are backend-agnostic: the same operations work against the
// flat-file and the relational backends.
//
// Save operations are replace-all: the given slice is the complete
// authoritative collection, not a delta. Read operations on a collection
// that was never written return an empty slice, never an error caused by
// missing or unparseable data.
type Storage interface {
	// AppendEvent durably appends a single immutable event to the stream.
	AppendEvent(event model.Event) error

	// ReadEventsByDateRange returns events whose timestamp falls within
	// [start, end], both bounds inclusive, in timestamp order.
	ReadEventsByDateRange(start, end time.Time) ([]model.Event, error)

	// ExportFiles returns the paths of files that make up a user-facing
	// data export.
	ExportFiles() ([]string, error)

	SaveHabits(habits []model.Habit) error
	ReadHabits() ([]model.Habit, error)

	SaveTags(tags []model.QuickLogTag) error
	ReadTags() ([]model.QuickLogTag, error)

	SaveTaskLists(lists []model.TaskList) error
	ReadTaskLists() ([]model.TaskList, error)

	SaveTasks(tasks []model.Task) error
	ReadTasks() ([]model.Task, error)

	SaveMoodEntries(entries []model.MoodEntry) error
	ReadMoodEntries() ([]model.MoodEntry, error)

	SaveSleepSessions(sessions []model.SleepSession) error
	ReadSleepSessions() ([]model.SleepSession, error)

	// Close releases backend resources (database handles, background
	// workers). Safe to call once after all other operations.
	Close() error
}

// EventTypeCount pairs an event type with the number of matching events.
type EventTypeCount struct {
	Type  model.EventType
	Count int64
}

// EventAnalytics is implemented by backends that can answer type-filtered
// event queries without deserializing the full stream. Callers should fall
// back to ReadEventsByDateRange when a backend does not implement it.
type EventAnalytics interface {
	// ReadEventsByType returns events of one type within [start, end].
	ReadEventsByType(eventType model.EventType, start, end time.Time) ([]model.Event, error)

	// CountEventsByType returns per-type event counts within [start, end].
	CountEventsByType(start, end time.Time) ([]EventTypeCount, error)
}

// LocationResolver resolves the directory where flat-file data lives.
// The configured directory can change between runs (or even between calls),
// so backends must re-resolve on every access and never cache the result.
type LocationResolver interface {
	ResolveDir() (string, error)
}
