package model

// TaskList groups tasks. Lists are replace-all saved as a complete set.
type TaskList struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	Color      string `json:"color"`
	CreatedAt  string `json:"createdAt"`
	IsArchived bool   `json:"isArchived"`
	SortOrder  int    `json:"sortOrder"`
}

// TaskRepeatRule enumerates supported task recurrence rules.
type TaskRepeatRule string

const (
	RepeatDaily   TaskRepeatRule = "DAILY"
	RepeatWeekly  TaskRepeatRule = "WEEKLY"
	RepeatMonthly TaskRepeatRule = "MONTHLY"
	RepeatCustom  TaskRepeatRule = "CUSTOM"
)

// Task is a single to-do item belonging to a TaskList.
// DueDate is an ISO-8601 date (yyyy-MM-dd); timestamps are ISO-8601 instants.
type Task struct {
	ID           string         `json:"id"`
	ListID       string         `json:"listId"`
	Title        string         `json:"title"`
	Notes        string         `json:"notes,omitempty"`
	IsCompleted  bool           `json:"isCompleted"`
	IsImportant  bool           `json:"isImportant"`
	DueDate      string         `json:"dueDate,omitempty"`
	ReminderTime string         `json:"reminderTime,omitempty"`
	IsInMyDay    bool           `json:"isInMyDay"`
	CreatedAt    string         `json:"createdAt"`
	CompletedAt  string         `json:"completedAt,omitempty"`
	Steps        []TaskStep     `json:"steps,omitempty"`
	RepeatRule   TaskRepeatRule `json:"repeatRule,omitempty"`
	RepeatDetail string         `json:"repeatDetail,omitempty"`
}

// TaskStep is a sub-task belonging to a parent task.
type TaskStep struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"isCompleted"`
}

// Habit is a recurring activity the user tracks completions against.
type Habit struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	CreatedAt   string `json:"createdAt"`
	IsArchived  bool   `json:"isArchived"`
}

// LogType describes the value kind a quick log tag captures.
type LogType string

const (
	LogNumeric LogType = "NUMERIC"
	LogBoolean LogType = "BOOLEAN"
	LogScale   LogType = "SCALE"
)

// QuickLogTag is a user-defined tag for capturing frequently used metrics.
type QuickLogTag struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Type      LogType  `json:"type"`
	Unit      string   `json:"unit,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	CreatedAt string   `json:"createdAt"`
}
