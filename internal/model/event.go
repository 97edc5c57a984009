package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EventType discriminates the payload carried by an Event.
type EventType string

const (
	EventHabitCompleted    EventType = "HABIT_COMPLETED"
	EventTaskCompleted     EventType = "TASK_COMPLETED"
	EventLogQuick          EventType = "LOG_QUICK"
	EventPomodoroCompleted EventType = "POMODORO_COMPLETED"
)

// PomodoroTargetType identifies what a pomodoro session was focused on.
type PomodoroTargetType string

const (
	PomodoroTargetNone  PomodoroTargetType = "NONE"
	PomodoroTargetTask  PomodoroTargetType = "TASK"
	PomodoroTargetHabit PomodoroTargetType = "HABIT"
)

// Event is an immutable fact recorded in the event stream. Events are
// append-only: they are never mutated or deleted once written.
// Timestamp is an ISO-8601 / RFC 3339 UTC string, so lexicographic order
// matches chronological order.
type Event struct {
	EventID   string          `json:"eventId"`
	Timestamp string          `json:"timestamp"`
	Source    string          `json:"source"`
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Metadata  EventMetadata   `json:"metadata"`
}

// EventMetadata holds derived tags and details used for filtering and
// analytics. Once populated it is never recomputed.
type EventMetadata struct {
	Tags    []string          `json:"tags"`
	Details map[string]string `json:"details"`
}

// IsEmpty reports whether no tags or details have been populated.
func (m EventMetadata) IsEmpty() bool {
	return len(m.Tags) == 0 && len(m.Details) == 0
}

// HabitCompletedPayload records a completed habit.
type HabitCompletedPayload struct {
	HabitID string `json:"habitId"`
	Notes   string `json:"notes,omitempty"`
}

// TaskCompletedPayload records a completed task.
type TaskCompletedPayload struct {
	TaskID          string `json:"taskId"`
	ProjectID       string `json:"projectId,omitempty"`
	CompletionNotes string `json:"completionNotes,omitempty"`
}

// QuickLogPayload records an ad-hoc metric capture against a quick log tag.
type QuickLogPayload struct {
	Tag     string   `json:"tag"`
	Value   *float64 `json:"value,omitempty"`
	Context string   `json:"context,omitempty"`
}

// PomodoroCompletedPayload records a finished pomodoro session.
type PomodoroCompletedPayload struct {
	TargetType           PomodoroTargetType `json:"targetType"`
	TargetID             string             `json:"targetId,omitempty"`
	FocusDurationSeconds int                `json:"focusDurationSeconds"`
	BreakDurationSeconds *int               `json:"breakDurationSeconds,omitempty"`
	StartedAt            string             `json:"startedAt"`
	EndedAt              string             `json:"endedAt"`
	Interrupted          bool               `json:"interrupted"`
}

// MarshalPayload encodes a typed payload for embedding in an Event.
func MarshalPayload(payload any) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding event payload: %w", err)
	}
	return data, nil
}

// EnsureMetadata returns the event with metadata populated. If metadata is
// already present the event is returned unchanged; otherwise tags and details
// are derived from the payload. Legacy events with undecodable payloads are
// returned as-is rather than rejected.
func (e Event) EnsureMetadata() Event {
	if !e.Metadata.IsEmpty() {
		return e
	}
	derived, err := deriveMetadata(e.Type, e.Payload)
	if err != nil || derived.IsEmpty() {
		return e
	}
	e.Metadata = derived
	return e
}

func deriveMetadata(eventType EventType, payload json.RawMessage) (EventMetadata, error) {
	switch eventType {
	case EventHabitCompleted:
		var p HabitCompletedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return EventMetadata{}, err
		}
		return EventMetadata{
			Tags: []string{"habit", p.HabitID},
			Details: detailMap(
				detail{"habitId", p.HabitID},
				detail{"notes", p.Notes},
			),
		}, nil

	case EventTaskCompleted:
		var p TaskCompletedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return EventMetadata{}, err
		}
		tags := []string{"task", p.TaskID}
		if p.ProjectID != "" {
			tags = append(tags, p.ProjectID)
		}
		return EventMetadata{
			Tags: tags,
			Details: detailMap(
				detail{"taskId", p.TaskID},
				detail{"projectId", p.ProjectID},
				detail{"notes", p.CompletionNotes},
			),
		}, nil

	case EventLogQuick:
		var p QuickLogPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return EventMetadata{}, err
		}
		details := detailMap(
			detail{"tag", p.Tag},
			detail{"context", p.Context},
		)
		if p.Value != nil {
			details["value"] = strconv.FormatFloat(*p.Value, 'f', -1, 64)
		}
		return EventMetadata{
			Tags:    []string{"quick-log", p.Tag},
			Details: details,
		}, nil

	case EventPomodoroCompleted:
		var p PomodoroCompletedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return EventMetadata{}, err
		}
		tags := []string{"pomodoro", strings.ToLower(string(p.TargetType))}
		if p.TargetID != "" {
			tags = append(tags, p.TargetID)
		}
		details := detailMap(
			detail{"targetType", string(p.TargetType)},
			detail{"targetId", p.TargetID},
			detail{"focusSeconds", strconv.Itoa(p.FocusDurationSeconds)},
			detail{"startedAt", p.StartedAt},
			detail{"endedAt", p.EndedAt},
			detail{"interrupted", strconv.FormatBool(p.Interrupted)},
		)
		if p.BreakDurationSeconds != nil {
			details["breakSeconds"] = strconv.Itoa(*p.BreakDurationSeconds)
		}
		return EventMetadata{Tags: tags, Details: details}, nil
	}

	return EventMetadata{}, nil
}

type detail struct {
	key   string
	value string
}

func detailMap(entries ...detail) map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.value != "" {
			m[e.key] = e.value
		}
	}
	return m
}
