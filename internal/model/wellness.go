package model

// MoodSlot partitions the day when collecting mood samples.
type MoodSlot string

const (
	MoodMorning MoodSlot = "MORNING"
	MoodNoon    MoodSlot = "NOON"
	MoodNight   MoodSlot = "NIGHT"
)

// MoodEntry is a mood sample captured by the user or imported from
// a connected service.
type MoodEntry struct {
	EntryID    string   `json:"entryId"`
	RecordedAt string   `json:"recordedAt"`
	Slot       MoodSlot `json:"slot"`
	Score      int      `json:"score"`
	Note       string   `json:"note,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// SleepSessionSource is the origin of a recorded sleep session.
type SleepSessionSource string

const (
	SleepManual        SleepSessionSource = "MANUAL"
	SleepDeviceUsage   SleepSessionSource = "DEVICE_USAGE"
	SleepHealthConnect SleepSessionSource = "HEALTH_CONNECT"
)

// SleepQuality is an optional qualitative assessment of a sleep session.
type SleepQuality string

const (
	SleepPoor SleepQuality = "POOR"
	SleepOkay SleepQuality = "OKAY"
	SleepGood SleepQuality = "GOOD"
)

// SleepSession is a recorded period of sleep.
type SleepSession struct {
	SessionID string             `json:"sessionId"`
	StartedAt string             `json:"startedAt"`
	EndedAt   string             `json:"endedAt"`
	Source    SleepSessionSource `json:"source"`
	Quality   SleepQuality       `json:"quality,omitempty"`
	Note      string             `json:"note,omitempty"`
	Tags      []string           `json:"tags,omitempty"`
}
