package app

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestLtHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "event appended",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tevent appended\n",
		},
		{
			name:    "warn level",
			opID:    "op-456",
			level:   slog.LevelWarn,
			message: "corrupt line skipped",
			want:    "2024-06-15T14:30:45Z\tWARN\top-456\tcorrupt line skipped\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "synced",
			attrs:   []slog.Attr{slog.String("plugin", "sqlite"), slog.Int("count", 128)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\tsynced\tplugin=sqlite\tcount=128\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &ltHandler{w: &buf, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestLtHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &ltHandler{w: &buf, opID: "op-1"}

	h2 := h.WithAttrs([]slog.Attr{slog.String("plugin", "jsonl")}).(*ltHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "saved", 0)
	r.AddAttrs(slog.String("file", "habits.json"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	want := "2024-01-01T00:00:00Z\tINFO\top-1\tsaved\tplugin=jsonl\tfile=habits.json\n"
	if got := buf.String(); got != want {
		t.Errorf("Handle() output =\n%q\nwant:\n%q", got, want)
	}

	// The original handler is unaffected.
	buf.Reset()
	if err := h.Handle(context.Background(), slog.NewRecord(ts, slog.LevelInfo, "saved", 0)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := buf.String(); got != "2024-01-01T00:00:00Z\tINFO\top-1\tsaved\n" {
		t.Errorf("original handler output = %q, want no inherited attrs", got)
	}
}
