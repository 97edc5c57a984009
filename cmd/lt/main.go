package main

import (
	"fmt"
	"os"
	"time"

	"lt-go/internal/app"
	"lt-go/internal/config"
	"lt-go/internal/model"
	"lt-go/internal/storage"
	"lt-go/internal/storage/sqlite"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "LogHabit", "Sync").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// parseDay parses a yyyy-MM-dd argument as UTC midnight.
func parseDay(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want yyyy-MM-dd): %w", s, err)
	}
	return t, nil
}

// rangeFlags resolves the shared --from/--to flags. Defaults: last 30 days.
func rangeFlags(from, to string) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)

	if from != "" {
		t, err := parseDay(from)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = t
	}
	if to != "" {
		t, err := parseDay(to)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		// Inclusive end of day.
		end = t.Add(24*time.Hour - time.Millisecond)
	}
	return start, end, nil
}

var rootCmd = &cobra.Command{
	Use:   "lt",
	Short: "Personal life tracker",
}

// config command

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Storage:  %s (%s)\n", cfg.Storage.Plugin, cfg.Storage.DataDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Plugin:   %s\n", cfg.Storage.Plugin)
		fmt.Printf("Data Dir: %s\n", cfg.Storage.DataDir)
		return nil
	},
}

// plugins command

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List available storage plugins",
	Run: func(cmd *cobra.Command, args []string) {
		for _, p := range storage.Plugins() {
			marker := " "
			if p.ID == storage.DefaultPluginID {
				marker = "*"
			}
			fmt.Printf("%s %-8s %-16s %s\n", marker, p.ID, p.DisplayName, p.Description)
		}
	},
}

// habits command

var habitsCmd = &cobra.Command{
	Use:   "habits",
	Short: "Manage habits",
}

var habitsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AddHabit")
		if err != nil {
			return err
		}
		defer a.Close()

		description, _ := cmd.Flags().GetString("description")
		habit, err := a.Service().AddHabit(args[0], description, "", "")
		if err != nil {
			return err
		}
		fmt.Printf("Added habit %s (%s)\n", habit.Name, habit.ID)
		return nil
	},
}

var habitsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List habits",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListHabits")
		if err != nil {
			return err
		}
		defer a.Close()

		habits, err := a.Storage().ReadHabits()
		if err != nil {
			return err
		}
		done, err := a.Service().TodayCompletedHabits()
		if err != nil {
			return err
		}

		for _, h := range habits {
			if h.IsArchived {
				continue
			}
			mark := " "
			if done[h.ID] {
				mark = "x"
			}
			fmt.Printf("[%s] %s %s  %s\n", mark, h.Icon, h.Name, h.ID)
		}
		return nil
	},
}

var habitsDoneCmd = &cobra.Command{
	Use:   "done <habit-id>",
	Short: "Log a habit completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("LogHabit")
		if err != nil {
			return err
		}
		defer a.Close()

		notes, _ := cmd.Flags().GetString("notes")
		event, err := a.Service().LogHabitCompletion(args[0], notes)
		if err != nil {
			return err
		}
		fmt.Printf("Logged habit completion %s\n", event.EventID)
		return nil
	},
}

var habitsArchiveCmd = &cobra.Command{
	Use:   "archive <habit-id>",
	Short: "Archive a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ArchiveHabit")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Service().ArchiveHabit(args[0])
	},
}

// tags command

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage quick log tags",
}

var tagsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a quick log tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AddTag")
		if err != nil {
			return err
		}
		defer a.Close()

		kind, _ := cmd.Flags().GetString("type")
		unit, _ := cmd.Flags().GetString("unit")
		tag, err := a.Service().AddTag(args[0], model.LogType(kind), unit, nil, nil)
		if err != nil {
			return err
		}
		fmt.Printf("Added tag %s (%s)\n", tag.Name, tag.ID)
		return nil
	},
}

// log command

var logCmd = &cobra.Command{
	Use:   "log <tag>",
	Short: "Record a quick log entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("LogQuick")
		if err != nil {
			return err
		}
		defer a.Close()

		context, _ := cmd.Flags().GetString("context")
		var value *float64
		if cmd.Flags().Changed("value") {
			v, _ := cmd.Flags().GetFloat64("value")
			value = &v
		}

		event, err := a.Service().LogQuick(args[0], value, context)
		if err != nil {
			return err
		}
		fmt.Printf("Logged %s (%s)\n", args[0], event.EventID)
		return nil
	},
}

// lists command

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Manage task lists",
}

var listsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a task list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AddTaskList")
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.Service().AddTaskList(args[0], "", "")
		if err != nil {
			return err
		}
		fmt.Printf("Added list %s (%s)\n", list.Name, list.ID)
		return nil
	},
}

var listsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List task lists",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListTaskLists")
		if err != nil {
			return err
		}
		defer a.Close()

		lists, err := a.Storage().ReadTaskLists()
		if err != nil {
			return err
		}
		for _, l := range lists {
			fmt.Printf("%s %s  %s\n", l.Icon, l.Name, l.ID)
		}
		return nil
	},
}

// tasks command

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Manage tasks",
}

var tasksAddCmd = &cobra.Command{
	Use:   "add <list-id> <title>",
	Short: "Add a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AddTask")
		if err != nil {
			return err
		}
		defer a.Close()

		notes, _ := cmd.Flags().GetString("notes")
		important, _ := cmd.Flags().GetBool("important")
		due, _ := cmd.Flags().GetString("due")

		task, err := a.Service().AddTask(args[0], args[1], notes, important, due)
		if err != nil {
			return err
		}
		fmt.Printf("Added task %s (%s)\n", task.Title, task.ID)
		return nil
	},
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListTasks")
		if err != nil {
			return err
		}
		defer a.Close()

		all, _ := cmd.Flags().GetBool("all")
		tasks, err := a.Storage().ReadTasks()
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if t.IsCompleted && !all {
				continue
			}
			mark := " "
			if t.IsCompleted {
				mark = "x"
			}
			fmt.Printf("[%s] %s  %s\n", mark, t.Title, t.ID)
		}
		return nil
	},
}

var tasksDoneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Complete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CompleteTask")
		if err != nil {
			return err
		}
		defer a.Close()

		notes, _ := cmd.Flags().GetString("notes")
		return a.Service().CompleteTask(args[0], notes)
	},
}

// pomodoro command

var pomodoroCmd = &cobra.Command{
	Use:   "pomodoro",
	Short: "Record a completed pomodoro session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("LogPomodoro")
		if err != nil {
			return err
		}
		defer a.Close()

		focusMin, _ := cmd.Flags().GetInt("focus")
		taskID, _ := cmd.Flags().GetString("task")
		habitID, _ := cmd.Flags().GetString("habit")
		interrupted, _ := cmd.Flags().GetBool("interrupted")

		targetType := model.PomodoroTargetNone
		targetID := ""
		switch {
		case taskID != "":
			targetType, targetID = model.PomodoroTargetTask, taskID
		case habitID != "":
			targetType, targetID = model.PomodoroTargetHabit, habitID
		}

		endedAt := time.Now()
		startedAt := endedAt.Add(-time.Duration(focusMin) * time.Minute)
		event, err := a.Service().LogPomodoroCompletion(targetType, targetID, focusMin*60, nil, startedAt, endedAt, interrupted)
		if err != nil {
			return err
		}
		fmt.Printf("Logged pomodoro %s\n", event.EventID)
		return nil
	},
}

// mood command

var moodCmd = &cobra.Command{
	Use:   "mood <slot> <score>",
	Short: "Record a mood sample (slot: morning|noon|night, score: 1-5)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		slot, err := parseMoodSlot(args[0])
		if err != nil {
			return err
		}
		var score int
		if _, err := fmt.Sscanf(args[1], "%d", &score); err != nil || score < 1 || score > 5 {
			return fmt.Errorf("invalid score %q (want 1-5)", args[1])
		}

		a, err := newApp("RecordMood")
		if err != nil {
			return err
		}
		defer a.Close()

		note, _ := cmd.Flags().GetString("note")
		entry, err := a.Service().RecordMoodEntry(slot, score, note, nil)
		if err != nil {
			return err
		}
		fmt.Printf("Recorded mood %d (%s)\n", entry.Score, entry.EntryID)
		return nil
	},
}

func parseMoodSlot(s string) (model.MoodSlot, error) {
	switch s {
	case "morning":
		return model.MoodMorning, nil
	case "noon":
		return model.MoodNoon, nil
	case "night":
		return model.MoodNight, nil
	}
	return "", fmt.Errorf("invalid mood slot %q (want morning, noon, or night)", s)
}

// sleep command

var sleepCmd = &cobra.Command{
	Use:   "sleep <start> <end>",
	Short: "Record a sleep session (RFC 3339 instants)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		startedAt, err := time.Parse(time.RFC3339, args[0])
		if err != nil {
			return fmt.Errorf("invalid start time: %w", err)
		}
		endedAt, err := time.Parse(time.RFC3339, args[1])
		if err != nil {
			return fmt.Errorf("invalid end time: %w", err)
		}

		a, err := newApp("RecordSleep")
		if err != nil {
			return err
		}
		defer a.Close()

		note, _ := cmd.Flags().GetString("note")
		session, err := a.Service().RecordSleepSession(startedAt, endedAt, model.SleepManual, "", note)
		if err != nil {
			return err
		}
		fmt.Printf("Recorded sleep session %s\n", session.SessionID)
		return nil
	},
}

// events command

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List events in a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		start, end, err := rangeFlags(from, to)
		if err != nil {
			return err
		}

		a, err := newApp("ListEvents")
		if err != nil {
			return err
		}
		defer a.Close()

		events, err := a.Storage().ReadEventsByDateRange(start, end)
		if err != nil {
			return err
		}
		for _, e := range events {
			fmt.Printf("%s  %-19s %s\n", e.Timestamp, e.Type, e.EventID)
		}
		return nil
	},
}

// stats command

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show event counts by type",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		start, end, err := rangeFlags(from, to)
		if err != nil {
			return err
		}

		a, err := newApp("Stats")
		if err != nil {
			return err
		}
		defer a.Close()

		counts, err := a.Service().EventCountsByType(start, end)
		if err != nil {
			return err
		}
		for _, c := range counts {
			fmt.Printf("%-19s %d\n", c.Type, c.Count)
		}
		return nil
	},
}

// sync command

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Drain the outbox to the flat-file mirror now",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Sync")
		if err != nil {
			return err
		}
		defer a.Close()

		s, ok := a.Storage().(*sqlite.Storage)
		if !ok {
			return fmt.Errorf("sync only applies to the sqlite storage plugin")
		}

		total := 0
		for {
			n, err := s.SyncOutbox()
			if err != nil {
				return fmt.Errorf("syncing outbox: %w", err)
			}
			total += n
			if n == 0 {
				break
			}
		}
		fmt.Printf("Synced %d events\n", total)
		return nil
	},
}

// export command

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "List the files that make up a data export",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Export")
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.Service().ExportFiles()
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Println(f)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configListCmd)

	habitsAddCmd.Flags().String("description", "", "habit description")
	habitsDoneCmd.Flags().String("notes", "", "completion notes")
	habitsCmd.AddCommand(habitsAddCmd, habitsListCmd, habitsDoneCmd, habitsArchiveCmd)

	tagsAddCmd.Flags().String("type", string(model.LogNumeric), "tag type (NUMERIC, BOOLEAN, SCALE)")
	tagsAddCmd.Flags().String("unit", "", "unit of measure")
	tagsCmd.AddCommand(tagsAddCmd)

	logCmd.Flags().Float64("value", 0, "numeric value")
	logCmd.Flags().String("context", "", "free-form context")

	listsCmd.AddCommand(listsAddCmd, listsListCmd)

	tasksAddCmd.Flags().String("notes", "", "task notes")
	tasksAddCmd.Flags().Bool("important", false, "mark as important")
	tasksAddCmd.Flags().String("due", "", "due date (yyyy-MM-dd)")
	tasksListCmd.Flags().Bool("all", false, "include completed tasks")
	tasksDoneCmd.Flags().String("notes", "", "completion notes")
	tasksCmd.AddCommand(tasksAddCmd, tasksListCmd, tasksDoneCmd)

	pomodoroCmd.Flags().Int("focus", 25, "focus duration in minutes")
	pomodoroCmd.Flags().String("task", "", "task the session focused on")
	pomodoroCmd.Flags().String("habit", "", "habit the session focused on")
	pomodoroCmd.Flags().Bool("interrupted", false, "session was interrupted")

	moodCmd.Flags().String("note", "", "mood note")
	sleepCmd.Flags().String("note", "", "sleep note")

	eventsCmd.Flags().String("from", "", "start date (yyyy-MM-dd)")
	eventsCmd.Flags().String("to", "", "end date (yyyy-MM-dd)")
	statsCmd.Flags().String("from", "", "start date (yyyy-MM-dd)")
	statsCmd.Flags().String("to", "", "end date (yyyy-MM-dd)")

	rootCmd.AddCommand(configCmd, pluginsCmd, habitsCmd, tagsCmd, logCmd,
		listsCmd, tasksCmd, pomodoroCmd, moodCmd, sleepCmd, eventsCmd,
		statsCmd, syncCmd, exportCmd)
}
