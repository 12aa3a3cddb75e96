// Daybook is a single-user productivity companion.
//
// It keeps a daily task list with categories, durations, and reminder
// alarms, a freeform notes board, and a conversational assistant that can
// modify the schedule through structured tool calls. Configuration is
// loaded from a single YAML file discovered automatically (see
// [config.DefaultSearchPaths]).
//
// Usage:
//
//	daybook serve            Start the API server
//	daybook init [dir]       Initialize a working directory with defaults
//	daybook version          Print version and build information
//	daybook -o json version  Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/natfisher/daybook/internal/ai"
	"github.com/natfisher/daybook/internal/alarm"
	"github.com/natfisher/daybook/internal/api"
	"github.com/natfisher/daybook/internal/assistant"
	"github.com/natfisher/daybook/internal/buildinfo"
	"github.com/natfisher/daybook/internal/config"
	"github.com/natfisher/daybook/internal/note"
	"github.com/natfisher/daybook/internal/notify"
	"github.com/natfisher/daybook/internal/profile"
	"github.com/natfisher/daybook/internal/settings"
	"github.com/natfisher/daybook/internal/storage"
	"github.com/natfisher/daybook/internal/task"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run], keeping
// os.Exit and os.Args out of the application logic so the full
// startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the daybook command. Arguments are
// parsed by hand: the flag package relies on package-level globals, which
// makes it impossible to call run() concurrently from tests, and the
// argument surface here is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, stderr, configPath)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Daybook - Personal Productivity Companion")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: daybook [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the API server")
	fmt.Fprintln(w, "  init [dir]   Initialize working directory with defaults (default: .)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/daybook/config.yaml, /etc/daybook/config.yaml")
	return nil
}

// runServe is the primary operating mode: loads config, opens storage,
// loads the stores, resolves the AI provider, and starts the alarm engine
// and API server. It blocks until a shutdown signal arrives.
func runServe(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting Daybook", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure the logger now that the desired level is known.
	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}

	if cfgPath != "" {
		logger.Info("config loaded", "path", cfgPath, "port", cfg.Listen.Port, "provider", cfg.AI.ResolvedProvider())
	} else {
		logger.Warn("no config file found, using defaults", "port", cfg.Listen.Port)
	}

	// --- Storage ---
	// All persistent state lives in one SQLite database under the data
	// directory: each collection is a JSON document in the kv table.
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	dbPath := filepath.Join(cfg.DataDir, "daybook.db")
	kv, err := storage.OpenSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("open database %s: %w", dbPath, err)
	}
	defer kv.Close()
	logger.Info("database opened", "path", dbPath)

	// --- Stores ---
	// Load never fails startup: corrupt state falls back to defaults.
	tasks := task.NewStore(kv, logger)
	notes := note.NewStore(kv, logger)
	prof := profile.NewStore(kv, logger)
	for _, load := range []func() error{tasks.Load, notes.Load, prof.Load} {
		if err := load(); err != nil {
			return err
		}
	}
	open, done := tasks.Counts()
	logger.Info("stores loaded", "tasks_open", open, "tasks_done", done, "notes", len(notes.List()))

	// --- AI provider ---
	// Resolution never fails; a missing credential yields a stand-in that
	// surfaces a setup hint on first use. Settings saved through the API
	// rebind the selector without a restart, persist to the database, and
	// override the config file on the next start.
	saved := settings.NewStore(kv, logger)
	selector := ai.NewSelector(saved.LoadAI(cfg.AI), logger)
	asst := assistant.NewService(selector, tasks, assistant.Options{}, logger)

	// --- Events ---
	hub := api.NewHub(logger)

	// --- MQTT publisher ---
	// Optional: pushes status topics and alarm events to a broker so
	// external automations can react.
	var mqttPub *notify.Publisher
	if notify.Configured(cfg.MQTT) {
		status := &mqttStatusAdapter{tasks: tasks, selector: selector}
		mqttPub = notify.New(cfg.MQTT, status, logger)
		go func() {
			if err := mqttPub.Start(ctx); err != nil {
				logger.Error("mqtt publisher failed", "error", err)
			}
		}()
		logger.Info("mqtt publishing enabled",
			"broker", cfg.MQTT.Broker,
			"device_name", cfg.MQTT.DeviceName,
			"interval", cfg.MQTT.PublishIntervalSec,
		)
	} else {
		logger.Info("mqtt publishing disabled (not configured)")
	}

	// --- Alarm engine ---
	// Fired alarms go to event clients and, when configured, the broker.
	onFire := func(t task.Task) {
		hub.Broadcast(api.Event{Type: "alarm", Data: t})
		if mqttPub != nil {
			pubCtx, pubCancel := context.WithTimeout(ctx, 5*time.Second)
			defer pubCancel()
			mqttPub.PublishAlarm(pubCtx, t)
		}
	}
	engine := alarm.NewEngine(tasks, onFire, logger)
	go engine.Run(ctx)

	// --- API server ---
	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, tasks, notes, prof, asst, engine, selector, saved, hub, logger)

	// --- Signal handling and graceful shutdown ---
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		if mqttPub != nil {
			offlineCtx, offlineCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer offlineCancel()
			if err := mqttPub.Stop(offlineCtx); err != nil {
				logger.Error("mqtt shutdown failed", "error", err)
			}
		}

		_ = server.Shutdown(context.Background())
	}()

	if err := server.Start(ctx); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("Daybook stopped")
	return nil
}

// newLogger creates a structured text logger writing to w. All log output
// in Daybook goes through slog; this helper standardizes the handler
// configuration across subcommands.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig locates and parses the YAML configuration file. An explicit
// path must exist; otherwise the default locations are searched and a
// miss falls back to built-in defaults with an empty returned path.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		if explicit != "" {
			return nil, "", err
		}
		return config.Default(), "", nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}

// mqttStatusAdapter bridges the stores and build info to the publisher's
// [notify.StatusSource] interface.
type mqttStatusAdapter struct {
	tasks    *task.Store
	selector *ai.Selector
}

func (a *mqttStatusAdapter) TaskCounts() (int, int) { return a.tasks.Counts() }
func (a *mqttStatusAdapter) Provider() string       { return a.selector.Config().ResolvedProvider() }
func (a *mqttStatusAdapter) Uptime() time.Duration  { return buildinfo.Uptime() }
func (a *mqttStatusAdapter) Version() string        { return buildinfo.Version }
