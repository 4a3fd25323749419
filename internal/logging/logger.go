// Package logging provides category-based logging for scry.
// Each subsystem logs under its own named zap logger; output goes to the
// console and, when a workspace is configured, to .scry/logs/scry.log.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryCLI       Category = "cli"       // Command-line entry points
	CategorySession   Category = "session"   // Session persistence, event log
	CategoryPlanner   Category = "planner"   // Topic decomposition
	CategoryCritic    Category = "critic"    // Plan critique loop
	CategorySearcher  Category = "searcher"  // Web search fan-out
	CategorySynthesis Category = "synthesis" // Report synthesis
	CategoryAPI       Category = "api"       // LLM API calls
	CategorySearch    Category = "search"    // Search provider calls
	CategoryTools     Category = "tools"     // Tool registry and execution
)

// Config controls logger construction.
type Config struct {
	// Debug enables debug-level output.
	Debug bool
	// Workspace, when set, enables file logging under <workspace>/.scry/logs.
	Workspace string
	// Console disables stderr output when false. File logging is unaffected.
	Console bool
}

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Setup builds the process-wide logger. Safe to call more than once; the
// last call wins. Before Setup the package logs nowhere.
func Setup(cfg Config) error {
	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}

	var cores []zapcore.Core

	if cfg.Console {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.TimeKey = "" // Console lines stay short; timestamps live in the file log.
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	if cfg.Workspace != "" {
		logsDir := filepath.Join(cfg.Workspace, ".scry", "logs")
		if err := os.MkdirAll(logsDir, 0o755); err != nil {
			return fmt.Errorf("failed to create logs dir: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(logsDir, "scry.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.Lock(f),
			zapcore.DebugLevel,
		))
	}

	logger := zap.NewNop()
	if len(cores) > 0 {
		logger = zap.New(zapcore.NewTee(cores...))
	}

	mu.Lock()
	root = logger
	mu.Unlock()
	return nil
}

// Get returns the sugared logger for a category.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return root.Named(string(cat)).Sugar()
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

// Convenience helpers per category. These keep call sites terse:
//
//	logging.Searcher("query dispatched: %s", q)

func Planner(format string, args ...any)        { Get(CategoryPlanner).Infof(format, args...) }
func PlannerDebug(format string, args ...any)   { Get(CategoryPlanner).Debugf(format, args...) }
func Critic(format string, args ...any)         { Get(CategoryCritic).Infof(format, args...) }
func CriticDebug(format string, args ...any)    { Get(CategoryCritic).Debugf(format, args...) }
func Searcher(format string, args ...any)       { Get(CategorySearcher).Infof(format, args...) }
func SearcherDebug(format string, args ...any)  { Get(CategorySearcher).Debugf(format, args...) }
func Synthesis(format string, args ...any)      { Get(CategorySynthesis).Infof(format, args...) }
func SynthesisDebug(format string, args ...any) { Get(CategorySynthesis).Debugf(format, args...) }
func Session(format string, args ...any)        { Get(CategorySession).Infof(format, args...) }
func SessionDebug(format string, args ...any)   { Get(CategorySession).Debugf(format, args...) }
func API(format string, args ...any)            { Get(CategoryAPI).Infof(format, args...) }
func APIDebug(format string, args ...any)       { Get(CategoryAPI).Debugf(format, args...) }
func Search(format string, args ...any)         { Get(CategorySearch).Infof(format, args...) }
func SearchDebug(format string, args ...any)    { Get(CategorySearch).Debugf(format, args...) }
func Tools(format string, args ...any)          { Get(CategoryTools).Infof(format, args...) }
func ToolsDebug(format string, args ...any)     { Get(CategoryTools).Debugf(format, args...) }
