// Package logging provides categorized logging for schemalens.
// Each subsystem logs through its own category so that noisy areas (projection,
// prompt assembly) can be switched off without losing registry or persistence
// diagnostics. Output is produced by a shared zap logger; until Initialize or
// SetLogger is called every category is a no-op.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup, config, schema declaration
	CategoryRegistry   Category = "registry"   // Schema registration and lookups
	CategorySchema     Category = "schema"     // Schema build and validation diagnostics
	CategoryProjection Category = "projection" // Audience projections and UI panels
	CategoryPrompt     Category = "prompt"     // Prompt assembly
	CategoryPersist    Category = "persist"    // State loading, substitutions, sqlite store
	CategoryCLI        Category = "cli"        // Command line tooling
)

// AllCategories returns every known category.
func AllCategories() []Category {
	return []Category{
		CategoryBoot,
		CategoryRegistry,
		CategorySchema,
		CategoryProjection,
		CategoryPrompt,
		CategoryPersist,
		CategoryCLI,
	}
}

// Config controls the logging backend.
// It mirrors config.LoggingConfig to avoid an import cycle.
type Config struct {
	DebugMode  bool
	Level      string
	JSONFormat bool
	Categories map[string]bool
}

// Logger is a category-bound logger with printf-style methods.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu         sync.RWMutex
	base       = zap.NewNop()
	categories map[string]bool
	loggers    = make(map[Category]*Logger)
)

// Initialize builds the shared zap logger from cfg.
// With DebugMode off only warnings and errors are written.
func Initialize(cfg Config) error {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}
	if !cfg.DebugMode && level < zapcore.WarnLevel {
		level = zapcore.WarnLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if cfg.JSONFormat {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level)
	install(zap.New(core), cfg.Categories)

	Get(CategoryBoot).Debug("logging initialized: level=%s json=%v debug=%v", level, cfg.JSONFormat, cfg.DebugMode)
	return nil
}

// SetLogger replaces the shared zap logger. All categories are enabled.
// Passing nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	install(l, nil)
}

func install(l *zap.Logger, cats map[string]bool) {
	mu.Lock()
	defer mu.Unlock()
	_ = base.Sync()
	base = l
	categories = cats
	loggers = make(map[Category]*Logger)
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// IsCategoryEnabled reports whether a category writes anything.
// Categories missing from the filter are enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabled(category)
}

// categoryEnabled expects mu to be held.
func categoryEnabled(category Category) bool {
	if categories == nil {
		return true
	}
	enabled, ok := categories[string(category)]
	return !ok || enabled
}

// Get returns the logger for a category.
func Get(category Category) *Logger {
	mu.RLock()
	l, ok := loggers[category]
	mu.RUnlock()
	if ok {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	z := base
	if !categoryEnabled(category) {
		z = zap.NewNop()
	}
	l = &Logger{
		category: category,
		sugar:    z.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying structured key/value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes buffered output. Call at shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// Registry logs to the registry category
func Registry(format string, args ...interface{}) {
	Get(CategoryRegistry).Info(format, args...)
}

// RegistryDebug logs debug to the registry category
func RegistryDebug(format string, args ...interface{}) {
	Get(CategoryRegistry).Debug(format, args...)
}

// PromptDebug logs debug to the prompt category
func PromptDebug(format string, args ...interface{}) {
	Get(CategoryPrompt).Debug(format, args...)
}

// Persist logs to the persist category
func Persist(format string, args ...interface{}) {
	Get(CategoryPersist).Info(format, args...)
}

// PersistDebug logs debug to the persist category
func PersistDebug(format string, args ...interface{}) {
	Get(CategoryPersist).Debug(format, args...)
}

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
