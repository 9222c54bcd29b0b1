package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the global logger instance. It discards all output until Init enables it.
var L *slog.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

const (
	logPrefix     = "hexlens-"
	logSuffix     = ".log"
	retentionDays = 30
)

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Dir     string     // Directory for log files. Default: ~/.config/hexlens/logs
	Level   slog.Level // Minimum log level
}

// Init configures logging. Call from main before any log calls.
func Init(opts Options) error {
	if !opts.Enabled {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return nil
	}

	logDir := opts.Dir
	if logDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		logDir = filepath.Join(home, ".config", "hexlens", "logs")
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	// Best effort; a failed cleanup never blocks startup.
	cleanOldLogs(logDir, time.Now())

	filename := filepath.Join(logDir, logPrefix+time.Now().Format("2006-01-02")+logSuffix)
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	L = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: opts.Level}))
	return nil
}

// SetOutput sends JSON logs to w at the given level. Used by tests and the CLI's --debug flag.
func SetOutput(w io.Writer, level slog.Level) {
	L = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels. Unknown values map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// cleanOldLogs removes log files older than retentionDays.
func cleanOldLogs(logDir string, now time.Time) {
	cutoff := now.AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}

		// hexlens-2024-01-05.log
		dateStr := strings.TrimPrefix(strings.TrimSuffix(name, logSuffix), logPrefix)
		logDate, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		if logDate.Before(cutoff) {
			os.Remove(filepath.Join(logDir, name))
		}
	}
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
