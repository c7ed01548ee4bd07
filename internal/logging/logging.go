// Package logging configures the process-wide zerolog logger: a
// human-readable console writer plus an optional timestamped run log file,
// so that host failures, protocol violations, and validation errors all
// land in a durable record.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLogDir returns the default log directory following XDG Base
// Directory Spec: $XDG_STATE_HOME/wandarr/logs, defaulting to
// ~/.local/state/wandarr/logs.
func DefaultLogDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "wandarr", "logs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "wandarr", "logs")
	}
	return filepath.Join(home, ".local", "state", "wandarr", "logs")
}

// Logger wraps a zerolog.Logger bound to a console writer and, unless
// disabled, a timestamped run log file.
type Logger struct {
	zerolog.Logger
	file     *os.File
	filePath string
}

// Setup builds a logger that writes human-readable lines to stderr and, for
// durability, a copy to a timestamped file under logDir. Returns a
// console-only Logger (file is nil) when noLog is true. cmdArgs is logged
// as the invoking command line for post-hoc diagnosis.
func Setup(logDir string, verbose, noLog bool, cmdArgs []string) (*Logger, error) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}

	if noLog {
		lg := zerolog.New(console).Level(level).With().Timestamp().Logger()
		return &Logger{Logger: lg}, nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filePath := filepath.Join(logDir, fmt.Sprintf("wandarr_run_%s.log", timestamp))

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file %s: %w", filePath, err)
	}

	multi := zerolog.MultiLevelWriter(console, file)
	lg := zerolog.New(multi).Level(level).With().Timestamp().Logger()

	l := &Logger{Logger: lg, file: file, filePath: filePath}
	l.Info().Str("command", strings.Join(cmdArgs, " ")).Msg("wandarr starting")
	l.Info().Str("log_file", filePath).Msg("run log opened")
	return l, nil
}

// Close closes the run log file, if one is open.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Writer returns an io.Writer over the run log file, or io.Discard when
// logging to a file is disabled. The encoder driver does not use it; it
// writes each run's transaction log to a file of its own.
func (l *Logger) Writer() io.Writer {
	if l == nil || l.file == nil {
		return io.Discard
	}
	return l.file
}
