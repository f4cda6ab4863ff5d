package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level controls which entries a Logger writes.
type Level int

// LevelNormal is the zero value, so Options without a Level log at the
// default verbosity.
const (
	// LevelQuiet writes only warnings and errors
	LevelQuiet Level = iota - 1
	// LevelNormal adds informational entries (default)
	LevelNormal
	// LevelVerbose is reserved for step-by-step progress entries
	LevelVerbose
	// LevelDebug writes everything, including browser console output
	LevelDebug
)

// ParseLevel maps a verbosity name (quiet, normal, verbose, debug) to a Level.
// Empty input yields LevelNormal.
func ParseLevel(verbosity string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(verbosity)) {
	case "quiet":
		return LevelQuiet, nil
	case "", "normal":
		return LevelNormal, nil
	case "verbose":
		return LevelVerbose, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelNormal, fmt.Errorf("invalid verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", verbosity)
	}
}

// Logger provides structured logging for wpdriver components.
// Entries from every component of one run share a single file named after
// the run ID: <log-dir>/<run-id>-wpdriver.log
type Logger struct {
	runID     string
	component string
	level     Level
	file      io.WriteCloser
	logger    *log.Logger
	mu        sync.Mutex
	logPath   string
	closeOnce sync.Once
}

var (
	// Run ID shared by all loggers of this process
	runID     string
	runIDOnce sync.Once

	// logDir is the directory where log files are stored
	logDir string

	initOnce sync.Once
	initErr  error
)

func getRunID() string {
	runIDOnce.Do(func() {
		runID = uuid.New().String()
	})
	return runID
}

// initLogDirectory resolves and creates the log directory. dir overrides the
// default ~/.wpdriver/logs on the first call only.
func initLogDirectory(dir string) error {
	initOnce.Do(func() {
		if dir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				initErr = fmt.Errorf("failed to get home directory: %w", err)
				return
			}
			dir = filepath.Join(homeDir, ".wpdriver", "logs")
		}

		logDir = dir
		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}
	})
	return initErr
}

// Options configures NewLogger.
type Options struct {
	// Dir overrides the log directory (default ~/.wpdriver/logs)
	Dir string

	// Level filters entries below it
	Level Level

	// MaxSizeMB rotates the log file once it grows past this size. Zero
	// keeps a single unbounded file.
	MaxSizeMB int

	// MaxBackups is the number of rotated files to keep
	MaxBackups int
}

// NewLogger creates a file-backed logger for a component.
//
// If the log directory cannot be created or the file cannot be opened, a
// stderr logger is returned together with the error so callers can warn and
// keep going.
func NewLogger(component string, opts Options) (*Logger, error) {
	if err := initLogDirectory(opts.Dir); err != nil {
		return newFallbackLogger(component, opts.Level, err), err
	}

	id := getRunID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s-wpdriver.log", id))

	var file io.WriteCloser
	if opts.MaxSizeMB > 0 {
		file = &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
	} else {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return newFallbackLogger(component, opts.Level, fmt.Errorf("failed to open log file: %w", err)), err
		}
		file = f
	}

	return &Logger{
		runID:     id,
		component: component,
		level:     opts.Level,
		file:      file,
		logger:    log.New(file, "", 0),
		logPath:   logPath,
	}, nil
}

// NewWriterLogger creates a logger writing to w. It owns no file.
func NewWriterLogger(component string, w io.Writer, level Level) *Logger {
	return &Logger{
		runID:     getRunID(),
		component: component,
		level:     level,
		logger:    log.New(w, "", 0),
	}
}

// Discard returns a logger that drops every entry.
func Discard() *Logger {
	return NewWriterLogger("discard", io.Discard, LevelQuiet)
}

func newFallbackLogger(component string, level Level, err error) *Logger {
	l := NewWriterLogger(component, os.Stderr, level)
	l.Warnf("failed to initialize file logging: %v; falling back to stderr", err)
	return l
}

// With returns a logger for a sub-component sharing the same sink.
func (l *Logger) With(component string) *Logger {
	return &Logger{
		runID:     l.runID,
		component: l.component + "/" + component,
		level:     l.level,
		logger:    l.logger,
		logPath:   l.logPath,
	}
}

func (l *Logger) write(min Level, tag, format string, v ...interface{}) {
	if l == nil || l.level < min {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	l.logger.Printf("[%s] [%s] [%s] %s", timestamp, l.component, tag, fmt.Sprintf(format, v...))
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.write(LevelDebug, "DEBUG", format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.write(LevelNormal, "INFO", format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.write(LevelQuiet, "WARN", format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.write(LevelQuiet, "ERROR", format, v...)
}

// Level returns the configured level.
func (l *Logger) Level() Level {
	return l.level
}

// RunID returns the ID shared by every logger of this process.
func (l *Logger) RunID() string {
	return l.runID
}

// LogPath returns the path to the log file, empty for writer-backed loggers.
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
