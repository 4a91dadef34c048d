// Package logger provides the leveled, coloured loggers shared by the server and client
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// LogLevel orders log messages by severity
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name to a LogLevel, falling back to INFO
func ParseLevel(name string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

var levelColors = map[LogLevel]*color.Color{
	DEBUG: color.New(color.FgHiBlack),
	INFO:  color.New(color.FgCyan),
	WARN:  color.New(color.FgYellow),
	ERROR: color.New(color.FgRed),
	FATAL: color.New(color.FgRed, color.Bold),
}

// Logger writes timestamped, component-tagged lines to a console writer and
// optionally to a file
type Logger struct {
	component string
	console   io.Writer
	file      *os.File
	level     LogLevel
	mu        sync.Mutex
}

var (
	// Server is the logger used by the game server
	Server = New("SERVER", os.Stderr)
	// Client is the logger used by the terminal client; it has no console output
	Client = New("CLIENT", nil)
)

// New creates a logger; a nil console disables console output
func New(component string, console io.Writer) *Logger {
	return &Logger{
		component: component,
		console:   console,
		level:     INFO,
	}
}

// SetGlobalLogLevel sets the minimum level of the package loggers
func SetGlobalLogLevel(level LogLevel) {
	Server.SetLevel(level)
	Client.SetLevel(level)
}

// InitializeFileLogging opens <dir>/server.log and <dir>/client.log for the package loggers
func InitializeFileLogging(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := Server.SetFile(filepath.Join(dir, "server.log")); err != nil {
		return err
	}
	return Client.SetFile(filepath.Join(dir, "client.log"))
}

// SetLevel changes the minimum level written by l
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// Level returns the current minimum level
func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetOutput replaces the console writer
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.console = w
	l.mu.Unlock()
}

// SetFile appends log lines to path in addition to the console
func (l *Logger) SetFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	l.mu.Lock()
	old := l.file
	l.file = f
	l.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(WARN, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

// Fatal logs at FATAL level and exits with status 1
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(FATAL, format, args...)
	os.Exit(1)
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	tag := fmt.Sprintf("[%s] [%s]", level, l.component)

	if l.console != nil {
		fmt.Fprintf(l.console, "%s %s %s\n", timestamp, levelColors[level].Sprint(tag), message)
	}
	if l.file != nil {
		fmt.Fprintf(l.file, "%s %s %s\n", timestamp, tag, message)
	}
}
