package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"peoplecounter/internal/config"
)

// Log file names per level.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (info/warning/error) to rotated files and stdout/stderr.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	files      map[string]*lumberjack.Logger
	logDir     string
	mu         sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) *Logger {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logger := &Logger{
		logDir: config.LogDirectory,
		files:  make(map[string]*lumberjack.Logger),
	}

	logger.setupLoggers(config.LogMaxSizeMB, config.LogMaxBackups)
	return logger
}

// Discard returns a Logger that drops everything. Used by tests.
func Discard() *Logger {
	return &Logger{
		infoLog:    log.New(io.Discard, "", 0),
		warningLog: log.New(io.Discard, "", 0),
		errorLog:   log.New(io.Discard, "", 0),
		files:      make(map[string]*lumberjack.Logger),
	}
}

// setupLoggers initializes rotating writers and per-level loggers.
func (l *Logger) setupLoggers(maxSizeMB, maxBackups int) {
	for _, name := range []string{InfoFile, WarningFile, ErrorFile} {
		l.files[name] = &lumberjack.Logger{
			Filename:   filepath.Join(l.logDir, name),
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
		}
	}

	infoWriter := io.MultiWriter(os.Stdout, l.files[InfoFile])
	warningWriter := io.MultiWriter(os.Stdout, l.files[WarningFile])
	errorWriter := io.MultiWriter(os.Stderr, l.files[ErrorFile])

	l.infoLog = log.New(infoWriter, "INFO    ", log.Ldate|log.Ltime|log.Lshortfile)
	l.warningLog = log.New(warningWriter, "WARNING ", log.Ldate|log.Ltime|log.Lshortfile)
	l.errorLog = log.New(errorWriter, "ERROR   ", log.Ldate|log.Ltime|log.Lshortfile)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Output(2, fmt.Sprintf(format, v...))
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Output(2, fmt.Sprintf(format, v...))
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Output(2, fmt.Sprintf(format, v...))
}

// Dir returns the directory holding the log files.
func (l *Logger) Dir() string {
	return l.logDir
}

// Rotate moves the given log file aside and starts a fresh one.
func (l *Logger) Rotate(fileName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, ok := l.files[fileName]
	if !ok {
		return fmt.Errorf("unknown log file %q", fileName)
	}
	return file.Rotate()
}

// Close closes all log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, file := range l.files {
		if err := file.Close(); err != nil {
			return err
		}
	}
	return nil
}
