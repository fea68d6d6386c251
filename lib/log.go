package lib

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LogDirectory = "logs"
	LogFileName  = "node.log"
)

/*
	This file implements leveled, colored logging with optional auto-rotating
	file output. Every long-lived component receives a LoggerI at construction
	so tests may substitute a null logger.
*/

func init() {
	color.NoColor = false
}

// LoggerI defines the interface for the various logging levels and their formatted variants
type LoggerI interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Fatal(msg string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

const (
	DebugLevel int32 = -4
	InfoLevel  int32 = 0
	WarnLevel  int32 = 4
	ErrorLevel int32 = 8
)

var _ LoggerI = &Logger{} // enforce the LoggerI interface

// LoggerConfig holds the level threshold and the output writer for a Logger
type LoggerConfig struct {
	Level int32 `json:"level"`
	Out   io.Writer
}

// Logger is the concrete implementation of LoggerI
type Logger struct {
	config LoggerConfig
}

// Debug() logs a message at the Debug level in blue
func (l *Logger) Debug(msg string) {
	if l.config.Level <= DebugLevel {
		l.write(color.BlueString("DEBUG: " + msg))
	}
}

// Info() logs a message at the Info level in green
func (l *Logger) Info(msg string) {
	if l.config.Level <= InfoLevel {
		l.write(color.GreenString("INFO: " + msg))
	}
}

// Warn() logs a message at the Warn level in yellow
func (l *Logger) Warn(msg string) {
	if l.config.Level <= WarnLevel {
		l.write(color.YellowString("WARN: " + msg))
	}
}

// Error() logs a message at the Error level in red
func (l *Logger) Error(msg string) {
	if l.config.Level <= ErrorLevel {
		l.write(color.RedString("ERROR: " + msg))
	}
}

// Fatal() logs an error message and terminates the process
func (l *Logger) Fatal(msg string) {
	l.write(color.RedString("FATAL: " + msg))
	os.Exit(1)
}

// Debugf() logs a formatted message at the Debug level
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Debug(fmt.Sprintf(format, args...))
}

// Infof() logs a formatted message at the Info level
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// Warnf() logs a formatted message at the Warn level
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.Warn(fmt.Sprintf(format, args...))
}

// Errorf() logs a formatted message at the Error level
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// Fatalf() logs a formatted error message and terminates the process
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.Fatal(fmt.Sprintf(format, args...))
}

// write() outputs the message with a gray timestamp prefix to the configured writer
func (l *Logger) write(msg string) {
	stamp := color.HiBlackString(time.Now().Format(time.StampMilli))
	if _, err := l.config.Out.Write([]byte(fmt.Sprintf("%s %s\n", stamp, msg))); err != nil {
		fmt.Println(err.Error())
	}
}

// NewLogger() creates a new Logger from the config, defaulting the output to
// stdout plus an auto-rotating log file under the data directory
func NewLogger(config LoggerConfig, dataDirPath ...string) LoggerI {
	if config.Out == nil {
		dir := ""
		if len(dataDirPath) != 0 {
			dir = dataDirPath[0]
		}
		if dir == "" {
			dir = DefaultDataDirPath()
		}
		logPath := filepath.Join(dir, LogDirectory, LogFileName)
		if _, err := os.Stat(logPath); errors.Is(err, os.ErrNotExist) {
			if err = os.MkdirAll(filepath.Join(dir, LogDirectory), os.ModePerm); err != nil {
				panic(err)
			}
		}
		logFile := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    1, // megabytes
			MaxBackups: 1000,
			MaxAge:     14, // days
			Compress:   true,
		}
		config.Out = io.MultiWriter(os.Stdout, logFile)
	}
	return &Logger{config: config}
}

// NewDefaultLogger() creates a Logger at the Debug level writing to stdout only
func NewDefaultLogger() LoggerI {
	return NewLogger(LoggerConfig{Level: DebugLevel, Out: os.Stdout})
}

// NewNullLogger() creates a Logger that discards all output
func NewNullLogger() LoggerI {
	return NewLogger(LoggerConfig{Level: DebugLevel, Out: io.Discard})
}

// ParseLogLevel() converts a human level string into a level threshold
func ParseLogLevel(level string) int32 {
	switch {
	case strings.Contains(strings.ToLower(level), "deb"):
		return DebugLevel
	case strings.Contains(strings.ToLower(level), "inf"):
		return InfoLevel
	case strings.Contains(strings.ToLower(level), "war"):
		return WarnLevel
	default:
		return ErrorLevel
	}
}
