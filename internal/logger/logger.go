package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	Logger *logrus.Logger // Main logger instance

	defaultOnce sync.Once
)

// Options controls logger initialization.
type Options struct {
	Level string // DEBUG, INFO, WARN, ERROR
	Dir   string // when set, logs are written to <Dir>/specscan.log
	JSON  bool
}

// ParseLevel maps the configured level name to a logrus level, defaulting to info.
func ParseLevel(name string) logrus.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return logrus.DebugLevel
	case "INFO":
		return logrus.InfoLevel
	case "WARN", "WARNING":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Initialize sets up the logger with proper configuration
func Initialize(opts Options) {
	l := logrus.New()
	level := ParseLevel(opts.Level)
	l.SetLevel(level)

	if opts.JSON {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
			DisableColors:   opts.Dir != "",
		})
	}

	var out io.Writer = os.Stderr
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logs directory: %v\n", err)
		} else {
			logPath := filepath.Join(opts.Dir, "specscan.log")
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			} else {
				out = logFile
				l.SetReportCaller(true)
			}
		}
	}
	l.SetOutput(out)

	Logger = l

	Logger.WithFields(logrus.Fields{
		"log_level": level.String(),
		"log_dir":   opts.Dir,
	}).Debug("Logging system initialized")
}

// GetLogger returns the configured main logger instance
func GetLogger() *logrus.Logger {
	defaultOnce.Do(func() {
		if Logger == nil {
			Initialize(Options{Level: os.Getenv("LOG_LEVEL")})
		}
	})
	return Logger
}

// WithContext creates a logger with additional context fields
func WithContext(fields map[string]interface{}) *logrus.Entry {
	return GetLogger().WithFields(fields)
}

// WithComponent tags entries with the emitting component.
func WithComponent(component string) *logrus.Entry {
	return GetLogger().WithField("component", component)
}

// WithBuild creates a logger with build context
func WithBuild(organization, pipeline string, buildNumber int) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"organization": organization,
		"pipeline":     pipeline,
		"build_number": buildNumber,
		"component":    "failure_service",
	})
}

// WithJob creates a logger with job context
func WithJob(jobID, jobName string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"job_id":    jobID,
		"job_name":  jobName,
		"component": "failure_service",
	})
}

// WithError creates a logger with error context
func WithError(err error, component string) *logrus.Entry {
	fields := logrus.Fields{
		"error":     err.Error(),
		"component": component,
	}

	// Add stack trace for debug level
	if GetLogger().GetLevel() >= logrus.DebugLevel {
		fields["stack_trace"] = getStackTrace()
	}

	return GetLogger().WithFields(fields)
}

// getStackTrace returns a formatted stack trace
func getStackTrace() string {
	var stack []string
	for i := 2; i < 10; i++ {
		if pc, file, line, ok := runtime.Caller(i); ok {
			fn := runtime.FuncForPC(pc)
			stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		}
	}
	return strings.Join(stack, "\n")
}

func Debug(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Debug(msg)
}

func Info(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Info(msg)
}

func Warn(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Warn(msg)
}

func Error(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Error(msg)
}

func Fatal(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Fatal(msg)
}
