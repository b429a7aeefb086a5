package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

var _ Logger = (*logrusLogger)(nil)

// logrusLogger wraps logrus to satisfy the Logger interface.
type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger creates a configured logger. Output goes to stdout, and
// additionally to <logDir>/relay.log when logDir is non-empty.
func NewLogrusLogger(logLevel string, logDir string) (Logger, error) {
	l := logrus.New()

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	l.SetFormatter(&SimpleFormatter{
		TimestampFormat: "2006/01/02 15:04:05.000000",
	})

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory '%s': %w", logDir, err)
		}
		logFilePath := filepath.Join(logDir, "relay.log")
		logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file '%s': %w", logFilePath, err)
		}
		l.SetOutput(io.MultiWriter(os.Stdout, logFile))
	} else {
		l.SetOutput(os.Stdout)
	}

	return &logrusLogger{entry: logrus.NewEntry(l)}, nil
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *logrusLogger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *logrusLogger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *logrusLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l *logrusLogger) Fatalf(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}

// SimpleFormatter renders log lines in a compact, standard-log style:
// 2025/04/06 17:30:00.000000 [INF] message key1=value1
type SimpleFormatter struct {
	TimestampFormat string
}

// Format implements the logrus.Formatter interface.
func (f *SimpleFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	timestampFormat := f.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = "2006/01/02 15:04:05.000000"
	}

	b.WriteString(entry.Time.Format(timestampFormat))
	b.WriteString(" ")

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 3 {
		level = level[:3]
	}
	fmt.Fprintf(b, "[%s] ", level)

	b.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(" ")
			fmt.Fprintf(b, "%s=%v", k, entry.Data[k])
		}
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}
