package log

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

// SessionKey is the log field holding the monitor session ID
const SessionKey = "session_id"

type Fields = logrus.Fields

// Options configure the logger created by NewLogger
type Options struct {
	// Level is a logrus level name, eg: "debug" or "info"
	Level string
	// File is the path of a rotated log file.  Empty disables file logging
	File string
	// NoColors disables terminal colors
	NoColors bool
}

// NewLogger returns the process wide logger, creating it on first use
func NewLogger(opts Options) *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()

		level, err := logrus.ParseLevel(opts.Level)

		if err != nil {
			level = logrus.InfoLevel
		}

		logger.SetLevel(level)

		logger.SetFormatter(&formatter.Formatter{
			NoColors:        opts.NoColors,
			TimestampFormat: "02 Jan 06 - 15:04:05",
			HideKeys:        false,
			CallerFirst:     true,
			CustomCallerFormatter: func(f *runtime.Frame) string {
				s := strings.Split(f.Function, ".")
				funcName := s[len(s)-1]
				return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(f.File), f.Line, funcName)
			},
		})

		writers := []io.Writer{os.Stderr}

		if opts.File != "" {
			_ = os.MkdirAll(filepath.Dir(opts.File), 0o755)

			writers = append(writers, &lumberjack.Logger{
				Filename:   opts.File,
				LocalTime:  true,
				Compress:   true,
				MaxSize:    100,
				MaxAge:     7,
				MaxBackups: 3,
			})
		}

		logger.SetOutput(io.MultiWriter(writers...))
		logger.SetReportCaller(true)
	})

	return logger
}

// Logger returns the process wide logger, creating one with default
// options if NewLogger has not been called
func Logger() *logrus.Logger {
	return NewLogger(Options{Level: "info"})
}

// WithSession returns a log entry tagged with a new random session ID
func WithSession(l logrus.FieldLogger) (*logrus.Entry, string) {

	id, err := uuid.NewRandom()
	sessionID := "unknown"

	if err == nil {
		sessionID = id.String()
	}

	return l.WithField(SessionKey, sessionID), sessionID
}

// Discard returns a logger that drops all output, for use in tests
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
