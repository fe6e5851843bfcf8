package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var (
	prefixLen = 15
)

/* Public */

// Init configures the standard logrus logger. Verbosity 0 logs info, 1 debug and 2+ trace.
// When logFilePath is not empty, entries are also written to a rotating log file.
func Init(verbosity int, logFilePath string) error {
	logLevel := levelFor(verbosity)

	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(logLevel)
	logrus.SetFormatter(&prefixed.TextFormatter{
		TimestampFormat:  "2006-01-02 15:04:05",
		FullTimestamp:    true,
		ForceFormatting:  true,
		QuoteEmptyFields: true,
	})

	if logFilePath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	rotateFileHook, err := NewRotateFileHook(RotateFileConfig{
		Filename:   logFilePath,
		MaxSize:    5,
		MaxBackups: 10,
		MaxAge:     90,
		Level:      logLevel,
		Formatter: &prefixed.TextFormatter{
			TimestampFormat:  "2006-01-02 15:04:05",
			FullTimestamp:    true,
			ForceFormatting:  true,
			DisableColors:    true,
			QuoteEmptyFields: true,
		},
	})
	if err != nil {
		return fmt.Errorf("initialise rotate file hook: %w", err)
	}

	logrus.AddHook(rotateFileHook)
	return nil
}

func GetLogger(prefix string) *logrus.Entry {
	if len(prefix) > prefixLen {
		prefixLen = len(prefix)
	}

	return logrus.WithFields(logrus.Fields{"prefix": fmt.Sprintf("%-*s", prefixLen, prefix)})
}

/* Private */

func levelFor(verbosity int) logrus.Level {
	switch {
	case verbosity <= 0:
		return logrus.InfoLevel
	case verbosity == 1:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}
