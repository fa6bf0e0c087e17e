package sglog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var Zero = NewZeroLogger("", "info", false)

var logFile *os.File

// NewZeroLogger builds the process logger. Output is JSON unless pretty is set,
// in which case a console writer is used.
func NewZeroLogger(filepath string, logLevel string, pretty bool) *zerolog.Logger {
	f, writer, err := newWriter(filepath)
	if err != nil {
		writer = os.Stdout
	}
	if f != nil {
		logFile = f
	}

	var output io.Writer = writer
	if pretty {
		output = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	}
	logger := zerolog.New(output).With().Timestamp().Logger().Level(parseLevel(logLevel))

	return &logger
}

func UpdateZeroLogLevel(logLevel string) error {
	level := parseLevel(logLevel)
	zeroLogger := Zero.With().Logger().Level(level)
	Zero = &zeroLogger
	return nil
}

// ReloadLogger reopens the log destination, e.g. after rotation.
func ReloadLogger(filepath string, logLevel string, pretty bool) {
	if filepath == "" {
		return // stdout, nothing to reopen
	}
	oldFile := logFile
	Zero = NewZeroLogger(filepath, logLevel, pretty)
	if oldFile != nil && oldFile != logFile {
		_ = oldFile.Close()
	}
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "disabled":
		return zerolog.Disabled
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// newWriter opens filepath for appending, or returns stdout when it is empty.
func newWriter(filepath string) (*os.File, io.Writer, error) {
	if filepath == "" {
		return nil, os.Stdout, nil
	}
	f, err := os.OpenFile(filepath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}
