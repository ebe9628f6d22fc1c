// Package logging wires zerolog to the storage/ NDJSON files that the
// metrics endpoints serve back over HTTP: errors.log (error and above),
// warnings.log (warn only) and metrics.log (one record per request).
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup opens the log files under storageDir, installs the global logger
// and returns the request-metrics logger. Files are appended to and stay
// open for the life of the process.
func Setup(storageDir string) (zerolog.Logger, error) {
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return zerolog.Nop(), err
	}

	errorsFile, err := openLog(storageDir, "errors.log")
	if err != nil {
		return zerolog.Nop(), err
	}
	warningsFile, err := openLog(storageDir, "warnings.log")
	if err != nil {
		return zerolog.Nop(), err
	}
	metricsFile, err := openLog(storageDir, "metrics.log")
	if err != nil {
		return zerolog.Nop(), err
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr}
	sink := zerolog.MultiLevelWriter(
		console,
		levelWriter{Writer: errorsFile, match: func(l zerolog.Level) bool { return l >= zerolog.ErrorLevel && l < zerolog.NoLevel }},
		levelWriter{Writer: warningsFile, match: func(l zerolog.Level) bool { return l == zerolog.WarnLevel }},
	)
	log.Logger = zerolog.New(sink).With().Timestamp().Logger()

	metrics := zerolog.New(metricsFile).With().Timestamp().Logger()
	return metrics, nil
}

func openLog(dir, name string) (io.Writer, error) {
	return os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// levelWriter forwards only the selected levels to the underlying file.
type levelWriter struct {
	io.Writer
	match func(zerolog.Level) bool
}

func (w levelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if !w.match(level) {
		return len(p), nil
	}
	return w.Writer.Write(p)
}
