package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
)

func TestLevelWriterRoutesLevels(t *testing.T) {
	var errBuf, warnBuf bytes.Buffer
	sink := zerolog.MultiLevelWriter(
		levelWriter{Writer: &errBuf, match: func(l zerolog.Level) bool { return l >= zerolog.ErrorLevel && l < zerolog.NoLevel }},
		levelWriter{Writer: &warnBuf, match: func(l zerolog.Level) bool { return l == zerolog.WarnLevel }},
	)
	logger := zerolog.New(sink)

	logger.Info().Msg("routine")
	logger.Warn().Msg("caution")
	logger.Error().Msg("broken")

	if got := errBuf.String(); !bytes.Contains([]byte(got), []byte("broken")) || bytes.Contains([]byte(got), []byte("caution")) {
		t.Errorf("errors sink got %q", got)
	}
	if got := warnBuf.String(); !bytes.Contains([]byte(got), []byte("caution")) || bytes.Contains([]byte(got), []byte("broken")) {
		t.Errorf("warnings sink got %q", got)
	}
}

func TestSetupCreatesLogFiles(t *testing.T) {
	dir := t.TempDir()
	metrics, err := Setup(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	metrics.Info().Str("type", "request").Msg("")
}
