package logging_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/programme-lv/executor/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logging.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logging.ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel("loud"))

	var buf bytes.Buffer
	logger := logging.New(&buf, "warn", false)
	logger.Info("hidden")
	logger.Warn("shown", "strategy", "sqlite")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "strategy=sqlite")
}
