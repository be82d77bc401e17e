package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitWritesRotatedFiles(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() {
		AppLogger, RequestLogger, ErrorLogger = zap.NewNop(), zap.NewNop(), zap.NewNop()
	})
	require.NoError(t, Init(Options{Dir: dir, Level: "debug"}))

	done := LogDuration("unit", zap.String("session_id", "s1"))
	done()
	ErrorLogger.Error("boom")
	Sync()

	app, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Contains(t, string(app), `"func":"unit"`)
	assert.Contains(t, string(app), `"duration_ms"`)

	errs, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(errs), "boom")
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init(Options{Level: "loud"}))
}
