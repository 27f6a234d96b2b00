package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolatedLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voice.log")
	l := NewIsolatedLogger(path)

	l.Info("Voice", "session started", map[string]interface{}{"assistant_id": "1"})
	l.Warn("Voice", "silence detected", nil)
	l.Debug("Voice", "below file level", nil)
	require.NoError(t, l.Sync())

	logs, err := l.GetLogs("", 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	// newest first
	assert.Equal(t, "silence detected", logs[0].Message)
	assert.Equal(t, "WARN", logs[0].Level)
	assert.Equal(t, "Voice", logs[1].Module)

	warnOnly, err := l.GetLogs("WARN", 10, 0)
	require.NoError(t, err)
	assert.Len(t, warnOnly, 1)

	found, err := l.GetLogById(logs[1].Id)
	require.NoError(t, err)
	assert.Equal(t, "session started", found.Message)

	_, err = l.GetLogById("missing")
	assert.ErrorIs(t, err, ErrLogNotFound)
}

func TestGetLogsPagination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l := NewIsolatedLogger(path)
	for i := 0; i < 5; i++ {
		l.Info("Test", "entry", map[string]interface{}{"i": i})
	}
	require.NoError(t, l.Sync())

	page, err := l.GetLogs("", 2, 4)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	empty, err := l.GetLogs("", 2, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNopLoggerHasNoLogs(t *testing.T) {
	l := NewNopLogger()
	l.Error("Test", "ignored", map[string]interface{}{"error": assert.AnError})

	logs, err := l.GetLogs("", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
}
