// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatterLayout(t *testing.T) {
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "rate limited",
		Data:    logrus.Fields{"status": 429, "attempt": 2},
		Caller:  &runtime.Frame{File: "/src/internal/httputil/retry.go", Line: 42},
	}
	entry.Logger.SetReportCaller(true)

	out, err := (&Formatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-03-04 05:06:07] [WARN] [retry.go:42] rate limited attempt=2 status=429\n", string(out))
}

func TestFormatterWithoutCaller(t *testing.T) {
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "hello",
	}
	out, err := (&Formatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-01-01 00:00:00] [INFO] [] hello\n", string(out))
}

func TestInitWritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	require.NoError(t, Init("debug", path))
	t.Cleanup(func() {
		_ = Close()
		Log.SetLevel(logrus.InfoLevel)
	})

	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
	Log.Debug("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBU]")
	assert.Contains(t, string(data), "written to file")
}

func TestInitUnknownLevelFallsBackToInfo(t *testing.T) {
	require.NoError(t, Init("chatty", ""))
	t.Cleanup(func() { Log.SetOutput(os.Stderr) })
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())
}

func TestInitClosesPreviousLogFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init("info", filepath.Join(dir, "first.log")))
	t.Cleanup(func() { _ = Close() })

	first := logFile
	require.NotNil(t, first)

	require.NoError(t, Init("info", filepath.Join(dir, "second.log")))
	require.NotNil(t, logFile)
	assert.NotSame(t, first, logFile)
	_, err := first.Write([]byte("late\n"))
	assert.ErrorIs(t, err, os.ErrClosed)

	second := logFile
	require.NoError(t, Init("info", ""))
	assert.Nil(t, logFile)
	_, err = second.Write([]byte("late\n"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestCloseWithoutFile(t *testing.T) {
	require.NoError(t, Init("info", ""))
	assert.NoError(t, Close())
	assert.Nil(t, logFile)
}
