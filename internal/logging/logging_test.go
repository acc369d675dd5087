package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	start := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		want    string
	}{
		{"basic path", "mapkitlogs", filepath.Join("mapkitlogs", "mapkit.20260212_213836.log")},
		{"relative path with dot", "./mapkitlogs", filepath.Join(".", "mapkitlogs", "mapkit.20260212_213836.log")},
		{"absolute path", filepath.Join("/var", "log", "mapkit"), filepath.Join("/var", "log", "mapkit", "mapkit.20260212_213836.log")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, "mapkit", start))
		})
	}
}

func TestOpenLogFile_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	f, err := OpenLogFile(dir, "mapkit", start)
	require.NoError(t, err)
	_, err = f.WriteString("line\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	body, err := os.ReadFile(LogFilePath(dir, "mapkit", start))
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(body))
}

func TestOpenLogFile_Appends(t *testing.T) {
	dir := t.TempDir()
	start := time.Now()

	for _, s := range []string{"a\n", "b\n"} {
		f, err := OpenLogFile(dir, "mapkit", start)
		require.NoError(t, err)
		_, err = f.WriteString(s)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	body, err := os.ReadFile(LogFilePath(dir, "mapkit", start))
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(body))
}
