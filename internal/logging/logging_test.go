package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToLogFile(t *testing.T) {
	t.Parallel()
	logFile := filepath.Join(t.TempDir(), "run.log")

	log, closeLog, err := New(Options{LogFile: logFile})
	require.NoError(t, err)
	log.Infof("running %s", "DCM2NII")
	closeLog()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "running DCM2NII")
}

func TestNewAppendsByDefault(t *testing.T) {
	t.Parallel()
	logFile := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, os.WriteFile(logFile, []byte("previous run\n"), 0o644))

	log, closeLog, err := New(Options{LogFile: logFile})
	require.NoError(t, err)
	log.Info("second run")
	closeLog()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "previous run")
	assert.Contains(t, string(content), "second run")
}

func TestNewLogTruncates(t *testing.T) {
	t.Parallel()
	logFile := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, os.WriteFile(logFile, []byte("previous run\n"), 0o644))

	log, closeLog, err := New(Options{LogFile: logFile, NewLog: true})
	require.NoError(t, err)
	log.Info("fresh run")
	closeLog()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "previous run")
	assert.Contains(t, string(content), "fresh run")
}
