package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustscan/internal/config"
)

func TestNewLevelsAndFormats(t *testing.T) {
	log, err := New(config.LogConfig{Level: "warn", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log, err = New(config.LogConfig{Level: "bogus"})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	_, err := New(config.LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
	_, err = New(config.LogConfig{Level: "info", Output: "syslog"})
	assert.Error(t, err)
	_, err = New(config.LogConfig{Level: "info", Output: "file"})
	assert.Error(t, err)
}

func TestFileOutputCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scan.log")
	log, err := New(config.LogConfig{Level: "info", Output: "file", FilePath: path, MaxSize: 1})
	require.NoError(t, err)
	log.Info("hello")
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
