package lib

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.Equal(t, 4*time.Second, config.MiningInterval())
	require.Equal(t, 7*24*time.Hour, config.TermPeriod())
	require.EqualValues(t, 8, config.MaximumTinyBlocksCount)
	require.Equal(t, InfoLevel, config.GetLogLevel())
}

func TestConfigFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFilePath)
	config := DefaultConfig()
	config.LogLevel = "debug"
	config.MiningIntervalMS = 500
	require.NoError(t, config.WriteToFile(path))
	loaded, err := NewConfigFromFile(path)
	require.NoError(t, err)
	require.Equal(t, config, loaded)
	require.Equal(t, 500*time.Millisecond, loaded.MiningInterval())
}

func TestConfigFileMissing(t *testing.T) {
	_, err := NewConfigFromFile(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	require.Equal(t, CodeReadFile, err.Code())
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, DebugLevel, ParseLogLevel("DEBUG"))
	require.Equal(t, InfoLevel, ParseLogLevel("info"))
	require.Equal(t, WarnLevel, ParseLogLevel("warning"))
	require.Equal(t, ErrorLevel, ParseLogLevel("error"))
	require.Equal(t, ErrorLevel, ParseLogLevel("anything else"))
}
