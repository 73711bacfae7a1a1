package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogLevelToString(t *testing.T) {
	require.Equal(t, "TRACE", LogLevelToString(TraceLevel))
	require.Equal(t, "DEBUG", LogLevelToString(DebugLevel))
	require.Equal(t, "WARN", LogLevelToString(WarnLevel))
	require.Equal(t, "FATAL", LogLevelToString(FatalLevel))
}

func TestToZapLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, ToZapLevel(TraceLevel))
	require.Equal(t, zapcore.InfoLevel, ToZapLevel(InfoLevel))
	require.Equal(t, zapcore.ErrorLevel, ToZapLevel(ErrorLevel))
}

func TestParseLevel(t *testing.T) {
	for level := TraceLevel; level <= FatalLevel; level++ {
		parsed, err := ParseLevel(LogLevelToString(level))
		require.Nil(t, err)
		require.Equal(t, level, parsed)
	}
	level, err := ParseLevel("error")
	require.Nil(t, err)
	require.Equal(t, ErrorLevel, level)
	level, err = ParseLevel("")
	require.Nil(t, err)
	require.Equal(t, WarnLevel, level)
	_, err = ParseLevel("loud")
	require.NotNil(t, err)
}

func TestInit(t *testing.T) {
	defer Set(nil)
	require.NotNil(t, Init(Config{Level: "loud"}))
	require.Nil(t, Init(Config{Level: "debug", Encoding: "json"}))
	require.True(t, Get().Core().Enabled(zapcore.DebugLevel))
	// zap has no trace level, so trace logs at debug
	require.Nil(t, Init(Config{Level: "TRACE"}))
	require.True(t, Get().Core().Enabled(zapcore.DebugLevel))
	require.Nil(t, Init(Config{Level: "error"}))
	require.False(t, Get().Core().Enabled(zapcore.WarnLevel))
	Set(zap.NewNop())
	require.False(t, Named("refs").Core().Enabled(zapcore.ErrorLevel))
}

func TestGetDefault(t *testing.T) {
	Set(nil)
	defer Set(nil)
	logger := Get()
	require.NotNil(t, logger)
	require.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}
