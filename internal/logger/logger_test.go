package logger

import (
	"testing"

	"improbable-love/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_FallsBackToInfoOnBadLevel(t *testing.T) {
	log, err := New(config.LogConfig{Level: "chatty", Encoding: "yaml"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
}

func TestNew_DebugLevel(t *testing.T) {
	log, err := New(config.LogConfig{Level: "DEBUG", Encoding: "console"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))
}
