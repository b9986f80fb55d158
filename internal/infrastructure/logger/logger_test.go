package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waifubot/backend/internal/infrastructure/config"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.LogConfig
		level zapcore.Level
	}{
		{"console debug", config.LogConfig{Level: "debug", Format: "console", Output: "stdout"}, zapcore.DebugLevel},
		{"json warn on stderr", config.LogConfig{Level: "WARN", Format: "json", Output: "stderr"}, zapcore.WarnLevel},
		{"empty output is stdout", config.LogConfig{Level: "error", Format: "json"}, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.level))
			assert.False(t, logger.Core().Enabled(tt.level-1))
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exchange.log")

	logger, err := New(config.LogConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	logger.Info("gift accepted")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"gift accepted"`)
}

func TestNew_UnwritableFile(t *testing.T) {
	_, err := New(config.LogConfig{Level: "info", Format: "json", Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		logger, err := NewForEnvironment(env)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	}
}
