package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{
			name: "default config",
			cfg:  DefaultConfig(),
		},
		{
			name: "debug console",
			cfg: &Config{
				Level:      "debug",
				Format:     "console",
				Output:     "stdout",
				TimeFormat: "2006-01-02T15:04:05Z07:00",
			},
		},
		{
			name: "json to stderr",
			cfg: &Config{
				Level:      "warn",
				Format:     "json",
				Output:     "stderr",
				TimeFormat: "2006-01-02T15:04:05Z07:00",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.level))
		})
	}
}

func TestSync(t *testing.T) {
	log, err := New(DefaultConfig())
	require.NoError(t, err)

	// Sync on stdout may return an error depending on the environment; it
	// must not panic either way.
	_ = Sync(log)
}

func TestNewWriter(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"stdout", "stdout"},
		{"stderr", "stderr"},
		{"case insensitive", "STDOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, newWriter(tt.output))
		})
	}
}

func TestNewWriterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pazarsync.log")

	writer := newWriter(path)
	require.NotNil(t, writer)

	_, err := writer.Write([]byte("sync job finished\n"))
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "sync job finished")
}

func TestNewWriterUnopenablePathFallsBack(t *testing.T) {
	// A directory cannot be opened as a log file; the writer must still work.
	writer := newWriter(t.TempDir())
	assert.NotNil(t, writer)
}

func TestJSONOutputFields(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: "2006-01-02T15:04:05Z07:00",
	}
	core := zapcore.NewCore(newEncoder(cfg), zapcore.AddSync(&buf), zapcore.InfoLevel)
	log := zap.New(core)

	log.Info("pushing product",
		zap.String("platform", "trendyol"),
		zap.String("sku", "SKU-1"),
	)

	var output map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))

	assert.Equal(t, "pushing product", output["msg"])
	assert.Equal(t, "info", output["level"])
	assert.Equal(t, "trendyol", output["platform"])
	assert.Equal(t, "SKU-1", output["sku"])
	assert.Contains(t, output, "time")
}

func TestEncoderSelection(t *testing.T) {
	console := newEncoder(&Config{Format: "console", TimeFormat: "2006-01-02T15:04:05Z07:00"})
	jsonEnc := newEncoder(&Config{Format: "json", TimeFormat: "2006-01-02T15:04:05Z07:00"})

	assert.NotNil(t, console)
	assert.NotNil(t, jsonEnc)
	assert.IsType(t, jsonEnc, newEncoder(&Config{Format: "anything-else"}))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{Level: "info", Format: "json", TimeFormat: "2006-01-02T15:04:05Z07:00"}
	core := zapcore.NewCore(newEncoder(cfg), zapcore.AddSync(&buf), parseLevel(cfg.Level))
	log := zap.New(core)

	log.Debug("dispatching pair")
	assert.Empty(t, buf.String(), "debug suppressed at info level")

	log.Info("sync job finished")
	assert.Contains(t, buf.String(), "sync job finished")
}
