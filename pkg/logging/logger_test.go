package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("loud", "")
	assert.Error(t, err)
}

func TestNew_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(zapcore.AddSync(&buf), zapcore.InfoLevel)

	WithRequestID(l.Logger, "abc").Info("sampled", zap.Int("ticks", 3))
	l.Logger.Debug("hidden")
	Flush(l.Logger)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "sampled", entry["msg"])
	assert.Equal(t, "abc", entry["req_id"])
	assert.EqualValues(t, 3, entry["ticks"])
	assert.Contains(t, entry, "ts")
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meter.log")
	l, err := New("debug", path)
	require.NoError(t, err)

	l.Infow("hello", "model", "qwen")
	Flush(l.Logger)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"model":"qwen"`)
}

func TestContext(t *testing.T) {
	fallback := zap.NewNop()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))
	assert.NotNil(t, FromContext(context.Background(), nil))

	l := zap.NewExample()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx, fallback))
}
