package logger

import (
	"context"
	"testing"

	"gym-assistant/internal/shared/contextkeys"

	"github.com/stretchr/testify/assert"
)

func TestLoggerInterface_Contract(t *testing.T) {
	var _ Logger = NewLogger()
	var _ Logger = NewLoggerWithConfig("info", "json")
	var _ Logger = NewZapLogger("debug", "text")
	var _ Logger = NewNopLogger()
}

func TestLogrusLogger_WithFieldsAndContext(t *testing.T) {
	logger := NewLoggerWithConfig("debug", "text")
	logger2 := logger.WithFields(map[string]interface{}{"foo": "bar"})
	assert.NotNil(t, logger2)
	ctx := contextkeys.WithUserID(context.Background(), "user1")
	logger3 := logger.WithContext(ctx)
	assert.NotNil(t, logger3)
}

func TestLogrusLogger_WithComponent(t *testing.T) {
	logger := NewLoggerWithConfig("info", "text")
	logger2 := logger.WithComponent("test-component")
	assert.NotNil(t, logger2)
}

func TestZapLogger_WithContext(t *testing.T) {
	logger := NewZapLogger("info", "json")
	ctx := contextkeys.WithCollection(context.Background(), "workouts")
	assert.NotNil(t, logger.WithContext(ctx))
	assert.NotNil(t, logger.WithComponent("collection"))
}

func TestNewLogger_ZapBackend(t *testing.T) {
	t.Setenv("LOG_BACKEND", "zap")
	_, ok := NewLogger().(*ZapLogger)
	assert.True(t, ok)

	t.Setenv("LOG_BACKEND", "")
	_, ok = NewLogger().(*LogrusLogger)
	assert.True(t, ok)
}

func TestContextFields(t *testing.T) {
	ctx := contextkeys.WithRequestID(context.Background(), "req-1")
	ctx = contextkeys.WithOperation(ctx, "sign_in")
	fields := contextFields(ctx)
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "sign_in", fields["operation"])
	assert.NotContains(t, fields, "user_id")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := NewLoggerWithConfig("info", "text")
	assert.Equal(t, l, OrNop(l))
}
