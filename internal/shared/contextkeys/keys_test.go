package contextkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKey_String(t *testing.T) {
	key := contextKey("testKey")
	assert.Equal(t, "gym-assistant context key testKey", key.String())
}

func TestContextKeys_Usage(t *testing.T) {
	ctx := context.Background()
	ctx = WithUserID(ctx, "user-123")
	ctx = WithRequestID(ctx, "req-456")
	ctx = WithOperation(ctx, "get_all")
	ctx = WithCollection(ctx, "workouts")

	assert.Equal(t, "user-123", StringValue(ctx, UserIDKey))
	assert.Equal(t, "req-456", StringValue(ctx, RequestIDKey))
	assert.Equal(t, "get_all", StringValue(ctx, OperationKey))
	assert.Equal(t, "workouts", StringValue(ctx, CollectionKey))
	assert.Empty(t, StringValue(ctx, ComponentKey))
}

func TestStringValue_NonString(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserIDKey, 42)
	assert.Empty(t, StringValue(ctx, UserIDKey))
}
