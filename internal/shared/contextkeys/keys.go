package contextkeys

import "context"

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "gym-assistant context key " + string(c)
}

const (
	// UserIDKey carries the uid of the signed-in user.
	UserIDKey = contextKey("userID")
	// RequestIDKey carries the HTTP request id assigned by the server middleware.
	RequestIDKey = contextKey("requestID")
	// ComponentKey names the component that issued a log line.
	ComponentKey = contextKey("component")
	// OperationKey names the operation in progress (get_all, sign_in, ...).
	OperationKey = contextKey("operation")
	// CollectionKey carries the collection name a document operation targets.
	CollectionKey = contextKey("collection")
)

// WithUserID adds the user id to ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithRequestID adds the request id to ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithOperation adds the operation name to ctx.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, OperationKey, operation)
}

// WithCollection adds the collection name to ctx.
func WithCollection(ctx context.Context, collection string) context.Context {
	return context.WithValue(ctx, CollectionKey, collection)
}

// StringValue returns the string stored under key, or "" when absent.
func StringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
