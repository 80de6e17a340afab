// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are set by middleware and consumed by services. Keeping this package
// free of net/http lets domain code import only what it needs.
//
// Usage in services (read values):
//
//	customerID := requestcontext.CustomerID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithCustomerID(ctx, 1)
package requestcontext

import (
	"context"
	"time"

	id "wastetrack/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	customerIDKey  struct{}
	actorKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyCustomerID  = customerIDKey{}
	ContextKeyActor       = actorKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// CustomerID retrieves the authenticated customer scope from the context.
// Returns zero if not set.
func CustomerID(ctx context.Context) id.CustomerID {
	if customerID, ok := ctx.Value(ContextKeyCustomerID).(id.CustomerID); ok {
		return customerID
	}
	return 0
}

// WithCustomerID injects a customer scope into the context.
func WithCustomerID(ctx context.Context, customerID id.CustomerID) context.Context {
	return context.WithValue(ctx, ContextKeyCustomerID, customerID)
}

// Actor retrieves the acting user identifier (token subject) from the context.
func Actor(ctx context.Context) string {
	if actor, ok := ctx.Value(ContextKeyActor).(string); ok {
		return actor
	}
	return ""
}

// WithActor injects an acting user identifier into the context.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts (workers, CLI, tests that don't care).
//
// Status and percentage derivation read the clock exclusively through this
// accessor so tests can pin "now".
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
