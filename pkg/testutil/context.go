package testutil

import (
	"context"
	"net/http"
	"time"

	id "wastetrack/pkg/domain"
	"wastetrack/pkg/requestcontext"
)

// WithCustomer scopes a request to a customer, simulating what the auth
// middleware does for authenticated requests.
func WithCustomer(req *http.Request, customerID id.CustomerID) *http.Request {
	ctx := requestcontext.WithCustomerID(req.Context(), customerID)
	return req.WithContext(ctx)
}

// WithActor adds an acting user to the request context.
func WithActor(req *http.Request, actor string) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), actor)
	return req.WithContext(ctx)
}

// WithFrozenTime pins the request clock so derivations are deterministic.
func WithFrozenTime(req *http.Request, t time.Time) *http.Request {
	ctx := requestcontext.WithTime(req.Context(), t)
	return req.WithContext(ctx)
}

// Context builds a service-level context with customer scope and a pinned
// clock, the state middleware normally establishes.
func Context(customerID id.CustomerID, now time.Time) context.Context {
	ctx := requestcontext.WithCustomerID(context.Background(), customerID)
	return requestcontext.WithTime(ctx, now)
}
