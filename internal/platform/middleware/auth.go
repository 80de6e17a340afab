package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "wastetrack/pkg/domain"
	dErrors "wastetrack/pkg/domain-errors"
	"wastetrack/pkg/platform/httputil"
	"wastetrack/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// TokenClaims is the subset of JWT claims the middleware propagates.
type TokenClaims struct {
	CustomerID id.CustomerID
	Subject    string
}

// RequireCustomer authenticates the request and scopes it to a customer.
// Every handler below this middleware can rely on a non-zero customer id in
// the request context.
func RequireCustomer(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx))
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err, "request_id", requestcontext.RequestID(ctx))
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}
			if claims.CustomerID.IsZero() {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token carries no customer scope"))
				return
			}

			ctx = requestcontext.WithCustomerID(ctx, claims.CustomerID)
			ctx = requestcontext.WithActor(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
