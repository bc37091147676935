// Package identity carries the verified caller identity through a request.
// Credential verification happens upstream (the gateway validates the JWT);
// this service trusts the identity it is handed.
package identity

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

// Header set by the trusted gateway after token verification.
const Header = "X-Aegis-User"

// Principal is the authenticated actor for the current request.
type Principal struct {
	UserID int64
}

type contextKey struct{}

// ContextWithPrincipal returns a context carrying the principal.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext extracts the principal, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

// Middleware reads the verified user id from the gateway header and stores
// it in the request context. Requests without an identity pass through; the
// authorization middleware rejects them where one is required.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(Header))
		if raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
				r = r.WithContext(ContextWithPrincipal(r.Context(), Principal{UserID: id}))
			}
		}
		next.ServeHTTP(w, r)
	})
}
