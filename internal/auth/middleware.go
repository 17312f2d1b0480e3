package auth

import (
	"context"
	"net/http"

	"election-insights/pkg/logging"
)

// HeaderAPIKey carries the caller's key.
const HeaderAPIKey = "X-API-Key"

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// KeyNameKey is the context key for the resolved key holder
	KeyNameKey contextKey = "api_key_name"
	// ClientIPKey is the context key for the client IP address
	ClientIPKey contextKey = "client_ip"
)

// APIKeyMiddleware rejects requests without a known X-API-Key.
type APIKeyMiddleware struct {
	resolver     *KeyResolver
	unauthorized func(w http.ResponseWriter, r *http.Request)
	log          *logging.ComponentLogger
}

// NewAPIKeyMiddleware calls unauthorized for rejected requests; the handler
// is expected to answer 401.
func NewAPIKeyMiddleware(resolver *KeyResolver, unauthorized func(w http.ResponseWriter, r *http.Request), logger *logging.Logger) *APIKeyMiddleware {
	if logger == nil {
		logger = logging.Nop()
	}
	return &APIKeyMiddleware{resolver: resolver, unauthorized: unauthorized, log: logger.WithComponent("auth")}
}

// Handler wraps an HTTP handler with API key authentication
func (m *APIKeyMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := ClientIP(r)

		name, ok := m.resolver.Resolve(r.Header.Get(HeaderAPIKey))
		if !ok {
			m.log.Ctx(r.Context()).Warn("rejected request without valid api key",
				logging.String("client_ip", clientIP), logging.String("path", r.URL.Path))
			m.unauthorized(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), KeyNameKey, name)
		ctx = context.WithValue(ctx, ClientIPKey, clientIP)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// KeyNameFromContext retrieves the key holder from the request context
func KeyNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(KeyNameKey).(string)
	return name, ok
}

// ClientIPFromContext retrieves the client IP from the request context
func ClientIPFromContext(ctx context.Context) (string, bool) {
	ip, ok := ctx.Value(ClientIPKey).(string)
	return ip, ok
}
