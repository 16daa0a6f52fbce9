package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const contextKeyClaims contextKey = "auth_claims"

// ClaimsFromContext returns the verified claims attached by Authenticate.
func ClaimsFromContext(ctx context.Context) (jwt.MapClaims, bool) {
	claims, ok := ctx.Value(contextKeyClaims).(jwt.MapClaims)
	return claims, ok
}

// ChainMiddleware applies middleware right to left around routeFunction.
func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// Authenticate extracts and verifies a bearer credential from the
// Authorization header. A malformed, forged, or expired token leaves the
// request unauthenticated and passes it through; verification failure is an
// expected condition, not an error. Downstream policy decides rejection.
func (s *Server) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			next(w, r)
			return
		}
		claims, err := s.issuer.Verify(raw)
		if err != nil {
			log.Info().Err(err).Msg("token err")
			next(w, r)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), contextKeyClaims, claims)))
	}
}

// RequireAuth rejects unauthenticated requests. Chain after Authenticate.
func (s *Server) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ClaimsFromContext(r.Context()); !ok {
			unauthorized(w)
			return
		}
		next(w, r)
	}
}

// Protect authenticates the request and rejects it when no valid bearer
// credential was presented. The default policy for protected routes.
func (s *Server) Protect(next http.HandlerFunc) http.HandlerFunc {
	return ChainMiddleware(next, s.Authenticate, s.RequireAuth)
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
