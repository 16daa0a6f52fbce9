// Package rp lets relying parties verify issued tokens offline against a
// published JSON Web Key Set, without calling the issuing service per
// request.
package rp

import (
	"context"
	"errors"
	"fmt"
	"time"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized reports a token that failed verification for any reason.
var ErrUnauthorized = errors.New("token verification failed")

// Verifier validates bearer tokens against the key set fetched from the
// issuer's jwks.json endpoint. Safe for concurrent use.
type Verifier struct {
	keyfunc jwt.Keyfunc
	issuer  string
	algs    []string
	leeway  time.Duration
}

// Option defines a function type to modify the Verifier instance.
type Option func(*Verifier)

// WithIssuer additionally pins the expected iss claim.
func WithIssuer(issuer string) Option {
	return func(v *Verifier) {
		v.issuer = issuer
	}
}

// WithLeeway tolerates clock skew between issuer and relying party.
func WithLeeway(d time.Duration) Option {
	return func(v *Verifier) {
		v.leeway = d
	}
}

// New fetches the key set at jwksURI and builds a Verifier. The key set is
// refreshed in the background for the lifetime of ctx.
func New(ctx context.Context, jwksURI string, options ...Option) (*Verifier, error) {
	if jwksURI == "" {
		return nil, errors.New("jwks uri required")
	}
	kf, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURI})
	if err != nil {
		return nil, fmt.Errorf("jwks init failed: %w", err)
	}

	v := &Verifier{
		keyfunc: kf.Keyfunc,
		algs:    []string{"RS256"},
	}
	for _, opt := range options {
		opt(v)
	}
	return v, nil
}

// Verify parses and validates raw, returning its claims. Any failure wraps
// ErrUnauthorized.
func (v *Verifier) Verify(raw string) (jwt.MapClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.algs),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.NewParser(opts...).Parse(raw, v.keyfunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrUnauthorized)
	}
	return claims, nil
}
