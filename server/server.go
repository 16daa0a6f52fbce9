// Package server hosts the token engine behind an HTTP surface: login
// strategy mounts, refresh redemption, bearer validation middleware, and key
// discovery under asymmetric signing.
package server

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/stonevalleypartners/auth-library/accounts"
	"github.com/stonevalleypartners/auth-library/token"
	"github.com/stonevalleypartners/auth-library/token/refresh"
)

// Server wires login strategies to the token issuer and refresh manager.
// Strategies are registered explicitly; constructing one has no side effects.
type Server struct {
	config     Config
	issuer     *token.Issuer
	refresh    *refresh.Manager
	store      accounts.Store
	mux        *http.ServeMux
	routes     []string
	strategies map[string]Strategy
}

// New validates config and builds a Server. Configuration errors are fatal
// and wrap token.ErrConfiguration.
func New(config Config) (*Server, error) {
	if err := config.validate(); err != nil {
		return nil, errors.Wrap(err, "[server.New]")
	}

	issuerOpts := []token.IssuerOption{}
	if config.TokenDuration > 0 {
		issuerOpts = append(issuerOpts, token.WithTokenDuration(config.TokenDuration))
	}
	if config.RefreshDuration > 0 {
		issuerOpts = append(issuerOpts, token.WithRefreshDuration(config.RefreshDuration))
	}
	if config.RefreshFormat != "" {
		issuerOpts = append(issuerOpts, token.WithRefreshFormat(config.RefreshFormat))
	}
	if config.Issuer != "" {
		issuerOpts = append(issuerOpts, token.WithIssuerName(config.Issuer))
	}
	if config.NowFunc != nil {
		issuerOpts = append(issuerOpts, token.WithNowFunc(config.NowFunc))
	}

	issuer, err := token.NewIssuer(config.Signing, issuerOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] NewIssuer")
	}

	refreshOpts := []refresh.Option{
		refresh.WithMaxRefreshTokens(config.maxRefreshTokens()),
	}
	if config.ExtendedClaims != nil {
		refreshOpts = append(refreshOpts, refresh.WithExtendedClaims(config.ExtendedClaims))
	}
	if config.EvictExpiredOnRedeem {
		refreshOpts = append(refreshOpts, refresh.WithEvictExpiredOnRedeem())
	}

	return &Server{
		config:     config,
		issuer:     issuer,
		refresh:    refresh.NewManager(issuer, config.Store, refreshOpts...),
		store:      config.Store,
		mux:        http.NewServeMux(),
		strategies: make(map[string]Strategy),
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Issuer exposes the token issuer for hosts that mint tokens directly.
func (s *Server) Issuer() *token.Issuer { return s.issuer }

// RegisterStrategy mounts a login strategy under /auth/<name>. The refresh
// endpoint is mounted only for refresh-capable strategies when the refresh
// flow is enabled; discovery endpoints only under asymmetric signing.
func (s *Server) RegisterStrategy(name string, strategy Strategy) error {
	if name == "" || strategy == nil {
		return errors.Wrap(token.ErrConfiguration, "strategy name and implementation required")
	}
	if _, exists := s.strategies[name]; exists {
		return errors.Wrapf(token.ErrConfiguration, "strategy %q already registered", name)
	}
	s.strategies[name] = strategy

	base := "/auth/" + name
	s.registerRoute("POST "+base+"/verify", s.verifyHandler(strategy))
	if _, ok := strategy.(RefreshCapable); ok && s.refresh.Enabled() {
		s.registerRoute("POST "+base+"/token", s.refreshHandler())
	}
	if s.issuer.Algorithm() == token.AlgRS256 {
		s.registerRoute("GET "+base+"/.well-known/openid-configuration", s.wellKnownHandler(name))
		s.registerRoute("GET "+base+"/.well-known/jwks.json", s.jwksHandler())
	}

	log.Info().Str("strategy", name).Msg("configuring route")
	return nil
}

// Routes lists the registered route patterns.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) registerRoute(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
