package server

import (
	"time"

	"github.com/pkg/errors"

	"github.com/stonevalleypartners/auth-library/accounts"
	"github.com/stonevalleypartners/auth-library/internal/utils"
	"github.com/stonevalleypartners/auth-library/token"
)

// Config is the immutable configuration for a Server. It is validated once by
// New; a Server is never built from a partially valid Config, and the value
// is never mutated after construction.
type Config struct {
	// Store resolves and persists accounts. Required.
	Store accounts.Store

	// Signing selects the active key regime: token.SymmetricConfig (HS256) or
	// token.AsymmetricConfig (RS256). Required.
	Signing token.SigningConfig

	// TokenDuration bounds access-token lifetime. Default 3600 seconds.
	TokenDuration time.Duration

	// RefreshDuration bounds refresh-token lifetime. Zero leaves refresh
	// tokens unbounded.
	RefreshDuration time.Duration

	// MaxRefreshTokens bounds the per-account retained set. Nil defaults to
	// 5; a pointer to zero disables the refresh flow entirely.
	MaxRefreshTokens *int

	// RefreshFormat selects signed or opaque refresh tokens. Default signed.
	RefreshFormat token.RefreshFormat

	// Issuer names the token issuer; stamped on minted claims when set.
	Issuer string

	// ExtendedClaims customizes JWT payloads per account.
	ExtendedClaims func(*accounts.Account) map[string]any

	// EvictExpiredOnRedeem opportunistically drops stale retained refresh
	// tokens when a redemption fails the membership check.
	EvictExpiredOnRedeem bool

	// NowFunc overrides the clock (primarily for testing).
	NowFunc func() time.Time
}

func (c Config) validate() error {
	if c.Store == nil {
		return errors.Wrap(token.ErrConfiguration, "Store required")
	}
	if c.Signing == nil {
		return errors.Wrap(token.ErrConfiguration, "Signing required")
	}
	if c.TokenDuration < 0 {
		return errors.Wrap(token.ErrConfiguration, "TokenDuration must be non-negative")
	}
	if c.RefreshDuration < 0 {
		return errors.Wrap(token.ErrConfiguration, "RefreshDuration must be non-negative")
	}
	if c.MaxRefreshTokens != nil && *c.MaxRefreshTokens < 0 {
		return errors.Wrap(token.ErrConfiguration, "MaxRefreshTokens must be non-negative")
	}
	return nil
}

func (c Config) maxRefreshTokens() int {
	if c.MaxRefreshTokens == nil {
		return 5
	}
	return utils.Value(c.MaxRefreshTokens)
}
