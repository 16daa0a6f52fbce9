// Package refresh validates presented refresh tokens against an account's
// retained set and mints replacement access tokens.
package refresh

import (
	"context"

	"github.com/pkg/errors"

	"github.com/stonevalleypartners/auth-library/accounts"
	"github.com/stonevalleypartners/auth-library/token"
)

var (
	// ErrInvalidRefreshToken reports a presented token that failed to decode
	// or verify under the configured regime.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrAccountNotFound reports a decodable token whose account no longer
	// resolves through the store.
	ErrAccountNotFound = errors.New("account not found")

	// ErrRefreshTokenRevoked reports a valid token that is no longer a member
	// of the account's retained set, whether revoked or evicted.
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
)

// DefaultMaxRefreshTokens bounds the per-account retained set when no maximum
// is configured.
const DefaultMaxRefreshTokens = 5

// Manager issues refresh tokens into a bounded per-account retained set and
// redeems presented tokens for new access tokens. Redemption does not rotate
// the refresh token; the original stays valid until evicted or revoked.
//
// Per-account set mutation is only as consistent as the Store guarantees.
// Concurrent redemptions against one account can race; callers needing strict
// consistency must serialize through their persistence layer.
type Manager struct {
	issuer       *token.Issuer
	store        accounts.Store
	max          int
	extended     func(*accounts.Account) map[string]any
	evictExpired bool
}

// Option defines a function type to modify the Manager instance.
type Option func(*Manager)

// WithMaxRefreshTokens bounds the per-account retained set. Zero disables
// refresh-token issuance entirely.
func WithMaxRefreshTokens(max int) Option {
	return func(m *Manager) {
		m.max = max
	}
}

// WithExtendedClaims customizes the claims minted into tokens per account.
func WithExtendedClaims(fn func(*accounts.Account) map[string]any) Option {
	return func(m *Manager) {
		m.extended = fn
	}
}

// WithEvictExpiredOnRedeem opportunistically drops retained tokens that no
// longer decode when a redemption fails the membership check. Off by default.
func WithEvictExpiredOnRedeem() Option {
	return func(m *Manager) {
		m.evictExpired = true
	}
}

// NewManager creates a new refresh token manager.
func NewManager(issuer *token.Issuer, store accounts.Store, options ...Option) *Manager {
	m := &Manager{
		issuer: issuer,
		store:  store,
		max:    DefaultMaxRefreshTokens,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Enabled reports whether refresh-token issuance is active.
func (m *Manager) Enabled() bool { return m.max > 0 }

// Issue mints a refresh token for account and retains it, newest first,
// evicting the oldest entries beyond the configured maximum.
func (m *Manager) Issue(ctx context.Context, account *accounts.Account) (string, error) {
	if !m.Enabled() {
		return "", errors.New("[Manager.Issue] refresh tokens disabled")
	}

	minted, err := m.issuer.IssueRefreshToken(account.ID, m.extendedClaims(account))
	if err != nil {
		return "", errors.Wrap(err, "[Manager.Issue] IssueRefreshToken")
	}

	account.RefreshTokens = append([]string{minted}, account.RefreshTokens...)
	if len(account.RefreshTokens) > m.max {
		account.RefreshTokens = account.RefreshTokens[:m.max]
	}
	if err := m.store.UpdateRefreshTokens(ctx, account); err != nil {
		return "", errors.Wrap(err, "[Manager.Issue] UpdateRefreshTokens")
	}

	return minted, nil
}

// Redeem exchanges a valid, retained refresh token for a new access token.
func (m *Manager) Redeem(ctx context.Context, refreshToken string) (*token.AccessTokenResponse, error) {
	accountID, err := m.issuer.DecodeRefreshToken(refreshToken)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidRefreshToken, "%v", err)
	}

	account, err := m.store.LookupAccount(ctx, accounts.Query{ID: accountID})
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Redeem] LookupAccount")
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	if !account.HasRefreshToken(refreshToken) {
		if m.evictExpired {
			m.evictStale(ctx, account)
		}
		return nil, ErrRefreshTokenRevoked
	}

	resp, err := m.issuer.IssueAccessToken(account.ID, m.extendedClaims(account))
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Redeem] IssueAccessToken")
	}
	return resp, nil
}

func (m *Manager) extendedClaims(account *accounts.Account) map[string]any {
	if m.extended == nil {
		return nil
	}
	return m.extended(account)
}

// evictStale drops retained tokens that no longer decode. Best effort; the
// redemption outcome does not depend on it.
func (m *Manager) evictStale(ctx context.Context, account *accounts.Account) {
	kept := account.RefreshTokens[:0]
	for _, t := range account.RefreshTokens {
		if _, err := m.issuer.DecodeRefreshToken(t); err == nil {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(account.RefreshTokens) {
		return
	}
	account.RefreshTokens = kept
	_ = m.store.UpdateRefreshTokens(ctx, account)
}
