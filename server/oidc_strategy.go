package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/stonevalleypartners/auth-library/accounts"
)

var (
	_ Strategy       = (*OIDCStrategy)(nil)
	_ RefreshCapable = (*OIDCStrategy)(nil)
)

// ProviderIdentity is the profile resolved for a third-party access token.
type ProviderIdentity struct {
	Subject  string
	Email    string
	Name     string
	Picture  string
	Audience string
}

// UserInfoFetcher resolves provider profile claims for a pre-obtained access
// token. NewProviderUserInfo adapts a go-oidc provider; tests substitute
// their own.
type UserInfoFetcher interface {
	Fetch(ctx context.Context, accessToken string) (*ProviderIdentity, error)
}

type providerUserInfo struct {
	provider *oidc.Provider
}

// NewProviderUserInfo adapts an OIDC provider's UserInfo endpoint.
func NewProviderUserInfo(provider *oidc.Provider) UserInfoFetcher {
	return &providerUserInfo{provider: provider}
}

func (p *providerUserInfo) Fetch(ctx context.Context, accessToken string) (*ProviderIdentity, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	info, err := p.provider.UserInfo(ctx, source)
	if err != nil {
		return nil, errors.Wrap(err, "[providerUserInfo.Fetch] UserInfo")
	}

	var extra struct {
		Name    string `json:"name"`
		Picture string `json:"picture"`
		Aud     string `json:"aud"`
	}
	_ = info.Claims(&extra)

	return &ProviderIdentity{
		Subject:  info.Subject,
		Email:    info.Email,
		Name:     extra.Name,
		Picture:  extra.Picture,
		Audience: extra.Aud,
	}, nil
}

// OIDCStrategy verifies a pre-obtained third-party access token by resolving
// the provider's profile for it, then looks up or provisions the matching
// account. Token exchange only; authorization-code flows stay with the
// client.
type OIDCStrategy struct {
	store     accounts.Store
	provider  string
	userInfo  UserInfoFetcher
	clientIDs []string
}

// OIDCOption defines a function type to modify the OIDCStrategy instance.
type OIDCOption func(*OIDCStrategy)

// WithAllowedClientIDs restricts accepted tokens to those issued to one of
// the given client ids.
func WithAllowedClientIDs(ids ...string) OIDCOption {
	return func(o *OIDCStrategy) {
		o.clientIDs = ids
	}
}

// NewOIDCStrategy creates a third-party login strategy. provider tags the
// external identity on provisioned accounts (e.g. "google").
func NewOIDCStrategy(store accounts.Store, provider string, userInfo UserInfoFetcher, options ...OIDCOption) *OIDCStrategy {
	s := &OIDCStrategy{
		store:    store,
		provider: provider,
		userInfo: userInfo,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// SupportsRefresh marks the strategy refresh-capable.
func (o *OIDCStrategy) SupportsRefresh() {}

type oidcCredentials struct {
	AccessToken string `json:"access_token"`
	AccessType  string `json:"access_type"`
}

// Verify resolves the provider identity for the presented token and maps it
// to an account, auto-provisioning when the store supports registration.
func (o *OIDCStrategy) Verify(ctx context.Context, r *http.Request) (*Outcome, error) {
	var creds oidcCredentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.AccessToken == "" {
		return nil, errors.New("[OIDCStrategy.Verify] access_token required")
	}

	identity, err := o.userInfo.Fetch(ctx, creds.AccessToken)
	if err != nil {
		return nil, errors.Wrap(err, "[OIDCStrategy.Verify] Fetch")
	}
	if len(o.clientIDs) > 0 && !contains(o.clientIDs, identity.Audience) {
		return nil, errors.New("[OIDCStrategy.Verify] token issued to unknown client")
	}

	account, err := o.store.LookupAccount(ctx, accounts.Query{
		Provider:   o.provider,
		ProviderID: identity.Subject,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[OIDCStrategy.Verify] LookupAccount")
	}

	if account == nil {
		account, err = o.register(ctx, identity)
		if err != nil {
			return nil, err
		}
		return &Outcome{Account: account, AccessType: creds.AccessType}, nil
	}

	if o.syncProfile(account, identity) {
		if err := o.store.Save(ctx, account); err != nil {
			return nil, errors.Wrap(err, "[OIDCStrategy.Verify] Save")
		}
	}

	return &Outcome{Account: account, AccessType: creds.AccessType}, nil
}

func (o *OIDCStrategy) register(ctx context.Context, identity *ProviderIdentity) (*accounts.Account, error) {
	registrar, ok := o.store.(accounts.Registrar)
	if !ok {
		return nil, errors.New("[OIDCStrategy.register] provisioning unknown accounts requires a Registrar store")
	}
	account, err := registrar.RegisterExternalAccount(ctx, accounts.External{
		Provider:   o.provider,
		ProviderID: identity.Subject,
		Name:       identity.Name,
		Email:      identity.Email,
		Picture:    identity.Picture,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[OIDCStrategy.register] RegisterExternalAccount")
	}
	log.Info().Str("provider", o.provider).Str("account", account.ID).Msg("registered external account")
	return account, nil
}

// syncProfile updates provider-sourced profile fields, reporting whether
// anything changed.
func (o *OIDCStrategy) syncProfile(account *accounts.Account, identity *ProviderIdentity) bool {
	changed := false
	if account.External.Name != identity.Name {
		account.External.Name = identity.Name
		changed = true
	}
	if account.External.Email != identity.Email {
		account.External.Email = identity.Email
		changed = true
	}
	if account.External.Picture != identity.Picture {
		account.External.Picture = identity.Picture
		changed = true
	}
	return changed
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
