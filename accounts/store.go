package accounts

import "context"

// Query selects an account by exactly one of its lookup keys: internal id,
// email, or a linked external identity (Provider + ProviderID).
type Query struct {
	ID         string
	Email      string
	Provider   string
	ProviderID string
}

// Store is the persistence collaborator implemented by the host application.
// LookupAccount returns (nil, nil) when no account matches the query.
type Store interface {
	LookupAccount(ctx context.Context, q Query) (*Account, error)

	// UpdateRefreshTokens persists a mutation of the account's retained
	// refresh-token set.
	UpdateRefreshTokens(ctx context.Context, account *Account) error

	// Save persists profile-level changes to an existing account.
	Save(ctx context.Context, account *Account) error
}

// Registrar is an optional Store capability, required only when third-party
// logins must auto-provision unknown accounts.
type Registrar interface {
	RegisterExternalAccount(ctx context.Context, ext External) (*Account, error)
}
