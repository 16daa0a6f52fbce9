package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/stonevalleypartners/auth-library/accounts"
	"github.com/stonevalleypartners/auth-library/internal/utils"
)

var (
	_ Strategy       = (*LocalStrategy)(nil)
	_ RefreshCapable = (*LocalStrategy)(nil)
)

// LocalStrategy verifies an id-or-email plus password credential against the
// account store.
type LocalStrategy struct {
	store accounts.Store
}

// NewLocalStrategy creates a password-based login strategy backed by store.
func NewLocalStrategy(store accounts.Store) *LocalStrategy {
	return &LocalStrategy{store: store}
}

// SupportsRefresh marks the strategy refresh-capable.
func (l *LocalStrategy) SupportsRefresh() {}

type localCredentials struct {
	ID         any    `json:"id"` // string or number; numeric ids round-trip as their decimal form
	Email      string `json:"email"`
	Password   string `json:"password"`
	AccessType string `json:"access_type"`
}

// Verify resolves the account by id or email and compares the presented
// password against its stored hash.
func (l *LocalStrategy) Verify(ctx context.Context, r *http.Request) (*Outcome, error) {
	var creds localCredentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		return nil, &RequestError{Status: http.StatusBadRequest, Message: "id or email field required"}
	}

	var query accounts.Query
	switch {
	case utils.ToString(creds.ID) != "":
		query.ID = utils.ToString(creds.ID)
	case creds.Email != "":
		query.Email = creds.Email
	default:
		return nil, &RequestError{Status: http.StatusBadRequest, Message: "id or email field required"}
	}

	account, err := l.store.LookupAccount(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "[LocalStrategy.Verify] LookupAccount")
	}
	if account == nil {
		return nil, errors.New("[LocalStrategy.Verify] account not found")
	}
	if !accounts.CheckPasswordHash(creds.Password, account.PasswordHash) {
		return nil, errors.New("[LocalStrategy.Verify] hash compare failed")
	}

	return &Outcome{Account: account, AccessType: creds.AccessType}, nil
}
