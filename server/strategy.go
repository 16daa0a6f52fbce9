package server

import (
	"context"
	"net/http"

	"github.com/stonevalleypartners/auth-library/accounts"
)

// Outcome reports a successful verification attempt.
type Outcome struct {
	Account *accounts.Account

	// AccessType is the client-requested access type; "offline" asks for a
	// refresh token alongside the access token.
	AccessType string
}

// Strategy verifies a credential presented to POST /auth/<name>/verify.
// Implementations perform arbitrary external checks (password comparison,
// third-party token introspection) and return the matched account. A nil
// Outcome or any non-RequestError error is treated as an identity failure
// and answered with a generic unauthorized response.
type Strategy interface {
	Verify(ctx context.Context, r *http.Request) (*Outcome, error)
}

// RefreshCapable marks strategies whose mount also exposes the refresh
// endpoint. Its presence on a strategy is what registers /auth/<name>/token.
type RefreshCapable interface {
	Strategy
	SupportsRefresh()
}

// RequestError reports a structurally malformed login request. Unlike
// identity failures it is surfaced with its own status and message.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string { return e.Message }
