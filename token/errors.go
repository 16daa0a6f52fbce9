package token

import "errors"

var (
	// ErrConfiguration reports missing or inconsistent key material at
	// construction time. It is never recovered; construction fails fast.
	ErrConfiguration = errors.New("invalid signing configuration")

	// ErrInvalidToken reports a malformed, forged, expired, or
	// algorithm-mismatched token at verification time.
	ErrInvalidToken = errors.New("invalid token")
)
