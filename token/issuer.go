package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/stonevalleypartners/auth-library/codec"
)

const (
	// DefaultTokenDuration is the access-token lifetime when none is configured.
	DefaultTokenDuration = time.Hour

	// DefaultRefreshIssuer is the iss claim stamped on signed refresh tokens
	// when no issuer name is configured.
	DefaultRefreshIssuer = "authlib"
)

// RefreshFormat selects how refresh tokens are encoded.
type RefreshFormat string

const (
	// RefreshFormatSigned issues refresh tokens as signed claim sets.
	RefreshFormatSigned RefreshFormat = "signed"

	// RefreshFormatOpaque issues refresh tokens as codec-encrypted blobs
	// carrying the account id and issuance time. Symmetric regime only.
	RefreshFormatOpaque RefreshFormat = "opaque"
)

// AccessTokenResponse is the issuance result returned to clients.
type AccessTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ID           string `json:"id"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Issuer mints and verifies signed, time-bounded claim sets. Key material is
// immutable after construction and safe to share across concurrent requests.
type Issuer struct {
	signer          Signer
	alg             string
	codec           *codec.Codec
	tokenDuration   time.Duration
	refreshDuration time.Duration
	refreshFormat   RefreshFormat
	issuerName      string
	nowFunc         func() time.Time
}

// IssuerOption defines a function type to modify the Issuer instance.
type IssuerOption func(*Issuer)

// WithTokenDuration bounds access-token lifetime.
func WithTokenDuration(d time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.tokenDuration = d
	}
}

// WithRefreshDuration bounds refresh-token lifetime. Zero leaves refresh
// tokens unbounded.
func WithRefreshDuration(d time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.refreshDuration = d
	}
}

// WithRefreshFormat selects signed or opaque refresh tokens.
func WithRefreshFormat(f RefreshFormat) IssuerOption {
	return func(i *Issuer) {
		i.refreshFormat = f
	}
}

// WithIssuerName stamps iss on minted claims when not already present.
func WithIssuerName(name string) IssuerOption {
	return func(i *Issuer) {
		i.issuerName = name
	}
}

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

// NewIssuer validates cfg, builds its signer, and returns a ready Issuer.
// Missing key material fails fast with ErrConfiguration.
func NewIssuer(cfg SigningConfig, options ...IssuerOption) (*Issuer, error) {
	if cfg == nil {
		return nil, errors.Wrap(ErrConfiguration, "signing configuration required")
	}
	signer, err := cfg.NewSigner()
	if err != nil {
		return nil, err
	}

	issuer := &Issuer{
		signer:        signer,
		alg:           cfg.Algorithm(),
		tokenDuration: DefaultTokenDuration,
		refreshFormat: RefreshFormatSigned,
		nowFunc:       time.Now,
	}
	for _, opt := range options {
		opt(issuer)
	}

	if sym, ok := cfg.(SymmetricConfig); ok {
		issuer.codec, err = codec.New(sym.Secret)
		if err != nil {
			return nil, errors.Wrap(ErrConfiguration, err.Error())
		}
	}
	if issuer.refreshFormat == RefreshFormatOpaque && issuer.codec == nil {
		return nil, errors.Wrap(ErrConfiguration, "opaque refresh tokens require a symmetric secret")
	}
	if issuer.tokenDuration <= 0 {
		return nil, errors.Wrap(ErrConfiguration, "token duration must be positive")
	}

	return issuer, nil
}

// Codec returns the symmetric codec, or nil under asymmetric-only
// configuration.
func (i *Issuer) Codec() *codec.Codec { return i.codec }

// Signer exposes the configured signer (for key publication).
func (i *Issuer) Signer() Signer { return i.signer }

// Algorithm returns the configured JWT algorithm name.
func (i *Issuer) Algorithm() string { return i.alg }

// TokenDuration returns the configured access-token lifetime.
func (i *Issuer) TokenDuration() time.Duration { return i.tokenDuration }

// IssueAccessToken mints a bearer access token for accountID. Extra claims
// are merged first; the id, iat, exp, and jti claims always win.
func (i *Issuer) IssueAccessToken(accountID string, extra map[string]any) (*AccessTokenResponse, error) {
	now := i.nowFunc()
	claims := jwt.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}
	if _, ok := claims["iss"]; !ok && i.issuerName != "" {
		claims["iss"] = i.issuerName
	}
	claims["id"] = accountID
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(i.tokenDuration).Unix()
	claims["jti"] = uuid.New().String()

	signed, err := i.signer.Sign(claims)
	if err != nil {
		return nil, errors.Wrap(err, "[Issuer.IssueAccessToken] Sign")
	}

	return &AccessTokenResponse{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int(i.tokenDuration.Seconds()),
		ID:          accountID,
	}, nil
}

// IssueRefreshToken mints a refresh token for accountID under the configured
// format. Signed refresh tokens carry no exp unless a refresh duration is
// configured; opaque tokens encode the account id and issuance time. Every
// minted token carries a unique jti so tokens issued within the same clock
// tick remain distinct members of the retained set.
func (i *Issuer) IssueRefreshToken(accountID string, extra map[string]any) (string, error) {
	now := i.nowFunc()

	if i.refreshFormat == RefreshFormatOpaque {
		encrypted, err := i.codec.Encrypt(map[string]any{
			"id":  accountID,
			"iat": now.UnixMilli(),
			"jti": uuid.New().String(),
		})
		if err != nil {
			return "", errors.Wrap(err, "[Issuer.IssueRefreshToken] Encrypt")
		}
		return encrypted, nil
	}

	claims := jwt.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}
	if _, ok := claims["iss"]; !ok {
		name := i.issuerName
		if name == "" {
			name = DefaultRefreshIssuer
		}
		claims["iss"] = name
	}
	claims["id"] = accountID
	claims["iat"] = now.Unix()
	claims["jti"] = uuid.New().String()
	if i.refreshDuration > 0 {
		claims["exp"] = now.Add(i.refreshDuration).Unix()
	}

	signed, err := i.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Issuer.IssueRefreshToken] Sign")
	}
	return signed, nil
}

// Verify parses and validates raw against the configured algorithm and key
// material. Expiry is enforced at verify time against the issuer clock; a
// token at or past its expiry fails. Tokens signed under any other algorithm
// are rejected regardless of key validity.
func (i *Issuer) Verify(raw string) (jwt.MapClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{i.alg}),
		jwt.WithTimeFunc(i.nowFunc),
	)
	parsed, err := parser.Parse(raw, i.signer.GetVerificationKey)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidToken, "parse: %v", err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.Wrap(ErrInvalidToken, "unexpected claims type")
	}
	return claims, nil
}

// DecodeRefreshToken recovers the account id from a presented refresh token
// under the configured format.
func (i *Issuer) DecodeRefreshToken(raw string) (string, error) {
	if i.refreshFormat == RefreshFormatOpaque {
		obj, err := i.codec.Decrypt(raw)
		if err != nil {
			return "", errors.Wrapf(ErrInvalidToken, "decrypt: %v", err)
		}
		id, _ := obj["id"].(string)
		if id == "" {
			return "", errors.Wrap(ErrInvalidToken, "missing id")
		}
		return id, nil
	}

	claims, err := i.Verify(raw)
	if err != nil {
		return "", err
	}
	id, _ := claims["id"].(string)
	if id == "" {
		return "", errors.Wrap(ErrInvalidToken, "missing id claim")
	}
	return id, nil
}
