package token

import (
	"crypto/rsa"

	"github.com/pkg/errors"
)

// SigningConfig selects the active signing regime. Exactly one variant is
// active per configured instance; the variant determines which key material
// is required, checked when the signer is built.
type SigningConfig interface {
	// Algorithm returns the JWT algorithm name this configuration produces.
	Algorithm() string

	// NewSigner validates the configuration and builds its signer. Missing
	// key material fails with ErrConfiguration.
	NewSigner() (Signer, error)
}

// SymmetricConfig signs and verifies with a single shared secret (HS256).
// The secret also backs the opaque-object codec.
type SymmetricConfig struct {
	Secret string
}

func (c SymmetricConfig) Algorithm() string { return AlgHS256 }

func (c SymmetricConfig) NewSigner() (Signer, error) {
	if c.Secret == "" {
		return nil, errors.Wrap(ErrConfiguration, "secret required for HS256")
	}
	return NewHMACSigner(c.Secret), nil
}

// AsymmetricConfig signs with a private RSA key and verifies with the paired
// public key (RS256). KeyID is derived from the public key when empty.
type AsymmetricConfig struct {
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
	KeyID      string
}

func (c AsymmetricConfig) Algorithm() string { return AlgRS256 }

func (c AsymmetricConfig) NewSigner() (Signer, error) {
	if c.PrivateKey == nil || c.PublicKey == nil {
		return nil, errors.Wrap(ErrConfiguration, "key pair required for RS256")
	}
	keyID := c.KeyID
	if keyID == "" {
		derived, err := DeriveKeyID(c.PublicKey)
		if err != nil {
			return nil, errors.Wrap(ErrConfiguration, err.Error())
		}
		keyID = derived
	}
	return NewKeyPairSigner(&KeyPair{
		KeyID:      keyID,
		PrivateKey: c.PrivateKey,
		PublicKey:  c.PublicKey,
	}), nil
}
