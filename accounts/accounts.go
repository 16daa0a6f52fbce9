package accounts

import (
	"golang.org/x/crypto/bcrypt"
)

// External holds profile attributes sourced from a third-party identity
// provider. Provider and ProviderID together identify the linked identity.
type External struct {
	Provider   string `json:"provider,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Picture    string `json:"picture,omitempty"`
}

// Account is the identity record the library operates on. Persistence is
// owned by the host application; the library only reads credential material
// and maintains the bounded refresh-token set.
type Account struct {
	ID           string `json:"id,omitempty"`
	Email        string `json:"email,omitempty"`
	PasswordHash string `json:"-"` // never serialized

	// RefreshTokens is the retained set of currently valid refresh tokens,
	// newest first. Its length never exceeds the configured maximum.
	RefreshTokens []string `json:"-"`

	External External `json:"external,omitempty"`
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// HasRefreshToken reports whether token is a member of the retained set.
func (a *Account) HasRefreshToken(token string) bool {
	for _, t := range a.RefreshTokens {
		if t == token {
			return true
		}
	}
	return false
}
