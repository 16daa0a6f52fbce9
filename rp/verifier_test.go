package rp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/stonevalleypartners/auth-library/rp"
	"github.com/stonevalleypartners/auth-library/token"
)

type testFixture struct {
	issuer  *token.Issuer
	jwksURL string
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	keyPair, err := token.GenerateRSAKeyPair(2048)
	require.NoError(t, err)
	issuer, err := token.NewIssuer(token.AsymmetricConfig{
		PrivateKey: keyPair.PrivateKey,
		PublicKey:  keyPair.PublicKey,
	}, token.WithIssuerName("com.example.auth"))
	require.NoError(t, err)

	signer, ok := issuer.Signer().(*token.KeyPairSigner)
	require.True(t, ok)
	jwks, err := signer.GetJWKS()
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /jwks.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &testFixture{issuer: issuer, jwksURL: srv.URL + "/jwks.json"}
}

func TestVerifyAcceptsIssuedToken(t *testing.T) {
	f := setupTestFixture(t)

	verifier, err := rp.New(context.Background(), f.jwksURL)
	require.NoError(t, err)

	resp, err := f.issuer.IssueAccessToken("u1", map[string]any{"role": "admin"})
	require.NoError(t, err)

	claims, err := verifier.Verify(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "u1", claims["id"])
	require.Equal(t, "admin", claims["role"])
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	f := setupTestFixture(t)
	foreign := setupTestFixture(t)

	verifier, err := rp.New(context.Background(), f.jwksURL)
	require.NoError(t, err)

	resp, err := foreign.issuer.IssueAccessToken("u1", nil)
	require.NoError(t, err)

	_, err = verifier.Verify(resp.AccessToken)
	require.ErrorIs(t, err, rp.ErrUnauthorized)
}

func TestVerifyRejectsSymmetricToken(t *testing.T) {
	f := setupTestFixture(t)

	verifier, err := rp.New(context.Background(), f.jwksURL)
	require.NoError(t, err)

	crafted := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := crafted.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.ErrorIs(t, err, rp.ErrUnauthorized)
}

func TestVerifyIssuerPinning(t *testing.T) {
	f := setupTestFixture(t)

	verifier, err := rp.New(context.Background(), f.jwksURL, rp.WithIssuer("com.example.auth"))
	require.NoError(t, err)
	strict, err := rp.New(context.Background(), f.jwksURL, rp.WithIssuer("com.other.auth"))
	require.NoError(t, err)

	resp, err := f.issuer.IssueAccessToken("u1", nil)
	require.NoError(t, err)

	_, err = verifier.Verify(resp.AccessToken)
	require.NoError(t, err)
	_, err = strict.Verify(resp.AccessToken)
	require.ErrorIs(t, err, rp.ErrUnauthorized)
}

func TestNewRequiresJWKSURI(t *testing.T) {
	_, err := rp.New(context.Background(), "")
	require.Error(t, err)
}
