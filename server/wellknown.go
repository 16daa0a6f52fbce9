package server

import (
	"encoding/json"
	"net/http"

	"github.com/stonevalleypartners/auth-library/token"
)

// wellKnownHandler serves the OIDC-style discovery document for a strategy
// mount. Registered only under asymmetric signing: relying parties follow
// jwks_uri to verify tokens without trusting this service at request time.
func (s *Server) wellKnownHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		base := getScheme(r) + "://" + r.Host + "/auth/" + name
		issuer := s.config.Issuer
		if issuer == "" {
			issuer = base
		}

		resp := map[string]any{
			"issuer":         issuer,
			"token_endpoint": base + "/token",
			"jwks_uri":       base + "/.well-known/jwks.json",

			"id_token_signing_alg_values_supported": []string{token.AlgRS256},
			"token_endpoint_auth_methods_supported": []string{"none"},
			"grant_types_supported":                 []string{"refresh_token"},
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// jwksHandler publishes the verification key set. No private key material
// crosses this path.
func (s *Server) jwksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		signer, ok := s.issuer.Signer().(*token.KeyPairSigner)
		if !ok {
			// Route is only registered under asymmetric signing.
			http.Error(w, "key set unavailable", http.StatusInternalServerError)
			return
		}
		jwks, err := signer.GetJWKS()
		if err != nil {
			http.Error(w, "failed to build key set", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		_ = json.NewEncoder(w).Encode(jwks)
	}
}
