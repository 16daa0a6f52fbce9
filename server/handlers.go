package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/stonevalleypartners/auth-library/accounts"
)

const contentTypeJSON = "application/json; charset=utf-8"

func (s *Server) verifyHandler(strategy Strategy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, err := strategy.Verify(r.Context(), r)
		if err != nil {
			var reqErr *RequestError
			if errors.As(err, &reqErr) {
				writeJSON(w, reqErr.Status, map[string]string{"message": reqErr.Message})
				return
			}
			log.Info().Err(err).Msg("verify failed")
			unauthorized(w)
			return
		}
		if outcome == nil || outcome.Account == nil {
			unauthorized(w)
			return
		}
		s.issueAndRespond(r.Context(), w, outcome)
	}
}

// issueAndRespond mints the access token (and, for offline access, a refresh
// token) for a verified account and writes the issuance response.
func (s *Server) issueAndRespond(ctx context.Context, w http.ResponseWriter, outcome *Outcome) {
	account := outcome.Account

	resp, err := s.issuer.IssueAccessToken(account.ID, s.extendedClaims(account))
	if err != nil {
		log.Error().Err(err).Str("account", account.ID).Msg("issue access token failed")
		unauthorized(w)
		return
	}

	if outcome.AccessType == "offline" && s.refresh.Enabled() {
		refreshToken, err := s.refresh.Issue(ctx, account)
		if err != nil {
			log.Error().Err(err).Str("account", account.ID).Msg("issue refresh token failed")
			unauthorized(w)
			return
		}
		resp.RefreshToken = refreshToken
	}

	writeJSON(w, http.StatusOK, resp)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	GrantType    string `json:"grant_type"`
}

func (s *Server) refreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing token"})
			return
		}
		if req.GrantType != "" && req.GrantType != "refresh_token" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "unsupported grant type"})
			return
		}

		resp, err := s.refresh.Redeem(r.Context(), req.RefreshToken)
		if err != nil {
			// All redemption failures collapse into one response; the root
			// cause stays in the server log.
			log.Info().Err(err).Msg("refresh token redemption failed")
			unauthorized(w)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) extendedClaims(account *accounts.Account) map[string]any {
	if s.config.ExtendedClaims == nil {
		return nil
	}
	return s.config.ExtendedClaims(account)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
}
