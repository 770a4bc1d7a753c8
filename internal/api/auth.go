package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/fieldsense/irrigation-core/internal/auth"
)

// loginRequest is the login endpoint's request body.
type loginRequest struct {
	OperatorKey string `json:"operator_key"`
}

// loginResponse is the login endpoint's success response.
type loginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

// handleLogin exchanges the pre-shared operator key for a JWT access token.
//
// POST /api/v1/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if req.OperatorKey == "" ||
		subtle.ConstantTimeCompare([]byte(req.OperatorKey), []byte(s.secCfg.OperatorKey)) != 1 {
		s.logger.Warn("login rejected", "request_id", r.Context().Value(ctxKeyRequestID))
		writeUnauthorized(w, "invalid operator key")
		return
	}

	token, err := auth.GenerateAccessToken("operator", s.secCfg.JWT.Secret, s.secCfg.JWT.AccessTokenTTL)
	if err != nil {
		s.logger.Error("failed to generate access token", "error", err)
		writeInternalError(w, "could not issue token")
		return
	}

	ttl := s.secCfg.JWT.AccessTokenTTL
	if ttl <= 0 {
		ttl = 60
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: ttl * 60,
	})
}
