package rest

import (
	"net/http"

	"github.com/dmitrijs2005/lockbox/internal/server/services"
)

type requestCodeRequest struct {
	Email string `json:"email"`
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	tokenResponse
}

type identityResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func (s *Server) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	var req requestCodeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.auth.RequestCode(r.Context(), req.Email); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "code sent"})
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if !decode(w, r, &req) {
		return
	}
	// per-address budget, independent of the caller's IP
	if email, err := services.NormalizeEmail(req.Email); err == nil && !s.verifyLimit.allow(email) {
		tooManyRequests(w)
		return
	}
	sess, err := s.auth.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		UserID: sess.UserID,
		Email:  sess.Email,
		tokenResponse: tokenResponse{
			AccessToken:  sess.AccessToken,
			RefreshToken: sess.RefreshToken,
		},
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}
	pair, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	writeJSON(w, http.StatusOK, identityResponse{UserID: id.UserID, Email: id.Email})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	if err := s.auth.Logout(r.Context(), id.UserID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
