package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/lockbox/internal/common"
)

const maxBodySize = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decode reads a JSON body of at most maxBodySize bytes into v. It writes
// the error response itself and reports whether the handler may go on.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// statusFor maps service errors to a status code and a message that is
// safe to return to the client.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrFormat):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrInvalidOrExpiredOtp):
		return http.StatusUnauthorized, common.ErrInvalidOrExpiredOtp.Error()
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, common.ErrRefreshTokenExpired.Error()
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrAuth):
		return http.StatusUnauthorized, common.ErrAuth.Error()
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, "already exists"
	case errors.Is(err, common.ErrDispatch):
		return http.StatusBadGateway, common.ErrDispatch.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, msg)
}
