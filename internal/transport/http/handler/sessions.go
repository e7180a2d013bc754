package handler

import (
	"net/http"

	"github.com/go-anon-inbox/internal/application/session"
	"github.com/go-anon-inbox/internal/domain"
	"github.com/go-anon-inbox/internal/transport/http/middleware"
)

// SessionHandler handles session endpoints.
type SessionHandler struct {
	svc session.Service
}

func NewSessionHandler(svc session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Token: res.Token, ExpiresAt: res.ExpiresAt, Account: res.Account})
}

func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{Principal: p})
}

// principal reads the caller set by the auth middleware and answers 401 when
// the route was mounted without it.
func principal(w http.ResponseWriter, r *http.Request) (*domain.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, domain.ErrInvalidSession.Code, domain.ErrInvalidSession.Msg)
	}
	return p, ok
}
