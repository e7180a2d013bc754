package handler

import (
	"net/http"

	"github.com/go-anon-inbox/internal/application/account"
	"github.com/go-anon-inbox/internal/application/inbox"
	"github.com/go-anon-inbox/internal/domain"
	"github.com/go-anon-inbox/internal/pkg/validate"
	"github.com/go-chi/chi/v5"
)

// AccountHandler handles signup, verification and the acceptance flag.
type AccountHandler struct {
	accounts account.Service
	inbox    inbox.Service
}

func NewAccountHandler(accounts account.Service, inbox inbox.Service) *AccountHandler {
	return &AccountHandler{accounts: accounts, inbox: inbox}
}

func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.accounts.Signup(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	msg := "account created, check your email for the verification code"
	if !res.Delivery.Sent {
		msg = "account created, but the verification email could not be sent"
	}
	writeJSON(w, http.StatusCreated, AccountEnvelope{
		Data:    res.Account,
		Message: msg,
		Warning: warningFrom(res.Delivery.Err),
	})
}

func (h *AccountHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidInput.Code, err.Error())
		return
	}
	if err := h.accounts.Verify(r.Context(), chi.URLParam(r, "handle"), req.Code); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "account verified"})
}

func (h *AccountHandler) ResendCode(w http.ResponseWriter, r *http.Request) {
	d, err := h.accounts.ResendCode(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountEnvelope{
		Message: "if the account is still pending, a new code has been issued",
		Warning: warningFrom(d.Err),
	})
}

func (h *AccountHandler) Availability(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	ok, err := h.accounts.HandleAvailable(r.Context(), handle)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityEnvelope{Handle: handle, Available: ok})
}

func (h *AccountHandler) GetAccepting(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	flag, err := h.inbox.GetAcceptingStatus(r.Context(), p, chi.URLParam(r, "handle"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AcceptingEnvelope{IsAcceptingMessages: flag})
}

func (h *AccountHandler) SetAccepting(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req domain.SetAcceptingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Flag == nil {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidInput.Code, "flag is required")
		return
	}
	flag, err := h.inbox.SetAcceptingMessages(r.Context(), p, chi.URLParam(r, "handle"), *req.Flag)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AcceptingEnvelope{IsAcceptingMessages: flag})
}
