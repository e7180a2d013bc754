package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-anon-inbox/internal/domain"
)

const maxBodyBytes = 64 << 10

// MessageEnvelope is the generic response wrapper. Error responses carry the
// stable Code alongside the human-readable Error.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Warning reports a non-fatal dependency failure next to a successful result.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AccountEnvelope wraps signup and verification responses.
type AccountEnvelope struct {
	Data    *domain.Account `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Warning *Warning        `json:"warning,omitempty"`
}

// AuthEnvelope wraps login responses.
type AuthEnvelope struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   *domain.Account `json:"account"`
}

// SessionEnvelope wraps the current-session response.
type SessionEnvelope struct {
	Principal *domain.Principal `json:"principal"`
}

type AvailabilityEnvelope struct {
	Handle    string `json:"handle"`
	Available bool   `json:"available"`
}

type AcceptingEnvelope struct {
	IsAcceptingMessages bool `json:"is_accepting_messages"`
}

type InboxMessageEnvelope struct {
	Data *domain.Message `json:"data"`
}

type MessageListEnvelope struct {
	Data  []domain.Message `json:"data"`
	Count int              `json:"count"`
}

type SuggestionsEnvelope struct {
	Data []string `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, Code: code})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidInput.Code, "invalid request body")
		return false
	}
	return true
}

// warningFrom turns a delivery error into a response warning.
func warningFrom(err error) *Warning {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return &Warning{Code: de.Code, Message: de.Msg}
	}
	return &Warning{Code: domain.ErrDeliveryFailed.Code, Message: domain.ErrDeliveryFailed.Msg}
}
