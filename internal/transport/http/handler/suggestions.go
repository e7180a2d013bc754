package handler

import (
	"net/http"

	"github.com/go-anon-inbox/internal/application/suggestion"
)

type SuggestionHandler struct {
	svc suggestion.Service
}

func NewSuggestionHandler(svc suggestion.Service) *SuggestionHandler {
	return &SuggestionHandler{svc: svc}
}

func (h *SuggestionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	qs, err := h.svc.Suggest(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SuggestionsEnvelope{Data: qs})
}
