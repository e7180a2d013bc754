package handler

import (
	"net/http"

	"github.com/go-anon-inbox/internal/application/inbox"
	"github.com/go-anon-inbox/internal/application/message"
	"github.com/go-anon-inbox/internal/domain"
	"github.com/go-chi/chi/v5"
)

// MessageHandler serves anonymous submission and the owner's inbox.
type MessageHandler struct {
	inbox    inbox.Service
	messages message.Service
}

func NewMessageHandler(inbox inbox.Service, messages message.Service) *MessageHandler {
	return &MessageHandler{inbox: inbox, messages: messages}
}

// Send is public: the sender is never recorded.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.AcceptMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := h.inbox.AcceptMessage(r.Context(), chi.URLParam(r, "handle"), req.Content)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, InboxMessageEnvelope{Data: msg})
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	msgs, err := h.messages.ListMessages(r.Context(), p, chi.URLParam(r, "handle"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageListEnvelope{Data: msgs, Count: len(msgs)})
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	err := h.messages.DeleteMessage(r.Context(), p, chi.URLParam(r, "handle"), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "message deleted"})
}

func (h *MessageHandler) Export(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	res, err := h.messages.Export(r.Context(), p, chi.URLParam(r, "handle"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
