package message_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventsphere/internal/auth"
	"eventsphere/internal/logger"
	"eventsphere/internal/message"
	"eventsphere/internal/models"
	"eventsphere/internal/utils"
)

type Handler struct {
	MessageService *message.Service
	Logger         *logger.Logger
}

func NewHandler(svc *message.Service, log *logger.Logger) *Handler {
	return &Handler{MessageService: svc, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router, tokens *auth.Tokens) {
	r.Route("/messages", func(r chi.Router) {
		r.Use(auth.Middleware(tokens))
		r.Post("/", h.Send)
		r.Get("/", h.List)
		r.Put("/{id}/read", h.MarkRead)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	msg, err := h.MessageService.Send(r.Context(), req, auth.ActorFrom(r.Context()))
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("SendMessage: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Message sent", msg)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.MessageService.List(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d messages", len(msgs)), msgs)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	msg, err := h.MessageService.MarkRead(r.Context(), chi.URLParam(r, "id"), auth.ActorFrom(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Message marked as read", msg)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.MessageService.Delete(r.Context(), chi.URLParam(r, "id"), auth.ActorFrom(r.Context())); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Message deleted", nil)
}
