package attendee_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventsphere/internal/attendee"
	"eventsphere/internal/auth"
	"eventsphere/internal/logger"
	"eventsphere/internal/models"
	"eventsphere/internal/utils"
)

type Handler struct {
	AttendeeService *attendee.Service
	Logger          *logger.Logger
}

func NewHandler(svc *attendee.Service, log *logger.Logger) *Handler {
	return &Handler{AttendeeService: svc, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router, tokens *auth.Tokens) {
	r.Route("/attendees", func(r chi.Router) {
		r.Use(auth.Middleware(tokens))
		r.Post("/register", h.Register)
		r.Post("/register-session", h.RegisterSession)
		r.Get("/me", h.Me)
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.AttendeeRegisterRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	reg, err := h.AttendeeService.Register(r.Context(), req, auth.ActorFrom(r.Context()))
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("RegisterAttendee: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Registered for expo", reg)
}

func (h *Handler) RegisterSession(w http.ResponseWriter, r *http.Request) {
	var req models.SessionRegisterRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	sr, err := h.AttendeeService.RegisterSession(r.Context(), req, auth.ActorFrom(r.Context()))
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("RegisterSession: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Registered for session", sr)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	overview, err := h.AttendeeService.Overview(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d registrations", len(overview.Registrations)), overview)
}
