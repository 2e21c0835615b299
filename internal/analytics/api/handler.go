package analytics_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventsphere/internal/analytics"
	"eventsphere/internal/auth"
	"eventsphere/internal/logger"
	"eventsphere/internal/utils"
)

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, logger *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router, tokens *auth.Tokens) {
	r.Route("/analytics", func(r chi.Router) {
		r.Use(auth.Middleware(tokens))
		r.Get("/expos/{expoId}", h.GetExpoAnalytics)
		r.Get("/expos/{expoId}/attendance", h.GetAttendance)
		r.Get("/expos/{expoId}/session-popularity", h.GetSessionPopularity)
	})
}

func (h *Handler) GetExpoAnalytics(w http.ResponseWriter, r *http.Request) {
	expoID := chi.URLParam(r, "expoId")
	h.Logger.Debug("ANALYTICS", "Computing analytics for expo "+expoID)

	report, err := h.Service.ExpoAnalytics(r.Context(), expoID, auth.ActorFrom(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Expo analytics", report)
}

func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.Attendance(r.Context(), chi.URLParam(r, "expoId"), auth.ActorFrom(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Expo attendance", report)
}

func (h *Handler) GetSessionPopularity(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Service.SessionPopularity(r.Context(), chi.URLParam(r, "expoId"), auth.ActorFrom(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Session popularity", sessions)
}
