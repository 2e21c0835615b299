package schedule_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventsphere/internal/auth"
	"eventsphere/internal/logger"
	"eventsphere/internal/models"
	"eventsphere/internal/schedule"
	"eventsphere/internal/utils"
)

type Handler struct {
	ScheduleService *schedule.Service
	Logger          *logger.Logger
}

func NewHandler(svc *schedule.Service, log *logger.Logger) *Handler {
	return &Handler{ScheduleService: svc, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router, tokens *auth.Tokens) {
	r.Route("/schedules", func(r chi.Router) {
		r.Get("/expo/{expoId}", h.GetByExpo)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(tokens))
			r.Post("/", h.Create)
			r.Get("/bookmarks", h.ListBookmarks)
			r.Post("/{id}/sessions", h.AddSession)
			r.Put("/{id}/sessions/{sessionId}", h.UpdateSession)
			r.Delete("/{id}/sessions/{sessionId}", h.RemoveSession)
			r.Post("/{id}/sessions/{sessionId}/bookmark", h.Bookmark)
			r.Delete("/{id}/sessions/{sessionId}/bookmark", h.Unbookmark)
		})
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateScheduleRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	sched, err := h.ScheduleService.Create(r.Context(), req, auth.ActorFrom(r.Context()))
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateSchedule: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Schedule created", sched)
}

func (h *Handler) GetByExpo(w http.ResponseWriter, r *http.Request) {
	sched, err := h.ScheduleService.GetByExpo(r.Context(), chi.URLParam(r, "expoId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Schedule found", sched)
}

func (h *Handler) AddSession(w http.ResponseWriter, r *http.Request) {
	var req models.SessionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	session, err := h.ScheduleService.AddSession(r.Context(), chi.URLParam(r, "id"), req, auth.ActorFrom(r.Context()))
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("AddSession: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Session added", session)
}

func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var req models.SessionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	session, err := h.ScheduleService.UpdateSession(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "sessionId"), req, auth.ActorFrom(r.Context()))
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("UpdateSession: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Session updated", session)
}

func (h *Handler) RemoveSession(w http.ResponseWriter, r *http.Request) {
	err := h.ScheduleService.RemoveSession(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "sessionId"), auth.ActorFrom(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Session removed", nil)
}

func (h *Handler) Bookmark(w http.ResponseWriter, r *http.Request) {
	err := h.ScheduleService.Bookmark(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "sessionId"), auth.ActorFrom(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Session bookmarked", nil)
}

func (h *Handler) Unbookmark(w http.ResponseWriter, r *http.Request) {
	err := h.ScheduleService.Unbookmark(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "sessionId"), auth.ActorFrom(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Bookmark removed", nil)
}

func (h *Handler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	marks, err := h.ScheduleService.ListBookmarks(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d bookmarks", len(marks)), marks)
}
