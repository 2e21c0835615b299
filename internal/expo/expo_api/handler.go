package expo_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventsphere/internal/auth"
	"eventsphere/internal/expo"
	"eventsphere/internal/logger"
	"eventsphere/internal/models"
	"eventsphere/internal/utils"
)

type Handler struct {
	ExpoService *expo.Service
	Logger      *logger.Logger
}

func NewHandler(svc *expo.Service, log *logger.Logger) *Handler {
	return &Handler{ExpoService: svc, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router, tokens *auth.Tokens) {
	r.Route("/expos", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(tokens))
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	expos, err := h.ExpoService.List(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d expos", len(expos)), expos)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.ExpoService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Expo found", e)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateExpoRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	e, err := h.ExpoService.Create(r.Context(), req, auth.ActorFrom(r.Context()))
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateExpo: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Expo created", e)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateExpoRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	e, err := h.ExpoService.Update(r.Context(), chi.URLParam(r, "id"), req, auth.ActorFrom(r.Context()))
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("UpdateExpo: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Expo updated", e)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.ExpoService.Delete(r.Context(), chi.URLParam(r, "id"), auth.ActorFrom(r.Context())); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("DeleteExpo: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Expo deleted", nil)
}
