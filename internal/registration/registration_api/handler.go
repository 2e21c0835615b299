package registration_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventsphere/internal/auth"
	"eventsphere/internal/logger"
	"eventsphere/internal/models"
	"eventsphere/internal/registration"
	"eventsphere/internal/utils"
)

type Handler struct {
	RegistrationService *registration.Service
	Logger              *logger.Logger
}

func NewHandler(svc *registration.Service, log *logger.Logger) *Handler {
	return &Handler{RegistrationService: svc, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router, tokens *auth.Tokens) {
	r.Route("/exhibitors", func(r chi.Router) {
		r.Get("/search", h.Search)
		r.With(auth.OptionalMiddleware(tokens)).Get("/profile/{id}", h.Profile)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(tokens))
			r.Post("/register", h.Submit)
			r.Get("/expo/{expoId}", h.ListByExpo)
			r.Get("/my-registrations", h.ListMine)
			r.Put("/registration/{id}", h.UpdateOwn)
			r.Put("/{id}/status", h.Review)
			r.Put("/{id}/assign-booth", h.AssignBooth)
		})
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
	utils.WriteError(w, err)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitRegistrationRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.fail(w, "SubmitRegistration", err)
		return
	}
	reg, err := h.RegistrationService.Submit(r.Context(), req, auth.ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, "SubmitRegistration", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Registration submitted", reg)
}

func (h *Handler) ListByExpo(w http.ResponseWriter, r *http.Request) {
	regs, err := h.RegistrationService.ListByExpo(r.Context(), chi.URLParam(r, "expoId"),
		r.URL.Query().Get("status"), auth.ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, "ListRegistrations", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d registrations", len(regs)), regs)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	regs, err := h.RegistrationService.ListMine(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, "MyRegistrations", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d registrations", len(regs)), regs)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	regs, err := h.RegistrationService.Search(r.Context(), models.SearchFilter{
		ExpoID:   q.Get("expo"),
		Category: q.Get("category"),
		Text:     q.Get("search"),
	})
	if err != nil {
		h.fail(w, "SearchExhibitors", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d exhibitors", len(regs)), regs)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	reg, err := h.RegistrationService.Get(r.Context(), chi.URLParam(r, "id"), auth.ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, "ExhibitorProfile", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Exhibitor profile", reg)
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	var req models.ReviewRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.fail(w, "ReviewRegistration", err)
		return
	}
	reg, err := h.RegistrationService.Review(r.Context(), chi.URLParam(r, "id"), req, auth.ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, "ReviewRegistration", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Registration "+reg.Status, reg)
}

func (h *Handler) AssignBooth(w http.ResponseWriter, r *http.Request) {
	var req models.AssignRegistrationBoothRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.fail(w, "AssignBooth", err)
		return
	}
	reg, booth, err := h.RegistrationService.AssignBooth(r.Context(), chi.URLParam(r, "id"), req.BoothID, auth.ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, "AssignBooth", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booth assigned", map[string]interface{}{
		"registration": reg,
		"booth":        booth,
	})
}

func (h *Handler) UpdateOwn(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateRegistrationRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.fail(w, "UpdateRegistration", err)
		return
	}
	reg, err := h.RegistrationService.UpdateOwn(r.Context(), chi.URLParam(r, "id"), req, auth.ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, "UpdateRegistration", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Registration updated", reg)
}
