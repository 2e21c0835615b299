package booth_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventsphere/internal/auth"
	"eventsphere/internal/booth"
	"eventsphere/internal/logger"
	"eventsphere/internal/models"
	"eventsphere/internal/utils"
)

type Handler struct {
	BoothService *booth.Service
	Logger       *logger.Logger
}

func NewHandler(svc *booth.Service, log *logger.Logger) *Handler {
	return &Handler{BoothService: svc, Logger: log}
}

// RegisterRoutes mounts /booths. Reads are public; everything else needs a token.
func (h *Handler) RegisterRoutes(r chi.Router, tokens *auth.Tokens) {
	r.Route("/booths", func(r chi.Router) {
		r.Get("/expo/{expoId}", h.ListByExpo)
		r.With(auth.Middleware(tokens)).Get("/mine", h.ListMine)
		r.Get("/{id}", h.GetBooth)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(tokens))
			r.Post("/", h.CreateBooth)
			r.Post("/{id}/reserve", h.Reserve)
			r.Put("/{id}/assign", h.Assign)
			r.Put("/{id}/release", h.Release)
			r.Put("/{id}/maintenance", h.SetMaintenance)
			r.Put("/{id}", h.UpdateDetails)
		})
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
	utils.WriteError(w, err)
}

func (h *Handler) CreateBooth(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBoothRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.fail(w, "CreateBooth", err)
		return
	}
	b, err := h.BoothService.Create(r.Context(), req, auth.ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, "CreateBooth", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Booth created", b)
}

func (h *Handler) ListByExpo(w http.ResponseWriter, r *http.Request) {
	booths, err := h.BoothService.ListByExpo(r.Context(), chi.URLParam(r, "expoId"))
	if err != nil {
		h.fail(w, "ListByExpo", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d booths", len(booths)), booths)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	booths, err := h.BoothService.ListMine(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, "ListMine", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d booths", len(booths)), booths)
}

func (h *Handler) GetBooth(w http.ResponseWriter, r *http.Request) {
	b, err := h.BoothService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "GetBooth", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booth found", b)
}

func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	b, err := h.BoothService.Reserve(r.Context(), chi.URLParam(r, "id"), auth.ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, "Reserve", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booth reserved", b)
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req models.AssignBoothRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.fail(w, "Assign", err)
		return
	}
	b, err := h.BoothService.Assign(r.Context(), chi.URLParam(r, "id"), req.ExhibitorID, auth.ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, "Assign", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booth assigned", b)
}

func (h *Handler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	var req models.BoothDetails
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.fail(w, "UpdateDetails", err)
		return
	}
	b, err := h.BoothService.UpdateDetails(r.Context(), chi.URLParam(r, "id"), req, auth.ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, "UpdateDetails", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booth updated", b)
}

func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	b, err := h.BoothService.Release(r.Context(), chi.URLParam(r, "id"), auth.ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, "Release", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booth released", b)
}

func (h *Handler) SetMaintenance(w http.ResponseWriter, r *http.Request) {
	b, err := h.BoothService.SetMaintenance(r.Context(), chi.URLParam(r, "id"), auth.ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, "SetMaintenance", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booth under maintenance", b)
}
