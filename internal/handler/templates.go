package handler

import (
	"net/http"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/session"
	"github.com/gorilla/mux"
)

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.service.ListTemplates(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if templates == nil {
		templates = []entity.Template{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	template := new(entity.Template)
	if err := decode(r, template); err != nil {
		h.fail(w, r, err)
		return
	}

	created, err := h.service.CreateTemplate(r.Context(), session.FromContext(r.Context()), template)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// UseTemplate copies a template into a new survey owned by the caller
func (h *Handler) UseTemplate(w http.ResponseWriter, r *http.Request) {
	survey, err := h.service.UseTemplate(r.Context(), session.FromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, survey)
}
