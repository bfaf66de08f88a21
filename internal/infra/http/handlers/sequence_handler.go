package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/homelistingai/leadflow/internal/infra/auth"
	"github.com/homelistingai/leadflow/internal/usecase"
)

type SequenceHandler struct {
	ctrl *usecase.LifecycleController
	log  logrus.FieldLogger
}

func NewSequenceHandler(ctrl *usecase.LifecycleController, log logrus.FieldLogger) *SequenceHandler {
	return &SequenceHandler{ctrl: ctrl, log: log}
}

func (h *SequenceHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Put("/{id}/active", h.SetActive)
	r.Get("/{id}/analytics", h.Analytics)
	r.Put("/{id}/analytics", h.RefreshAnalytics)
}

func (h *SequenceHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Data: h.ctrl.ListSequences(r.Context(), auth.TenantFromContext(r.Context()))})
}

func (h *SequenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	seq, err := h.ctrl.GetSequence(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: seq})
}

func (h *SequenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in usecase.SequenceInput
	if !decodeBody(w, r, &in) {
		return
	}
	seq, err := h.ctrl.CreateSequence(r.Context(), auth.TenantFromContext(r.Context()), in)
	writeResult(w, h.log, http.StatusCreated, seq, err)
}

func (h *SequenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in usecase.SequenceInput
	if !decodeBody(w, r, &in) {
		return
	}
	seq, err := h.ctrl.UpdateSequence(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"), in)
	writeResult(w, h.log, http.StatusOK, seq, err)
}

func (h *SequenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.ctrl.DeleteSequence(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"))
	if err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeResult(w, h.log, http.StatusOK, nil, err)
}

func (h *SequenceHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Active bool `json:"active"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	seq, err := h.ctrl.SetSequenceActive(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"), in.Active)
	writeResult(w, h.log, http.StatusOK, seq, err)
}

func (h *SequenceHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	out, err := h.ctrl.SequenceAnalytics(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: out})
}

func (h *SequenceHandler) RefreshAnalytics(w http.ResponseWriter, r *http.Request) {
	var in usecase.AnalyticsInput
	if !decodeBody(w, r, &in) {
		return
	}
	seq, err := h.ctrl.RefreshAnalytics(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"), in)
	writeResult(w, h.log, http.StatusOK, seq, err)
}
