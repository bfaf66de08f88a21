package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/homelistingai/leadflow/internal/infra/auth"
	"github.com/homelistingai/leadflow/internal/usecase"
)

type FollowUpHandler struct {
	ctrl *usecase.LifecycleController
	log  logrus.FieldLogger
}

func NewFollowUpHandler(ctrl *usecase.LifecycleController, log logrus.FieldLogger) *FollowUpHandler {
	return &FollowUpHandler{ctrl: ctrl, log: log}
}

func (h *FollowUpHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Put("/{id}/status", h.SetStatus)
	r.Post("/{id}/touches", h.LogTouch)
}

func (h *FollowUpHandler) List(w http.ResponseWriter, r *http.Request) {
	followUps, err := h.ctrl.ListFollowUps(r.Context(), auth.TenantFromContext(r.Context()), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: followUps})
}

func (h *FollowUpHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if !decodeBody(w, r, &in) {
		return
	}
	f, err := h.ctrl.SetFollowUpStatus(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"), in.Status)
	writeResult(w, h.log, http.StatusOK, f, err)
}

func (h *FollowUpHandler) LogTouch(w http.ResponseWriter, r *http.Request) {
	var in textRequest
	if !decodeBody(w, r, &in) {
		return
	}
	f, err := h.ctrl.LogManualTouch(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"), in.Note)
	writeResult(w, h.log, http.StatusOK, f, err)
}
