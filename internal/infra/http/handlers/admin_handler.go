package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/homelistingai/leadflow/internal/infra/auth"
	"github.com/homelistingai/leadflow/internal/usecase"
)

// AdminHandler serves the user and QR code collections.
type AdminHandler struct {
	ctrl *usecase.LifecycleController
	log  logrus.FieldLogger
}

func NewAdminHandler(ctrl *usecase.LifecycleController, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{ctrl: ctrl, log: log}
}

func (h *AdminHandler) UserRoutes(r chi.Router) {
	r.Get("/", h.ListUsers)
	r.Post("/", h.AddUser)
	r.Delete("/{id}", h.RemoveUser)
}

func (h *AdminHandler) QRCodeRoutes(r chi.Router) {
	r.Get("/", h.ListQRCodes)
	r.Post("/", h.AddQRCode)
	r.Delete("/{id}", h.DeleteQRCode)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Data: h.ctrl.ListUsers(r.Context(), auth.TenantFromContext(r.Context()))})
}

func (h *AdminHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	var in usecase.UserInput
	if !decodeBody(w, r, &in) {
		return
	}
	user, err := h.ctrl.AddUser(r.Context(), auth.TenantFromContext(r.Context()), in)
	writeResult(w, h.log, http.StatusCreated, user, err)
}

func (h *AdminHandler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	err := h.ctrl.RemoveUser(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"))
	if err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeResult(w, h.log, http.StatusOK, nil, err)
}

func (h *AdminHandler) ListQRCodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Data: h.ctrl.ListQRCodes(r.Context(), auth.TenantFromContext(r.Context()))})
}

func (h *AdminHandler) AddQRCode(w http.ResponseWriter, r *http.Request) {
	var in usecase.QRCodeInput
	if !decodeBody(w, r, &in) {
		return
	}
	code, err := h.ctrl.AddQRCode(r.Context(), auth.TenantFromContext(r.Context()), in)
	writeResult(w, h.log, http.StatusCreated, code, err)
}

func (h *AdminHandler) DeleteQRCode(w http.ResponseWriter, r *http.Request) {
	err := h.ctrl.DeleteQRCode(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"))
	if err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeResult(w, h.log, http.StatusOK, nil, err)
}
