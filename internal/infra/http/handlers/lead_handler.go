package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/homelistingai/leadflow/internal/infra/auth"
	"github.com/homelistingai/leadflow/internal/usecase"
)

type LeadHandler struct {
	ctrl        *usecase.LifecycleController
	rateLimiter *RateLimiter
	log         logrus.FieldLogger
}

func NewLeadHandler(ctx context.Context, ctrl *usecase.LifecycleController, log logrus.FieldLogger) *LeadHandler {
	return &LeadHandler{
		ctrl:        ctrl,
		rateLimiter: NewRateLimiter(ctx, 10, time.Minute), // 10 req/min per IP
		log:         log,
	}
}

func (h *LeadHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Add)
	r.Get("/stats", h.Stats)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Remove)
	r.Post("/{id}/contact", h.MarkContacted)
	r.Post("/{id}/calls", h.LogCall)
	r.Post("/{id}/notes", h.AddNote)
	r.Post("/{id}/appointments", h.ScheduleAppointment)
	r.Put("/{id}/status", h.SetStatus)
	r.Post("/{id}/triggers", h.RecordTrigger)
}

func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	leads, err := h.ctrl.ListLeads(r.Context(), auth.TenantFromContext(r.Context()), q.Get("status"), q.Get("search"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: leads})
}

func (h *LeadHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Data: h.ctrl.LeadStats(r.Context(), auth.TenantFromContext(r.Context()))})
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.ctrl.GetLead(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: lead})
}

func (h *LeadHandler) Add(w http.ResponseWriter, r *http.Request) {
	if !h.rateLimiter.Allow(getClientIP(r)) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Too many requests. Please try again later."})
		return
	}

	var in usecase.AddLeadInput
	if !decodeBody(w, r, &in) {
		return
	}
	lead, err := h.ctrl.AddLead(r.Context(), auth.TenantFromContext(r.Context()), in)
	writeResult(w, h.log, http.StatusCreated, lead, err)
}

func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in usecase.UpdateLeadInput
	if !decodeBody(w, r, &in) {
		return
	}
	lead, err := h.ctrl.UpdateLead(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"), in)
	writeResult(w, h.log, http.StatusOK, lead, err)
}

func (h *LeadHandler) Remove(w http.ResponseWriter, r *http.Request) {
	err := h.ctrl.RemoveLead(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"))
	if err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeResult(w, h.log, http.StatusOK, nil, err)
}

func (h *LeadHandler) MarkContacted(w http.ResponseWriter, r *http.Request) {
	var in textRequest
	if !decodeOptionalBody(w, r, &in) {
		return
	}
	lead, err := h.ctrl.MarkContacted(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"), in.Message)
	writeResult(w, h.log, http.StatusOK, lead, err)
}

func (h *LeadHandler) LogCall(w http.ResponseWriter, r *http.Request) {
	var in textRequest
	if !decodeBody(w, r, &in) {
		return
	}
	lead, err := h.ctrl.LogCall(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"), in.Note)
	writeResult(w, h.log, http.StatusOK, lead, err)
}

func (h *LeadHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	var in textRequest
	if !decodeBody(w, r, &in) {
		return
	}
	lead, err := h.ctrl.AddNote(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"), in.Note)
	writeResult(w, h.log, http.StatusOK, lead, err)
}

func (h *LeadHandler) ScheduleAppointment(w http.ResponseWriter, r *http.Request) {
	var in usecase.AppointmentInput
	if !decodeBody(w, r, &in) {
		return
	}
	lead, err := h.ctrl.ScheduleAppointment(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"), in)
	writeResult(w, h.log, http.StatusOK, lead, err)
}

func (h *LeadHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if !decodeBody(w, r, &in) {
		return
	}
	lead, err := h.ctrl.SetLeadStatus(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"), in.Status)
	writeResult(w, h.log, http.StatusOK, lead, err)
}

func (h *LeadHandler) RecordTrigger(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Trigger string `json:"trigger"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	followUps, err := h.ctrl.RecordTrigger(r.Context(), auth.TenantFromContext(r.Context()), chi.URLParam(r, "id"), in.Trigger)
	writeResult(w, h.log, http.StatusOK, followUps, err)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
	done     chan struct{}
}

type visitor struct {
	count     int
	lastReset time.Time
}

// NewRateLimiter evicts idle visitors in the background until ctx is done.
func NewRateLimiter(ctx context.Context, limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
		done:     make(chan struct{}),
	}

	go rl.cleanup(ctx)
	return rl
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	now := time.Now()

	if !exists {
		rl.visitors[ip] = &visitor{count: 1, lastReset: now}
		return true
	}

	if now.Sub(v.lastReset) > rl.window {
		v.count = 1
		v.lastReset = now
		return true
	}

	v.count++
	return v.count <= rl.limit
}

func (rl *RateLimiter) cleanup(ctx context.Context) {
	defer close(rl.done)
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evict(time.Now())
		}
	}
}

func (rl *RateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastReset) > rl.window*2 {
			delete(rl.visitors, ip)
		}
	}
}
