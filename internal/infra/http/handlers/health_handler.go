package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type HealthHandler struct {
	RabbitMQ  *amqp091.Connection
	StoreKind string
	RemoteURL string
	StartTime time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

func NewHealthHandler(rabbitMQ *amqp091.Connection, storeKind, remoteURL string) *HealthHandler {
	return &HealthHandler{
		RabbitMQ:  rabbitMQ,
		StoreKind: storeKind,
		RemoteURL: remoteURL,
		StartTime: time.Now(),
	}
}

// Handle reports degraded only for a broken broker connection. A missing
// remote is not a failure: writes fall back to the local store.
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]string)

	if h.RabbitMQ != nil {
		if h.RabbitMQ.IsClosed() {
			deps["rabbitmq"] = "unhealthy: connection closed"
		} else {
			deps["rabbitmq"] = "healthy"
		}
	} else {
		deps["rabbitmq"] = "not configured"
	}

	if h.RemoteURL != "" {
		deps["remote"] = "configured"
	} else {
		deps["remote"] = "not configured"
	}

	deps["store"] = h.StoreKind

	status := "healthy"
	if deps["rabbitmq"] != "healthy" && deps["rabbitmq"] != "not configured" {
		status = "degraded"
	}

	response := HealthResponse{
		Status:       status,
		Version:      "1.0.0",
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	}

	w.Header().Set("Content-Type", "application/json")
	if status == "degraded" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}
