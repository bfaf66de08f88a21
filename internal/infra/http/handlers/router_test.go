package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/homelistingai/leadflow/internal/clock"
	"github.com/homelistingai/leadflow/internal/entity"
	"github.com/homelistingai/leadflow/internal/infra/auth"
	"github.com/homelistingai/leadflow/internal/infra/logging"
	"github.com/homelistingai/leadflow/internal/infra/store"
	"github.com/homelistingai/leadflow/internal/usecase"
)

type brokenStore struct{}

func (brokenStore) Read(context.Context, string, string) ([]byte, bool, error) { return nil, false, nil }
func (brokenStore) Write(context.Context, string, string, []byte) error {
	return errors.New("read-only file system")
}

func newTestRouter(t *testing.T, s usecase.Store) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	log := logging.Discard()
	ctrl := usecase.NewLifecycleController(s, nil, nil, clock.Fake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)), log, usecase.Options{})
	return NewRouter(RouterConfig{
		Ctx:            ctx,
		Controller:     ctrl,
		Health:         NewHealthHandler(nil, "memory", ""),
		AllowedOrigins: []string{"*"},
		Auth:           auth.HeaderTenant,
		Log:            log,
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "acme")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type leadResponse struct {
	Data    entity.Lead `json:"data"`
	Warning string      `json:"warning"`
}

func decodeLead(t *testing.T, rec *httptest.ResponseRecorder) leadResponse {
	t.Helper()
	var out leadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestLeads_CaptureAndContact(t *testing.T) {
	h := newTestRouter(t, store.NewMemoryStore())

	rec := do(t, h, http.MethodPost, "/api/admin/leads", `{"name":"Jane Doe","email":"jane@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	lead := decodeLead(t, rec).Data
	assert.Equal(t, entity.LeadStatusNew, lead.Status)

	rec = do(t, h, http.MethodPost, "/api/admin/leads/"+lead.ID+"/contact", `{"message":"Sent listing"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	contacted := decodeLead(t, rec)
	assert.Equal(t, entity.LeadStatusContacted, contacted.Data.Status)
	assert.Equal(t, "Sent listing", contacted.Data.LastMessage)
	assert.Empty(t, contacted.Warning)

	rec = do(t, h, http.MethodGet, "/api/admin/leads?status=Contacted", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []entity.Lead `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list.Data, 1)
}

func TestLeads_ValidationAndNotFound(t *testing.T) {
	h := newTestRouter(t, store.NewMemoryStore())

	rec := do(t, h, http.MethodPost, "/api/admin/leads", `{"name":"Jane"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "email", body.Field)

	rec = do(t, h, http.MethodPost, "/api/admin/leads", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/admin/leads/missing/calls", `{"note":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/admin/leads/missing", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLeads_PersistenceFailureIsAWarning(t *testing.T) {
	h := newTestRouter(t, brokenStore{})

	rec := do(t, h, http.MethodPost, "/api/admin/leads", `{"name":"Jane Doe","email":"jane@example.com"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	out := decodeLead(t, rec)
	assert.Equal(t, "Jane Doe", out.Data.Name)
	assert.Equal(t, persistenceWarning, out.Warning)

	rec = do(t, h, http.MethodGet, "/api/admin/leads/"+out.Data.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLeads_AppointmentEnrollsFollowUp(t *testing.T) {
	h := newTestRouter(t, store.NewMemoryStore())

	rec := do(t, h, http.MethodPost, "/api/admin/sequences", `{
		"name":"Showing prep","triggerType":"Appointment Scheduled",
		"steps":[{"type":"email","delay":{"value":2,"unit":"hours"},"subject":"See you soon"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/admin/leads", `{"name":"Jane Doe","email":"jane@example.com"}`)
	lead := decodeLead(t, rec).Data

	rec = do(t, h, http.MethodPost, "/api/admin/leads/"+lead.ID+"/appointments", `{"date":"2024-03-04","time":"14:00"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.LeadStatusShowing, decodeLead(t, rec).Data.Status)

	rec = do(t, h, http.MethodGet, "/api/admin/followups", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var followUps struct {
		Data []entity.FollowUp `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&followUps))
	require.Len(t, followUps.Data, 1)
	assert.Equal(t, "Showing prep", followUps.Data[0].SequenceName)

	rec = do(t, h, http.MethodPut, "/api/admin/followups/"+followUps.Data[0].ID+"/status", `{"status":"paused"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSequences_RejectEmptySteps(t *testing.T) {
	h := newTestRouter(t, store.NewMemoryStore())

	rec := do(t, h, http.MethodPost, "/api/admin/sequences", `{"name":"Empty","triggerType":"Lead Capture","steps":[]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	h := newTestRouter(t, store.NewMemoryStore())

	rec := do(t, h, http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "not configured", body.Dependencies["remote"])
}

func TestStream_PushesProjections(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, store.NewMemoryStore()))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/admin/stream"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"X-Tenant-ID": []string{"acme"}},
	})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var first usecase.Projection
	require.NoError(t, wsjson.Read(ctx, conn, &first))
	assert.Equal(t, "acme", first.Tenant)
	assert.Empty(t, first.Leads)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/admin/leads", strings.NewReader(`{"name":"Jane Doe","email":"jane@example.com"}`))
	require.NoError(t, err)
	req.Header.Set("X-Tenant-ID", "acme")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var next usecase.Projection
	require.NoError(t, wsjson.Read(ctx, conn, &next))
	require.Len(t, next.Leads, 1)
	assert.Equal(t, "Jane Doe", next.Leads[0].Name)
}

func TestRateLimiter_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rl := NewRateLimiter(ctx, 2, time.Minute)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))

	cancel()
	select {
	case <-rl.done:
	case <-time.After(time.Second):
		t.Fatal("cleanup goroutine still running after cancel")
	}
}

func TestRateLimiter_EvictsIdleVisitors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 1, time.Minute)
	require.True(t, rl.Allow("10.0.0.1"))

	rl.evict(time.Now().Add(3 * time.Minute))

	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestLeads_ContactAcceptsEmptyChunkedBody(t *testing.T) {
	h := newTestRouter(t, store.NewMemoryStore())
	rec := do(t, h, http.MethodPost, "/api/admin/leads", `{"name":"Jane Doe","email":"jane@example.com"}`)
	lead := decodeLead(t, rec).Data

	req := httptest.NewRequest(http.MethodPost, "/api/admin/leads/"+lead.ID+"/contact", io.NopCloser(strings.NewReader("")))
	require.Equal(t, int64(-1), req.ContentLength)
	req.Header.Set("X-Tenant-ID", "acme")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Marked as contacted", decodeLead(t, rec).Data.LastMessage)

	rec = do(t, h, http.MethodPost, "/api/admin/leads/"+lead.ID+"/contact", `{"message":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
