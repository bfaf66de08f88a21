package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/homelistingai/leadflow/internal/infra/auth"
	"github.com/homelistingai/leadflow/internal/usecase"
)

const streamWriteTimeout = 5 * time.Second

// StreamHandler pushes a tenant projection over a websocket: one snapshot on
// connect, then one after every change. Clients never write.
type StreamHandler struct {
	ctrl           *usecase.LifecycleController
	log            logrus.FieldLogger
	allowedOrigins []string
}

func NewStreamHandler(ctrl *usecase.LifecycleController, allowedOrigins []string, log logrus.FieldLogger) *StreamHandler {
	return &StreamHandler{ctrl: ctrl, allowedOrigins: allowedOrigins, log: log}
}

func (h *StreamHandler) Handle(w http.ResponseWriter, r *http.Request) {
	tenant := auth.TenantFromContext(r.Context())
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.allowedOrigins})
	if err != nil {
		h.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	updates, cancel := h.ctrl.Subscribe(tenant)
	defer cancel()

	ctx := conn.CloseRead(r.Context())
	if err := h.write(ctx, conn, h.ctrl.Projection(ctx, tenant)); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case p, ok := <-updates:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := h.write(ctx, conn, p); err != nil {
				h.log.WithError(err).WithField("tenant", tenant).Debug("Stream client gone")
				return
			}
		}
	}
}

func (h *StreamHandler) write(ctx context.Context, conn *websocket.Conn, p usecase.Projection) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, p)
}
