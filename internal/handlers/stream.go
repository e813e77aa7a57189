package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sgtbyhqi/genz-planner-app/internal/middleware"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
	streamReadTimeout  = 2 * streamPingInterval
)

// StreamHandler pushes the full dashboard to the browser after every change
// of its workspace.
type StreamHandler struct {
	upgrader websocket.Upgrader
}

func NewStreamHandler() *StreamHandler {
	return &StreamHandler{upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096}}
}

func (handler *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	current := middleware.GetWorkspace(r.Context())

	ws, err := handler.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("upgrading websocket", "error", err)
		return
	}
	defer ws.Close()

	changes, stop := current.Changes()
	defer stop()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		ws.SetReadDeadline(time.Now().Add(streamReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(streamReadTimeout))
		})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	send := func() bool {
		current.Touch()
		ws.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := ws.WriteJSON(current.Dashboard()); err != nil {
			slog.Debug("writing dashboard", "client_id", current.ClientID(), "error", err)
			return false
		}
		return true
	}

	if !send() {
		return
	}
	for {
		select {
		case <-closed:
			return
		case _, ok := <-changes:
			if !ok || !send() {
				return
			}
		case <-ping.C:
			ws.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
