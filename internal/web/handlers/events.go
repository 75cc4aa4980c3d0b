package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/facewatch/internal/events"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// EventSource hands out per-client event channels.
type EventSource interface {
	Subscribe() (string, <-chan events.Event)
	Unsubscribe(id string)
}

// EventsHandler exposes the push channel over WebSocket and Server-Sent Events.
type EventsHandler struct {
	hub      EventSource
	upgrader websocket.Upgrader
}

// NewEventsHandler creates the handler. checkOrigin decides which browser
// origins may open a WebSocket.
func NewEventsHandler(hub EventSource, checkOrigin func(r *http.Request) bool) *EventsHandler {
	return &EventsHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// SSE streams events until the client disconnects.
func (h *EventsHandler) SSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}
	http.NewResponseController(w).SetWriteDeadline(time.Time{})

	id, ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(id)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, event.Type, event.Data)
		}
	}
}

// WebSocket upgrades the connection and writes every event as a JSON
// message {"type": ..., "data": ...}. Incoming messages are discarded.
func (h *EventsHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	id, ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(id)

	closed := make(chan struct{})
	go readPump(conn, closed)

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-ch:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client messages so control frames are processed, and
// closes done when the connection goes away.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
