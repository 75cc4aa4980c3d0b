// Package events fans push notifications out to connected clients.
package events

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/facewatch/internal/constants"
)

// Event is a named push notification.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub keeps one buffered channel per connected client.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]chan Event
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]chan Event)}
}

// Subscribe registers a client. The client first receives a connect event
// carrying its id, then every client receives a response event announcing
// the connection.
func (h *Hub) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, constants.EventChannelBuffer)
	ch <- Event{Type: constants.EventConnect, Data: map[string]string{"sid": id}}

	h.mu.Lock()
	h.clients[id] = ch
	h.mu.Unlock()

	log.WithFields(log.Fields{"sid": id, "event": constants.EventConnect}).Info("Client connected")
	h.Broadcast(Event{Type: constants.EventResponse, Data: map[string]string{"message": "Connected"}})
	return id, ch
}

// Unsubscribe removes a client and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	ch, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(ch)
	}
	h.mu.Unlock()

	if ok {
		log.WithFields(log.Fields{"sid": id, "event": constants.EventDisconnect}).Info("Client disconnected")
	}
}

// Broadcast sends an event to all clients. Clients with a full buffer miss it.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.clients {
		select {
		case ch <- event:
		default:
			log.WithFields(log.Fields{"sid": id, "event": event.Type}).Debug("Client buffer full, dropping event")
		}
	}
}

// PersonsRecognized announces the identities currently visible on the live feed.
func (h *Hub) PersonsRecognized(names map[string]struct{}) {
	list := make([]string, 0, len(names))
	for n := range names {
		list = append(list, n)
	}
	sort.Strings(list)
	h.Broadcast(Event{Type: constants.EventPersonsRecognized, Data: map[string][]string{"names": list}})
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
