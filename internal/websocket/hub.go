package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/chorewheel/internal/observability"
)

// Message is a change notification broadcast to the clients of one household.
type Message struct {
	Type        string         `json:"type"`
	HouseholdID int64          `json:"household_id"`
	Entity      string         `json:"entity"`
	Action      string         `json:"action"`
	ID          int64          `json:"id,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(householdID int64, entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:        fmt.Sprintf("%s_%s", entity, action),
		HouseholdID: householdID,
		Entity:      entity,
		Action:      action,
		ID:          id,
		Extra:       extra,
	}
}

// Hub tracks connected clients per household and fans messages out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to its household's set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.householdID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.householdID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	observability.WebSocketConnected()
}

// Unregister removes a client from the hub and closes its send channel.
// Unregistering twice is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// Disconnect drops every connection userID holds on householdID and reports
// how many there were. Their Run loops close the sockets.
func (h *Hub) Disconnect(householdID, userID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for c := range h.clients[householdID] {
		if c.userID == userID {
			h.removeLocked(c)
			n++
		}
	}
	return n
}

func (h *Hub) removeLocked(c *Client) {
	set := h.clients[c.householdID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.householdID)
	}
	close(c.send)
	observability.WebSocketDisconnected()
}

// Broadcast sends a message to every client of msg.HouseholdID.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[msg.HouseholdID] {
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop rather than block
			h.logger.Debug("dropping message for slow client", "household_id", msg.HouseholdID, "type", msg.Type)
		}
	}
}

// ClientCount returns the number of connected clients across all households.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// HouseholdClientCount returns the number of clients listening to one household.
func (h *Hub) HouseholdClientCount(householdID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[householdID])
}
