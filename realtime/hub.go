package realtime

import (
	"encoding/json"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Hub is the in-memory presence index and broadcast router. It maps each
// user to their single most recent live connection (last-connect-wins:
// reconnecting from elsewhere silently takes over delivery) and keeps one
// subscriber set per conversation channel. It only accelerates delivery;
// the store stays the source of truth and a missed push is reconciled by
// reloading.
//
// One mutex serializes every read and write of both maps: connect and
// disconnect events arrive concurrently from independent connections, and a
// lost or duplicated entry would misroute live pushes.
type Hub struct {
	mu          sync.Mutex
	connections map[uint]*Client
	channels    map[uuid.UUID]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[uint]*Client),
		channels:    make(map[uuid.UUID]map[*Client]bool),
	}
}

// Register records the client as the user's live connection, displacing any
// prior one, and subscribes it to every given conversation channel.
func (h *Hub) Register(client *Client, conversationIDs []uuid.UUID) {
	h.mu.Lock()

	var displaced *Client
	if prior, ok := h.connections[client.UserID]; ok && prior != client {
		displaced = prior
		h.removeLocked(prior)
	}
	h.connections[client.UserID] = client
	for _, id := range conversationIDs {
		h.subscribeLocked(id, client)
	}
	h.mu.Unlock()

	if displaced != nil {
		displaced.close()
		log.Printf("realtime: user %d reconnected, prior connection displaced", client.UserID)
	}
}

// Unregister removes the client. A stale connection that has already been
// displaced by a newer one leaves the newer mapping untouched.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.connections[client.UserID]; !ok || current != client {
		// Still drop any channel subscriptions the stale client holds.
		h.unsubscribeAllLocked(client)
		return
	}
	h.removeLocked(client)
}

// Subscribe attaches the user's current connection, if any, to the
// conversation channel. A user with no live connection is a no-op.
func (h *Hub) Subscribe(conversationID uuid.UUID, userID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.connections[userID]
	if !ok {
		return
	}
	h.subscribeLocked(conversationID, client)
}

// Unsubscribe detaches the user's current connection from the channel. It
// affects live delivery only; membership rows are untouched.
func (h *Hub) Unsubscribe(conversationID uuid.UUID, userID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.connections[userID]
	if !ok {
		return
	}
	h.unsubscribeLocked(conversationID, client)
}

// PushToConversation delivers the event to every connection subscribed to
// the conversation channel. Best effort: clients with a full send buffer
// are skipped.
func (h *Hub) PushToConversation(conversationID uuid.UUID, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("realtime: could not marshal %s event: %v", event.Event, err)
		return
	}

	h.mu.Lock()
	subscribers := make([]*Client, 0, len(h.channels[conversationID]))
	for client := range h.channels[conversationID] {
		subscribers = append(subscribers, client)
	}
	h.mu.Unlock()

	for _, client := range subscribers {
		client.trySend(payload)
	}
}

// PushToUser delivers the event to the recipient's live connection if one
// exists. At-most-once: an offline recipient simply misses the live path
// and reconciles from the store.
func (h *Hub) PushToUser(userID uint, event Event) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("realtime: could not marshal %s event: %v", event.Event, err)
		return false
	}

	h.mu.Lock()
	client, ok := h.connections[userID]
	h.mu.Unlock()

	if !ok {
		return false
	}
	return client.trySend(payload)
}

// IsOnline reports whether the user currently has a live connection.
func (h *Hub) IsOnline(userID uint) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.connections[userID]
	return ok
}

// OnlineUserIDs returns the ids of all currently connected users.
func (h *Hub) OnlineUserIDs() []uint {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]uint, 0, len(h.connections))
	for id := range h.connections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// removeLocked drops the client's presence entry and all its channel
// subscriptions. Caller holds h.mu.
func (h *Hub) removeLocked(client *Client) {
	delete(h.connections, client.UserID)
	h.unsubscribeAllLocked(client)
}

func (h *Hub) subscribeLocked(conversationID uuid.UUID, client *Client) {
	subscribers, ok := h.channels[conversationID]
	if !ok {
		subscribers = make(map[*Client]bool)
		h.channels[conversationID] = subscribers
	}
	subscribers[client] = true
	client.channels[conversationID] = true
}

func (h *Hub) unsubscribeLocked(conversationID uuid.UUID, client *Client) {
	if subscribers, ok := h.channels[conversationID]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.channels, conversationID)
		}
	}
	delete(client.channels, conversationID)
}

func (h *Hub) unsubscribeAllLocked(client *Client) {
	for conversationID := range client.channels {
		h.unsubscribeLocked(conversationID, client)
	}
}
