package hub

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/PapNorbert/WatchWise/internal/config"
	"github.com/PapNorbert/WatchWise/pkg/log"
)

// Hub owns the connection registry and the room membership table.
// A connection is a member of at most one room at a time.
type Hub struct {
	clients    map[string]*Client            // clientID -> client
	rooms      map[string]map[string]*Client // roomID -> clientID -> client
	roomOf     map[string]string             // clientID -> roomID
	register   chan *Client
	unregister chan *Client
	broadcast  chan *RoomMessage
	done       chan struct{}
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

// RoomMessage is a frame queued for every member of a room except Exclude.
type RoomMessage struct {
	RoomID  string
	Message []byte
	Exclude string // Client ID to exclude
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		roomOf:     make(map[string]string),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *RoomMessage, 256),
		done:       make(chan struct{}),
		config:     cfg,
	}
}

// Run processes registrations and delivers queued broadcasts in order until
// ctx is cancelled. On exit every client is closed and the tables cleared.
func (h *Hub) Run(ctx context.Context) {
	l := log.L()
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			if !client.Closed() {
				h.clients[client.ID] = client
			}
			h.mu.Unlock()
			l.Debug().Str(log.FieldConnectionID, client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	close(h.done)
	for _, c := range h.clients {
		c.close()
	}
	for _, members := range h.rooms {
		for _, c := range members {
			c.close()
		}
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]*Client)
	h.roomOf = make(map[string]string)
}

func (h *Hub) deliver(msg *RoomMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for clientID, client := range h.rooms[msg.RoomID] {
		if clientID == msg.Exclude {
			continue
		}
		if !client.trySend(msg.Message) {
			l := log.L()
			l.Warn().Str(log.FieldConnectionID, clientID).Str(log.FieldRoomID, msg.RoomID).Msg("send buffer full, dropping client")
			go h.Unregister(client)
		}
	}
}

// remove drops the client from its room and the registry and closes its
// send queue. Removing an unknown or already removed client is a no-op.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	roomID := h.leaveLocked(client)
	delete(h.clients, client.ID)
	client.close()
	h.mu.Unlock()

	l := log.L()
	l.Debug().Str(log.FieldConnectionID, client.ID).Str(log.FieldRoomID, roomID).Msg("client unregistered")
}

func (h *Hub) leaveLocked(client *Client) string {
	roomID, ok := h.roomOf[client.ID]
	if !ok {
		return ""
	}
	if members, ok := h.rooms[roomID]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(h.roomOf, client.ID)
	return roomID
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

// Unregister is the disconnect path. It may be called more than once.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.close()
	}
}

// Join puts the client in roomID, leaving any other room first. It returns
// the room the client was in before, or "" if none. Joining the room the
// client is already in keeps a single membership.
func (h *Hub) Join(client *Client, roomID string) (previous string, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.Closed() {
		return "", false
	}

	previous = h.roomOf[client.ID]
	if previous != "" && previous != roomID {
		h.leaveLocked(client)
	}

	members, exists := h.rooms[roomID]
	if !exists {
		members = make(map[string]*Client)
		h.rooms[roomID] = members
	}
	members[client.ID] = client
	h.roomOf[client.ID] = roomID

	l := log.L()
	l.Info().Str(log.FieldConnectionID, client.ID).Str(log.FieldRoomID, roomID).Str("previous_room_id", previous).Msg("client joined room")
	return previous, true
}

// Leave removes the client from roomID. It reports false if the client was
// not a member of that room.
func (h *Hub) Leave(client *Client, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.roomOf[client.ID] != roomID {
		return false
	}
	h.leaveLocked(client)

	l := log.L()
	l.Info().Str(log.FieldConnectionID, client.ID).Str(log.FieldRoomID, roomID).Msg("client left room")
	return true
}

// MembersOf returns the connection ids currently in roomID, sorted.
func (h *Hub) MembersOf(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.rooms[roomID]))
	for id := range h.rooms[roomID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RoomOf returns the room the connection is in, or "".
func (h *Hub) RoomOf(clientID string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.roomOf[clientID]
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastToRoom queues message for every member of roomID except the
// connection with id exclude. Queued frames are delivered in call order.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}, exclude string) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	h.BroadcastRawToRoom(roomID, data, exclude)
	return nil
}

// BroadcastRawToRoom sends raw bytes to all clients in a room.
func (h *Hub) BroadcastRawToRoom(roomID string, data []byte, exclude string) {
	select {
	case h.broadcast <- &RoomMessage{RoomID: roomID, Message: data, Exclude: exclude}:
	case <-h.done:
	}
}
