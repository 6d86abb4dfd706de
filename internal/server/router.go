// Package server coordinates connection admission, room binding, message
// relay, and disconnect cleanup via the Router type.
package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Router bridges accepted WebSocket connections to room member slots. Each
// connection is driven by its own goroutine: the router resolves the room
// and identity, binds the connection, then relays inbound messages to the
// other members until the peer disconnects.
type Router struct {
	registry *Registry

	mu      sync.Mutex
	clients map[*Client]struct{}
	wg      sync.WaitGroup
}

// NewRouter creates a Router relaying through the given registry.
func NewRouter(registry *Registry) *Router {
	return &Router{
		registry: registry,
		clients:  make(map[*Client]struct{}),
	}
}

// ServeGame runs the game-endpoint lifecycle for one connection. An empty
// roomID creates a fresh room and notifies the creator of its identifier;
// otherwise the client joins the named room. Identities are auto-assigned
// from the symbol pool in both cases.
func (rt *Router) ServeGame(c *Client, roomID string) {
	rt.register(c)
	defer rt.unregister(c)

	var (
		room     *Room
		identity string
	)

	if roomID == "" {
		cfg := currentConfig()
		room, identity = rt.registry.CreateRoom(cfg.DefaultRoomCapacity, "", "", SequentialCode)

		notice, err := json.Marshal(gameMessage{Type: msgTypeRoomCreated, RoomID: room.ID})
		if err == nil && !c.Send(notice) {
			log.Printf("Failed to deliver room_created notice to %s", c.addr)
		}
	} else {
		var err error
		room, identity, err = rt.registry.JoinRoom(roomID, "")
		if err != nil {
			log.Printf("Admission failed for %s: %v", c.addr, err)
			c.Close(admissionCloseCode, closeReason(err))
			return
		}
	}

	if err := room.BindConnection(identity, c); err != nil {
		rt.registry.LeaveRoom(room.ID, identity)
		c.Close(admissionCloseCode, closeReason(err))
		return
	}
	defer rt.registry.LeaveRoom(room.ID, identity)

	rt.relayMoves(c, room, identity)
}

// ServeRelay runs the pre-provisioned-room lifecycle for one connection.
// Both the room code and the identity must have been reserved through the
// room API beforehand; anything else fails closed.
func (rt *Router) ServeRelay(c *Client, roomCode, identity string) {
	rt.register(c)
	defer rt.unregister(c)

	room, err := rt.registry.GetRoom(roomCode)
	if err != nil {
		log.Printf("Admission failed for %s: %v", c.addr, err)
		c.Close(admissionCloseCode, closeReason(err))
		return
	}

	if err := room.BindConnection(identity, c); err != nil {
		// The slot stays reserved: a failed connect must not displace
		// whoever reserved it.
		log.Printf("Bind failed for %s in room %s: %v", c.addr, roomCode, err)
		c.Close(admissionCloseCode, closeReason(err))
		return
	}
	defer rt.registry.LeaveRoom(room.ID, identity)

	rt.relayOpaque(c, room, identity)
}

// relayMoves receives game frames and rebroadcasts move messages to the
// rest of the room. The relayed value is always the sender's own assigned
// symbol, so a client cannot claim the other player's mark.
func (rt *Router) relayMoves(c *Client, room *Room, identity string) {
	c.setupReadConnection()

	for {
		payload, err := c.Receive()
		if err != nil {
			return
		}
		if !c.allowMessage() {
			continue
		}

		var msg gameMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("Invalid message from %s: %v", c.addr, err)
			continue
		}
		if msg.Type != msgTypeMove {
			continue
		}

		out, err := json.Marshal(gameMessage{
			Type:      msgTypeMove,
			CellIndex: msg.CellIndex,
			Value:     identity,
		})
		if err != nil {
			log.Printf("Error normalizing message from %s: %v", c.addr, err)
			continue
		}

		metricRelayedMessages.Inc()
		room.Broadcast(identity, out)
	}
}

// relayOpaque receives payloads and rebroadcasts them verbatim to every
// other bound member of the room.
func (rt *Router) relayOpaque(c *Client, room *Room, identity string) {
	c.setupReadConnection()

	for {
		payload, err := c.Receive()
		if err != nil {
			return
		}
		if !c.allowMessage() {
			continue
		}

		metricRelayedMessages.Inc()
		room.Broadcast(identity, payload)
	}
}

func (rt *Router) register(c *Client) {
	rt.mu.Lock()
	rt.clients[c] = struct{}{}
	clientCount := len(rt.clients)
	rt.mu.Unlock()

	metricConnectedClients.Inc()
	log.Printf("Client registered from %s. Total clients: %d", c.addr, clientCount)

	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		c.writePump()
	}()
}

func (rt *Router) unregister(c *Client) {
	rt.mu.Lock()
	delete(rt.clients, c)
	clientCount := len(rt.clients)
	rt.mu.Unlock()

	// Idempotent: admission failures already closed with a reason code.
	c.Close(websocket.CloseNormalClosure, "")

	metricConnectedClients.Dec()
	log.Printf("Client unregistered from %s. Total clients: %d", c.addr, clientCount)
}

// Shutdown closes all live connections and waits for their goroutines to
// finish, or until the timeout is reached.
func (rt *Router) Shutdown(timeout time.Duration) error {
	log.Println("Shutting down all client connections...")

	rt.mu.Lock()
	clients := make([]*Client, 0, len(rt.clients))
	for c := range rt.clients {
		clients = append(clients, c)
	}
	rt.mu.Unlock()

	for _, c := range clients {
		c.Close(websocket.CloseGoingAway, "server shutting down")
	}
	log.Printf("Closed %d client connections", len(clients))

	done := make(chan struct{})
	go func() {
		rt.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Router shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Router shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
