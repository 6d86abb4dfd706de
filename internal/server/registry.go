// Package server provides the process-wide room registry that owns the
// identifier space, room creation, lookup, and garbage collection of empty
// rooms.
package server

import (
	"crypto/rand"
	"log"
	"math/big"
	"strconv"
	"sync"
)

// CodeGenerator produces a candidate room identifier. roomCount is the
// number of rooms currently registered plus the number of collisions seen so
// far, so sequential generators always terminate; generators that do not
// need it ignore it. Candidates are redrawn until one is not already in use.
type CodeGenerator func(roomCount int) string

// SequentialCode numbers rooms incrementally ("1", "2", ...) so an
// identifier is short enough to dictate to the other player.
func SequentialCode(roomCount int) string {
	return strconv.Itoa(roomCount + 1)
}

// RandomCode returns a generator of fixed-length uppercase alphanumeric
// codes, for rooms whose identifier must be shareable but unguessable.
func RandomCode(length int) CodeGenerator {
	const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	return func(int) string {
		code := make([]byte, length)
		for i := range code {
			code[i] = alphabet[randomIndex(len(alphabet))]
		}
		return string(code)
	}
}

// randomIndex returns a cryptographically secure random index in [0, max).
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		log.Panic("Failed to generate random index:", err)
	}
	return int(n.Int64())
}

// Registry is the process-wide mapping from room identifier to Room. It is
// constructed once at startup and injected into the router and handlers.
// Structural changes to the mapping happen under the registry lock; changes
// inside a room happen under that room's lock.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry creates an empty room registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// CreateRoom allocates a fresh room with a unique identifier drawn from gen
// and immediately reserves a slot for the creator, so the registry never
// holds a memberless room. An empty creator identity requests symbol
// auto-assignment. Returns the room and the identity actually assigned.
func (g *Registry) CreateRoom(capacity int, name, creator string, gen CodeGenerator) (*Room, string) {
	g.mu.Lock()
	var id string
	for attempt := 0; ; attempt++ {
		id = gen(len(g.rooms) + attempt)
		if _, exists := g.rooms[id]; !exists {
			break
		}
	}
	// The creator is admitted before the room becomes visible in the
	// mapping, so no other caller can ever observe a memberless room.
	room := newRoom(id, name, capacity)
	identity, err := room.TryAdmit(creator)
	if err != nil {
		// Cannot happen: the room is empty and capacity is at least one.
		g.mu.Unlock()
		log.Printf("Failed to admit creator to fresh room %s: %v", id, err)
		return room, ""
	}
	g.rooms[id] = room
	g.mu.Unlock()
	metricOpenRooms.Inc()

	log.Printf("Room created: %s (capacity %d). Total rooms: %d", id, capacity, g.Len())
	return room, identity
}

// GetRoom looks up a room by identifier.
func (g *Registry) GetRoom(id string) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	room, ok := g.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// JoinRoom reserves a slot for identity in the named room. An empty identity
// requests symbol auto-assignment. Returns the room and assigned identity.
// The registry read lock is held across lookup and admission so a concurrent
// LeaveRoom cannot delete the room between the two steps and leave a member
// admitted into a room the registry no longer knows.
func (g *Registry) JoinRoom(id, identity string) (*Room, string, error) {
	g.mu.RLock()
	room, ok := g.rooms[id]
	if !ok {
		g.mu.RUnlock()
		return nil, "", ErrRoomNotFound
	}
	assigned, err := room.TryAdmit(identity)
	g.mu.RUnlock()
	if err != nil {
		return nil, "", err
	}

	log.Printf("Member %q joined room %s", assigned, id)
	return room, assigned, nil
}

// LeaveRoom removes identity from the named room and deletes the room from
// the registry if it is now empty. Leaving an unknown room is a no-op.
func (g *Registry) LeaveRoom(id, identity string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	room, ok := g.rooms[id]
	if !ok {
		return
	}
	if room.Remove(identity) {
		delete(g.rooms, id)
		metricOpenRooms.Dec()
		log.Printf("Room deleted: %s. Total rooms: %d", id, len(g.rooms))
	} else {
		log.Printf("Member %q left room %s", identity, id)
	}
}

// Len returns the number of registered rooms.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}
