// Package server implements room membership state: slot admission, connection
// binding, fan-out broadcast, and removal for a single session.
package server

import (
	"log"
	"sync"
)

// symbolPool is the fixed ordered pool of auto-assigned identities. The
// first joiner of a room gets the first symbol, each subsequent joiner the
// next unused one.
var symbolPool = []string{"X", "O"}

// Conn is the transport-side handle a member slot binds to. The transport
// owns the connection's lifetime; the room only queues sends to it and drops
// its reference on removal.
type Conn interface {
	// Send queues a payload for delivery and reports whether it was
	// accepted. A false return means the recipient is unreachable; the
	// caller must not treat that as fatal for other recipients.
	Send(payload []byte) bool

	// Close terminates the connection with a close code and reason text.
	Close(code int, reason string)
}

// member is a reserved slot in a room. conn stays nil until a live
// connection is bound to the reserved identity.
type member struct {
	identity string
	conn     Conn
}

// Room groups a bounded set of members that receive each other's relayed
// messages. All mutation goes through the registry's join/leave operations;
// the room-level mutex makes each individual transition atomic.
type Room struct {
	ID       string
	Name     string
	capacity int

	mu      sync.Mutex
	members []*member // ordered by join time
}

func newRoom(id, name string, capacity int) *Room {
	return &Room{ID: id, Name: name, capacity: capacity}
}

// TryAdmit reserves a slot for the given identity and returns the identity
// actually assigned. An empty identity requests auto-assignment from the
// symbol pool. The reserved slot stays unbound until BindConnection.
func (r *Room) TryAdmit(identity string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.members) >= r.capacity {
		return "", ErrRoomFull
	}

	if identity == "" {
		identity = r.nextSymbolLocked()
		if identity == "" {
			// Pool exhausted: only possible when capacity exceeds the
			// pool, in which case the room is full for symbol play.
			return "", ErrRoomFull
		}
	} else if r.findLocked(identity) != nil {
		return "", ErrDuplicateIdentity
	}

	r.members = append(r.members, &member{identity: identity})
	return identity, nil
}

// BindConnection attaches a live connection to a previously reserved
// identity. Rebinding an already bound slot is rejected so a second client
// cannot hijack an active member.
func (r *Room) BindConnection(identity string, conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.findLocked(identity)
	if m == nil {
		return ErrUnknownIdentity
	}
	if m.conn != nil {
		return ErrDuplicateIdentity
	}
	m.conn = conn
	return nil
}

// Broadcast delivers payload to every bound member except the sender.
// Recipients are snapshotted under the lock and sent to outside it, so a
// slow peer never stalls the room. Unbound slots are skipped silently and a
// failed send to one recipient does not abort delivery to the rest.
func (r *Room) Broadcast(sender string, payload []byte) {
	r.mu.Lock()
	conns := make([]Conn, 0, len(r.members))
	for _, m := range r.members {
		if m.identity == sender || m.conn == nil {
			continue
		}
		conns = append(conns, m.conn)
	}
	r.mu.Unlock()

	for _, c := range conns {
		if !c.Send(payload) {
			log.Printf("Dropped broadcast to unreachable member in room %s", r.ID)
		}
	}
}

// Remove detaches and deletes the member with the given identity and reports
// whether the room is now empty. Removing an unknown identity is a no-op and
// never reports the room empty, so a stray leave cannot trigger deletion of
// a room it was never a member of.
func (r *Room) Remove(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range r.members {
		if m.identity == identity {
			m.conn = nil
			r.members = append(r.members[:i], r.members[i+1:]...)
			return len(r.members) == 0
		}
	}
	return false
}

// IsEmpty reports whether the room has no reserved slots.
func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members) == 0
}

// MemberNames returns the identities of all reserved slots in join order.
func (r *Room) MemberNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.members))
	for _, m := range r.members {
		names = append(names, m.identity)
	}
	return names
}

// Capacity returns the maximum number of simultaneous members.
func (r *Room) Capacity() int {
	return r.capacity
}

func (r *Room) findLocked(identity string) *member {
	for _, m := range r.members {
		if m.identity == identity {
			return m
		}
	}
	return nil
}

func (r *Room) nextSymbolLocked() string {
	for _, s := range symbolPool {
		if r.findLocked(s) == nil {
			return s
		}
	}
	return ""
}
