// Package server defines the wire message formats and shared helpers reused
// across the client, router, and handler logic.
package server

import (
	"encoding/json"
	"strings"
)

// Game endpoint message types.
const (
	msgTypeRoomCreated = "room_created"
	msgTypeMove        = "move"
)

// gameMessage is the JSON frame exchanged on the game endpoint. CellIndex is
// kept raw so the router relays whatever the sender supplied; Value is
// always overwritten with the sender's assigned symbol before rebroadcast.
type gameMessage struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"room_id,omitempty"`
	CellIndex json.RawMessage `json:"cell_index,omitempty"`
	Value     string          `json:"value,omitempty"`
}

// createRoomRequest is the body of POST /api/rooms.
type createRoomRequest struct {
	RoomName   string `json:"room_name"`
	UserName   string `json:"user_name"`
	NumPlayers int    `json:"num_players"`
}

// createRoomResponse carries the shareable code of a freshly created room.
type createRoomResponse struct {
	RoomCode string `json:"room_code"`
}

// joinRoomRequest is the body of POST /api/rooms/join.
type joinRoomRequest struct {
	RoomCode string `json:"room_code"`
	UserName string `json:"user_name"`
}

// joinRoomResponse reports the occupants of the room after a successful join.
type joinRoomResponse struct {
	RoomCode string   `json:"room_code"`
	Members  []string `json:"members"`
}

// errorResponse is the JSON error body returned by the room API.
type errorResponse struct {
	Error string `json:"error"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
