// Package server exposes the HTTP surface: WebSocket upgrades for the two
// relay endpoints, the out-of-band room API, and the health check.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// Handlers bundles the HTTP handlers around a shared router and registry.
type Handlers struct {
	router   *Router
	registry *Registry
}

// NewHandlers wires the HTTP surface to the given router and registry.
func NewHandlers(router *Router, registry *Registry) *Handlers {
	return &Handlers{router: router, registry: registry}
}

// Game handles WebSocket upgrades on the game endpoint. Without a "room"
// query parameter the caller gets a fresh room; with one, the caller joins
// that room.
func (h *Handlers) Game(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, r.RemoteAddr)
	h.router.ServeGame(client, r.URL.Query().Get("room"))
}

// Join handles WebSocket upgrades on the pre-provisioned-room endpoint. The
// "room" and "user" query parameters must match an identity reserved
// through the room API.
func (h *Handlers) Join(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	roomCode := r.URL.Query().Get("room")
	userName := r.URL.Query().Get("user")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, r.RemoteAddr)
	h.router.ServeRelay(client, roomCode, userName)
}

// CreateRoom handles POST /api/rooms: creates a room with a random
// shareable code and reserves the creator's identity in it.
func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserName == "" {
		writeJSONError(w, http.StatusBadRequest, "user_name is required")
		return
	}

	cfg := currentConfig()
	capacity := req.NumPlayers
	if capacity <= 0 {
		capacity = cfg.DefaultRoomCapacity
	}
	if capacity > cfg.MaxRoomCapacity {
		writeJSONError(w, http.StatusBadRequest,
			fmt.Sprintf("num_players must be at most %d", cfg.MaxRoomCapacity))
		return
	}

	room, _ := h.registry.CreateRoom(capacity, req.RoomName, req.UserName, RandomCode(cfg.RoomCodeLength))
	writeJSON(w, http.StatusOK, createRoomResponse{RoomCode: room.ID})
}

// JoinRoom handles POST /api/rooms/join: reserves an identity in an
// existing room ahead of the WebSocket connect step.
func (h *Handlers) JoinRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserName == "" {
		writeJSONError(w, http.StatusBadRequest, "user_name is required")
		return
	}

	room, _, err := h.registry.JoinRoom(req.RoomCode, req.UserName)
	if err != nil {
		status := http.StatusConflict
		if errors.Is(err, ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		writeJSONError(w, status, closeReason(err))
		return
	}

	writeJSON(w, http.StatusOK, joinRoomResponse{
		RoomCode: room.ID,
		Members:  room.MemberNames(),
	})
}

// Health provides a simple health check endpoint that returns server status.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Room relay server is running!")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error writing JSON response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
