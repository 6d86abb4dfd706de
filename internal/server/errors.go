// Package server defines the admission error taxonomy shared by the room,
// registry, and router layers.
package server

import (
	"errors"

	"github.com/gorilla/websocket"
)

// Admission errors. All of them are terminal for the connection that
// triggered them: the client only ever observes a close frame carrying the
// matching reason text.
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room full")
	ErrDuplicateIdentity = errors.New("duplicate identity")
	ErrUnknownIdentity   = errors.New("unknown identity")
)

// closeReason maps an admission error to the close reason text sent to the
// client. Unrecognized errors fall back to a generic reason rather than
// leaking internals.
func closeReason(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, ErrRoomFull):
		return "room is full"
	case errors.Is(err, ErrDuplicateIdentity):
		return "name already taken"
	case errors.Is(err, ErrUnknownIdentity):
		return "unknown identity"
	default:
		return "admission failed"
	}
}

// admissionCloseCode is the websocket close code used for every admission
// failure; the reason text distinguishes the cause.
const admissionCloseCode = websocket.ClosePolicyViolation
