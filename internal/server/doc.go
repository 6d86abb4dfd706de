// Package server implements the core HTTP and WebSocket functionality of the
// room relay service.
//
// The implementation is organized into specialized files for configuration,
// rooms, the registry, the relay router, clients, routing, and HTTP handlers
// to keep the codebase maintainable and testable as the project grows.
package server
