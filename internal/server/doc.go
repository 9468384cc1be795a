// Package server implements the multi-room chat backend: the WebSocket
// broadcast core (connections, rooms, registry, session coordination) and
// the thin request/response HTTP surface around it.
//
// The implementation is organized into specialized files for the event
// schema, validation, connection lifecycle, room broadcast, the registry,
// session coordination, configuration, routing, and HTTP handlers to keep
// the codebase maintainable and testable as the project grows.
package server
