// Package server wires the WebSocket and REST handlers into a router.
package server

import "github.com/gorilla/mux"

// NewRouter configures the application router. Fixed paths are registered
// before the {room} wildcards so /rooms and /messages are never captured
// as room names.
func NewRouter(reg *Registry) *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware)

	r.HandleFunc("/", HealthHandler).Methods("GET")
	r.HandleFunc("/ws", WebSocketHandler(reg)).Methods("GET")
	r.HandleFunc("/ws/{room}", WebSocketHandler(reg)).Methods("GET")

	r.HandleFunc("/send-message", PostMessageHandler(reg)).Methods("POST")
	r.HandleFunc("/messages", MessagesHandler(reg)).Methods("GET")
	r.HandleFunc("/rooms", RoomsHandler(reg)).Methods("GET")
	r.HandleFunc("/clear-chat", ClearChatHandler(reg)).Methods("DELETE")

	r.HandleFunc("/{room}/send-message", PostMessageHandler(reg)).Methods("POST")
	r.HandleFunc("/{room}/messages", MessagesHandler(reg)).Methods("GET")

	return r
}
