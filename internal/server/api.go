// Package server implements the request/response HTTP surface: posting a
// message into a room without a live connection, fetching history, listing
// rooms, and the history-reset backdoor used by tests.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// PostMessageRequest is the body of the send-message endpoints.
type PostMessageRequest struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type messagesResponse struct {
	Messages []HistoryEntry `json:"messages"`
}

type roomsResponse struct {
	Rooms []RoomInfo `json:"rooms"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error writing JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// PostMessageHandler accepts a chat message from outside a live connection
// and forwards it to the target room's broadcast, creating the room on
// first reference. The bare /send-message endpoint targets the global room.
func PostMessageHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomName := mux.Vars(r)["room"]
		if roomName == "" {
			roomName = GlobalRoomName
		} else if reason := ValidateRoomName(roomName); reason != "" {
			writeError(w, http.StatusBadRequest, reason)
			return
		}

		var req PostMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		username := strings.TrimSpace(req.Username)
		message := strings.TrimSpace(req.Message)

		if username == "" {
			writeError(w, http.StatusBadRequest, "Username cannot be empty")
			return
		}
		if reason := ValidateUsername(username); reason != "" {
			writeError(w, http.StatusBadRequest, reason)
			return
		}
		if message == "" {
			writeError(w, http.StatusBadRequest, "Message cannot be empty")
			return
		}
		if reason := ValidateMessage(message); reason != "" {
			writeError(w, http.StatusBadRequest, reason)
			return
		}

		room, _ := createAndAnnounceRoom(reg, roomName, username)
		room.Broadcast(NewChatMessage(username, message))

		writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Message sent"})
	}
}

// MessagesHandler returns a room's chat history. The bare /messages
// endpoint targets the global room; an unknown room yields empty history.
func MessagesHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomName := mux.Vars(r)["room"]
		if roomName == "" {
			roomName = GlobalRoomName
		} else if reason := ValidateRoomName(roomName); reason != "" {
			writeError(w, http.StatusBadRequest, reason)
			return
		}

		history := []HistoryEntry{}
		if room, ok := reg.Room(roomName); ok {
			history = room.History()
		}
		writeJSON(w, http.StatusOK, messagesResponse{Messages: history})
	}
}

// RoomsHandler returns the all-rooms snapshot.
func RoomsHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, roomsResponse{Rooms: reg.ListRooms()})
	}
}

// ClearChatHandler empties the global room's history. Unlike the WebSocket
// clear path this deliberately bypasses the global-room guard; it exists
// so tests can reset state.
func ClearChatHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		reg.GlobalRoom().resetHistory()
		writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Chat cleared"})
	}
}
