// Package unit contains unit tests for individual components of the chat
// backend.
//
// These tests exercise specific functions and methods in isolation, without
// real sockets, so each component's behavior can be pinned down under
// various conditions.
package unit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TorVallin/WebSockets-Workshop-Backend/internal/server"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     string
	}{
		{"simple", "alice", ""},
		{"digits and separators", "alice_2 -b", ""},
		{"nordic letters", "Åsa Ögren", ""},
		{"exactly max length", strings.Repeat("a", server.MaxNameLength), ""},
		{"max length in runes not bytes", strings.Repeat("å", server.MaxNameLength), ""},
		{"too long", strings.Repeat("a", server.MaxNameLength+1), "Username is too long"},
		{"empty", "", "Username contains invalid characters"},
		{"punctuation", "alice!", "Username contains invalid characters"},
		{"emoji", "alice🎉", "Username contains invalid characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, server.ValidateUsername(tt.username))
		})
	}
}

func TestValidateRoomName(t *testing.T) {
	tests := []struct {
		name     string
		roomName string
		want     string
	}{
		{"simple", "Lobby", ""},
		{"with spaces", "Team Rocket", ""},
		{"too long", strings.Repeat("r", server.MaxNameLength+1), "Room name is too long"},
		{"empty", "", "Room name contains invalid characters"},
		{"slash", "a/b", "Room name contains invalid characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, server.ValidateRoomName(tt.roomName))
		})
	}
}

func TestValidateMessage(t *testing.T) {
	assert.Empty(t, server.ValidateMessage("hello there"))
	assert.Empty(t, server.ValidateMessage(""))

	// Messages have no character restrictions, only a length cap.
	assert.Empty(t, server.ValidateMessage("emoji 🎉 and <html> & \"quotes\""))
	assert.Empty(t, server.ValidateMessage(strings.Repeat("x", server.MaxMessageLength)))
	assert.Empty(t, server.ValidateMessage(strings.Repeat("å", server.MaxMessageLength)))

	tooLong := strings.Repeat("x", server.MaxMessageLength+1)
	assert.Equal(t, "Message too long, I refuse to broadcast this", server.ValidateMessage(tooLong))
}
