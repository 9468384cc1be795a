// Package server validates usernames, room names, and message lengths
// before they reach the broadcast core.
package server

import (
	"regexp"
	"unicode/utf8"
)

const (
	// MaxNameLength caps usernames and room names, counted in runes.
	MaxNameLength = 20
	// MaxMessageLength caps chat messages, counted in runes.
	MaxMessageLength = 1000
)

// Accented letters are allowed so Nordic names survive the workshop demo.
var namePattern = regexp.MustCompile(`^[a-zA-ZåäöÅÄÖ0-9_ -]+$`)

// ValidateUsername reports why a username is unacceptable, or "" when it
// is fine. Pure and deterministic.
func ValidateUsername(username string) string {
	if utf8.RuneCountInString(username) > MaxNameLength {
		return "Username is too long"
	}
	if !namePattern.MatchString(username) {
		return "Username contains invalid characters"
	}
	return ""
}

// ValidateRoomName reports why a room name is unacceptable, or "" when it
// is fine. Rooms share the username length cap and character set.
func ValidateRoomName(roomName string) string {
	if utf8.RuneCountInString(roomName) > MaxNameLength {
		return "Room name is too long"
	}
	if !namePattern.MatchString(roomName) {
		return "Room name contains invalid characters"
	}
	return ""
}

// ValidateMessage reports why a chat message is unacceptable, or "" when
// it is fine.
func ValidateMessage(message string) string {
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return "Message too long, I refuse to broadcast this"
	}
	return ""
}
