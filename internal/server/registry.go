// Package server implements the process-wide Registry: the directory of
// rooms and of usernames currently in use anywhere on the server.
package server

import (
	"log"
	"sync"
)

// GlobalRoomName is the distinguished room that exists for the process
// lifetime. It cannot be reclaimed and its history cannot be cleared over
// the WebSocket protocol.
const GlobalRoomName = "Global"

// Registry maps room names to rooms and usernames to live connections.
// Both directories enforce global uniqueness through atomic
// check-and-insert operations. Room insertion order is preserved so
// all_rooms snapshots always list the global room first, then creation
// order.
type Registry struct {
	mu        sync.Mutex
	rooms     map[string]*Room
	roomOrder []string
	users     map[string]*Conn
}

// NewRegistry creates a registry with the global room already present.
func NewRegistry() *Registry {
	reg := &Registry{
		rooms: make(map[string]*Room),
		users: make(map[string]*Conn),
	}
	reg.rooms[GlobalRoomName] = newRoom(GlobalRoomName)
	reg.roomOrder = append(reg.roomOrder, GlobalRoomName)
	return reg
}

// GlobalRoom returns the distinguished always-present room.
func (reg *Registry) GlobalRoom() *Room {
	room, _ := reg.Room(GlobalRoomName)
	return room
}

// Room looks up a room by name.
func (reg *Registry) Room(name string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[name]
	return room, ok
}

// GetOrCreateRoom returns the named room, creating it when absent. The
// look-up-or-insert is atomic: with concurrent creators of the same name,
// at most one creation wins and every caller observes the same room.
func (reg *Registry) GetOrCreateRoom(name string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if room, ok := reg.rooms[name]; ok {
		return room, false
	}

	room := newRoom(name)
	reg.rooms[name] = room
	reg.roomOrder = append(reg.roomOrder, name)
	log.Printf("Created new room: %s", name)
	return room, true
}

// RegisterUsername claims a username for a connection. The check-and-insert
// is atomic; it reports false when the username is already taken anywhere
// on the server.
func (reg *Registry) RegisterUsername(username string, c *Conn) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, taken := reg.users[username]; taken {
		return false
	}
	reg.users[username] = c
	return true
}

// UnregisterUsername releases a username.
func (reg *Registry) UnregisterUsername(username string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.users, username)
}

// UsernameTaken reports whether a username is currently in use.
func (reg *Registry) UsernameTaken(username string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	_, taken := reg.users[username]
	return taken
}

// Rooms returns a snapshot of all rooms in insertion order. Callers
// broadcast to each room independently; no registry lock is held while
// they do.
func (reg *Registry) Rooms() []*Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rooms := make([]*Room, 0, len(reg.roomOrder))
	for _, name := range reg.roomOrder {
		rooms = append(rooms, reg.rooms[name])
	}
	return rooms
}

// ListRooms summarizes every room, in insertion order, by asking each room
// for its online members.
func (reg *Registry) ListRooms() []RoomInfo {
	rooms := reg.Rooms()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		infos = append(infos, room.Info())
	}
	return infos
}

// SweepEmptyRooms reclaims rooms whose membership reached zero, never the
// global room. It returns how many rooms were removed.
func (reg *Registry) SweepEmptyRooms() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	removed := 0
	kept := reg.roomOrder[:0]
	for _, name := range reg.roomOrder {
		room := reg.rooms[name]
		if name != GlobalRoomName && room.MemberCount() == 0 {
			delete(reg.rooms, name)
			removed++
			log.Printf("Reclaimed empty room: %s", name)
			continue
		}
		kept = append(kept, name)
	}
	reg.roomOrder = kept
	return removed
}
