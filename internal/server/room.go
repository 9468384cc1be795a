// Package server implements the Room broadcast domain: membership,
// append-only chat history, and fan-out to member delivery queues.
package server

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// Room is a named broadcast domain. Joins, leaves, broadcasts, and history
// mutation are serialized by one mutex so history append order always
// matches the order events are enqueued to members.
type Room struct {
	name string

	mu      sync.Mutex
	creator string
	members map[string]*Conn
	history []HistoryEntry
}

func newRoom(name string) *Room {
	return &Room{
		name:    name,
		members: make(map[string]*Conn),
	}
}

// Name returns the room's unique name.
func (r *Room) Name() string { return r.name }

// Creator returns the username that created the room.
func (r *Room) Creator() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creator
}

// SetCreator records the creating username. It is set once, at creation;
// later calls are ignored.
func (r *Room) SetCreator(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.creator == "" {
		r.creator = username
	}
}

// Join adds a connection to the member set. No history side effect.
func (r *Room) Join(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[c.ID()] = c
}

// Leave removes a connection from the member set. No history side effect.
func (r *Room) Leave(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, connID)
}

// MemberCount returns the current number of members.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Broadcast delivers an event to every current member, including the
// sender. Chat messages are appended to history first, so history order is
// the single source of truth for message order. The event is serialized
// once; a member whose delivery queue is full is disconnected without
// affecting the others.
func (r *Room) Broadcast(ev Event) {
	payload, err := EncodeEvent(ev)
	if err != nil {
		log.Printf("Error encoding %s broadcast for room %q: %v", ev.Kind(), r.name, err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if msg, ok := ev.(ChatMessage); ok {
		r.history = append(r.history, HistoryEntry{
			Username:  msg.Username,
			Message:   msg.Message,
			Timestamp: time.Now(),
		})
	}

	// Membership cannot change while the lock is held, so iterating the
	// map directly is a stable snapshot. Enqueue never blocks; a capacity
	// failure closes that member from its own goroutine.
	for _, member := range r.members {
		member.Enqueue(payload)
	}
}

// History returns a copy of the room's chat history.
func (r *Room) History() []HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]HistoryEntry(nil), r.history...)
}

// ClearHistory empties the room's chat history. The global room's history
// cannot be cleared; attempts are rejected with an error.
func (r *Room) ClearHistory() error {
	if r.name == GlobalRoomName {
		return fmt.Errorf("history of the global room %q cannot be cleared", GlobalRoomName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
	return nil
}

// resetHistory force-clears history without the global-room guard. Only the
// HTTP test backdoor uses it.
func (r *Room) resetHistory() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
}

// ListOnline returns the room's members ordered by join time.
func (r *Room) ListOnline() []UserStatus {
	r.mu.Lock()
	users := make([]UserStatus, 0, len(r.members))
	for _, member := range r.members {
		users = append(users, UserStatus{
			Username:    member.Username(),
			ConnectedAt: member.JoinedAt(),
		})
	}
	r.mu.Unlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].ConnectedAt.Equal(users[j].ConnectedAt) {
			return users[i].Username < users[j].Username
		}
		return users[i].ConnectedAt.Before(users[j].ConnectedAt)
	})
	return users
}

// Info summarizes the room for all_rooms and room_create events.
func (r *Room) Info() RoomInfo {
	online := r.ListOnline()
	names := make([]string, 0, len(online))
	for _, user := range online {
		names = append(names, user.Username)
	}

	return RoomInfo{
		RoomName:       r.name,
		RoomCreator:    r.Creator(),
		ConnectedUsers: names,
	}
}
