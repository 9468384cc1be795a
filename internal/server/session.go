// Package server coordinates the lifecycle of one connection: the
// admission handshake, event dispatch while active, room switches, and
// teardown. The progression is Connecting → Handshaking → Active(room) →
// (SwitchingRoom → Active(newRoom))* → Closed.
package server

import (
	"fmt"
	"log"
	"strings"

	"github.com/gorilla/websocket"
)

// Session owns one Conn for its whole lifetime and is the only place that
// reassigns its current room.
type Session struct {
	registry *Registry
	conn     *Conn
	room     *Room
}

// RunSession performs the admission handshake on an upgraded socket and,
// when it succeeds, serves the connection until it disconnects. An empty
// roomName targets the global room. It blocks until the session is over;
// cleanup (close, unregister, leave) runs exactly once on every exit path.
func RunSession(reg *Registry, ws *websocket.Conn, roomName string) {
	if roomName == "" {
		roomName = GlobalRoomName
	}
	if reason := ValidateRoomName(roomName); reason != "" {
		rejectSocket(ws, reason)
		return
	}

	conn, room, created := handshake(reg, ws, roomName)
	if conn == nil {
		return
	}

	s := &Session{registry: reg, conn: conn, room: room}
	defer s.cleanup()

	if created {
		room.SetCreator(conn.Username())
		announceNewRoom(reg, roomName, conn.Username())
	}

	log.Printf("User %s connected to room %q, sending startup data", conn, roomName)
	s.sendStartupData()
	s.sendRoomIntro()
	// A fresh join, unlike a room switch, is announced to the room.
	s.room.Broadcast(NewUserJoin(conn.Username()))

	s.serveLoop()
}

// handshake reads the connection request, validates the username, and
// claims it. On failure it sends a typed rejection, closes the socket, and
// returns a nil Conn; nothing has been registered anywhere.
func handshake(reg *Registry, ws *websocket.Conn, roomName string) (*Conn, *Room, bool) {
	ws.SetReadLimit(currentConfig().MaxMessageSize)

	_, raw, err := ws.ReadMessage()
	if err != nil {
		log.Printf("Socket closed before the connection request: %v", err)
		_ = ws.Close()
		return nil, nil, false
	}

	ev, err := DecodeEvent(raw)
	if err != nil {
		log.Printf("Invalid connection request: %v", err)
		rejectSocket(ws, "Invalid connection request")
		return nil, nil, false
	}
	req, ok := ev.(ConnectionRequest)
	if !ok {
		rejectSocket(ws, fmt.Sprintf("Expected a connection_request event, got %s", ev.Kind()))
		return nil, nil, false
	}

	if reason := ValidateUsername(req.Username); reason != "" {
		log.Printf("Rejecting username %q: %s", req.Username, reason)
		rejectSocket(ws, reason)
		return nil, nil, false
	}
	username := strings.TrimSpace(req.Username)

	conn := NewConn(ws, username)
	if !reg.RegisterUsername(username, conn) {
		log.Printf("Username %q is already taken", username)
		rejectSocket(ws, "Username is already taken")
		return nil, nil, false
	}

	conn.StartWriter()
	conn.setupRead()

	room, created := reg.GetOrCreateRoom(roomName)
	room.Join(conn)
	conn.setRoom(room)
	return conn, room, created
}

// rejectSocket answers a failed handshake directly on the socket; no Conn
// exists yet at this point.
func rejectSocket(ws *websocket.Conn, reason string) {
	payload, err := EncodeEvent(NewConnectionReject(reason))
	if err == nil {
		_ = ws.WriteMessage(websocket.TextMessage, payload)
	}
	_ = ws.Close()
}

// sendStartupData delivers the connection confirmation and the room
// directory snapshot. Sent once per session, never after room switches.
func (s *Session) sendStartupData() {
	s.conn.SendEvent(NewConnectionResponse(s.conn.Username(), s.conn.ID()))
	s.conn.SendEvent(NewAllRooms(s.registry.ListRooms()))
}

// sendRoomIntro delivers the current room's chat history and its online
// users, excluding the recipient. Sent on first entry to a room, both
// after the handshake and after a completed switch.
func (s *Session) sendRoomIntro() {
	s.conn.SendEvent(NewMessageHistory(s.room.History()))

	online := s.room.ListOnline()
	others := make([]UserStatus, 0, len(online))
	for _, user := range online {
		if user.Username != s.conn.Username() {
			others = append(others, user)
		}
	}
	s.conn.SendEvent(NewUsersOnline(others))
}

// serveLoop alternates between serving the active room and performing
// requested room switches until the connection terminates.
func (s *Session) serveLoop() {
	for {
		switchReq, err := s.serve()
		if err != nil {
			if isDisconnect(err) {
				log.Printf("User %s disconnected, exiting session", s.conn)
			} else {
				log.Printf("Unexpected read error for %s: %v", s.conn, err)
			}
			return
		}

		// A failed switch leaves the session in its original room with no
		// re-send of history.
		if s.switchRoom(switchReq.RoomName) {
			s.sendRoomIntro()
		}
	}
}

// serve is the receive path of the active state. It dispatches inbound
// events until a room switch is requested, which it returns as an ordinary
// control result, or the socket terminates.
func (s *Session) serve() (*RoomSwitchRequest, error) {
	for {
		ev, err := s.conn.ReadEvent()
		if err != nil {
			return nil, err
		}

		switch ev := ev.(type) {
		case ChatMessage:
			s.handleChat(ev)
		case TypingEvent:
			// Relayed immediately, never persisted.
			s.room.Broadcast(ev)
		case RoomCreate:
			s.handleRoomCreate(ev)
		case RoomChatClear:
			s.handleChatClear(ev)
		case RoomSwitchRequest:
			return &ev, nil
		default:
			log.Printf("Ignoring unexpected %s event from %s", ev.Kind(), s.conn)
		}
	}
}

func (s *Session) handleChat(ev ChatMessage) {
	if reason := ValidateMessage(ev.Message); reason != "" {
		s.conn.SendEvent(NewSystemMessage(SeverityError, reason))
		return
	}
	s.room.Broadcast(NewChatMessage(ev.Username, ev.Message))
}

func (s *Session) handleRoomCreate(ev RoomCreate) {
	name := ev.Room.RoomName
	if reason := ValidateRoomName(name); reason != "" {
		s.conn.SendEvent(NewRoomCreateReject(reason))
		return
	}

	if _, created := createAndAnnounceRoom(s.registry, name, s.conn.Username()); !created {
		s.conn.SendEvent(NewRoomCreateReject(fmt.Sprintf("Room %s already exists", name)))
	}
}

func (s *Session) handleChatClear(ev RoomChatClear) {
	username := s.conn.Username()

	if ev.RoomName == GlobalRoomName {
		s.room.Broadcast(NewSystemMessage(SeverityError,
			fmt.Sprintf("%s tried clearing the global room!", username)))
		return
	}

	target, ok := s.registry.Room(ev.RoomName)
	if !ok {
		s.conn.SendEvent(NewSystemMessage(SeverityError,
			fmt.Sprintf("Room %s not found", ev.RoomName)))
		return
	}
	if err := target.ClearHistory(); err != nil {
		s.room.Broadcast(NewSystemMessage(SeverityError,
			fmt.Sprintf("%s tried clearing the global room!", username)))
		return
	}

	// The notice goes to the requester's current room, whichever room was
	// cleared, and names the actual connection's username.
	s.room.Broadcast(NewRoomChatClear(username, ev.RoomName))
	if ev.Username != username {
		s.room.Broadcast(NewSystemMessage(SeverityWarning,
			fmt.Sprintf("%s tried clearing the chat as %s", username, ev.Username)))
	}
}

// switchRoom moves the connection to an existing room. The origin room
// broadcasts the departure after the switcher leaves its member set, so
// switchers never see their own leave event. The destination room does not
// broadcast a join: switching is deliberately not treated as a fresh join.
func (s *Session) switchRoom(name string) bool {
	log.Printf("Attempting to switch %s from room %q to %q", s.conn, s.room.Name(), name)

	newRoom, ok := s.registry.Room(name)
	if !ok {
		log.Printf("Room %q not found, failing room switch for %s", name, s.conn)
		s.conn.SendEvent(NewRoomSwitchReject(fmt.Sprintf("Room %s not found", name)))
		return false
	}

	oldRoom := s.room
	oldRoom.Leave(s.conn.ID())
	oldRoom.Broadcast(NewUserLeave(s.conn.Username()))

	newRoom.Join(s.conn)
	s.conn.setRoom(newRoom)
	s.room = newRoom

	s.conn.SendEvent(NewRoomSwitchResponse(name))
	return true
}

// cleanup tears the session down exactly once: the close broadcasts the
// departure in whatever room the connection currently occupies, then the
// username is released and the membership reference removed.
func (s *Session) cleanup() {
	log.Printf("User %s disconnected, cleaning up", s.conn)
	s.conn.Close()
	s.registry.UnregisterUsername(s.conn.Username())
	if room := s.conn.Room(); room != nil {
		room.Leave(s.conn.ID())
	}
}

// createAndAnnounceRoom is the shared create path for the WebSocket and
// HTTP surfaces: at most one creation wins, and a winning creation is
// announced to every room in the registry.
func createAndAnnounceRoom(reg *Registry, name, creator string) (*Room, bool) {
	room, created := reg.GetOrCreateRoom(name)
	if created {
		room.SetCreator(creator)
		announceNewRoom(reg, name, creator)
	}
	return room, created
}

// announceNewRoom broadcasts a room_create event to every existing room.
// Each room's broadcast is independently serialized; no lock spans rooms.
func announceNewRoom(reg *Registry, roomName, creator string) {
	ev := NewRoomCreate(RoomInfo{
		RoomName:       roomName,
		RoomCreator:    creator,
		ConnectedUsers: []string{creator},
	})
	for _, room := range reg.Rooms() {
		room.Broadcast(ev)
	}
}
