// Package server defines the tagged event schema exchanged over the
// WebSocket protocol. Every frame is a single JSON object carrying an
// "event_type" discriminator; DecodeEvent dispatches on it.
package server

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies what kind of event a frame carries.
type EventType string

const (
	// Client → server
	EventConnectionRequest EventType = "connection_request"
	EventRoomSwitchRequest EventType = "room_switch_request"

	// Bidirectional
	EventMessage       EventType = "message"
	EventTyping        EventType = "typing"
	EventRoomCreate    EventType = "room_create"
	EventRoomChatClear EventType = "room_chat_clear"

	// Server → client
	EventConnectionResponse EventType = "connection_response"
	EventConnectionReject   EventType = "connection_reject"
	EventSystem             EventType = "system"
	EventMessageHistory     EventType = "message_history"
	EventUsersOnline        EventType = "users_online"
	EventUserJoin           EventType = "user_join"
	EventUserLeave          EventType = "user_leave"
	EventAllRooms           EventType = "all_rooms"
	EventRoomCreateReject   EventType = "room_create_reject"
	EventRoomSwitchResponse EventType = "room_switch_response"
	EventRoomSwitchReject   EventType = "room_switch_reject"
)

// Severity levels used by system notices.
const (
	SeveritySuccess = "success"
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Event is the closed union of all protocol events. Kind returns the
// discriminator so dispatch sites can switch exhaustively over concrete
// types while still handling events generically.
type Event interface {
	Kind() EventType
}

// HistoryEntry is one stored chat message.
type HistoryEntry struct {
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// UserStatus describes a currently online user.
type UserStatus struct {
	Username    string    `json:"username"`
	ConnectedAt time.Time `json:"connected_at"`
}

// RoomInfo summarizes a room for all_rooms and room_create events.
type RoomInfo struct {
	RoomName       string   `json:"room_name"`
	RoomCreator    string   `json:"room_creator"`
	ConnectedUsers []string `json:"connected_users"`
}

// ConnectionRequest is the first event a client must send: it names the
// username the client wants to claim.
type ConnectionRequest struct {
	Type     EventType `json:"event_type"`
	Username string    `json:"username"`
}

// ConnectionResponse confirms a successful handshake.
type ConnectionResponse struct {
	Type     EventType `json:"event_type"`
	Username string    `json:"username"`
	UserID   string    `json:"user_id"`
}

// ConnectionReject refuses a handshake with a reason.
type ConnectionReject struct {
	Type     EventType `json:"event_type"`
	Response string    `json:"response"`
}

// SystemMessage is a transient notice delivered to one client or a room.
type SystemMessage struct {
	Type     EventType `json:"event_type"`
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
}

// MessageHistory carries a room's chat history on room entry.
type MessageHistory struct {
	Type     EventType      `json:"event_type"`
	Messages []HistoryEntry `json:"messages"`
}

// ChatMessage is a chat line, both inbound and echoed back on broadcast.
type ChatMessage struct {
	Type     EventType `json:"event_type"`
	Username string    `json:"username"`
	Message  string    `json:"message"`
}

// TypingEvent signals that a user started or stopped typing. Never persisted.
type TypingEvent struct {
	Type     EventType `json:"event_type"`
	Username string    `json:"username"`
	IsTyping bool      `json:"is_typing"`
}

// UsersOnline lists a room's members, excluding the recipient.
type UsersOnline struct {
	Type  EventType    `json:"event_type"`
	Users []UserStatus `json:"users"`
}

// UserJoin announces a fresh join to a room.
type UserJoin struct {
	Type     EventType `json:"event_type"`
	Username string    `json:"username"`
}

// UserLeave announces that a member left a room.
type UserLeave struct {
	Type     EventType `json:"event_type"`
	Username string    `json:"username"`
}

// AllRooms is the room-directory snapshot sent after the handshake.
type AllRooms struct {
	Type  EventType  `json:"event_type"`
	Rooms []RoomInfo `json:"rooms"`
}

// RoomChatClear requests a history clear (inbound) or announces one
// (outbound broadcast).
type RoomChatClear struct {
	Type     EventType `json:"event_type"`
	Username string    `json:"username"`
	RoomName string    `json:"room_name"`
}

// RoomCreate requests a room creation (inbound) or announces one to every
// room (outbound broadcast).
type RoomCreate struct {
	Type EventType `json:"event_type"`
	Room RoomInfo  `json:"room"`
}

// RoomCreateReject refuses a room creation with a reason.
type RoomCreateReject struct {
	Type     EventType `json:"event_type"`
	Response string    `json:"response"`
}

// RoomSwitchRequest asks to move this connection to another room. The
// client has not switched until it receives a RoomSwitchResponse.
type RoomSwitchRequest struct {
	Type     EventType `json:"event_type"`
	RoomName string    `json:"room_name"`
}

// RoomSwitchResponse confirms a completed room switch.
type RoomSwitchResponse struct {
	Type     EventType `json:"event_type"`
	RoomName string    `json:"room_name"`
}

// RoomSwitchReject refuses a room switch with a reason.
type RoomSwitchReject struct {
	Type     EventType `json:"event_type"`
	Response string    `json:"response"`
}

func (ConnectionRequest) Kind() EventType  { return EventConnectionRequest }
func (ConnectionResponse) Kind() EventType { return EventConnectionResponse }
func (ConnectionReject) Kind() EventType   { return EventConnectionReject }
func (SystemMessage) Kind() EventType      { return EventSystem }
func (MessageHistory) Kind() EventType     { return EventMessageHistory }
func (ChatMessage) Kind() EventType        { return EventMessage }
func (TypingEvent) Kind() EventType        { return EventTyping }
func (UsersOnline) Kind() EventType        { return EventUsersOnline }
func (UserJoin) Kind() EventType           { return EventUserJoin }
func (UserLeave) Kind() EventType          { return EventUserLeave }
func (AllRooms) Kind() EventType           { return EventAllRooms }
func (RoomChatClear) Kind() EventType      { return EventRoomChatClear }
func (RoomCreate) Kind() EventType         { return EventRoomCreate }
func (RoomCreateReject) Kind() EventType   { return EventRoomCreateReject }
func (RoomSwitchRequest) Kind() EventType  { return EventRoomSwitchRequest }
func (RoomSwitchResponse) Kind() EventType { return EventRoomSwitchResponse }
func (RoomSwitchReject) Kind() EventType   { return EventRoomSwitchReject }

// Constructors set the discriminator so events marshal ready-to-send.

// NewConnectionRequest builds the handshake opener sent by clients.
func NewConnectionRequest(username string) ConnectionRequest {
	return ConnectionRequest{Type: EventConnectionRequest, Username: username}
}

// NewConnectionResponse builds a handshake confirmation.
func NewConnectionResponse(username, userID string) ConnectionResponse {
	return ConnectionResponse{Type: EventConnectionResponse, Username: username, UserID: userID}
}

// NewConnectionReject builds a handshake rejection.
func NewConnectionReject(reason string) ConnectionReject {
	return ConnectionReject{Type: EventConnectionReject, Response: reason}
}

// NewSystemMessage builds a system notice with the given severity.
func NewSystemMessage(severity, message string) SystemMessage {
	return SystemMessage{Type: EventSystem, Severity: severity, Message: message}
}

// NewMessageHistory wraps a history snapshot.
func NewMessageHistory(messages []HistoryEntry) MessageHistory {
	return MessageHistory{Type: EventMessageHistory, Messages: messages}
}

// NewChatMessage builds a chat line.
func NewChatMessage(username, message string) ChatMessage {
	return ChatMessage{Type: EventMessage, Username: username, Message: message}
}

// NewTypingEvent builds a typing indicator.
func NewTypingEvent(username string, isTyping bool) TypingEvent {
	return TypingEvent{Type: EventTyping, Username: username, IsTyping: isTyping}
}

// NewUsersOnline wraps an online-user snapshot.
func NewUsersOnline(users []UserStatus) UsersOnline {
	return UsersOnline{Type: EventUsersOnline, Users: users}
}

// NewUserJoin builds a join announcement.
func NewUserJoin(username string) UserJoin {
	return UserJoin{Type: EventUserJoin, Username: username}
}

// NewUserLeave builds a leave announcement.
func NewUserLeave(username string) UserLeave {
	return UserLeave{Type: EventUserLeave, Username: username}
}

// NewAllRooms wraps a room-directory snapshot.
func NewAllRooms(rooms []RoomInfo) AllRooms {
	return AllRooms{Type: EventAllRooms, Rooms: rooms}
}

// NewRoomChatClear builds a clear notice naming who cleared which room.
func NewRoomChatClear(username, roomName string) RoomChatClear {
	return RoomChatClear{Type: EventRoomChatClear, Username: username, RoomName: roomName}
}

// NewRoomCreate builds a room-created announcement.
func NewRoomCreate(room RoomInfo) RoomCreate {
	return RoomCreate{Type: EventRoomCreate, Room: room}
}

// NewRoomCreateReject builds a room-creation rejection.
func NewRoomCreateReject(reason string) RoomCreateReject {
	return RoomCreateReject{Type: EventRoomCreateReject, Response: reason}
}

// NewRoomSwitchRequest builds a switch request sent by clients.
func NewRoomSwitchRequest(roomName string) RoomSwitchRequest {
	return RoomSwitchRequest{Type: EventRoomSwitchRequest, RoomName: roomName}
}

// NewRoomSwitchResponse builds a switch confirmation.
func NewRoomSwitchResponse(roomName string) RoomSwitchResponse {
	return RoomSwitchResponse{Type: EventRoomSwitchResponse, RoomName: roomName}
}

// NewRoomSwitchReject builds a switch rejection.
func NewRoomSwitchReject(reason string) RoomSwitchReject {
	return RoomSwitchReject{Type: EventRoomSwitchReject, Response: reason}
}

// EncodeEvent serializes an event for the wire.
func EncodeEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeEvent parses a frame into its concrete event type. It returns an
// error for frames that are not JSON, lack a discriminator, or carry an
// unknown one.
func DecodeEvent(data []byte) (Event, error) {
	var probe struct {
		Type EventType `json:"event_type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("invalid event frame: %w", err)
	}

	var (
		ev  Event
		err error
	)
	switch probe.Type {
	case EventConnectionRequest:
		ev, err = decodeAs[ConnectionRequest](data)
	case EventConnectionResponse:
		ev, err = decodeAs[ConnectionResponse](data)
	case EventConnectionReject:
		ev, err = decodeAs[ConnectionReject](data)
	case EventSystem:
		ev, err = decodeAs[SystemMessage](data)
	case EventMessageHistory:
		ev, err = decodeAs[MessageHistory](data)
	case EventMessage:
		ev, err = decodeAs[ChatMessage](data)
	case EventTyping:
		ev, err = decodeAs[TypingEvent](data)
	case EventUsersOnline:
		ev, err = decodeAs[UsersOnline](data)
	case EventUserJoin:
		ev, err = decodeAs[UserJoin](data)
	case EventUserLeave:
		ev, err = decodeAs[UserLeave](data)
	case EventAllRooms:
		ev, err = decodeAs[AllRooms](data)
	case EventRoomChatClear:
		ev, err = decodeAs[RoomChatClear](data)
	case EventRoomCreate:
		ev, err = decodeAs[RoomCreate](data)
	case EventRoomCreateReject:
		ev, err = decodeAs[RoomCreateReject](data)
	case EventRoomSwitchRequest:
		ev, err = decodeAs[RoomSwitchRequest](data)
	case EventRoomSwitchResponse:
		ev, err = decodeAs[RoomSwitchResponse](data)
	case EventRoomSwitchReject:
		ev, err = decodeAs[RoomSwitchReject](data)
	case "":
		return nil, fmt.Errorf("event frame is missing event_type")
	default:
		return nil, fmt.Errorf("unknown event_type %q", probe.Type)
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func decodeAs[T Event](data []byte) (Event, error) {
	var ev T
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("invalid %s event: %w", ev.Kind(), err)
	}
	return ev, nil
}
