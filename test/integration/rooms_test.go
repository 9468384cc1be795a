package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TorVallin/WebSockets-Workshop-Backend/internal/server"
	"github.com/TorVallin/WebSockets-Workshop-Backend/test/testhelpers"
)

// TestRoomCreateIsAnnouncedEverywhere verifies that creating a room over
// the protocol announces it to existing rooms and records the creator.
func TestRoomCreateIsAnnouncedEverywhere(t *testing.T) {
	ts, reg := testhelpers.NewTestServer(t)

	alice := testhelpers.JoinChat(t, ts, "", "alice")

	testhelpers.SendEvent(t, alice, server.NewRoomCreate(server.RoomInfo{RoomName: "Ops"}))

	announcement := testhelpers.WaitFor[server.RoomCreate](t, alice)
	assert.Equal(t, "Ops", announcement.Room.RoomName)
	assert.Equal(t, "alice", announcement.Room.RoomCreator)

	room, ok := reg.Room("Ops")
	require.True(t, ok)
	assert.Equal(t, "alice", room.Creator())
	assert.Equal(t, 0, room.MemberCount(), "creating a room must not move the creator into it")
}

func TestRoomCreateDuplicateIsRejected(t *testing.T) {
	ts, _ := testhelpers.NewTestServer(t)

	alice := testhelpers.JoinChat(t, ts, "", "alice")

	testhelpers.SendEvent(t, alice, server.NewRoomCreate(server.RoomInfo{RoomName: "Ops"}))
	testhelpers.WaitFor[server.RoomCreate](t, alice)

	testhelpers.SendEvent(t, alice, server.NewRoomCreate(server.RoomInfo{RoomName: "Ops"}))
	reject := testhelpers.WaitFor[server.RoomCreateReject](t, alice)
	assert.Equal(t, "Room Ops already exists", reject.Response)
}

func TestRoomCreateInvalidNameIsRejected(t *testing.T) {
	ts, _ := testhelpers.NewTestServer(t)

	alice := testhelpers.JoinChat(t, ts, "", "alice")

	testhelpers.SendEvent(t, alice, server.NewRoomCreate(server.RoomInfo{RoomName: "no/slashes"}))
	reject := testhelpers.WaitFor[server.RoomCreateReject](t, alice)
	assert.Equal(t, "Room name contains invalid characters", reject.Response)
}

// TestRoomSwitch verifies the full switch flow: the switcher gets a
// confirmation followed by the destination's history and online users, the
// origin room sees a leave, and no join is announced in the destination.
func TestRoomSwitch(t *testing.T) {
	ts, reg := testhelpers.NewTestServer(t)

	alice := testhelpers.JoinChat(t, ts, "", "alice")
	bob := testhelpers.JoinChat(t, ts, "", "bob")
	testhelpers.WaitFor[server.UserJoin](t, alice)

	testhelpers.SendEvent(t, alice, server.NewRoomCreate(server.RoomInfo{RoomName: "Ops"}))
	testhelpers.WaitFor[server.RoomCreate](t, alice)
	testhelpers.WaitFor[server.RoomCreate](t, bob)

	testhelpers.SendEvent(t, alice, server.NewRoomSwitchRequest("Ops"))

	confirmed := testhelpers.ExpectEvent[server.RoomSwitchResponse](t, alice)
	assert.Equal(t, "Ops", confirmed.RoomName)

	history := testhelpers.ExpectEvent[server.MessageHistory](t, alice)
	assert.Empty(t, history.Messages)

	online := testhelpers.ExpectEvent[server.UsersOnline](t, alice)
	assert.Empty(t, online.Users)

	// Bob, left behind in the global room, sees the departure.
	leave := testhelpers.WaitFor[server.UserLeave](t, bob)
	assert.Equal(t, "alice", leave.Username)

	// The destination does not announce a join for a switch. A chat line
	// sent right after serves as a fence: nothing but the echo may arrive.
	testhelpers.SendEvent(t, alice, server.NewChatMessage("alice", "anyone here?"))
	next := testhelpers.ReadEvent(t, alice)
	echo, ok := next.(server.ChatMessage)
	require.True(t, ok, "expected the chat echo, got %s", next.Kind())
	assert.Equal(t, "anyone here?", echo.Message)

	ops, _ := reg.Room("Ops")
	assert.Equal(t, 1, ops.MemberCount())
	assert.Equal(t, 1, reg.GlobalRoom().MemberCount())
}

func TestRoomSwitchToUnknownRoomIsRejected(t *testing.T) {
	ts, reg := testhelpers.NewTestServer(t)

	alice := testhelpers.JoinChat(t, ts, "", "alice")

	testhelpers.SendEvent(t, alice, server.NewRoomSwitchRequest("Nowhere"))
	reject := testhelpers.WaitFor[server.RoomSwitchReject](t, alice)
	assert.Equal(t, "Room Nowhere not found", reject.Response)

	// The session stays in its original room and keeps working.
	testhelpers.SendEvent(t, alice, server.NewChatMessage("alice", "still global"))
	echo := testhelpers.WaitFor[server.ChatMessage](t, alice)
	assert.Equal(t, "still global", echo.Message)
	assert.Equal(t, 1, reg.GlobalRoom().MemberCount())
}

// TestRoomChatClear verifies clearing a room's history over the protocol,
// including the broadcast notice.
func TestRoomChatClear(t *testing.T) {
	ts, reg := testhelpers.NewTestServer(t)

	alice := testhelpers.JoinChat(t, ts, "", "alice")

	testhelpers.SendEvent(t, alice, server.NewRoomCreate(server.RoomInfo{RoomName: "Ops"}))
	testhelpers.WaitFor[server.RoomCreate](t, alice)
	testhelpers.SendEvent(t, alice, server.NewRoomSwitchRequest("Ops"))
	testhelpers.WaitFor[server.RoomSwitchResponse](t, alice)

	testhelpers.SendEvent(t, alice, server.NewChatMessage("alice", "sensitive"))
	testhelpers.WaitFor[server.ChatMessage](t, alice)

	testhelpers.SendEvent(t, alice, server.NewRoomChatClear("alice", "Ops"))

	cleared := testhelpers.WaitFor[server.RoomChatClear](t, alice)
	assert.Equal(t, "alice", cleared.Username)
	assert.Equal(t, "Ops", cleared.RoomName)

	ops, _ := reg.Room("Ops")
	assert.Empty(t, ops.History())
}

func TestGlobalRoomCannotBeCleared(t *testing.T) {
	ts, reg := testhelpers.NewTestServer(t)

	alice := testhelpers.JoinChat(t, ts, "", "alice")

	testhelpers.SendEvent(t, alice, server.NewChatMessage("alice", "keep me"))
	testhelpers.WaitFor[server.ChatMessage](t, alice)

	testhelpers.SendEvent(t, alice, server.NewRoomChatClear("alice", server.GlobalRoomName))

	notice := testhelpers.WaitFor[server.SystemMessage](t, alice)
	assert.Equal(t, server.SeverityError, notice.Severity)
	assert.Equal(t, "alice tried clearing the global room!", notice.Message)
	assert.Len(t, reg.GlobalRoom().History(), 1)
}

func TestClearForUnknownRoom(t *testing.T) {
	ts, _ := testhelpers.NewTestServer(t)

	alice := testhelpers.JoinChat(t, ts, "", "alice")

	testhelpers.SendEvent(t, alice, server.NewRoomChatClear("alice", "Nowhere"))

	notice := testhelpers.WaitFor[server.SystemMessage](t, alice)
	assert.Equal(t, server.SeverityError, notice.Severity)
	assert.Equal(t, "Room Nowhere not found", notice.Message)
}

// TestClearAsSomeoneElseIsCalledOut verifies that a clear request carrying
// a different username still executes but the spoof is announced.
func TestClearAsSomeoneElseIsCalledOut(t *testing.T) {
	ts, reg := testhelpers.NewTestServer(t)

	alice := testhelpers.JoinChat(t, ts, "", "alice")

	testhelpers.SendEvent(t, alice, server.NewRoomCreate(server.RoomInfo{RoomName: "Ops"}))
	testhelpers.WaitFor[server.RoomCreate](t, alice)

	testhelpers.SendEvent(t, alice, server.NewRoomChatClear("mallory", "Ops"))

	cleared := testhelpers.WaitFor[server.RoomChatClear](t, alice)
	assert.Equal(t, "alice", cleared.Username, "the notice names the actual user")

	warning := testhelpers.WaitFor[server.SystemMessage](t, alice)
	assert.Equal(t, server.SeverityWarning, warning.Severity)
	assert.Equal(t, "alice tried clearing the chat as mallory", warning.Message)

	ops, _ := reg.Room("Ops")
	assert.Empty(t, ops.History())
}
