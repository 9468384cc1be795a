package unit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TorVallin/WebSockets-Workshop-Backend/internal/server"
)

func TestDecodeEventDispatchesOnDiscriminator(t *testing.T) {
	payload, err := server.EncodeEvent(server.NewChatMessage("alice", "hi"))
	require.NoError(t, err)

	ev, err := server.DecodeEvent(payload)
	require.NoError(t, err)

	msg, ok := ev.(server.ChatMessage)
	require.True(t, ok, "expected a ChatMessage, got %T", ev)
	assert.Equal(t, server.EventMessage, msg.Kind())
	assert.Equal(t, "alice", msg.Username)
	assert.Equal(t, "hi", msg.Message)
}

func TestDecodeEventClientRequests(t *testing.T) {
	ev, err := server.DecodeEvent([]byte(`{"event_type":"connection_request","username":"bob"}`))
	require.NoError(t, err)
	req, ok := ev.(server.ConnectionRequest)
	require.True(t, ok, "expected a ConnectionRequest, got %T", ev)
	assert.Equal(t, "bob", req.Username)

	ev, err = server.DecodeEvent([]byte(`{"event_type":"room_switch_request","room_name":"Lobby"}`))
	require.NoError(t, err)
	sw, ok := ev.(server.RoomSwitchRequest)
	require.True(t, ok, "expected a RoomSwitchRequest, got %T", ev)
	assert.Equal(t, "Lobby", sw.RoomName)
}

func TestDecodeEventRejectsMalformedFrames(t *testing.T) {
	_, err := server.DecodeEvent([]byte(`not json at all`))
	assert.Error(t, err)

	_, err = server.DecodeEvent([]byte(`{"username":"alice"}`))
	assert.ErrorContains(t, err, "missing event_type")

	_, err = server.DecodeEvent([]byte(`{"event_type":"time_travel"}`))
	assert.ErrorContains(t, err, `unknown event_type "time_travel"`)
}

func TestConstructorsSetDiscriminator(t *testing.T) {
	// A constructed event must marshal ready-to-send, so the Type field has
	// to match what Kind reports.
	events := []server.Event{
		server.NewConnectionRequest("alice"),
		server.NewConnectionResponse("alice", "id-1"),
		server.NewConnectionReject("nope"),
		server.NewSystemMessage(server.SeverityInfo, "hello"),
		server.NewChatMessage("alice", "hi"),
		server.NewTypingEvent("alice", true),
		server.NewUserJoin("alice"),
		server.NewUserLeave("alice"),
		server.NewRoomChatClear("alice", "Lobby"),
		server.NewRoomCreateReject("taken"),
		server.NewRoomSwitchRequest("Lobby"),
		server.NewRoomSwitchResponse("Lobby"),
		server.NewRoomSwitchReject("gone"),
	}

	for _, ev := range events {
		payload, err := server.EncodeEvent(ev)
		require.NoError(t, err)

		decoded, err := server.DecodeEvent(payload)
		require.NoError(t, err, "event %s did not survive the wire", ev.Kind())
		assert.Equal(t, ev.Kind(), decoded.Kind())
	}
}
