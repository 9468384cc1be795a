package unit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TorVallin/WebSockets-Workshop-Backend/internal/server"
)

// smallQueueConfig shrinks the delivery queue so capacity failures can be
// provoked without thousands of events. Defaults are restored on cleanup.
func smallQueueConfig(t *testing.T, size int) {
	t.Helper()
	cfg := server.NewConfig()
	cfg.SendQueueSize = size
	server.SetConfig(cfg)
	t.Cleanup(func() { server.SetConfig(nil) })
}

func TestConnIdentity(t *testing.T) {
	server.SetConfig(nil)

	alice := server.NewConn(nil, "alice")
	bob := server.NewConn(nil, "bob")

	assert.Equal(t, "alice", alice.Username())
	assert.NotEmpty(t, alice.ID())
	assert.NotEqual(t, alice.ID(), bob.ID())
	assert.False(t, alice.JoinedAt().IsZero())
	assert.False(t, alice.Closed())
	assert.Contains(t, alice.String(), "alice")
}

func TestEnqueueOverflowClosesConnection(t *testing.T) {
	smallQueueConfig(t, 2)

	conn := server.NewConn(nil, "slow")
	assert.True(t, conn.Enqueue([]byte(`{"event_type":"message"}`)))
	assert.True(t, conn.Enqueue([]byte(`{"event_type":"message"}`)))

	// The third event does not fit. The connection must be closed rather
	// than blocking the broadcaster or dropping silently.
	assert.False(t, conn.Enqueue([]byte(`{"event_type":"message"}`)))
	require.Eventually(t, conn.Closed, time.Second, 10*time.Millisecond)

	// Once closing, nothing more is accepted.
	assert.False(t, conn.SendEvent(server.NewSystemMessage(server.SeverityInfo, "late")))
}

func TestOverflowDisconnectSparesSiblings(t *testing.T) {
	smallQueueConfig(t, 1)

	reg := server.NewRegistry()
	room, _ := reg.GetOrCreateRoom("Ops")

	fast := server.NewConn(nil, "fast")
	slow := server.NewConn(nil, "slow")
	room.Join(fast)
	room.Join(slow)

	// Pre-fill the slow member's queue so the broadcast overflows it.
	require.True(t, slow.Enqueue([]byte(`{"event_type":"system"}`)))

	room.Broadcast(server.NewChatMessage("fast", "hello"))

	require.Eventually(t, slow.Closed, time.Second, 10*time.Millisecond)
	assert.False(t, fast.Closed())

	// The broadcast itself still went through: history has the message.
	require.Len(t, room.History(), 1)
	assert.Equal(t, "hello", room.History()[0].Message)
}

func TestCloseIsIdempotent(t *testing.T) {
	server.SetConfig(nil)

	conn := server.NewConn(nil, "alice")
	conn.Close()
	conn.Close()
	assert.True(t, conn.Closed())
}
