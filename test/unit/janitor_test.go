package unit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TorVallin/WebSockets-Workshop-Backend/internal/server"
)

func TestNewJanitorRejectsInvalidSchedule(t *testing.T) {
	_, err := server.NewJanitor(server.NewRegistry(), "every once in a while")
	assert.Error(t, err)
}

func TestNewJanitorEmptyScheduleDisablesSweep(t *testing.T) {
	janitor, err := server.NewJanitor(server.NewRegistry(), "")
	require.NoError(t, err)
	require.Nil(t, janitor)

	// A nil janitor is safe to drive; the sweep is simply off.
	janitor.Start()
	janitor.Stop()
}

func TestJanitorReclaimsEmptyRooms(t *testing.T) {
	reg := server.NewRegistry()
	reg.GetOrCreateRoom("Abandoned")
	occupied, _ := reg.GetOrCreateRoom("Busy")
	occupied.Join(server.NewConn(nil, "alice"))

	janitor, err := server.NewJanitor(reg, "@every 50ms")
	require.NoError(t, err)
	janitor.Start()
	defer janitor.Stop()

	require.Eventually(t, func() bool {
		_, ok := reg.Room("Abandoned")
		return !ok
	}, 2*time.Second, 20*time.Millisecond)

	_, ok := reg.Room("Busy")
	assert.True(t, ok)
	_, ok = reg.Room(server.GlobalRoomName)
	assert.True(t, ok)
}
