package ws

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/msmithfl/painting-game-server/game"
	"github.com/msmithfl/painting-game-server/util"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	util.InitValidator()

	os.Exit(m.Run())
}

func newTestManager(t *testing.T) *Manager {
	m := NewManager(util.DefaultConfig())
	m.Start()
	t.Cleanup(m.Stop)
	return m
}

// connectClient registers a client without a websocket behind it; tests read
// its egress queue directly.
func connectClient(t *testing.T, m *Manager) *Client {
	c := NewClient(nil, m)
	require.True(t, m.connect(c))
	return c
}

func send(t *testing.T, m *Manager, c *Client, evtType string, payload any) {
	evt, err := NewEvent(evtType, payload)
	require.NoError(t, err)
	evt.TraceID = "trace-1"

	require.True(t, m.dispatch(context.Background(), evt, c))
}

// settle waits until everything submitted so far has been handled.
func settle(t *testing.T, m *Manager) {
	require.NoError(t, m.call(context.Background(), func() {}))
}

func nextEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case evt := <-c.egress:
		return evt
	case <-time.After(time.Second):
		t.Fatalf("client %v received no event", c.ID)
		return Event{}
	}
}

func requireNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case evt := <-c.egress:
		t.Fatalf("client %v received unexpected %v event", c.ID, evt.Type)
	default:
	}
}

func requireMembers(t *testing.T, evt Event, evtType string) []game.Member {
	t.Helper()
	require.Equal(t, evtType, evt.Type)

	var members []game.Member
	require.NoError(t, json.Unmarshal(evt.Payload, &members))
	return members
}

func requireErrorEvent(t *testing.T, evt Event) PayloadError {
	t.Helper()
	require.Equal(t, "error_trace-1", evt.Type)
	require.Equal(t, "trace-1", evt.TraceID)

	var payload PayloadError
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	return payload
}
