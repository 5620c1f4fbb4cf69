package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/msmithfl/painting-game-server/game"
	"github.com/msmithfl/painting-game-server/util"
	"github.com/stretchr/testify/require"
)

type joinRoom struct {
	RoomName string `json:"roomName"`
	UserName string `json:"userName"`
}

type roomOnly struct {
	RoomName string `json:"roomName"`
}

func TestJoinRoom(t *testing.T) {
	t.Run("broadcasts the member list to the room", func(t *testing.T) {
		m := newTestManager(t)
		alice := connectClient(t, m)
		bob := connectClient(t, m)
		outsider := connectClient(t, m)

		send(t, m, alice, EventJoinRoom, joinRoom{"roomA", "Alice"})
		send(t, m, bob, EventJoinRoom, joinRoom{"roomA", "Bob"})
		settle(t, m)

		members := requireMembers(t, nextEvent(t, alice), EventUpdateUserList)
		require.Len(t, members, 1)

		members = requireMembers(t, nextEvent(t, alice), EventUpdateUserList)
		require.Len(t, members, 2)
		require.Equal(t, alice.ID, members[0].ID)
		require.Equal(t, "Alice", members[0].UserName)
		require.Equal(t, bob.ID, members[1].ID)
		require.Equal(t, "Bob", members[1].UserName)
		for _, member := range members {
			require.Equal(t, "roomA", member.RoomName)
			require.False(t, member.IsReady)
			require.Zero(t, member.Score)
		}

		require.Len(t, requireMembers(t, nextEvent(t, bob), EventUpdateUserList), 2)
		requireNoEvent(t, outsider)
	})

	t.Run("rejects a second join from the same connection", func(t *testing.T) {
		m := newTestManager(t)
		alice := connectClient(t, m)

		send(t, m, alice, EventJoinRoom, joinRoom{"roomA", "Alice"})
		send(t, m, alice, EventJoinRoom, joinRoom{"roomB", "Alice"})
		settle(t, m)

		requireMembers(t, nextEvent(t, alice), EventUpdateUserList)
		payload := requireErrorEvent(t, nextEvent(t, alice))
		require.Contains(t, payload.Message, game.ErrDuplicateConnection.Error())
		require.Contains(t, payload.Message, "currently in roomA")

		require.Empty(t, m.registry.ListMembers("roomB"))
		require.Len(t, m.registry.ListMembers("roomA"), 1)
	})

	t.Run("rejects a payload without a user name", func(t *testing.T) {
		m := newTestManager(t)
		alice := connectClient(t, m)

		send(t, m, alice, EventJoinRoom, joinRoom{RoomName: "roomA"})
		settle(t, m)

		payload := requireErrorEvent(t, nextEvent(t, alice))
		require.Equal(t, "malformed joinRoom payload", payload.Message)
		require.Len(t, payload.Errors, 1)
		require.Contains(t, payload.Errors[0], "userName")
		require.Empty(t, m.registry.ListMembers("roomA"))
	})

	t.Run("rejects an overlong room name", func(t *testing.T) {
		m := newTestManager(t)
		alice := connectClient(t, m)

		send(t, m, alice, EventJoinRoom, joinRoom{strings.Repeat("r", 129), "Alice"})
		settle(t, m)

		payload := requireErrorEvent(t, nextEvent(t, alice))
		require.Contains(t, payload.Errors[0], "roomName")
		require.Empty(t, m.registry.Rooms())
	})
}

func TestPlayerReady(t *testing.T) {
	t.Run("stores the inverse of the requested flag", func(t *testing.T) {
		m := newTestManager(t)
		alice := connectClient(t, m)
		bob := connectClient(t, m)

		send(t, m, alice, EventJoinRoom, joinRoom{"roomA", "Alice"})
		send(t, m, bob, EventJoinRoom, joinRoom{"roomA", "Bob"})
		settle(t, m)
		nextEvent(t, alice)
		nextEvent(t, alice)
		nextEvent(t, bob)

		send(t, m, alice, EventPlayerReady, map[string]bool{"isReady": false})
		settle(t, m)

		members := requireMembers(t, nextEvent(t, bob), EventUpdateUserList)
		require.True(t, members[0].IsReady)
		require.False(t, members[1].IsReady)
		requireMembers(t, nextEvent(t, alice), EventUpdateUserList)

		send(t, m, alice, EventPlayerReady, map[string]bool{"isReady": true})
		settle(t, m)

		members = requireMembers(t, nextEvent(t, bob), EventUpdateUserList)
		require.False(t, members[0].IsReady)
		requireMembers(t, nextEvent(t, alice), EventUpdateUserList)

		// the stored flag is the negation of the request, not a flip
		send(t, m, alice, EventPlayerReady, map[string]bool{"isReady": false})
		send(t, m, alice, EventPlayerReady, map[string]bool{"isReady": false})
		settle(t, m)

		requireMembers(t, nextEvent(t, bob), EventUpdateUserList)
		members = requireMembers(t, nextEvent(t, bob), EventUpdateUserList)
		require.True(t, members[0].IsReady)
	})

	t.Run("is ignored before joining", func(t *testing.T) {
		m := newTestManager(t)
		alice := connectClient(t, m)

		send(t, m, alice, EventPlayerReady, map[string]bool{"isReady": true})
		settle(t, m)

		requireNoEvent(t, alice)
	})

	t.Run("requires the flag", func(t *testing.T) {
		m := newTestManager(t)
		alice := connectClient(t, m)

		send(t, m, alice, EventPlayerReady, map[string]any{})
		settle(t, m)

		payload := requireErrorEvent(t, nextEvent(t, alice))
		require.Contains(t, payload.Errors[0], "isReady")
	})
}

func TestScoreAndCanvasAreStoredSilently(t *testing.T) {
	m := newTestManager(t)
	alice := connectClient(t, m)
	bob := connectClient(t, m)

	send(t, m, alice, EventJoinRoom, joinRoom{"roomA", "Alice"})
	send(t, m, bob, EventJoinRoom, joinRoom{"roomA", "Bob"})
	settle(t, m)
	nextEvent(t, alice)
	nextEvent(t, alice)
	nextEvent(t, bob)

	send(t, m, alice, EventSendScore, map[string]int{"score": 12})
	send(t, m, alice, EventSendCanvasData, map[string][]byte{"canvasData": {1, 2, 3}})
	send(t, m, alice, EventSendCanvasData, map[string][]byte{"canvasData": {4, 5}})
	settle(t, m)

	requireNoEvent(t, alice)
	requireNoEvent(t, bob)

	members := m.registry.ListMembers("roomA")
	require.Equal(t, 12, members[0].Score)
	require.Equal(t, []byte{4, 5}, members[0].CanvasData)
}

func TestGetUsers(t *testing.T) {
	t.Run("replies to the requester only", func(t *testing.T) {
		m := newTestManager(t)
		alice := connectClient(t, m)
		asker := connectClient(t, m)

		send(t, m, alice, EventJoinRoom, joinRoom{"roomA", "Alice"})
		settle(t, m)
		nextEvent(t, alice)

		send(t, m, asker, EventGetUsers, roomOnly{"roomA"})
		settle(t, m)

		members := requireMembers(t, nextEvent(t, asker), EventReturnUsers)
		require.Len(t, members, 1)
		require.Equal(t, "Alice", members[0].UserName)
		requireNoEvent(t, alice)
	})

	t.Run("unknown room yields an empty list", func(t *testing.T) {
		m := newTestManager(t)
		asker := connectClient(t, m)

		send(t, m, asker, EventGetUsers, roomOnly{"nowhere"})
		settle(t, m)

		evt := nextEvent(t, asker)
		require.Equal(t, EventReturnUsers, evt.Type)
		require.JSONEq(t, `[]`, string(evt.Payload))
	})
}

func TestGenerateNumber(t *testing.T) {
	m := newTestManager(t)
	alice := connectClient(t, m)
	bob := connectClient(t, m)

	send(t, m, alice, EventJoinRoom, joinRoom{"roomB", "Alice"})
	send(t, m, bob, EventJoinRoom, joinRoom{"roomB", "Bob"})
	settle(t, m)
	nextEvent(t, alice)
	nextEvent(t, alice)
	nextEvent(t, bob)

	seen := make(map[int]bool)
	for i := 0; i < game.PromptWindow; i++ {
		send(t, m, alice, EventGenerateNumber, roomOnly{"roomB"})
		settle(t, m)

		var fromAlice, fromBob int
		evt := nextEvent(t, alice)
		require.Equal(t, EventReceiveNumber, evt.Type)
		require.NoError(t, json.Unmarshal(evt.Payload, &fromAlice))

		evt = nextEvent(t, bob)
		require.NoError(t, json.Unmarshal(evt.Payload, &fromBob))

		require.Equal(t, fromAlice, fromBob)
		require.False(t, seen[fromAlice], "prompt %d repeated within the window", fromAlice)
		seen[fromAlice] = true
	}
}

func TestSetUsedPaintings(t *testing.T) {
	m := newTestManager(t)
	alice := connectClient(t, m)

	send(t, m, alice, EventSetUsedPaintings, map[string]any{"roomName": "roomA", "paintingNum": 3})
	send(t, m, alice, EventSetUsedPaintings, map[string]any{"roomName": "roomA", "paintingNum": -1})
	send(t, m, alice, EventSetUsedPaintings, map[string]any{"roomName": "roomA", "paintingNum": game.PromptCount})
	settle(t, m)

	for i := 0; i < 2; i++ {
		payload := requireErrorEvent(t, nextEvent(t, alice))
		require.Contains(t, payload.Errors[0], "paintingNum")
	}
	requireNoEvent(t, alice)

	var used []int
	require.NoError(t, m.call(context.Background(), func() {
		used = m.prompts.Used("roomA")
	}))
	require.Equal(t, []int{3}, used)
}

func TestDisconnect(t *testing.T) {
	m := newTestManager(t)
	alice := connectClient(t, m)
	bob := connectClient(t, m)

	send(t, m, alice, EventJoinRoom, joinRoom{"roomA", "Alice"})
	send(t, m, bob, EventJoinRoom, joinRoom{"roomA", "Bob"})
	settle(t, m)
	nextEvent(t, alice)
	nextEvent(t, alice)
	nextEvent(t, bob)

	require.True(t, m.disconnect(alice))
	settle(t, m)

	members := requireMembers(t, nextEvent(t, bob), EventUpdateUserList)
	require.Len(t, members, 1)
	require.Equal(t, bob.ID, members[0].ID)
	requireNoEvent(t, alice)

	// second disconnect is a no-op
	require.True(t, m.disconnect(alice))
	settle(t, m)
	requireNoEvent(t, bob)

	// events read after the disconnect are dropped
	send(t, m, alice, EventJoinRoom, joinRoom{"roomA", "Alice"})
	settle(t, m)
	require.Len(t, m.registry.ListMembers("roomA"), 1)
}

func TestFullEgressDropsEvents(t *testing.T) {
	config := util.DefaultConfig()
	config.EgressBuffer = 1

	m := NewManager(config)
	m.Start()
	t.Cleanup(m.Stop)

	alice := connectClient(t, m)
	bob := connectClient(t, m)

	// alice's queue fills with her own join broadcast
	send(t, m, alice, EventJoinRoom, joinRoom{"roomA", "Alice"})
	send(t, m, bob, EventJoinRoom, joinRoom{"roomA", "Bob"})
	settle(t, m)

	require.Len(t, requireMembers(t, nextEvent(t, alice), EventUpdateUserList), 1)
	requireNoEvent(t, alice)
	require.Len(t, requireMembers(t, nextEvent(t, bob), EventUpdateUserList), 2)

	// the loop keeps serving after the drop
	members, err := m.Members(context.Background(), "roomA")
	require.NoError(t, err)
	require.Len(t, members, 2)
}

func TestUnknownEvent(t *testing.T) {
	m := newTestManager(t)
	alice := connectClient(t, m)

	send(t, m, alice, "drawCircle", nil)
	settle(t, m)

	payload := requireErrorEvent(t, nextEvent(t, alice))
	require.Equal(t, ErrUnknownEvent.Error(), payload.Message)
}

func TestMembersAndRooms(t *testing.T) {
	m := newTestManager(t)
	alice := connectClient(t, m)

	send(t, m, alice, EventJoinRoom, joinRoom{"roomA", "Alice"})

	members, err := m.Members(context.Background(), "roomA")
	require.NoError(t, err)
	require.Len(t, members, 1)

	rooms, err := m.Rooms(context.Background())
	require.NoError(t, err)
	require.Equal(t, []game.RoomSummary{{ID: "roomA", Members: 1}}, rooms)
}

func TestStop(t *testing.T) {
	m := newTestManager(t)
	m.Stop()

	_, err := m.Members(context.Background(), "roomA")
	require.ErrorIs(t, err, ErrManagerStopped)
	require.False(t, m.connect(NewClient(nil, m)))

	// a manager that never started can still be stopped
	NewManager(m.config).Stop()
}

func TestCheckOrigin(t *testing.T) {
	m := newTestManager(t)

	request := func(origin string) *http.Request {
		r, err := http.NewRequest(http.MethodGet, "/ws", nil)
		require.NoError(t, err)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	require.True(t, m.checkOrigin(request("http://localhost:5173")))
	require.True(t, m.checkOrigin(request("")))
	require.False(t, m.checkOrigin(request("http://evil.example.com")))
}
