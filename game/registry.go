package game

import (
	"math/rand"
	"sort"

	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

type room struct {
	id      string
	members []*Member
}

// RoomSummary is a room id with its current member count.
type RoomSummary struct {
	ID      string `json:"id"`
	Members int    `json:"members"`
}

// Registry maps room ids to their members in join order. It is not safe for
// concurrent use; the session manager owns it from a single goroutine.
type Registry struct {
	rooms map[string]*room
	// connection id -> room id
	joined    map[string]string
	rng       *rand.Rand
	reapEmpty bool
}

// NewRegistry creates an empty registry. When reapEmpty is set, a room is
// dropped as soon as its last member leaves.
func NewRegistry(rng *rand.Rand, reapEmpty bool) *Registry {
	return &Registry{
		rooms:     make(map[string]*room),
		joined:    make(map[string]string),
		rng:       rng,
		reapEmpty: reapEmpty,
	}
}

// Join adds a new member to roomID, creating the room on first use.
func (r *Registry) Join(roomID, connID, userName string) (Member, error) {
	if _, ok := r.joined[connID]; ok {
		return Member{}, ErrDuplicateConnection
	}

	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{id: roomID, members: make([]*Member, 0)}
		r.rooms[roomID] = rm
	}

	m := &Member{
		ID:         connID,
		UserName:   userName,
		RoomName:   roomID,
		PlayerIcon: randomIcon(r.rng),
		CanvasData: []byte{},
	}

	rm.members = append(rm.members, m)
	r.joined[connID] = roomID

	return *m, nil
}

// SetReady stores the negation of requested on the member's ready flag and
// returns the member's room.
func (r *Registry) SetReady(connID string, requested bool) (string, bool) {
	m := r.find(connID)
	if m == nil {
		return "", false
	}
	m.IsReady = !requested
	return m.RoomName, true
}

func (r *Registry) SetScore(connID string, score int) bool {
	m := r.find(connID)
	if m == nil {
		return false
	}
	m.Score = score
	return true
}

// SetCanvasData replaces the member's canvas with a copy of data.
func (r *Registry) SetCanvasData(connID string, data []byte) bool {
	m := r.find(connID)
	if m == nil {
		return false
	}
	// stored slices are never written in place, so snapshots may share them
	m.CanvasData = append(make([]byte, 0, len(data)), data...)
	return true
}

// ListMembers returns a snapshot of roomID's members in join order. Unknown
// rooms yield an empty slice.
func (r *Registry) ListMembers(roomID string) []Member {
	rm, ok := r.rooms[roomID]
	if !ok {
		return []Member{}
	}
	return lo.Map(rm.members, func(m *Member, _ int) Member {
		return *m
	})
}

// Leave removes connID from whichever room it occupies. It reports the room
// the connection left, if any, and is safe to call repeatedly.
func (r *Registry) Leave(connID string) (string, bool) {
	roomID, ok := r.joined[connID]
	if !ok {
		return "", false
	}
	delete(r.joined, connID)

	rm := r.rooms[roomID]
	idx := slices.IndexFunc(rm.members, func(m *Member) bool {
		return m.ID == connID
	})
	if idx >= 0 {
		rm.members = slices.Delete(rm.members, idx, idx+1)
	}

	if r.reapEmpty && len(rm.members) == 0 {
		delete(r.rooms, roomID)
	}

	return roomID, true
}

// RoomOf reports the room connID currently occupies.
func (r *Registry) RoomOf(connID string) (string, bool) {
	roomID, ok := r.joined[connID]
	return roomID, ok
}

// Rooms lists every known room, including empty ones, sorted by id.
func (r *Registry) Rooms() []RoomSummary {
	summaries := lo.MapToSlice(r.rooms, func(id string, rm *room) RoomSummary {
		return RoomSummary{ID: id, Members: len(rm.members)}
	})
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ID < summaries[j].ID
	})
	return summaries
}

func (r *Registry) find(connID string) *Member {
	roomID, ok := r.joined[connID]
	if !ok {
		return nil
	}
	m, _ := lo.Find(r.rooms[roomID].members, func(m *Member) bool {
		return m.ID == connID
	})
	return m
}
