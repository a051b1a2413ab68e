package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var ErrRoomNotFound = errors.New("room not found")

// Registry owns every live room and their lifecycle.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	db     *DB
	events *EventLogStore

	// OnRoomsChanged is invoked whenever the joinable room list may have
	// changed. Set once before use.
	OnRoomsChanged func()
}

// NewRegistry creates an empty registry. db and events may be nil.
func NewRegistry(db *DB, events *EventLogStore) *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		db:     db,
		events: events,
	}
}

// CreateRoom builds a room for the mode, starts its loop and registers it.
// Private rooms never show up in the lobby list or quick-join.
func (reg *Registry) CreateRoom(name, modeKey string, private bool) *Room {
	id := strings.ToUpper(uuid.NewString()[:6])
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Room %s", id)
	}
	mode := ResolveMode(modeKey)
	room := NewRoom(id, name, &mode, reg.db, reg.events)
	room.Private = private
	room.onEmpty = reg.removeRoom
	room.onRoomsChanged = reg.roomsChanged

	reg.mu.Lock()
	reg.rooms[id] = room
	reg.mu.Unlock()

	go room.Run()
	reg.roomsChanged()
	return room
}

// Get finds a room by id.
func (reg *Registry) Get(id string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// QuickJoin returns the fullest joinable room for the mode, creating a
// fresh one when none accepts players.
func (reg *Registry) QuickJoin(modeKey string) *Room {
	mode := ResolveMode(modeKey)

	reg.mu.Lock()
	candidates := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		if !room.Private && room.Mode.Key == mode.Key {
			candidates = append(candidates, room)
		}
	}
	reg.mu.Unlock()

	var best *Room
	bestCount := -1
	for _, room := range candidates {
		if !room.Joinable() {
			continue
		}
		if n := room.Info().Players; n > bestCount {
			best, bestCount = room, n
		}
	}
	if best != nil {
		return best
	}
	return reg.CreateRoom("", mode.Key, false)
}

// List returns lobby info for every public joinable room, oldest first.
// Private and full rooms never show up.
func (reg *Registry) List() []RoomInfo {
	reg.mu.Lock()
	public := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		if !room.Private {
			public = append(public, room)
		}
	}
	reg.mu.Unlock()

	rooms := public[:0]
	for _, room := range public {
		if room.Joinable() {
			rooms = append(rooms, room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].createdAt.Equal(rooms[j].createdAt) {
			return rooms[i].createdAt.Before(rooms[j].createdAt)
		}
		return rooms[i].ID < rooms[j].ID
	})
	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		infos = append(infos, room.Info())
	}
	return infos
}

// FindRoomByPlayer locates the room holding a player id.
func (reg *Registry) FindRoomByPlayer(playerID string) *Room {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.Unlock()

	for _, room := range rooms {
		if room.HasPlayer(playerID) {
			return room
		}
	}
	return nil
}

// Count returns the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// Shutdown stops every room loop.
func (reg *Registry) Shutdown() {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.rooms = make(map[string]*Room)
	reg.mu.Unlock()

	for _, room := range rooms {
		room.Stop()
	}
}

// removeRoom unregisters an emptied room. Safe to call twice.
func (reg *Registry) removeRoom(id string) {
	reg.mu.Lock()
	_, ok := reg.rooms[id]
	delete(reg.rooms, id)
	reg.mu.Unlock()
	if ok {
		reg.roomsChanged()
	}
}

func (reg *Registry) roomsChanged() {
	if reg.OnRoomsChanged != nil {
		reg.OnRoomsChanged()
	}
}
