package hub

import (
	"log/slog"
	"strings"
	"sync"
)

// Registry maps room codes to live rooms. Its mutex guards only the map and
// is never held across a fan-out; operations on different rooms do not
// contend. A room is present iff it has at least one member.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// Normalize canonicalizes a room code. Codes are generated client-side and
// treated as opaque keys; the server only folds case so "abc123" and "ABC123"
// land in the same room.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// FindOrCreate returns the room for the code, creating an empty one if
// needed.
func (g *Registry) FindOrCreate(code string) *Room {
	code = Normalize(code)

	g.mu.Lock()
	defer g.mu.Unlock()

	r, exists := g.rooms[code]
	if !exists {
		r = newRoom(code)
		g.rooms[code] = r
		slog.Info("room created", "room", code)
	}
	return r
}

// Get looks up a room without creating it.
func (g *Registry) Get(code string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, exists := g.rooms[Normalize(code)]
	return r, exists
}

// RemoveIfEmpty deletes the room if it has no members. Safe to call
// redundantly. The room is marked closed under its own lock so a join racing
// the removal fails and retries against a fresh room instead of landing in an
// orphan.
func (g *Registry) RemoveIfEmpty(code string) {
	code = Normalize(code)

	g.mu.Lock()
	defer g.mu.Unlock()

	r, exists := g.rooms[code]
	if !exists {
		return
	}

	r.mu.Lock()
	empty := len(r.members) == 0
	if empty {
		r.closed = true
	}
	r.mu.Unlock()

	if empty {
		delete(g.rooms, code)
		slog.Info("room removed", "room", code)
	}
}

// Stats reports the number of live rooms and members across all of them.
func (g *Registry) Stats() (rooms, clients int) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rooms = len(g.rooms)
	for _, r := range g.rooms {
		clients += r.MemberCount()
	}
	return rooms, clients
}
