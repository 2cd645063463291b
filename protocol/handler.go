package protocol

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/shaakethegamer/v0-paintz/domain"
	"github.com/shaakethegamer/v0-paintz/hub"
	"github.com/shaakethegamer/v0-paintz/metrics"
)

// session is what the dispatcher knows about one live connection: the room it
// joined, if any, and the identity it announced. One room per connection.
type session struct {
	conn     domain.Connection
	room     string
	identity domain.Member
}

// Handler is the relay dispatcher. It decodes inbound envelopes, tracks
// which room each connection has joined, applies the operation to the owning
// room and leaves the fan-out to it. Protocol misuse (events from a session
// that never joined, or that references a different room) is dropped without
// a reply so a broken client cannot affect its peers.
type Handler struct {
	registry *hub.Registry

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewHandler(registry *hub.Registry) *Handler {
	return &Handler{
		registry: registry,
		sessions: make(map[string]*session),
	}
}

type joinPayload struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

type drawPayload struct {
	RoomCode string `json:"roomCode"`
	domain.DrawEvent
}

type roomPayload struct {
	RoomCode string `json:"roomCode"`
}

type chatPayload struct {
	RoomCode string `json:"roomCode"`
	Message  string `json:"message"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

func (h *Handler) Handle(conn domain.Connection, data []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("invalid envelope", "clientId", conn.ID(), "error", err)
		return
	}

	switch env.Event {
	case domain.EventJoinRoom:
		h.handleJoin(conn, env.Data)
	case domain.EventDraw:
		h.handleDraw(conn, env.Data)
	case domain.EventClearCanvas:
		h.handleClear(conn, env.Data)
	case domain.EventChatMessage:
		h.handleChat(conn, env.Data)
	default:
		slog.Warn("unknown event", "clientId", conn.ID(), "event", env.Event)
	}
}

func (h *Handler) handleJoin(conn domain.Connection, data []byte) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		slog.Warn("invalid join payload", "clientId", conn.ID(), "error", err)
		return
	}

	code := hub.Normalize(p.RoomCode)
	if code == "" {
		slog.Warn("join without room code", "clientId", conn.ID())
		return
	}

	identity := domain.Member{Username: p.Username, Avatar: p.Avatar}

	h.mu.Lock()
	if s, exists := h.sessions[conn.ID()]; exists && s.room != code {
		h.mu.Unlock()
		slog.Warn("join rejected, already in another room",
			"clientId", conn.ID(), "room", s.room, "requested", code)
		return
	}
	h.sessions[conn.ID()] = &session{conn: conn, room: code, identity: identity}
	h.mu.Unlock()

	// A join can race the removal of a just-emptied room; retry against a
	// fresh one. The room enqueues the snapshot frames to the joiner itself,
	// inside its critical section, so nothing appended afterwards can
	// overtake them.
	var (
		count  int
		joined bool
	)
	for !joined {
		room := h.registry.FindOrCreate(code)
		count, joined = room.Join(conn, identity)
	}

	metrics.EventsRelayed.WithLabelValues(domain.EventJoinRoom).Inc()
	slog.Info("user joined", "room", code, "clientId", conn.ID(),
		"username", p.Username, "clients", count)
}

func (h *Handler) handleDraw(conn domain.Connection, data []byte) {
	var p drawPayload
	if err := json.Unmarshal(data, &p); err != nil {
		slog.Warn("invalid draw payload", "clientId", conn.ID(), "error", err)
		return
	}

	room, ok := h.roomFor(conn.ID(), p.RoomCode)
	if !ok {
		return
	}

	room.AppendDraw(conn.ID(), p.DrawEvent)
	metrics.EventsRelayed.WithLabelValues(domain.EventDraw).Inc()
}

func (h *Handler) handleClear(conn domain.Connection, data []byte) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		slog.Warn("invalid clear payload", "clientId", conn.ID(), "error", err)
		return
	}

	room, ok := h.roomFor(conn.ID(), p.RoomCode)
	if !ok {
		return
	}

	room.Clear()
	metrics.EventsRelayed.WithLabelValues(domain.EventClearCanvas).Inc()
	slog.Info("canvas cleared", "room", room.Code(), "clientId", conn.ID())
}

func (h *Handler) handleChat(conn domain.Connection, data []byte) {
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		slog.Warn("invalid chat payload", "clientId", conn.ID(), "error", err)
		return
	}

	if strings.TrimSpace(p.Message) == "" {
		return
	}

	room, ok := h.roomFor(conn.ID(), p.RoomCode)
	if !ok {
		return
	}

	room.AppendChat(p.Username, p.Message, p.Avatar)
	metrics.EventsRelayed.WithLabelValues(domain.EventChatMessage).Inc()
}

// HandleDisconnect removes the connection's membership and deletes its room
// if that made it empty. Reconnection is a fresh join; nothing is resumed.
func (h *Handler) HandleDisconnect(conn domain.Connection) {
	h.mu.Lock()
	s, exists := h.sessions[conn.ID()]
	delete(h.sessions, conn.ID())
	h.mu.Unlock()

	if !exists || s.room == "" {
		return
	}

	room, found := h.registry.Get(s.room)
	if !found {
		return
	}

	identity, removed, count := room.Leave(conn.ID())
	if removed {
		h.registry.RemoveIfEmpty(s.room)
		slog.Info("user left", "room", s.room, "clientId", conn.ID(),
			"username", identity.Username, "clients", count)
	}
}

// roomFor resolves the joined room for a connection, enforcing that the
// payload's room code matches the session's. Returns false on any protocol
// misuse; the event is then silently dropped.
func (h *Handler) roomFor(connID, payloadCode string) (*hub.Room, bool) {
	h.mu.RLock()
	s, exists := h.sessions[connID]
	h.mu.RUnlock()

	if !exists || s.room == "" {
		slog.Debug("event from unjoined session", "clientId", connID)
		return nil, false
	}
	if payloadCode != "" && hub.Normalize(payloadCode) != s.room {
		slog.Warn("event for foreign room dropped",
			"clientId", connID, "room", s.room, "requested", payloadCode)
		return nil, false
	}

	room, found := h.registry.Get(s.room)
	if !found {
		return nil, false
	}
	return room, true
}
