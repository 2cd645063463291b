package hub

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shaakethegamer/v0-paintz/domain"
)

type member struct {
	identity domain.Member
	conn     domain.Connection
}

// Room owns one collaborative session: its members, the append-only canvas
// history replayed to late joiners, and the chat log. All mutation and the
// matching fan-out happen under a single per-room mutex, so every recipient
// observes events in append order. Histories are unbounded; rooms are
// expected to be short-lived and are dropped when the last member leaves.
type Room struct {
	code string

	mu         sync.Mutex
	closed     bool
	members    map[string]member
	canvas     []domain.DrawEvent
	chat       []domain.ChatMessage
	lastChatTS int64
}

func newRoom(code string) *Room {
	return &Room{
		code:    code,
		members: make(map[string]member),
	}
}

// Code returns the normalized room code.
func (r *Room) Code() string { return r.code }

// Join registers the connection as a member, overwriting any stale entry for
// the same connection id. The history snapshot (canvas-state, chat-history,
// user-count) is enqueued to the joiner and the user-joined notice to its
// peers inside the same critical section, so every frame the joiner receives
// after its snapshot corresponds to an event appended after it; a draw
// admitted concurrently with the join can never reach the joiner before the
// snapshot that excludes it. ok is false when the room has already been
// removed from its registry; the caller should retry with a fresh
// FindOrCreate.
func (r *Room) Join(conn domain.Connection, identity domain.Member) (count int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, false
	}

	r.members[conn.ID()] = member{identity: identity, conn: conn}
	count = len(r.members)

	canvas := r.canvas
	if canvas == nil {
		canvas = []domain.DrawEvent{}
	}
	chat := r.chat
	if chat == nil {
		chat = []domain.ChatMessage{}
	}
	r.sendTo(conn, domain.EventCanvasState, canvas)
	r.sendTo(conn, domain.EventChatHistory, chat)
	r.sendTo(conn, domain.EventUserCount, count)

	r.fanout(domain.EventUserJoined, domain.UserJoined{
		Username:  identity.Username,
		Avatar:    identity.Avatar,
		UserCount: count,
	}, conn.ID())

	return count, true
}

// Leave removes the member for the connection id and notifies everyone left.
// It is a no-op returning removed=false when the id is not a member, since a
// disconnect can race an already-processed leave.
func (r *Room) Leave(connID string) (identity domain.Member, removed bool, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, found := r.members[connID]
	if !found {
		return domain.Member{}, false, len(r.members)
	}

	delete(r.members, connID)
	count = len(r.members)

	r.fanout(domain.EventUserLeft, domain.UserLeft{
		Username:  m.identity.Username,
		UserCount: count,
	}, connID)

	return m.identity, true, count
}

// AppendDraw appends the event to the canvas history and relays it to every
// member except the sender, whose local canvas already has the stroke.
func (r *Room) AppendDraw(senderID string, ev domain.DrawEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.canvas = append(r.canvas, ev)
	r.fanout(domain.EventDraw, ev, senderID)
}

// Clear empties the canvas history and tells every member, sender included,
// to reset its local canvas. A joiner arriving after Clear gets an empty
// snapshot.
func (r *Room) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.canvas = nil
	r.fanout(domain.EventClearCanvas, nil, "")
}

// AppendChat stamps the message with the server clock, stores it, and relays
// it to every member including the sender, so the sender renders the
// authoritative timestamp rather than a local echo.
func (r *Room) AppendChat(user, text, avatar string) domain.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := time.Now().UnixMilli()
	// Wall clock may step backwards; stored order must not.
	if ts < r.lastChatTS {
		ts = r.lastChatTS
	}
	r.lastChatTS = ts

	msg := domain.ChatMessage{
		User:      user,
		Message:   text,
		Timestamp: ts,
		Avatar:    avatar,
	}
	r.chat = append(r.chat, msg)
	r.fanout(domain.EventChatMessage, msg, "")

	return msg
}

// MemberCount reports the current number of members.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// sendTo encodes and enqueues one frame for a single connection. Called with
// r.mu held; encoding under the lock snapshots the history into the frame.
func (r *Room) sendTo(conn domain.Connection, event string, data any) {
	frame, err := domain.Encode(event, data)
	if err != nil {
		slog.Error("encode failed", "room", r.code, "event", event, "error", err)
		return
	}
	if err := conn.Send(frame); err != nil {
		slog.Warn("send failed, dropping frame", "room", r.code, "clientId", conn.ID(), "event", event, "error", err)
	}
}

// fanout encodes the event once and enqueues it to every member except the
// given connection id. Called with r.mu held; Send is a non-blocking enqueue,
// so a slow recipient cannot stall the room.
func (r *Room) fanout(event string, data any, except string) {
	frame, err := domain.Encode(event, data)
	if err != nil {
		slog.Error("encode failed", "room", r.code, "event", event, "error", err)
		return
	}
	for id, m := range r.members {
		if id == except {
			continue
		}
		if err := m.conn.Send(frame); err != nil {
			slog.Warn("send failed, dropping frame", "room", r.code, "clientId", id, "event", event, "error", err)
		}
	}
}
