package domain

import "encoding/json"

// DrawEvent is one incremental drawing primitive. Fill events carry only the
// seed point and color; the receiving client re-runs its own flood fill
// against its reconstructed canvas.
type DrawEvent struct {
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	PrevX   *float64 `json:"prevX,omitempty"`
	PrevY   *float64 `json:"prevY,omitempty"`
	Color   string   `json:"color"`
	Size    float64  `json:"size"`
	Tool    string   `json:"tool"` // "pen", "eraser" or "fill"
	IsStart bool     `json:"isStart,omitempty"`
}

// ChatMessage is a stored chat entry. Timestamp is assigned server-side at
// append time, in unix milliseconds.
type ChatMessage struct {
	User      string `json:"user"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Avatar    string `json:"avatar,omitempty"`
}

// Member is the display identity a connection announced when joining a room.
type Member struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// Connection is one client's live transport. Send must enqueue without
// blocking; a full buffer is an error, never a stall.
type Connection interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// MessageHandler consumes inbound frames and transport lifecycle events.
type MessageHandler interface {
	Handle(conn Connection, data []byte)
	HandleDisconnect(conn Connection)
}

// Envelope wraps every message on the wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals an outbound envelope for the given event.
func Encode(event string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
