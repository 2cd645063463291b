package domain

// Inbound event names (client -> server).
const (
	EventJoinRoom    = "join-room"
	EventDraw        = "draw"
	EventClearCanvas = "clear-canvas"
	EventChatMessage = "chat-message"
)

// Outbound event names (server -> client).
const (
	EventCanvasState = "canvas-state"
	EventChatHistory = "chat-history"
	EventUserCount   = "user-count"
	EventUserJoined  = "user-joined"
	EventUserLeft    = "user-left"
)

// UserJoined notifies room peers that a member joined.
type UserJoined struct {
	Username  string `json:"username"`
	Avatar    string `json:"avatar,omitempty"`
	UserCount int    `json:"userCount"`
}

// UserLeft notifies remaining members that a member left.
type UserLeft struct {
	Username  string `json:"username"`
	UserCount int    `json:"userCount"`
}
