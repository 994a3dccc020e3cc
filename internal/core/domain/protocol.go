package domain

import "time"

// Client-to-server message types accepted while a connection is open.
const (
	MsgPing        = "ping"
	MsgJoinPost    = "join_post"
	MsgLeavePost   = "leave_post"
	MsgTypingStart = "typing_start"
	MsgTypingStop  = "typing_stop"
	MsgComment     = "comment"
	MsgReaction    = "reaction"
)

// WebSocket close codes. 4xxx is the application range; clients use the
// distinction to pick reconnect/backoff behavior.
const (
	CloseUnauthenticated = 4001
	CloseInvalidToken    = 4002
)

// InboundMessage is the superset envelope for all client messages.
type InboundMessage struct {
	Type         string `json:"type"`
	PostID       string `json:"post_id,omitempty"`
	Content      string `json:"content,omitempty"`
	ReactionType string `json:"reaction_type,omitempty"`
	Action       string `json:"action,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
}

// PongMessage answers a ping, echoing the client timestamp.
type PongMessage struct {
	Type       string    `json:"type"` // always "pong"
	Timestamp  string    `json:"timestamp,omitempty"`
	ServerTime time.Time `json:"server_time"`
}

// ErrorMessage is sent back on the same connection for malformed input.
// The connection stays open.
type ErrorMessage struct {
	Type    string `json:"type"` // always "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}
