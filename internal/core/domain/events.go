package domain

import (
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

type EventType string

// Closed set of domain event types the dispatcher understands. Anything
// else routes to the unknown fallback (log and drop).
const (
	EventNewPost         EventType = "new_post"
	EventNewComment      EventType = "new_comment"
	EventReactionUpdate  EventType = "reaction_update"
	EventPostDeleted     EventType = "post_deleted"
	EventPostApproval    EventType = "post_approval_update"
	EventPendingApproval EventType = "pending_approval"
	EventStatusUpdate    EventType = "status_update"
	EventNotification    EventType = "notification"
	EventTypingStart     EventType = "typing_start"
	EventTypingStop      EventType = "typing_stop"
)

func KnownEventType(t EventType) bool {
	switch t {
	case EventNewPost, EventNewComment, EventReactionUpdate, EventPostDeleted,
		EventPostApproval, EventPendingApproval, EventStatusUpdate,
		EventNotification, EventTypingStart, EventTypingStop:
		return true
	}
	return false
}

// Event is an immutable domain message. Fields are flattened next to the
// type tag and timestamp on the wire:
//
//	{"type":"reaction_update","post_id":42,"action":"added","timestamp":"..."}
type Event struct {
	Type      EventType
	Fields    map[string]any
	Timestamp time.Time
}

func NewEvent(t EventType, fields map[string]any) Event {
	return Event{
		Type:      t,
		Fields:    fields,
		Timestamp: time.Now(),
	}
}

// Encode serializes the event once; the dispatcher reuses the returned
// bytes for every recipient of a fan-out.
func (e Event) Encode() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+2)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["type"] = string(e.Type)
	out["timestamp"] = e.Timestamp.UTC().Format(time.RFC3339Nano)
	return json.Marshal(out)
}

// StringField returns the named field rendered as a string. Numeric JSON
// values arrive as float64 or json.Number depending on the decoder, so
// group-name derivation goes through here.
func (e Event) StringField(name string) string {
	v, ok := e.Fields[name]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}
