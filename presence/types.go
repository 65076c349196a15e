package presence

import (
	"encoding/json"
	"time"
)

const (
	outboundJoin   = "join"
	outboundScroll = "scroll_update"

	eventPresenceUpdate = "presence_update"
	eventUserJoined     = "user_joined"
	eventUserLeft       = "user_left"
	eventScrollUpdate   = "scroll_update"
	// Some backend versions emit the long form for the same event.
	eventScrollPositionUpdate = "scroll_position_update"

	eventError = "error"
)

// joinIntent announces the local session right after the socket opens.
// The auth token travels in the connection URL, not in this frame.
type joinIntent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Timestamp int64  `json:"timestamp"`
}

// scrollIntent reports which message the local user is currently reading.
type scrollIntent struct {
	Type                string `json:"type"`
	CurrentMessageIndex int    `json:"current_message_index"`
	CurrentMessageID    string `json:"current_message_id"`
	Timestamp           int64  `json:"timestamp"`
}

// Error describes a protocol error frame.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Msg
}

// UnmarshalData decodes RawMessage into target.
func UnmarshalData(data json.RawMessage, v any) error {
	return json.Unmarshal(data, v)
}

// Timestamps on the wire are unix milliseconds.

func millisFromTime(t time.Time) int64 {
	return t.UnixMilli()
}

func timeFromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
