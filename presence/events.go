package presence

// UserEvent emitted when a participant joins or leaves the conversation.
type UserEvent struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// ScrollEvent emitted when a participant reports a new reading position.
type ScrollEvent struct {
	UserID           string `json:"user_id"`
	CurrentMessageID string `json:"current_message_id"`
	Timestamp        int64  `json:"timestamp,omitempty"`
}

// PresenceEvent carries a full participant snapshot, as sent by the server
// on roster sync.
type PresenceEvent struct {
	UserID           string `json:"user_id"`
	Username         string `json:"username,omitempty"`
	CurrentMessageID string `json:"current_message_id,omitempty"`
	Timestamp        int64  `json:"timestamp,omitempty"`
}
