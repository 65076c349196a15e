package rest

import "time"

// Authentication types

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse contains the JWT token returned after successful authentication.
type TokenResponse struct {
	Token string `json:"token"`
}

// Conversation types

// ConversationInfo represents conversation metadata.
type ConversationInfo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageInfo represents a single message in a conversation.
type MessageInfo struct {
	ID        string    `json:"id"`
	Index     int       `json:"index"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationResponse bootstraps a conversation view: the messages to render
// and the presence endpoint to connect to.
type ConversationResponse struct {
	Conversation ConversationInfo `json:"conversation"`
	Messages     []MessageInfo    `json:"messages"`
	PresenceURL  string           `json:"presence_url"`
}

// Discovery types

// SearchResult is one ranked conversation from discovery search.
type SearchResult struct {
	Conversation ConversationInfo `json:"conversation"`
	Score        float64          `json:"score"`
}

// SearchResponse contains ranked search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
