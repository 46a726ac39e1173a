package domain

import "time"

// Session represents a chat session
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message represents a persisted chat message
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	Route     Route     `json:"route,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Answer is the composer's final output. Templated is set when the text was
// built from the fixed fallback rather than the text-generation collaborator.
type Answer struct {
	Text      string `json:"text"`
	Templated bool   `json:"templated,omitempty"`
}

// ChatRequest is the request to send a chat message
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message" binding:"required"`
}

// ChatResponse is the response from a chat message
type ChatResponse struct {
	SessionID string       `json:"session_id"`
	Answer    string       `json:"answer"`
	Route     Route        `json:"route,omitempty"`
	Degraded  bool         `json:"degraded,omitempty"`
	Items     []ResultItem `json:"items,omitempty"`
}

// Stats represents system statistics
type Stats struct {
	TotalSessions int `json:"total_sessions"`
	TotalChats    int `json:"total_chats"`
	TotalFilms    int `json:"total_films"`
}
