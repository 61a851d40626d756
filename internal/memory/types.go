package memory

import (
	"context"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single line of an intake conversation
type Message struct {
	Role      string    `json:"role"`      // "user" or "assistant"
	Content   string    `json:"content"`   // The actual message text
	Timestamp time.Time `json:"timestamp"` // When the message was sent
}

// SessionData is the recorded transcript of one intake session
type SessionData struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
	Metadata  Metadata  `json:"metadata"`
}

// Metadata contains session information
type Metadata struct {
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

// Store defines the interface for transcript storage.
// Implementations: RedisStore, InMemoryStore.
type Store interface {
	// LoadSession returns the session, empty when it does not exist
	LoadSession(ctx context.Context, sessionID string) (*SessionData, error)

	// AppendMessages adds messages to the end of a session and refreshes its TTL
	AppendMessages(ctx context.Context, sessionID string, msgs ...Message) error

	// ClearSession removes a session from storage
	ClearSession(ctx context.Context, sessionID string) error

	// SessionExists checks if a session exists
	SessionExists(ctx context.Context, sessionID string) (bool, error)
}

func newSessionData(sessionID string, msgs []Message) *SessionData {
	session := &SessionData{
		SessionID: sessionID,
		Messages:  msgs,
	}
	if session.Messages == nil {
		session.Messages = []Message{}
	}
	session.Metadata.MessageCount = len(session.Messages)
	if n := len(session.Messages); n > 0 {
		session.Metadata.StartedAt = session.Messages[0].Timestamp
		session.Metadata.LastActivity = session.Messages[n-1].Timestamp
	}
	return session
}
