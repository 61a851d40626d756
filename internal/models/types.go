package models

import "time"

// Audio is a recorded utterance as uploaded by the client.
type Audio struct {
	Data     []byte
	Filename string
}

// TurnRequest is one client turn, already decoded from the transport.
type TurnRequest struct {
	SessionID   string
	TextInput   string
	Audio       *Audio
	KnownFields []string
	CurrentData map[string]any
}

// HasAudio reports whether a non-empty recording was supplied.
func (r *TurnRequest) HasAudio() bool {
	return r.Audio != nil && len(r.Audio.Data) > 0
}

// TurnResponse is the JSON body returned for every successful turn.
type TurnResponse struct {
	UserText      string         `json:"userText"`
	BotText       string         `json:"botText"`
	AudioBase64   string         `json:"audioBase64"`
	ExtractedData map[string]any `json:"extractedData"`
	KnownFields   []string       `json:"knownFields"`
	IsFinished    bool           `json:"isFinished"`
}

// ErrorResponse is returned when a turn fails.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NATS request for a turn. Audio travels base64 encoded.
type TurnMessage struct {
	SessionID     string         `json:"sessionId,omitempty"`
	TextInput     string         `json:"textInput,omitempty"`
	AudioBase64   string         `json:"audioBase64,omitempty"`
	AudioFilename string         `json:"audioFilename,omitempty"`
	KnownFields   []string       `json:"knownFields"`
	CurrentData   map[string]any `json:"currentData"`
}

// CompletionEvent is published once a turn reports the intake finished.
type CompletionEvent struct {
	SessionID   string         `json:"sessionId,omitempty"`
	Profile     map[string]any `json:"profile"`
	KnownFields []string       `json:"knownFields"`
	CompletedAt time.Time      `json:"completedAt"`
}
