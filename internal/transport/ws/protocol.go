package ws

import (
	"encoding/json"

	"codeshare/internal/model"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Client message types
const (
	MsgJoinSession    MessageType = "join-session"
	MsgCodeChange     MessageType = "code-change"
	MsgLanguageChange MessageType = "language-change"
)

// Server message types
const (
	MsgSessionState      MessageType = "session-state"
	MsgParticipantJoined MessageType = "participant-joined"
	MsgParticipantLeft   MessageType = "participant-left"
	MsgError             MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// JoinSessionPayload asks to join a session's room.
type JoinSessionPayload struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

// SessionStatePayload is the snapshot sent to a joining connection only.
type SessionStatePayload struct {
	Code             string         `json:"code"`
	Language         model.Language `json:"language"`
	ParticipantCount int            `json:"participantCount"`
}

// ParticipantPayload carries the new room size after a join or leave.
type ParticipantPayload struct {
	ParticipantCount int `json:"participantCount"`
}

// CodeChangePayload carries a buffer overwrite. SessionID is set on the
// client-to-server leg only.
type CodeChangePayload struct {
	SessionID string `json:"sessionId,omitempty"`
	Code      string `json:"code"`
	UserID    string `json:"userId"`
}

// LanguageChangePayload carries a language switch. SessionID is set on
// the client-to-server leg only.
type LanguageChangePayload struct {
	SessionID string         `json:"sessionId,omitempty"`
	Language  model.Language `json:"language"`
}

// ErrorPayload is sent to a single connection when its event failed.
type ErrorPayload struct {
	Message string `json:"message"`
}

// encode wraps a payload in the envelope and marshals the whole message.
func encode(t MessageType, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Message{Type: t, Payload: data})
}
