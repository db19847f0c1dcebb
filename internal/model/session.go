package model

import "time"

// Language identifies how a session's buffer is interpreted by the
// execution backend and how the client editor is configured.
type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguagePython     Language = "python"
)

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	switch l {
	case LanguageJavaScript, LanguagePython:
		return true
	}
	return false
}

// Defaults applied when a session is created without an initial buffer.
const (
	DefaultCode     = "// Start coding here..."
	DefaultLanguage = LanguageJavaScript
)

// Session is one shared editing context: a text buffer plus a language
// selector, identified by an opaque id used as the room key.
type Session struct {
	ID               string    `json:"id"`
	Code             string    `json:"code"`
	Language         Language  `json:"language"`
	CreatedAt        time.Time `json:"createdAt"`
	LastAccessedAt   time.Time `json:"lastAccessedAt"`
	ParticipantCount int       `json:"participantCount"`
}

// SessionData carries a partial update; nil fields are left untouched.
type SessionData struct {
	Code     *string   `json:"code,omitempty"`
	Language *Language `json:"language,omitempty"`
}

// Stats summarizes the store for the stats endpoint. A session is active
// while at least one participant is connected to its room.
type Stats struct {
	TotalSessions  int `json:"totalSessions"`
	ActiveSessions int `json:"activeSessions"`
}
