// Package client implements the synchronizing peer of the collaboration
// protocol: it debounces local edits before transmission and suppresses
// re-broadcast of changes that originated remotely.
package client

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"codeshare/internal/model"
	"codeshare/internal/transport/ws"
)

const (
	defaultDebounce = 300 * time.Millisecond
	writeTimeout    = 10 * time.Second
)

// Options configures an Agent. All callbacks are fixed at dial time and
// are invoked from the agent's read goroutine.
type Options struct {
	// UserID identifies this participant in outbound events. A random
	// id is generated when empty.
	UserID string

	// Debounce is the quiescence window for local code edits.
	Debounce time.Duration

	OnCode         func(code string)
	OnLanguage     func(language model.Language)
	OnParticipants func(count int)
	OnError        func(message string)
	OnDisconnect   func(err error)
}

// Agent maintains one client connection to the sync service.
type Agent struct {
	userID   string
	debounce time.Duration
	opts     Options

	conn    *websocket.Conn
	writeMu sync.Mutex // serialises all conn writes

	mu        sync.Mutex
	sessionID string
	code      string
	language  model.Language

	// lastRemote marks the most recent remote-origin buffer value; the
	// next local edit carrying the same value is the editor echoing the
	// applied update back and must not be transmitted.
	lastRemote *string

	pendingCode string
	timer       *time.Timer
	closed      bool
}

// Dial connects to the sync service's WebSocket endpoint.
func Dial(url string, opts Options) (*Agent, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}

	a := &Agent{
		userID:   opts.UserID,
		debounce: opts.Debounce,
		opts:     opts,
		conn:     conn,
	}
	if a.userID == "" {
		a.userID = uuid.NewString()
	}
	if a.debounce <= 0 {
		a.debounce = defaultDebounce
	}

	go a.readLoop()
	return a, nil
}

// UserID returns the participant id used in outbound events.
func (a *Agent) UserID() string {
	return a.userID
}

// Join subscribes this connection to a session's room. The server
// answers with a session-state snapshot.
func (a *Agent) Join(sessionID string) error {
	a.mu.Lock()
	a.sessionID = sessionID
	a.mu.Unlock()

	return a.emit(ws.MsgJoinSession, ws.JoinSessionPayload{
		SessionID: sessionID,
		UserID:    a.userID,
	})
}

// SetCode records a local edit. Edits within the debounce window
// coalesce into a single transmission carrying the latest value; an
// edit that merely echoes an applied remote update is discarded.
func (a *Agent) SetCode(code string) {
	a.mu.Lock()
	a.code = code

	if a.lastRemote != nil {
		suppress := *a.lastRemote == code
		a.lastRemote = nil
		if suppress {
			a.mu.Unlock()
			return
		}
	}

	a.pendingCode = code
	if a.timer == nil {
		a.timer = time.AfterFunc(a.debounce, a.flushCode)
	} else {
		a.timer.Reset(a.debounce)
	}
	a.mu.Unlock()
}

// SetLanguage records a local language switch and transmits it
// immediately; language changes are low-frequency and not debounced.
func (a *Agent) SetLanguage(language model.Language) error {
	a.mu.Lock()
	a.language = language
	sessionID := a.sessionID
	a.mu.Unlock()

	return a.emit(ws.MsgLanguageChange, ws.LanguageChangePayload{
		SessionID: sessionID,
		Language:  language,
	})
}

// Code returns the current local buffer.
func (a *Agent) Code() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.code
}

// Language returns the current local language.
func (a *Agent) Language() model.Language {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.language
}

// Close stops any pending debounce timer and closes the connection, so
// a late flush cannot emit to a session this client no longer observes.
func (a *Agent) Close() error {
	a.mu.Lock()
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()

	return a.conn.Close()
}

func (a *Agent) flushCode() {
	a.mu.Lock()
	if a.closed || a.sessionID == "" {
		a.timer = nil
		a.mu.Unlock()
		return
	}
	code := a.pendingCode
	sessionID := a.sessionID
	a.timer = nil
	a.mu.Unlock()

	if err := a.emit(ws.MsgCodeChange, ws.CodeChangePayload{
		SessionID: sessionID,
		Code:      code,
		UserID:    a.userID,
	}); err != nil {
		log.Printf("code-change emit error: %v", err)
	}
}

func (a *Agent) emit(t ws.MessageType, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	a.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return a.conn.WriteJSON(&ws.Message{Type: t, Payload: data})
}

func (a *Agent) readLoop() {
	for {
		_, data, err := a.conn.ReadMessage()
		if err != nil {
			a.mu.Lock()
			if a.timer != nil {
				a.timer.Stop()
				a.timer = nil
			}
			closed := a.closed
			a.mu.Unlock()

			if !closed && a.opts.OnDisconnect != nil {
				a.opts.OnDisconnect(err)
			}
			return
		}

		var msg ws.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Dropping malformed server message: %v", err)
			continue
		}
		a.handle(&msg)
	}
}

func (a *Agent) handle(msg *ws.Message) {
	switch msg.Type {
	case ws.MsgSessionState:
		var p ws.SessionStatePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		a.applyRemoteCode(p.Code)
		a.applyLanguage(p.Language)
		if a.opts.OnParticipants != nil {
			a.opts.OnParticipants(p.ParticipantCount)
		}

	case ws.MsgCodeChange:
		var p ws.CodeChangePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		a.applyRemoteCode(p.Code)

	case ws.MsgLanguageChange:
		var p ws.LanguageChangePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		a.applyLanguage(p.Language)

	case ws.MsgParticipantJoined, ws.MsgParticipantLeft:
		var p ws.ParticipantPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		if a.opts.OnParticipants != nil {
			a.opts.OnParticipants(p.ParticipantCount)
		}

	case ws.MsgError:
		var p ws.ErrorPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		if a.opts.OnError != nil {
			a.opts.OnError(p.Message)
		}
	}
}

// applyRemoteCode installs a remote-origin buffer value and arms the
// echo marker before the callback runs, so an editor change fired by
// applying the update cannot loop back to the network.
func (a *Agent) applyRemoteCode(code string) {
	a.mu.Lock()
	a.code = code
	remote := code
	a.lastRemote = &remote
	a.mu.Unlock()

	if a.opts.OnCode != nil {
		a.opts.OnCode(code)
	}
}

func (a *Agent) applyLanguage(language model.Language) {
	a.mu.Lock()
	a.language = language
	a.mu.Unlock()

	if a.opts.OnLanguage != nil {
		a.opts.OnLanguage(language)
	}
}
