package ws

import (
	"encoding/json"
	"log"
	"sync"

	"codeshare/internal/model"
	"codeshare/internal/store"
)

// Connection represents one connected participant. The hub only ever
// writes to Send; the transport handler owns the underlying socket.
type Connection struct {
	UserID string
	Send   chan []byte
}

// inbound pairs a client event with the connection it arrived on.
type inbound struct {
	conn *Connection
	msg  *Message
}

// Hub routes participant events to the session store and fans the
// resulting state out to room members. A single run goroutine processes
// all events, so store mutations triggered by the hub are serialized.
type Hub struct {
	store *store.Store

	mu sync.RWMutex
	// Session id -> room members
	rooms map[string]map[*Connection]bool
	// Connection -> joined session id ("" while not joined)
	joined map[*Connection]string

	register   chan *Connection
	unregister chan *Connection
	events     chan inbound
	done       chan struct{}
}

// NewHub creates a hub bound to the given store and starts its event loop.
func NewHub(st *store.Store) *Hub {
	h := &Hub{
		store:      st,
		rooms:      make(map[string]map[*Connection]bool),
		joined:     make(map[*Connection]string),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		events:     make(chan inbound, 256),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.joined[conn] = ""
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			h.handleDisconnect(conn)
			h.mu.Unlock()

		case ev := <-h.events:
			h.mu.Lock()
			h.handleEvent(ev.conn, ev.msg)
			h.mu.Unlock()

		case <-h.done:
			return
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection, notifying its room if it was joined
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Dispatch queues a client event for processing
func (h *Hub) Dispatch(conn *Connection, msg *Message) {
	h.events <- inbound{conn: conn, msg: msg}
}

// Stop terminates the event loop.
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) handleEvent(conn *Connection, msg *Message) {
	switch msg.Type {
	case MsgJoinSession:
		var p JoinSessionPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.SessionID == "" || p.UserID == "" {
			log.Printf("Dropping malformed join-session event: %v", err)
			return
		}
		h.handleJoin(conn, p)

	case MsgCodeChange:
		var p CodeChangePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.SessionID == "" {
			log.Printf("Dropping malformed code-change event: %v", err)
			return
		}
		h.handleCodeChange(conn, p)

	case MsgLanguageChange:
		var p LanguageChangePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.SessionID == "" || !p.Language.Valid() {
			log.Printf("Dropping malformed language-change event: %v", err)
			return
		}
		h.handleLanguageChange(conn, p)

	default:
		log.Printf("Dropping unknown event type %q", msg.Type)
	}
}

func (h *Hub) handleJoin(conn *Connection, p JoinSessionPayload) {
	current := h.joined[conn]
	if current == p.SessionID {
		// Duplicate join from the same connection: membership and the
		// participant count must not double.
		return
	}
	if current != "" {
		h.leaveRoom(conn, current)
	}

	h.store.IncrementParticipants(p.SessionID)
	sess, ok := h.store.Get(p.SessionID)
	if !ok {
		h.send(conn, MsgError, ErrorPayload{Message: "Session not found"})
		return
	}

	if h.rooms[p.SessionID] == nil {
		h.rooms[p.SessionID] = make(map[*Connection]bool)
	}
	h.rooms[p.SessionID][conn] = true
	h.joined[conn] = p.SessionID
	conn.UserID = p.UserID
	log.Printf("User %s joined session %s", p.UserID, p.SessionID)

	h.send(conn, MsgSessionState, SessionStatePayload{
		Code:             sess.Code,
		Language:         sess.Language,
		ParticipantCount: sess.ParticipantCount,
	})
	h.broadcast(p.SessionID, conn, MsgParticipantJoined, ParticipantPayload{
		ParticipantCount: sess.ParticipantCount,
	})
}

func (h *Hub) handleCodeChange(conn *Connection, p CodeChangePayload) {
	if _, ok := h.store.Update(p.SessionID, model.SessionData{Code: &p.Code}); !ok {
		log.Printf("Dropping code-change for missing session %s", p.SessionID)
		return
	}

	// The sender already has the authoritative local value.
	h.broadcast(p.SessionID, conn, MsgCodeChange, CodeChangePayload{
		Code:   p.Code,
		UserID: p.UserID,
	})
}

func (h *Hub) handleLanguageChange(conn *Connection, p LanguageChangePayload) {
	if _, ok := h.store.Update(p.SessionID, model.SessionData{Language: &p.Language}); !ok {
		log.Printf("Dropping language-change for missing session %s", p.SessionID)
		return
	}

	// Everyone including the sender: the client applies language
	// optimistically, so echoing it back re-confirms consistency.
	h.broadcast(p.SessionID, nil, MsgLanguageChange, LanguageChangePayload{
		Language: p.Language,
	})
}

func (h *Hub) handleDisconnect(conn *Connection) {
	if _, tracked := h.joined[conn]; !tracked {
		return
	}
	if sid := h.joined[conn]; sid != "" {
		h.leaveRoom(conn, sid)
	}
	delete(h.joined, conn)
	close(conn.Send)
}

// leaveRoom removes the connection from its room, updates the count and
// notifies the remaining members. Callers hold the lock.
func (h *Hub) leaveRoom(conn *Connection, sessionID string) {
	members, ok := h.rooms[sessionID]
	if !ok || !members[conn] {
		return
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(h.rooms, sessionID)
	}
	h.joined[conn] = ""

	h.store.DecrementParticipants(sessionID)
	if sess, ok := h.store.Get(sessionID); ok {
		h.broadcast(sessionID, nil, MsgParticipantLeft, ParticipantPayload{
			ParticipantCount: sess.ParticipantCount,
		})
	}
}

// send delivers a message to one connection, dropping it if the send
// buffer is full.
func (h *Hub) send(conn *Connection, t MessageType, payload interface{}) {
	data, err := encode(t, payload)
	if err != nil {
		log.Printf("Encode error for %s: %v", t, err)
		return
	}
	select {
	case conn.Send <- data:
	default:
		// Drop message if buffer full
	}
}

// broadcast fans a message out to every room member except skip (nil
// means no exclusion).
func (h *Hub) broadcast(sessionID string, skip *Connection, t MessageType, payload interface{}) {
	members, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	data, err := encode(t, payload)
	if err != nil {
		log.Printf("Encode error for %s: %v", t, err)
		return
	}
	for conn := range members {
		if conn == skip {
			continue
		}
		select {
		case conn.Send <- data:
		default:
		}
	}
}

// RoomSize reports the current membership of a session's room.
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}
