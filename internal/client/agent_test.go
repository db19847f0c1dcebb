package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeshare/internal/model"
	"codeshare/internal/store"
	"codeshare/internal/transport/ws"
)

func startSyncServer(t *testing.T) (string, *store.Store) {
	t.Helper()
	st := store.NewStore(model.DefaultCode, model.DefaultLanguage)
	hub := ws.NewHub(st)
	t.Cleanup(hub.Stop)
	handler := ws.NewHandler(hub)

	srv := httptest.NewServer(http.HandlerFunc(handler.ServeWS))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), st
}

// observer is a raw protocol peer used to watch what the agent emits.
// A background goroutine drains the socket so waiting for silence never
// poisons the connection with a read timeout.
type observer struct {
	conn *websocket.Conn
	msgs chan *ws.Message
}

func newObserver(t *testing.T, url, sessionID string) *observer {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	o := &observer{conn: conn, msgs: make(chan *ws.Message, 32)}
	go func() {
		defer close(o.msgs)
		for {
			var msg ws.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			o.msgs <- &msg
		}
	}()

	o.write(t, ws.MsgJoinSession, ws.JoinSessionPayload{
		SessionID: sessionID,
		UserID:    "observer",
	})
	msg := o.read(t)
	require.Equal(t, ws.MsgSessionState, msg.Type)
	return o
}

func (o *observer) write(t *testing.T, msgType ws.MessageType, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, o.conn.WriteJSON(&ws.Message{Type: msgType, Payload: data}))
}

func (o *observer) read(t *testing.T) *ws.Message {
	t.Helper()
	select {
	case msg, ok := <-o.msgs:
		require.True(t, ok, "observer connection closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

// readCodeChange skips participant noise until a code-change arrives.
func (o *observer) readCodeChange(t *testing.T) ws.CodeChangePayload {
	t.Helper()
	for {
		msg := o.read(t)
		if msg.Type != ws.MsgCodeChange {
			continue
		}
		var p ws.CodeChangePayload
		require.NoError(t, json.Unmarshal(msg.Payload, &p))
		return p
	}
}

// expectNoCodeChange asserts no code-change arrives within the window.
func (o *observer) expectNoCodeChange(t *testing.T, window time.Duration) {
	t.Helper()
	deadline := time.After(window)
	for {
		select {
		case msg, ok := <-o.msgs:
			if !ok {
				return
			}
			if msg.Type == ws.MsgCodeChange {
				t.Fatalf("unexpected code-change: %s", msg.Payload)
			}
		case <-deadline:
			return
		}
	}
}

func dialAgent(t *testing.T, url string, opts Options) *Agent {
	t.Helper()
	a, err := Dial(url, opts)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func waitSignal(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for agent callback")
		return ""
	}
}

func TestJoinAppliesSessionState(t *testing.T) {
	url, st := startSyncServer(t)
	code := "x = 1"
	lang := model.LanguagePython
	sess := st.Create(model.SessionData{Code: &code, Language: &lang})

	codes := make(chan string, 4)
	a := dialAgent(t, url, Options{
		OnCode: func(c string) { codes <- c },
	})
	require.NoError(t, a.Join(sess.ID))

	assert.Equal(t, "x = 1", waitSignal(t, codes))
	assert.Equal(t, "x = 1", a.Code())
	assert.Equal(t, model.LanguagePython, a.Language())
}

func TestJoinMissingSessionSurfacesError(t *testing.T) {
	url, _ := startSyncServer(t)

	errs := make(chan string, 1)
	a := dialAgent(t, url, Options{
		OnError: func(m string) { errs <- m },
	})
	require.NoError(t, a.Join("nonexistent"))

	assert.Equal(t, "Session not found", waitSignal(t, errs))
}

func TestDebounceCoalescesEdits(t *testing.T) {
	url, st := startSyncServer(t)
	sess := st.Create(model.SessionData{})
	obs := newObserver(t, url, sess.ID)

	codes := make(chan string, 4)
	a := dialAgent(t, url, Options{
		UserID:   "agent",
		Debounce: 100 * time.Millisecond,
		OnCode:   func(c string) { codes <- c },
	})
	require.NoError(t, a.Join(sess.ID))
	waitSignal(t, codes) // session-state applied

	for _, v := range []string{"v1", "v2", "v3", "v4", "v5"} {
		a.SetCode(v)
	}

	change := obs.readCodeChange(t)
	assert.Equal(t, "v5", change.Code)
	assert.Equal(t, "agent", change.UserID)

	// Exactly one transmission for the burst.
	obs.expectNoCodeChange(t, 300*time.Millisecond)

	got, ok := st.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, "v5", got.Code)
}

func TestDebounceTimerResetsOnEdit(t *testing.T) {
	url, st := startSyncServer(t)
	sess := st.Create(model.SessionData{})
	obs := newObserver(t, url, sess.ID)

	codes := make(chan string, 4)
	a := dialAgent(t, url, Options{
		Debounce: 150 * time.Millisecond,
		OnCode:   func(c string) { codes <- c },
	})
	require.NoError(t, a.Join(sess.ID))
	waitSignal(t, codes)

	// Keep editing inside the window; no transmission may happen yet.
	a.SetCode("w1")
	time.Sleep(75 * time.Millisecond)
	a.SetCode("w2")
	obs.expectNoCodeChange(t, 75*time.Millisecond)

	change := obs.readCodeChange(t)
	assert.Equal(t, "w2", change.Code)
}

func TestRemoteChangeIsNotEchoed(t *testing.T) {
	url, st := startSyncServer(t)
	sess := st.Create(model.SessionData{})
	obs := newObserver(t, url, sess.ID)

	codes := make(chan string, 4)
	a := dialAgent(t, url, Options{
		Debounce: 50 * time.Millisecond,
		OnCode:   func(c string) { codes <- c },
	})
	require.NoError(t, a.Join(sess.ID))
	waitSignal(t, codes)

	// A remote peer edits; the agent applies it and the host editor
	// reports the applied value back as a local change.
	obs.write(t, ws.MsgCodeChange, ws.CodeChangePayload{
		SessionID: sess.ID,
		Code:      "remote value",
		UserID:    "observer",
	})
	assert.Equal(t, "remote value", waitSignal(t, codes))
	a.SetCode("remote value")

	obs.expectNoCodeChange(t, 250*time.Millisecond)

	// A genuine local edit after the applied update still transmits.
	a.SetCode("local value")
	change := obs.readCodeChange(t)
	assert.Equal(t, "local value", change.Code)
}

func TestLanguageChangeIsImmediate(t *testing.T) {
	url, st := startSyncServer(t)
	sess := st.Create(model.SessionData{})
	obs := newObserver(t, url, sess.ID)

	codes := make(chan string, 4)
	langs := make(chan string, 4)
	a := dialAgent(t, url, Options{
		OnCode:     func(c string) { codes <- c },
		OnLanguage: func(l model.Language) { langs <- string(l) },
	})
	require.NoError(t, a.Join(sess.ID))
	waitSignal(t, codes)
	waitSignal(t, langs) // session-state language

	require.NoError(t, a.SetLanguage(model.LanguagePython))

	for {
		msg := obs.read(t)
		if msg.Type != ws.MsgLanguageChange {
			continue
		}
		var p ws.LanguageChangePayload
		require.NoError(t, json.Unmarshal(msg.Payload, &p))
		assert.Equal(t, model.LanguagePython, p.Language)
		break
	}

	// The sender receives the room-wide broadcast too.
	assert.Equal(t, "python", waitSignal(t, langs))
	assert.Equal(t, model.LanguagePython, a.Language())
}

func TestCloseCancelsPendingDebounce(t *testing.T) {
	url, st := startSyncServer(t)
	sess := st.Create(model.SessionData{})
	obs := newObserver(t, url, sess.ID)

	codes := make(chan string, 4)
	a := dialAgent(t, url, Options{
		Debounce: 100 * time.Millisecond,
		OnCode:   func(c string) { codes <- c },
	})
	require.NoError(t, a.Join(sess.ID))
	waitSignal(t, codes)

	a.SetCode("never sent")
	require.NoError(t, a.Close())

	obs.expectNoCodeChange(t, 300*time.Millisecond)

	got, ok := st.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, model.DefaultCode, got.Code)
}
