package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"codeshare/internal/model"
	"codeshare/internal/runner"
	"codeshare/internal/store"
)

// SessionHandler handles session lifecycle endpoints
type SessionHandler struct {
	store    *store.Store
	executor runner.Executor
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(st *store.Store, executor runner.Executor) *SessionHandler {
	return &SessionHandler{
		store:    st,
		executor: executor,
	}
}

// CreateSessionRequest is the request body for creating a session
type CreateSessionRequest struct {
	Code     *string         `json:"code,omitempty"`
	Language *model.Language `json:"language,omitempty"`
}

// Create handles POST /sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Language != nil && !req.Language.Valid() {
		writeError(w, http.StatusBadRequest, "invalid language")
		return
	}

	sess := h.store.Create(model.SessionData{
		Code:     req.Code,
		Language: req.Language,
	})
	writeJSON(w, http.StatusCreated, sess)
}

// Get handles GET /sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	sess, ok := h.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Stats handles GET /sessions/stats
func (h *SessionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats())
}

// Execute handles POST /sessions/{id}/execute. It runs the stored
// buffer through the configured execution backend.
func (h *SessionHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	sess, ok := h.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	result, err := h.executor.Execute(r.Context(), sess.Code, sess.Language)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
