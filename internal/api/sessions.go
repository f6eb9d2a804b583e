package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cameraapitest/pkg/host"
	"cameraapitest/pkg/host/mockhost"

	"github.com/go-gl/mathgl/mgl32"
)

// PendingCounter reports scheduled camera resets per connection.
type PendingCounter interface {
	Pending(connID string) int
}

// SessionHandler exposes the mock host's connections.
type SessionHandler struct {
	host    *mockhost.Host
	pending PendingCounter
}

// NewSessionHandler creates a new SessionHandler. Returns nil if the host is missing.
func NewSessionHandler(h *mockhost.Host, pending PendingCounter) *SessionHandler {
	if h == nil {
		return nil
	}
	return &SessionHandler{host: h, pending: pending}
}

// SessionView is a connection as returned by the API.
type SessionView struct {
	mockhost.State
	PendingResets int `json:"pending_resets"`
}

// ConnectRequest creates a player at a position.
type ConnectRequest struct {
	Name string  `json:"name"`
	X    float32 `json:"x"`
	Y    float32 `json:"y"`
	Z    float32 `json:"z"`
}

func (h *SessionHandler) view(c *mockhost.Conn) SessionView {
	v := SessionView{State: c.State()}
	if h.pending != nil {
		v.PendingResets = h.pending.Pending(c.ID())
	}
	return v
}

// HandleList returns every online connection.
// GET /api/sessions
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	conns := h.host.Conns()
	out := make([]SessionView, 0, len(conns))
	for _, c := range conns {
		out = append(out, h.view(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleConnect connects a new mock player.
// POST /api/sessions
func (h *SessionHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	c := h.host.Connect(req.Name, mgl32.Vec3{req.X, req.Y, req.Z})
	writeJSON(w, http.StatusCreated, h.view(c))
}

// HandleDisconnect removes a connection. Pending resets are cancelled by
// the session manager when it sees the disconnect event.
// DELETE /api/sessions/{id}
func (h *SessionHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.host.Disconnect(id); err != nil {
		if errors.Is(err, host.ErrConnectionClosed) {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
