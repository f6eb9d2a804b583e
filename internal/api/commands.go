package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cameraapitest/pkg/command"
	"cameraapitest/pkg/host/mockhost"
)

// CommandHandler dispatches command lines over HTTP.
type CommandHandler struct {
	registry *command.Registry
	host     *mockhost.Host
}

// NewCommandHandler creates a new CommandHandler. Returns nil if the registry is missing.
// host may be nil, in which case commands can only run as the console.
func NewCommandHandler(r *command.Registry, h *mockhost.Host) *CommandHandler {
	if r == nil {
		return nil
	}
	return &CommandHandler{registry: r, host: h}
}

// CommandRequest is a line such as "/apitest fade". As optionally names a
// connection ID to run the command as that player.
type CommandRequest struct {
	Line string `json:"line"`
	As   string `json:"as,omitempty"`
}

// CommandResponse carries the feedback the source received.
type CommandResponse struct {
	Messages []string `json:"messages"`
	Error    string   `json:"error,omitempty"`
}

// CommandInfo describes a registered command.
type CommandInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Console     bool   `json:"console"`
}

// HandleCommand runs one command line.
// POST /api/commands
func (h *CommandHandler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Line) == "" {
		http.Error(w, "line is required", http.StatusBadRequest)
		return
	}

	var (
		src      command.Source
		messages func() []string
	)
	if req.As == "" {
		capture := command.NewCaptureSource("CONSOLE", true)
		src, messages = capture, capture.Messages
	} else {
		if h.host == nil {
			http.Error(w, "no host to run as a player", http.StatusBadRequest)
			return
		}
		conn, ok := h.host.Conn(req.As)
		if !ok {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}
		before := len(conn.Messages())
		src = conn
		messages = func() []string { return conn.Messages()[before:] }
	}

	err := h.registry.Dispatch(r.Context(), src, req.Line)

	resp := CommandResponse{Messages: messages()}
	if resp.Messages == nil {
		resp.Messages = []string{}
	}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		switch {
		case errors.Is(err, command.ErrUnknownCommand):
			status = http.StatusNotFound
		case errors.Is(err, command.ErrConsoleNotAllowed):
			status = http.StatusForbidden
		}
	}
	writeJSON(w, status, resp)
}

// HandleList returns the registered commands.
// GET /api/commands
func (h *CommandHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	cmds := h.registry.Commands()
	out := make([]CommandInfo, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, CommandInfo{Name: c.Name, Description: c.Description, Console: c.ExecutableOnConsole})
	}
	writeJSON(w, http.StatusOK, out)
}
