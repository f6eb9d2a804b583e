package api

import (
	"log/slog"
	"net/http"

	"cameraapitest/pkg/journal"
)

// JournalHandler serves command and instruction history.
type JournalHandler struct {
	store journal.Journal
}

// NewJournalHandler creates a new JournalHandler. Returns nil if the journal is missing.
func NewJournalHandler(j journal.Journal) *JournalHandler {
	if j == nil {
		return nil
	}
	return &JournalHandler{store: j}
}

// HandleInvocations returns recent command invocations, newest first.
// GET /api/journal?limit=N
func (h *JournalHandler) HandleInvocations(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	invs, err := h.store.RecentInvocations(r.Context(), limit)
	if err != nil {
		slog.Error("JournalHandler: failed to load invocations", "error", err)
		http.Error(w, "journal unavailable", http.StatusInternalServerError)
		return
	}
	if invs == nil {
		invs = []journal.Invocation{}
	}
	writeJSON(w, http.StatusOK, invs)
}

// HandleInstructions returns recent instructions, optionally for one connection.
// GET /api/journal/instructions?connection=ID&limit=N
func (h *JournalHandler) HandleInstructions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ins, err := h.store.RecentInstructions(r.Context(), r.URL.Query().Get("connection"), limit)
	if err != nil {
		slog.Error("JournalHandler: failed to load instructions", "error", err)
		http.Error(w, "journal unavailable", http.StatusInternalServerError)
		return
	}
	if ins == nil {
		ins = []journal.Instruction{}
	}
	writeJSON(w, http.StatusOK, ins)
}
