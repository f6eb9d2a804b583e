package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cameraapitest/pkg/version"
)

// Handlers groups the optional route handlers. Nil handlers are not mounted.
type Handlers struct {
	Sessions *SessionHandler
	Commands *CommandHandler
	Events   *EventHandler
	Journal  *JournalHandler
	Stats    *StatsHandler
	// Shutdown is called by POST /api/shutdown.
	Shutdown func()
}

// NewServer creates and configures the HTTP server.
func NewServer(addr string, hs Handlers) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      NewMux(hs),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewMux builds the route table. Split from NewServer for tests.
func NewMux(hs Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.HandleFunc("GET /api/log/events", handleRecentEvents)

	if hs.Sessions != nil {
		mux.HandleFunc("GET /api/sessions", hs.Sessions.HandleList)
		mux.HandleFunc("POST /api/sessions", hs.Sessions.HandleConnect)
		mux.HandleFunc("DELETE /api/sessions/{id}", hs.Sessions.HandleDisconnect)
	}

	if hs.Commands != nil {
		mux.HandleFunc("POST /api/commands", hs.Commands.HandleCommand)
		mux.HandleFunc("GET /api/commands", hs.Commands.HandleList)
	}

	// EventHandler sets its own deadlines after the upgrade.
	if hs.Events != nil {
		mux.Handle("GET /api/events", hs.Events)
	}

	if hs.Journal != nil {
		mux.HandleFunc("GET /api/journal", hs.Journal.HandleInvocations)
		mux.HandleFunc("GET /api/journal/instructions", hs.Journal.HandleInstructions)
	}

	if hs.Stats != nil {
		mux.HandleFunc("GET /api/stats", hs.Stats.HandleStats)
	}

	if shutdown := hs.Shutdown; shutdown != nil {
		mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
			slog.Info("Graceful shutdown initiated via API")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("Shutting down...")); err != nil {
				slog.Error("Failed to write shutdown response", "error", err)
			}
			// Let the response flush first
			go func() {
				time.Sleep(100 * time.Millisecond)
				shutdown()
			}()
		})
	}

	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
