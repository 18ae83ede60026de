// File: internal/handlers/router.go
package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the history API. The ingest middlewares guard only the
// write endpoints.
func NewRouter(h *HistoryHandler, ingest ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods("GET")

	// --- Ingestion ---
	guard := func(f http.HandlerFunc) http.Handler {
		var handler http.Handler = f
		for i := len(ingest) - 1; i >= 0; i-- {
			handler = ingest[i](handler)
		}
		return handler
	}
	r.Handle("/api/messages", guard(h.RecordMessage)).Methods("POST")
	r.Handle("/api/messages/batch", guard(h.ImportMessages)).Methods("POST")

	// --- Queries ---
	chats := r.PathPrefix("/api/chats/{chatID:-?[0-9]+}").Subrouter()
	chats.HandleFunc("/stats", h.ChatStats).Methods("GET")
	chats.HandleFunc("/last-seen", h.ChatLastSeen).Methods("GET")
	chats.HandleFunc("/first-message", h.ChatFirstMessage).Methods("GET")
	chats.HandleFunc("/report", h.ChatReport).Methods("GET")
	chats.HandleFunc("/report.html", h.ChatReportHTML).Methods("GET")

	users := chats.PathPrefix("/users/{userID:-?[0-9]+}").Subrouter()
	users.HandleFunc("/daily", h.UserDaily).Methods("GET")
	users.HandleFunc("/last-seen", h.UserLastSeen).Methods("GET")
	users.HandleFunc("/first-message", h.UserFirstMessage).Methods("GET")
	users.HandleFunc("/messages", h.UserMessages).Methods("GET")
	users.HandleFunc("/report", h.UserReport).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	return r
}
