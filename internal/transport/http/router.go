package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter mounts every HTTP entrypoint. metrics may be nil.
func NewRouter(ws *WSHandler, results *ResultsHandler, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/ws", ws.ServeWS)
	r.HandleFunc("/sessions/{sessionId}/results", results.Results).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{sessionId}/history", results.History).Methods(http.MethodGet)
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	return r
}
