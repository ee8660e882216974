// Package api exposes the gateway over HTTP.
package api

import (
	"net/http"

	"github.com/fgeck/pumpkin-control/internal/services/gateway"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// NewRouter registers every gateway route on a new router.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	// Subrouters resolve their own misses, so both need the JSON handlers.
	for _, router := range []*mux.Router{r, api} {
		router.NotFoundHandler = http.HandlerFunc(notFound)
		router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	}

	api.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	api.HandleFunc("/config", h.SaveConfig).Methods(http.MethodPost)
	api.HandleFunc("/config", h.GetConfig).Methods(http.MethodGet)
	api.HandleFunc("/connect", h.Connect).Methods(http.MethodPost)
	api.HandleFunc("/execute", h.Execute).Methods(http.MethodPost)
	api.HandleFunc("/{device:fan|lights|camera}", h.Control).Methods(http.MethodPost)
	api.HandleFunc("/shutdown", h.Shutdown).Methods(http.MethodPost)
	api.HandleFunc("/wake", h.Wake).Methods(http.MethodPost)
	api.HandleFunc("/status", h.Status).Methods(http.MethodGet)
	api.HandleFunc("/logs", h.Logs).Methods(http.MethodGet)

	return r
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeDetail(w, http.StatusNotFound, "Not Found")
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

// NewHandler builds the complete HTTP handler: routes wrapped in CORS and
// request logging. The middleware sits outside the router so preflight
// requests are answered even though no route matches OPTIONS.
func NewHandler(gw gateway.Service, logger zerolog.Logger, corsOrigins []string) http.Handler {
	router := NewRouter(NewHandlers(gw, logger))
	return requestLogger(logger)(cors(corsOrigins)(router))
}
