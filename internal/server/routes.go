package server

import (
	"log/slog"
	"net/http"
)

// NewRouter builds the HTTP routing table with the standard middleware chain.
func NewRouter(h *Handlers, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /provider", h.Capabilities)
	mux.HandleFunc("POST /runs", h.CreateRun)
	mux.HandleFunc("GET /runs/{id}", h.GetRun)
	mux.HandleFunc("DELETE /runs/{id}", h.CancelRun)

	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware([]string{"*"}),
	)

	return chain(mux)
}
