package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with the timeouts used across the service.
// WriteTimeout leaves room for a slow catalog call plus rendering.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
