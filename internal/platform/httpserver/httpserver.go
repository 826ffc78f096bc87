package httpserver

import (
	"net/http"
	"time"
)

// New builds the gateway HTTP server. WriteTimeout leaves room for a token
// exchange plus the grievance call at their default read timeouts.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}
