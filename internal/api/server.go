package api

import (
	"net/http"
	"time"

	"proctor-camera/internal/config"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
)

// NewHTTPServer builds the server for either the agent control API or the
// receiver. addr selects which; the timeouts come from config for both.
func NewHTTPServer(addr string, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       idleTimeout,
	}
}
