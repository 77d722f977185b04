// Package httpserver owns the process's HTTP listener settings.
package httpserver

import (
	"net/http"
	"time"
)

// Timeouts for the listener. Whole-request deadlines come from the
// router's timeout middleware, so large import uploads are not cut off
// here; only header reads and idle keep-alives are bounded.
const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 2 * time.Minute
)

// New builds the server around the router.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
}
