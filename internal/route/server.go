package route

import (
	"context"
	"net"
	"net/http"
	"time"
)

// NewServer builds the http.Server for handler. Request contexts derive from a
// base context that is cancelled as soon as Shutdown starts, so long-lived
// responses such as /video_feed end instead of holding shutdown open.
// No WriteTimeout: it would cut the video feed off.
func NewServer(addr string, handler http.Handler) *http.Server {
	baseCtx, cancel := context.WithCancel(context.Background())

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancel)
	return server
}
