// Package server implements the websocket broadcaster, per-client
// session lifecycle, and HTTP listener that together form the streaming
// side of the orchestrator: a client connects, is always sent a config
// packet and a baseline PNG first, then is subscribed to the shared
// broadcast feed until it disconnects.
package server

import (
	"context"
	"html"
	"net/http"
	"strconv"

	"github.com/asivery/rmstream/delta"
	"github.com/asivery/rmstream/device"
)

// Server owns the HTTP listener, the broadcaster every sampler/stylus
// task publishes to, and the shared frame state used to build each new
// client's baseline PNG.
type Server struct {
	addr        string
	profile     device.Profile
	frames      *delta.FrameState
	broadcaster *Broadcaster

	http *http.Server
}

// New constructs a Server bound to addr (e.g. ":3000"), the detected
// device profile, and the shared frame state populated by the sampler
// and delta encoder tasks.
func New(addr string, profile device.Profile, frames *delta.FrameState, broadcaster *Broadcaster) *Server {
	s := &Server{
		addr:        addr,
		profile:     profile,
		frames:      frames,
		broadcaster: broadcaster,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/", s.handleIndex)
	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Broadcaster returns the shared fan-out point so sampler and stylus
// tasks can publish frames without importing the HTTP plumbing.
func (s *Server) Broadcaster() *Broadcaster {
	return s.broadcaster
}

// ListenAndServe starts the HTTP/WS listener; it blocks until the server
// is shut down or fails to bind.
func (s *Server) ListenAndServe() error {
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the listener, waiting for in-flight HTTP
// requests to drain, or until ctx expires. Upgraded websocket connections
// are hijacked from the HTTP server, so Shutdown neither closes nor waits
// for them.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// handleHealthz reports liveness along with the current subscriber
// count, useful for an external supervisor probing readiness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	sessions := s.broadcaster.Count()
	_, _ = w.Write([]byte("ok sessions=" + strconv.Itoa(sessions) + "\n"))
}

// handleIndex serves a minimal placeholder page; the real viewer client
// is an external collaborator out of scope here.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<!doctype html><title>rmstream</title><p>device: " +
		html.EscapeString(s.profile.Name) + "</p><p>connect a viewer to /ws</p>"))
}
