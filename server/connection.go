package server

import (
	"log"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/asivery/rmstream/protocol"
)

// handleWS upgrades an incoming HTTP request to a websocket connection and
// drives one client's full session lifecycle: config packet, baseline
// PNG, registration with the broadcaster, and forwarding broadcast
// frames until the client disconnects or a send fails.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Printf("server: websocket upgrade failed: %v", err)
		return
	}

	session := NewSession(conn)
	defer session.Close()

	if err := s.primeSession(session); err != nil {
		log.Printf("server: session %s priming failed: %v", session.ID(), err)
		return
	}

	s.broadcaster.Register(session)
	defer s.broadcaster.Unregister(session)

	writeErr := make(chan error, 1)
	go func() { writeErr <- session.WriteLoop() }()

	readErr := make(chan error, 1)
	go func() { readErr <- session.drainReads() }()

	select {
	case err := <-writeErr:
		if err != nil {
			log.Printf("server: session %s write failed: %v", session.ID(), err)
		}
	case err := <-readErr:
		if err != nil {
			log.Printf("server: session %s closed: %v", session.ID(), err)
		}
	}
}

// primeSession writes the config packet and the baseline PNG directly to
// the connection, ahead of the session's write loop, guaranteeing the
// config-then-baseline-then-stream ordering invariant before the session
// is ever registered with the broadcaster.
func (s *Server) primeSession(session *Session) error {
	config := protocol.EncodeConfig(s.profile.Width, s.profile.Height)
	if err := wsutil.WriteServerBinary(session.conn, config); err != nil {
		return err
	}

	baselinePNG, err := s.frames.BaselinePNG()
	if err != nil {
		return err
	}
	if err := wsutil.WriteServerBinary(session.conn, protocol.EncodeFullPNG(baselinePNG)); err != nil {
		return err
	}

	return nil
}
