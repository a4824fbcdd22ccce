package server

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
)

// backlogSize is the per-session bounded queue depth. A slow subscriber
// that cannot drain its queue before it fills is disconnected rather than
// allowed to slow the producer.
const backlogSize = 100

// ErrBacklogFull is returned by Session.Enqueue when the subscriber's
// queue is already at capacity; the caller must drop the session.
var ErrBacklogFull = errors.New("server: session backlog full")

// Session represents one connected websocket client: a bounded outbound
// queue drained by a dedicated writer goroutine, decoupling the
// broadcaster from any single client's write latency.
type Session struct {
	id   uuid.UUID
	conn net.Conn

	outbound chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

// NewSession wraps an upgraded websocket connection.
func NewSession(conn net.Conn) *Session {
	return &Session{
		id:       uuid.New(),
		conn:     conn,
		outbound: make(chan []byte, backlogSize),
		done:     make(chan struct{}),
	}
}

// ID returns the session's unique identifier, used only for logging.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Enqueue submits frame for delivery. It never blocks: if the backlog is
// full, it reports ErrBacklogFull instead of waiting.
func (s *Session) Enqueue(frame []byte) error {
	select {
	case s.outbound <- frame:
		return nil
	default:
		return ErrBacklogFull
	}
}

// Done reports when the session has been closed, either by a write
// failure or by the broadcaster evicting a slow subscriber.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close terminates the session's connection and write loop. Safe to call
// more than once or concurrently.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// WriteLoop drains the outbound queue to the underlying connection as
// binary websocket frames until Close is called or a send fails. Any
// send error terminates the session; there is no retry.
func (s *Session) WriteLoop() error {
	for {
		select {
		case frame := <-s.outbound:
			if err := wsutil.WriteServerBinary(s.conn, frame); err != nil {
				s.Close()
				return err
			}
		case <-s.done:
			return nil
		}
	}
}

// drainReads discards any client-originated websocket traffic (this
// protocol is server-push only) so that close and ping control frames
// are still observed; it returns once the peer disconnects.
func (s *Session) drainReads() error {
	for {
		_, err := wsutil.ReadClientData(s.conn)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
