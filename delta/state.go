// Package delta compares successive RGBA frames, produces run-encoded
// byte deltas (with a size-triggered full-PNG fallback), and tracks the
// canonical "what every client has reconstructed" baseline buffer.
package delta

import (
	"bytes"
	"image"
	"image/png"
	"sync"
)

// FrameState owns the pair of RGBA buffers the encoder compares:
// current, the most recently translated frame, and lastBroadcast, the
// baseline every connected client is assumed to have reconstructed.
// lastBroadcast is guarded by a mutex because sessions read it (under
// mutual exclusion) to build a baseline PNG for newly connected clients
// while the encoder goroutine may be about to overwrite it.
type FrameState struct {
	width, height int

	mu             sync.RWMutex
	lastBroadcast  []byte
	current        []byte
}

// NewFrameState allocates both buffers, zeroed, for a width x height RGBA
// stream.
func NewFrameState(width, height int) *FrameState {
	size := width * height * 4
	return &FrameState{
		width:         width,
		height:        height,
		lastBroadcast: make([]byte, size),
		current:       make([]byte, size),
	}
}

// Current returns the buffer the caller should translate the next raw
// frame into. It is safe to mutate directly; it is not shared with
// readers until CommitBroadcast is called.
func (s *FrameState) Current() []byte {
	return s.current
}

// CommitBroadcast copies Current into the last-broadcast baseline. Called
// after a successful broadcast so that last_broadcast_rgba == current_rgba,
// per the data-model invariant.
func (s *FrameState) CommitBroadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy(s.lastBroadcast, s.current)
}

// LastBroadcastCopy returns a fresh copy of the baseline buffer, safe to
// hand to a PNG encoder without risk of observing a torn write.
func (s *FrameState) LastBroadcastCopy() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]byte, len(s.lastBroadcast))
	copy(out, s.lastBroadcast)
	return out
}

// lastBroadcastView returns the live baseline slice for read-only use
// under the caller's own lock discipline (the delta encoder itself, which
// owns the write side and therefore does not need to copy).
func (s *FrameState) lastBroadcastView() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastBroadcast
}

// EncodePNG renders an RGBA buffer of this state's dimensions to PNG.
func (s *FrameState) EncodePNG(rgba []byte) ([]byte, error) {
	img := &image.NRGBA{
		Pix:    rgba,
		Stride: s.width * 4,
		Rect:   image.Rect(0, 0, s.width, s.height),
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BaselinePNG encodes the current last-broadcast baseline as PNG, for a
// newly connecting client.
func (s *FrameState) BaselinePNG() ([]byte, error) {
	return s.EncodePNG(s.LastBroadcastCopy())
}
