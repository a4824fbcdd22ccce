// Package capture periodically samples a fixed-size byte window from a
// file descriptor into a preallocated buffer, modeling the framebuffer
// sampler that feeds the screen-streaming pipeline.
package capture

import (
	"fmt"
	"io"
	"time"
)

// PollInterval is the fixed period between samples (20ms, ~50Hz).
const PollInterval = 20 * time.Millisecond

// Source is the minimal file-like contract the sampler needs: a reader at
// an explicit offset, satisfied by *os.File opened against /proc/<pid>/mem.
type Source interface {
	io.ReaderAt
}

// Sampler reads exactly len(buf) bytes from offset in source on every
// tick. Each read names the offset explicitly (ReadAt), so it does not
// depend on the source's read position, which earlier reads advance.
type Sampler struct {
	source   Source
	offset   int64
	buf      []byte
	interval time.Duration
}

// NewSampler returns a Sampler that reads fbSize bytes from offset in
// source into a freshly allocated, reused buffer, ticking every interval.
// An interval <= 0 falls back to PollInterval.
func NewSampler(source Source, offset int64, fbSize int, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = PollInterval
	}
	return &Sampler{source: source, offset: offset, buf: make([]byte, fbSize), interval: interval}
}

// Sample performs one read, returning the preallocated buffer (reused
// across calls — callers must not retain it past the next call). A short
// read or any error is fatal to the sampling task and is returned wrapped
// with a "capture:" context prefix.
func (s *Sampler) Sample() ([]byte, error) {
	n, err := s.source.ReadAt(s.buf, s.offset)
	if err != nil {
		return nil, fmt.Errorf("capture: read framebuffer: %w", err)
	}
	if n != len(s.buf) {
		return nil, fmt.Errorf("capture: short read: got %d bytes, want %d", n, len(s.buf))
	}
	return s.buf, nil
}

// Run calls onFrame with each successfully sampled frame every interval
// (set by NewSampler) until cancellation is signaled via stop, or a
// sample fails. A sample failure is fatal and returned to the caller; it
// does not restart automatically.
func (s *Sampler) Run(stop <-chan struct{}, onFrame func([]byte) error) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			frame, err := s.Sample()
			if err != nil {
				return err
			}
			if err := onFrame(frame); err != nil {
				return err
			}
		}
	}
}
