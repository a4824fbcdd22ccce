package delta

import (
	"bytes"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/asivery/rmstream/protocol"
)

// MaxSerializedRuns is the accumulated serialized-run size (bytes) beyond
// which the delta path is abandoned in favor of a full PNG fallback. The
// check runs after each run is closed, not byte-by-byte, so the
// accumulator may briefly exceed this by up to one run's length before
// the decision is taken.
const MaxSerializedRuns = 1_200_000

// PNGFallbackCooldown is the pause after a PNG fallback before sampling
// resumes, to avoid repeatedly blasting full frames while the screen
// churns.
const PNGFallbackCooldown = 1500 * time.Millisecond

// Outcome reports what a single Encode call produced.
type Outcome struct {
	// Frame is the wire-ready tagged frame to broadcast, or nil if the
	// two buffers were byte-identical and nothing should be sent.
	Frame []byte
	// Fallback is true when the delta path was abandoned and Frame holds
	// a full PNG instead of a compressed delta.
	Fallback bool
}

// computeRuns walks old and new in lockstep, returning the maximal
// contiguous differing byte runs. It stops early (abandoning the delta
// path) if the accumulated serialized run size exceeds MaxSerializedRuns,
// in which case ok is false and the caller should fall back to PNG.
func computeRuns(oldBuf, newBuf []byte) (runs []protocol.Run, ok bool) {
	n := len(newBuf)
	serialized := 0
	i := 0
	for i < n {
		if oldBuf[i] == newBuf[i] {
			i++
			continue
		}
		start := i
		for i < n && oldBuf[i] != newBuf[i] {
			i++
		}
		data := append([]byte(nil), newBuf[start:i]...)
		run := protocol.Run{Offset: uint32(start), Data: data}
		runs = append(runs, run)
		serialized += 8 + len(data)
		if serialized > MaxSerializedRuns {
			return runs, false
		}
	}
	return runs, true
}

// deflate compresses payload at the default compression level.
func deflate(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode compares state.Current() against the last-broadcast baseline and
// returns the frame that should be broadcast. If the buffers are
// identical, Outcome.Frame is nil and nothing should be sent. The caller
// is responsible for calling state.CommitBroadcast() after a successful
// broadcast and, on Fallback, sleeping PNGFallbackCooldown before the next
// sample.
func Encode(state *FrameState) (Outcome, error) {
	oldBuf := state.lastBroadcastView()
	newBuf := state.Current()

	runs, ok := computeRuns(oldBuf, newBuf)
	if len(runs) == 0 {
		return Outcome{}, nil
	}

	if ok {
		var raw bytes.Buffer
		for _, r := range runs {
			raw.Write(protocol.EncodeRun(r))
		}
		compressed, err := deflate(raw.Bytes())
		if err != nil {
			return Outcome{}, err
		}
		frame := protocol.EncodeDelta(raw.Len(), compressed)
		return Outcome{Frame: frame, Fallback: false}, nil
	}

	pngBytes, err := state.EncodePNG(newBuf)
	if err != nil {
		return Outcome{}, err
	}
	frame := protocol.EncodeFullPNG(pngBytes)
	return Outcome{Frame: frame, Fallback: true}, nil
}
