package delta

import (
	"bytes"
	"compress/flate"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/asivery/rmstream/protocol"
)

func inflateForTest(compressed []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	return io.ReadAll(r)
}

func TestComputeRunsScenario1(t *testing.T) {
	// 4x1 RGBA pixels: baseline all zero, new frame has every pixel changed.
	// Runs are byte-granular, so the zero bytes of the new frame match the
	// baseline and split the change into six runs.
	oldBuf := make([]byte, 16)
	newBuf := []byte{
		0xFF, 0x00, 0x00, 0xFF,
		0x00, 0xFF, 0x00, 0xFF,
		0x00, 0x00, 0xFF, 0xFF,
		0x00, 0x00, 0x00, 0xFF,
	}
	runs, ok := computeRuns(oldBuf, newBuf)
	if !ok {
		t.Fatal("expected delta path to succeed")
	}
	if len(runs) != 6 {
		t.Fatalf("got %d runs, want 6", len(runs))
	}
	want := []protocol.Run{
		{Offset: 0, Data: []byte{0xFF}},
		{Offset: 3, Data: []byte{0xFF}},
		{Offset: 5, Data: []byte{0xFF}},
		{Offset: 7, Data: []byte{0xFF}},
		{Offset: 10, Data: []byte{0xFF, 0xFF}},
		{Offset: 15, Data: []byte{0xFF}},
	}
	for i, w := range want {
		if runs[i].Offset != w.Offset || !bytes.Equal(runs[i].Data, w.Data) {
			t.Fatalf("run %d = offset=%d data=%v, want offset=%d data=%v", i, runs[i].Offset, runs[i].Data, w.Offset, w.Data)
		}
	}
}

func TestComputeRunsIdenticalFrames(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	runs, ok := computeRuns(buf, append([]byte(nil), buf...))
	if !ok || len(runs) != 0 {
		t.Fatalf("expected no runs for identical frames, got %d (ok=%v)", len(runs), ok)
	}
}

func TestComputeRunsSingleByteAtStart(t *testing.T) {
	oldBuf := make([]byte, 8)
	newBuf := make([]byte, 8)
	newBuf[0] = 0xFF
	runs, ok := computeRuns(oldBuf, newBuf)
	if !ok || len(runs) != 1 {
		t.Fatalf("expected exactly one run, got %d (ok=%v)", len(runs), ok)
	}
	if runs[0].Offset != 0 || len(runs[0].Data) != 1 {
		t.Fatalf("got offset=%d len=%d, want offset=0 len=1", runs[0].Offset, len(runs[0].Data))
	}
}

func TestComputeRunsSingleByteAtEnd(t *testing.T) {
	oldBuf := make([]byte, 8)
	newBuf := make([]byte, 8)
	newBuf[7] = 0xFF
	runs, ok := computeRuns(oldBuf, newBuf)
	if !ok || len(runs) != 1 {
		t.Fatalf("expected exactly one run, got %d (ok=%v)", len(runs), ok)
	}
	if runs[0].Offset != 7 || len(runs[0].Data) != 1 {
		t.Fatalf("got offset=%d len=%d, want offset=7 len=1", runs[0].Offset, len(runs[0].Data))
	}
}

func TestComputeRunsAbandonsAboveThreshold(t *testing.T) {
	size := MaxSerializedRuns + 100
	oldBuf := make([]byte, size)
	newBuf := make([]byte, size)
	for i := range newBuf {
		newBuf[i] = 0xFF
	}
	_, ok := computeRuns(oldBuf, newBuf)
	if ok {
		t.Fatal("expected delta path to be abandoned above threshold")
	}
}

func TestEncodeNoChangeProducesNoFrame(t *testing.T) {
	state := NewFrameState(2, 2)
	out, err := Encode(state)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if out.Frame != nil {
		t.Fatalf("expected nil frame for identical buffers, got %d bytes", len(out.Frame))
	}
}

func TestEncodeDeltaRoundTrip(t *testing.T) {
	state := NewFrameState(2, 2) // 16-byte RGBA buffer
	cur := state.Current()
	cur[0] = 0xAB

	out, err := Encode(state)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if out.Fallback {
		t.Fatal("did not expect fallback for a tiny delta")
	}

	uncompressedLen, compressed, err := protocol.DecodeDelta(out.Frame)
	if err != nil {
		t.Fatalf("DecodeDelta: %v", err)
	}

	inflated, err := inflateForTest(compressed)
	if err != nil {
		t.Fatalf("inflate: %v", err)
	}
	if len(inflated) != uncompressedLen {
		t.Fatalf("inflated length %d != declared length %d", len(inflated), uncompressedLen)
	}

	runs, err := protocol.DecodeRuns(inflated)
	if err != nil {
		t.Fatalf("DecodeRuns: %v", err)
	}

	// Applying the runs to a copy of the old baseline should reproduce
	// state.Current().
	before := state.LastBroadcastCopy()
	rebuilt := append([]byte(nil), before...)
	for _, r := range runs {
		copy(rebuilt[r.Offset:], r.Data)
	}
	if !bytes.Equal(rebuilt, cur) {
		t.Fatalf("applying runs did not reproduce current frame")
	}

	state.CommitBroadcast()
	if !bytes.Equal(state.LastBroadcastCopy(), cur) {
		t.Fatal("last_broadcast_rgba != current_rgba after commit")
	}
}

func TestEncodeFallbackPNGDecodesToBaseline(t *testing.T) {
	width, height := 4, 1
	state := NewFrameState(width, height)
	cur := state.Current()
	for i := range cur {
		cur[i] = byte(i)
	}

	pngBytes, err := state.EncodePNG(cur)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		t.Fatalf("decoded dims = %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), width, height)
	}
	for x := 0; x < width; x++ {
		// Compare straight (non-premultiplied) channels; RGBA() would
		// premultiply by alpha.
		c := color.NRGBAModel.Convert(img.At(x, 0)).(color.NRGBA)
		idx := x * 4
		if c.R != cur[idx] || c.G != cur[idx+1] || c.B != cur[idx+2] || c.A != cur[idx+3] {
			t.Fatalf("pixel %d mismatch: got (%d,%d,%d,%d), want %v", x, c.R, c.G, c.B, c.A, cur[idx:idx+4])
		}
	}
}
