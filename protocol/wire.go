// Package protocol implements the tag-prefixed binary wire framing sent
// over the websocket channel: a leading tag byte distinguishes config,
// delta, pointer, and full-PNG frames. No outer length/checksum header is
// used because each websocket frame is already a self-delimited message.
package protocol

import (
	"encoding/binary"
	"errors"
)

// Tag identifies the kind of payload carried by a websocket binary frame.
type Tag byte

const (
	// TagConfig announces the stream's logical resolution.
	TagConfig Tag = 0x00
	// TagDelta carries a DEFLATE-compressed run-encoded delta.
	TagDelta Tag = 0x01
	// TagPointer carries a normalized stylus position.
	TagPointer Tag = 0x02
	// TagFullPNG carries a full-frame RGBA8 PNG baseline or fallback.
	TagFullPNG Tag = 0x03
)

// ErrShortFrame is returned when a frame is too short to hold its tag or
// declared fields. The decoders also return it when the leading tag is not
// the expected one, and DecodeConfig/DecodePointer when the frame is not
// exactly 9/13 bytes long.
var ErrShortFrame = errors.New("protocol: frame too short")

// EncodeConfig builds the config packet: tag 0x00, width, height, both
// big-endian uint32.
func EncodeConfig(width, height int) []byte {
	buf := make([]byte, 9)
	buf[0] = byte(TagConfig)
	binary.BigEndian.PutUint32(buf[1:5], uint32(width))
	binary.BigEndian.PutUint32(buf[5:9], uint32(height))
	return buf
}

// DecodeConfig parses a config packet, including its leading tag byte.
func DecodeConfig(frame []byte) (width, height int, err error) {
	if len(frame) != 9 || Tag(frame[0]) != TagConfig {
		return 0, 0, ErrShortFrame
	}
	width = int(binary.BigEndian.Uint32(frame[1:5]))
	height = int(binary.BigEndian.Uint32(frame[5:9]))
	return width, height, nil
}

// EncodePointer builds the pointer packet: tag 0x02, nx, ny, nd, all
// big-endian int32.
func EncodePointer(nx, ny, nd int32) []byte {
	buf := make([]byte, 13)
	buf[0] = byte(TagPointer)
	binary.BigEndian.PutUint32(buf[1:5], uint32(nx))
	binary.BigEndian.PutUint32(buf[5:9], uint32(ny))
	binary.BigEndian.PutUint32(buf[9:13], uint32(nd))
	return buf
}

// DecodePointer parses a pointer packet including its leading tag byte.
func DecodePointer(frame []byte) (nx, ny, nd int32, err error) {
	if len(frame) != 13 || Tag(frame[0]) != TagPointer {
		return 0, 0, 0, ErrShortFrame
	}
	nx = int32(binary.BigEndian.Uint32(frame[1:5]))
	ny = int32(binary.BigEndian.Uint32(frame[5:9]))
	nd = int32(binary.BigEndian.Uint32(frame[9:13]))
	return nx, ny, nd, nil
}

// EncodeDelta wraps an already-compressed delta payload with its tag and
// uncompressed-length prefix: tag 0x01, BE32(uncompressedLen), compressed.
func EncodeDelta(uncompressedLen int, compressed []byte) []byte {
	buf := make([]byte, 5+len(compressed))
	buf[0] = byte(TagDelta)
	binary.BigEndian.PutUint32(buf[1:5], uint32(uncompressedLen))
	copy(buf[5:], compressed)
	return buf
}

// DecodeDelta splits a delta frame into its declared uncompressed length
// and the remaining compressed bytes.
func DecodeDelta(frame []byte) (uncompressedLen int, compressed []byte, err error) {
	if len(frame) < 5 || Tag(frame[0]) != TagDelta {
		return 0, nil, ErrShortFrame
	}
	uncompressedLen = int(binary.BigEndian.Uint32(frame[1:5]))
	compressed = frame[5:]
	return uncompressedLen, compressed, nil
}

// EncodeFullPNG wraps raw PNG bytes with the full-frame tag.
func EncodeFullPNG(png []byte) []byte {
	buf := make([]byte, 1+len(png))
	buf[0] = byte(TagFullPNG)
	copy(buf[1:], png)
	return buf
}

// DecodeFullPNG strips the full-frame tag, returning the raw PNG bytes.
func DecodeFullPNG(frame []byte) ([]byte, error) {
	if len(frame) < 1 || Tag(frame[0]) != TagFullPNG {
		return nil, ErrShortFrame
	}
	return frame[1:], nil
}

// Run is one maximal contiguous byte region where two RGBA buffers
// differ, as produced by the delta encoder.
type Run struct {
	Offset uint32
	Data   []byte
}

// EncodeRun serializes a single run as BE32(offset) || BE32(length) ||
// data, the format used inside a decompressed delta payload.
func EncodeRun(r Run) []byte {
	buf := make([]byte, 8+len(r.Data))
	binary.BigEndian.PutUint32(buf[0:4], r.Offset)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(r.Data)))
	copy(buf[8:], r.Data)
	return buf
}

// DecodeRuns parses a fully decompressed delta payload into its
// constituent runs.
func DecodeRuns(payload []byte) ([]Run, error) {
	var runs []Run
	for len(payload) > 0 {
		if len(payload) < 8 {
			return nil, ErrShortFrame
		}
		offset := binary.BigEndian.Uint32(payload[0:4])
		length := binary.BigEndian.Uint32(payload[4:8])
		payload = payload[8:]
		if uint32(len(payload)) < length {
			return nil, ErrShortFrame
		}
		data := append([]byte(nil), payload[:length]...)
		payload = payload[length:]
		runs = append(runs, Run{Offset: offset, Data: data})
	}
	return runs, nil
}

// PeekTag returns the leading tag byte of a frame, or an error if empty.
func PeekTag(frame []byte) (Tag, error) {
	if len(frame) == 0 {
		return 0, ErrShortFrame
	}
	return Tag(frame[0]), nil
}
