package stylus

import (
	"encoding/binary"
	"fmt"
	"io"
)

// inputEventSize is sizeof(struct input_event) on a 64-bit Linux host:
// two timeval fields (16 bytes total), then u16 type, u16 code, s32 value.
const inputEventSize = 24

// DeviceSource reads raw struct input_event records off an open evdev
// character device and decodes them into Events. No evdev binding exists
// in the dependency set available to this module, so this speaks the
// kernel ABI directly via encoding/binary, matching the wire layout the
// kernel defines rather than any third-party wrapper's.
type DeviceSource struct {
	r   io.Reader
	buf [inputEventSize]byte
}

// NewDeviceSource wraps an already-open evdev device node.
func NewDeviceSource(r io.Reader) *DeviceSource {
	return &DeviceSource{r: r}
}

// Next blocks until one full input_event record is available and decodes
// it. It returns an error (typically from the underlying read, e.g. the
// device node disappearing on sleep/wake) if a full record cannot be
// read.
func (d *DeviceSource) Next() (Event, error) {
	if _, err := io.ReadFull(d.r, d.buf[:]); err != nil {
		return Event{}, fmt.Errorf("stylus: read input_event: %w", err)
	}
	typ := binary.LittleEndian.Uint16(d.buf[16:18])
	code := binary.LittleEndian.Uint16(d.buf[18:20])
	value := int32(binary.LittleEndian.Uint32(d.buf[20:24]))
	return Event{Type: typ, Code: code, Value: value}, nil
}
