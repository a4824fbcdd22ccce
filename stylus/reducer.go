// Package stylus reduces a stream of evdev-style input events into
// normalized pointer packets, collapsing each SYN_REPORT boundary to at
// most one emitted packet and suppressing duplicates.
package stylus

import (
	"github.com/asivery/rmstream/device"
	"github.com/asivery/rmstream/protocol"
)

// Event kind/code constants, matching the subset of the Linux evdev ABI
// this reducer understands.
const (
	EVSyn uint16 = 0x00
	EVKey uint16 = 0x01
	EVAbs uint16 = 0x03

	SynReport uint16 = 0x00

	AbsX        uint16 = 0x00
	AbsY        uint16 = 0x01
	AbsDistance uint16 = 0x19

	BtnToolPen uint16 = 0x140
)

// Event is one raw evdev-style update: a (type, code, value) triple.
type Event struct {
	Type  uint16
	Code  uint16
	Value int32
}

// Source yields the next input event, or an error (including io.EOF-style
// "device gone") that terminates the reducer loop.
type Source interface {
	Next() (Event, error)
}

// Reducer maintains (x, y, distance) state across a stream of events and
// emits a normalized pointer packet on each SYN_REPORT, subject to
// duplicate suppression.
type Reducer struct {
	profile device.Profile

	x, y, d    int32
	lastPacket []byte
}

// NewReducer returns a Reducer bound to the given device profile's
// digitizer coordinate translation.
func NewReducer(profile device.Profile) *Reducer {
	return &Reducer{profile: profile}
}

// Apply folds one event into the reducer's state. If the event is a
// SYN_REPORT, it returns the packet to publish (nil if suppressed as a
// duplicate of the last emitted packet).
func (r *Reducer) Apply(ev Event) []byte {
	switch {
	case ev.Type == EVAbs && ev.Code == AbsX:
		r.x = ev.Value
	case ev.Type == EVAbs && ev.Code == AbsY:
		r.y = ev.Value
	case ev.Type == EVAbs && ev.Code == AbsDistance:
		r.d = ev.Value
	case ev.Type == EVKey && ev.Code == BtnToolPen && ev.Value == 0:
		r.d = 0
	case ev.Type == EVSyn && ev.Code == SynReport:
		return r.commit()
	}
	return nil
}

func (r *Reducer) commit() []byte {
	nx, ny, nd := r.profile.DigitizerSample(r.x, r.y, r.d)
	packet := protocol.EncodePointer(nx, ny, nd)
	if r.lastPacket != nil && bytesEqual(packet, r.lastPacket) {
		return nil
	}
	r.lastPacket = packet
	return packet
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Run drains source, publishing every non-suppressed packet via publish,
// until source.Next returns an error. An input device failure is fatal to
// the stylus task but must not stop the screen stream — callers run this
// in its own goroutine and log the returned error without tearing down
// the rest of the server.
func (r *Reducer) Run(source Source, publish func([]byte)) error {
	for {
		ev, err := source.Next()
		if err != nil {
			return err
		}
		if packet := r.Apply(ev); packet != nil {
			publish(packet)
		}
	}
}
