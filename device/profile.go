// Package device describes the fixed, per-model hardware facts the
// streaming engine needs: framebuffer geometry and pixel layout, and the
// digitizer's input path and coordinate normalization.
package device

import (
	"fmt"
	"os"
	"strings"
)

// PixelFormat selects which raw-to-RGBA translator a profile uses.
type PixelFormat uint8

const (
	// PixelFormatBGRA is a 4-byte-per-pixel BGRA source buffer.
	PixelFormatBGRA PixelFormat = iota
	// PixelFormatRGB565 is a 2-byte-per-pixel RGB565 source buffer.
	PixelFormatRGB565
)

// DigitizerOrientation selects the mapping from raw digitizer axis values
// to normalized screen-space percentages.
type DigitizerOrientation uint8

const (
	// OrientationIdentity maps digitizer axes straight onto screen axes.
	OrientationIdentity DigitizerOrientation = iota
	// OrientationRotated maps a digitizer mounted 90 degrees from the
	// screen, with the Y axis inverted.
	OrientationRotated
)

// Profile is the immutable, process-lifetime description of one supported
// device model.
type Profile struct {
	Name        string
	Width       int
	Height      int
	FBSize      int
	PixelFormat PixelFormat

	DigitizerPath        string
	DigitizerMaxX        float64
	DigitizerMaxY        float64
	DigitizerOrientation DigitizerOrientation
}

// machineIdentityPath is where the device's machine-identity string lives.
const machineIdentityPath = "/sys/devices/soc0/machine"

// ErrUnsupportedDevice is returned by Detect when the machine identity
// string does not match any known profile.
var ErrUnsupportedDevice = fmt.Errorf("device: unsupported hardware")

// chiappa is a small BGRA panel: 960x1696 logical pixels.
func chiappa() Profile {
	return Profile{
		Name:                 "chiappa",
		Width:                960,
		Height:               1696,
		FBSize:               960 * 1696 * 4,
		PixelFormat:          PixelFormatBGRA,
		DigitizerPath:        "/dev/input/event1",
		DigitizerMaxX:        6760,
		DigitizerMaxY:        11960,
		DigitizerOrientation: OrientationIdentity,
	}
}

// ferrari is a large BGRA panel: 1632x2154 logical pixels.
func ferrari() Profile {
	return Profile{
		Name:                 "ferrari",
		Width:                1632,
		Height:               2154,
		FBSize:               1632 * 2154 * 4,
		PixelFormat:          PixelFormatBGRA,
		DigitizerPath:        "/dev/input/event2",
		DigitizerMaxX:        11180,
		DigitizerMaxY:        15340,
		DigitizerOrientation: OrientationIdentity,
	}
}

// rm2 is the RGB565 panel: the framebuffer is laid out 1872x1404 of 2
// bytes each, but the logical (post-rotation) screen is 1404x1872.
func rm2() Profile {
	return Profile{
		Name:                 "rm2",
		Width:                1404,
		Height:               1872,
		FBSize:               1872 * 1404 * 2,
		PixelFormat:          PixelFormatRGB565,
		DigitizerPath:        "/dev/input/event1",
		DigitizerMaxX:        20967,
		DigitizerMaxY:        15725,
		DigitizerOrientation: OrientationRotated,
	}
}

// Detect reads the machine identity file and returns the matching device
// profile, or ErrUnsupportedDevice if no known substring matches.
func Detect() (Profile, error) {
	raw, err := os.ReadFile(machineIdentityPath)
	if err != nil {
		return Profile{}, fmt.Errorf("device: read machine identity: %w", err)
	}
	return detectFromIdentity(string(raw))
}

func detectFromIdentity(identity string) (Profile, error) {
	identity = strings.ToLower(identity)
	switch {
	case strings.Contains(identity, "chiappa"):
		return chiappa(), nil
	case strings.Contains(identity, "ferrari"):
		return ferrari(), nil
	case strings.Contains(identity, "2.0"):
		return rm2(), nil
	default:
		return Profile{}, ErrUnsupportedDevice
	}
}

// BytesPerSourcePixel returns 4 for BGRA or 2 for RGB565.
func (p Profile) BytesPerSourcePixel() int {
	switch p.PixelFormat {
	case PixelFormatRGB565:
		return 2
	default:
		return 4
	}
}

// RGBASize returns the size in bytes of the canonical RGBA frame.
func (p Profile) RGBASize() int {
	return p.Width * p.Height * 4
}
