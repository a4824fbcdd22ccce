// Package orchestrator wires together device detection, the target
// process's memory handle, and the sampler/stylus/broadcaster tasks into
// a single running server.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/asivery/rmstream/capture"
	"github.com/asivery/rmstream/config"
	"github.com/asivery/rmstream/delta"
	"github.com/asivery/rmstream/device"
	"github.com/asivery/rmstream/server"
	"github.com/asivery/rmstream/stylus"
)

// TargetProcessName is the fixed name of the device's screen-rendering
// process whose memory holds the framebuffer.
const TargetProcessName = "xochitl"

// fbAddrEnv names the environment variable carrying the framebuffer's
// hex address inside the target process, set by the framebuffer-spy
// companion extension.
const fbAddrEnv = "FRAMEBUFFER_SPY_EXTENSION_FBADDR"

var (
	// ErrProcessNotFound is returned when no process named
	// TargetProcessName is running.
	ErrProcessNotFound = errors.New("orchestrator: target process not found")
	// ErrNoFramebufferSpy is returned when fbAddrEnv is unset; streaming
	// cannot start without it.
	ErrNoFramebufferSpy = errors.New("orchestrator: no framebuffer-spy installed")
)

// Orchestrator owns every long-lived resource of a running rmstream
// instance: the memory handle, the shared frame state, the broadcaster,
// and the HTTP server.
type Orchestrator struct {
	cfg     config.Config
	profile device.Profile
	mem     *os.File
	fbAddr  int64

	frames      *delta.FrameState
	broadcaster *server.Broadcaster
	srv         *server.Server
}

// FindTargetPID enumerates /proc, returning the PID of the first process
// whose comm name matches TargetProcessName.
func FindTargetPID() (int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return 0, fmt.Errorf("orchestrator: read /proc: %w", err)
	}
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(comm)) == TargetProcessName {
			return pid, nil
		}
	}
	return 0, ErrProcessNotFound
}

// NonLoopbackIPv4Addrs enumerates non-loopback IPv4 addresses on the
// host, used only to print the URLs a client could connect to.
func NonLoopbackIPv4Addrs() ([]string, error) {
	ifaces, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, addr := range ifaces {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 == nil || ip4.IsLoopback() {
			continue
		}
		out = append(out, ip4.String())
	}
	return out, nil
}

// parseFramebufferAddr reads fbAddrEnv and parses its 0x-prefixed hex
// value, returning ErrNoFramebufferSpy if the variable is unset.
func parseFramebufferAddr() (int64, error) {
	raw, ok := os.LookupEnv(fbAddrEnv)
	if !ok || raw == "" {
		return 0, ErrNoFramebufferSpy
	}
	raw = strings.TrimPrefix(raw, "0x")
	addr, err := strconv.ParseInt(raw, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("orchestrator: parse %s=%q: %w", fbAddrEnv, os.Getenv(fbAddrEnv), err)
	}
	return addr, nil
}

// Boot locates the target process, requires the framebuffer address,
// opens its memory file, and detects the device profile. It does not yet
// spawn tasks or start listening; call Run for that.
func Boot(cfg config.Config) (*Orchestrator, error) {
	pid, err := FindTargetPID()
	if err != nil {
		return nil, err
	}

	if addrs, err := NonLoopbackIPv4Addrs(); err == nil {
		for _, a := range addrs {
			log.Printf("orchestrator: reachable at http://%s%s", a, cfg.ListenAddr)
		}
	}

	fbAddr, err := parseFramebufferAddr()
	if err != nil {
		return nil, err
	}

	mem, err := os.OpenFile(fmt.Sprintf("/proc/%d/mem", pid), os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open process memory: %w", err)
	}

	profile, err := device.Detect()
	if err != nil {
		mem.Close()
		return nil, err
	}

	frames := delta.NewFrameState(profile.Width, profile.Height)
	broadcaster := server.NewBroadcaster()
	srv := server.New(cfg.ListenAddr, profile, frames, broadcaster)

	return &Orchestrator{
		cfg:         cfg,
		profile:     profile,
		mem:         mem,
		fbAddr:      fbAddr,
		frames:      frames,
		broadcaster: broadcaster,
		srv:         srv,
	}, nil
}

// Run spawns the sampler, delta-encoding, and stylus tasks, then starts
// the HTTP/WS listener. It blocks until ctx is cancelled or the listener
// fails.
func (o *Orchestrator) Run(ctx context.Context) error {
	sampler := capture.NewSampler(o.mem, o.fbAddr, o.profile.FBSize, o.cfg.PollRate)

	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()

	go o.runSamplerLoop(sampler, stop)
	go o.runStylusLoop(stop)

	log.Printf("orchestrator: ready, device=%s listening on %s", o.profile.Name, o.cfg.ListenAddr)

	errc := make(chan error, 1)
	go func() { errc <- o.srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return o.srv.Shutdown(shutdownCtx)
	case err := <-errc:
		return err
	}
}

func (o *Orchestrator) runSamplerLoop(sampler *capture.Sampler, stop <-chan struct{}) {
	err := sampler.Run(stop, func(frame []byte) error {
		if err := o.profile.TranslatePixels(frame, o.frames.Current()); err != nil {
			return err
		}
		outcome, err := delta.Encode(o.frames)
		if err != nil {
			return err
		}
		if outcome.Frame == nil {
			return nil
		}
		o.broadcaster.Broadcast(outcome.Frame)
		o.frames.CommitBroadcast()
		if outcome.Fallback {
			time.Sleep(delta.PNGFallbackCooldown)
		}
		return nil
	})
	if err != nil {
		log.Printf("orchestrator: sampler stopped: %v", err)
	}
}

func (o *Orchestrator) runStylusLoop(stop <-chan struct{}) {
	f, err := os.Open(o.profile.DigitizerPath)
	if err != nil {
		log.Printf("orchestrator: stylus device unavailable: %v", err)
		return
	}
	defer f.Close()

	source := stylus.NewDeviceSource(f)
	reducer := stylus.NewReducer(o.profile)

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := reducer.Run(source, func(packet []byte) {
			o.broadcaster.Broadcast(packet)
		})
		if err != nil {
			log.Printf("orchestrator: stylus task stopped: %v", err)
		}
	}()

	select {
	case <-stop:
	case <-done:
	}
}
