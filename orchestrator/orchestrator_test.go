package orchestrator

import (
	"os"
	"testing"
)

func TestParseFramebufferAddrMissing(t *testing.T) {
	os.Unsetenv(fbAddrEnv)
	_, err := parseFramebufferAddr()
	if err != ErrNoFramebufferSpy {
		t.Fatalf("got %v, want ErrNoFramebufferSpy", err)
	}
}

func TestParseFramebufferAddrParsesHex(t *testing.T) {
	t.Setenv(fbAddrEnv, "0x7f3a10000000")
	addr, err := parseFramebufferAddr()
	if err != nil {
		t.Fatalf("parseFramebufferAddr: %v", err)
	}
	if addr != 0x7f3a10000000 {
		t.Fatalf("got %#x, want 0x7f3a10000000", addr)
	}
}

func TestParseFramebufferAddrRejectsGarbage(t *testing.T) {
	t.Setenv(fbAddrEnv, "not-hex")
	if _, err := parseFramebufferAddr(); err == nil {
		t.Fatal("expected parse error for malformed address")
	}
}

func TestFindTargetPIDNotFound(t *testing.T) {
	// In the test sandbox no process named xochitl is running, so this
	// should reliably return ErrProcessNotFound rather than panicking on
	// an empty /proc.
	_, err := FindTargetPID()
	if err != ErrProcessNotFound {
		t.Fatalf("got %v, want ErrProcessNotFound", err)
	}
}
