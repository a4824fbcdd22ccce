package capture

import (
	"errors"
	"testing"
	"time"
)

type fakeSource struct {
	data    []byte
	shortBy int
	failAt  int
}

func (f *fakeSource) ReadAt(p []byte, off int64) (int, error) {
	if f.failAt > 0 {
		f.failAt--
		if f.failAt == 0 {
			return 0, errors.New("boom")
		}
	}
	n := copy(p, f.data[off:])
	if f.shortBy > 0 {
		n -= f.shortBy
	}
	return n, nil
}

func TestSamplerSampleExactRead(t *testing.T) {
	src := &fakeSource{data: []byte{1, 2, 3, 4, 5, 6}}
	s := NewSampler(src, 2, 4, 0)
	frame, err := s.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	want := []byte{3, 4, 5, 6}
	for i := range want {
		if frame[i] != want[i] {
			t.Fatalf("frame[%d] = %d, want %d", i, frame[i], want[i])
		}
	}
}

func TestSamplerShortReadIsFatal(t *testing.T) {
	src := &fakeSource{data: []byte{1, 2, 3, 4}, shortBy: 1}
	s := NewSampler(src, 0, 4, 0)
	if _, err := s.Sample(); err == nil {
		t.Fatal("expected error on short read")
	}
}

func TestSamplerRunStopsOnSignal(t *testing.T) {
	src := &fakeSource{data: make([]byte, 4)}
	s := NewSampler(src, 0, 4, 0)
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- s.Run(stop, func([]byte) error { return nil }) }()
	time.Sleep(5 * time.Millisecond)
	close(stop)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop in time")
	}
}

func TestSamplerRunPropagatesFatalError(t *testing.T) {
	src := &fakeSource{data: make([]byte, 4), failAt: 1}
	s := NewSampler(src, 0, 4, 0)
	stop := make(chan struct{})
	defer close(stop)
	err := s.Run(stop, func([]byte) error { return nil })
	if err == nil {
		t.Fatal("expected fatal read error to propagate")
	}
}

func TestSamplerRunHonorsConfiguredInterval(t *testing.T) {
	src := &fakeSource{data: make([]byte, 4)}
	s := NewSampler(src, 0, 4, time.Millisecond)
	stop := make(chan struct{})

	var count int
	done := make(chan error, 1)
	go func() {
		done <- s.Run(stop, func([]byte) error {
			count++
			if count >= 5 {
				close(stop)
			}
			return nil
		})
	}()

	select {
	case <-done:
		if count < 5 {
			t.Fatalf("got %d samples, want at least 5", count)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not complete 5 ticks of a 1ms interval within a second")
	}
}
