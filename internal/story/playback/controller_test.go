package playback

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storyloom/internal/story/audio"
)

// fakeOutput records device calls; the test ends playback by calling
// finish.
type fakeOutput struct {
	mu     sync.Mutex
	starts int
	halts  int
	done   []func()
	err    error
}

func (f *fakeOutput) Start(_ *audio.DecodedAudio, done func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.starts++
	f.done = append(f.done, done)
	return nil
}

func (f *fakeOutput) Halt() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.halts++
}

// finish completes the i-th playback as the device would.
func (f *fakeOutput) finish(i int) {
	f.mu.Lock()
	done := f.done[i]
	f.mu.Unlock()
	done()
}

func narration(t *testing.T, frames int) *audio.DecodedAudio {
	t.Helper()
	buf, err := audio.Decode(make([]byte, 2*frames), audio.Narration)
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestPlayEndsOnce(t *testing.T) {
	out := &fakeOutput{}
	c := NewController(out)

	var ended atomic.Int32
	if err := c.Play(narration(t, 10), func() { ended.Add(1) }); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if !c.IsPlaying() {
		t.Error("IsPlaying() = false after Play")
	}

	out.finish(0)
	out.finish(0)

	if got := ended.Load(); got != 1 {
		t.Errorf("onEnded called %d times, want 1", got)
	}
	if c.IsPlaying() {
		t.Error("IsPlaying() = true after completion")
	}
}

func TestPlayReplacesActive(t *testing.T) {
	out := &fakeOutput{}
	c := NewController(out)

	var first, second atomic.Int32
	_ = c.Play(narration(t, 10), func() { first.Add(1) })
	_ = c.Play(narration(t, 10), func() { second.Add(1) })

	if out.halts != 1 {
		t.Errorf("halts = %d, want 1", out.halts)
	}

	// a late completion from the replaced buffer is ignored
	out.finish(0)
	if first.Load() != 0 {
		t.Error("replaced playback reported completion")
	}

	out.finish(1)
	if second.Load() != 1 {
		t.Error("active playback did not report completion")
	}
}

func TestStopSuppressesEnded(t *testing.T) {
	out := &fakeOutput{}
	c := NewController(out)

	var ended atomic.Int32
	_ = c.Play(narration(t, 10), func() { ended.Add(1) })
	c.Stop()
	c.Stop()
	out.finish(0)

	if ended.Load() != 0 {
		t.Error("onEnded called after Stop")
	}
	if out.halts != 1 {
		t.Errorf("halts = %d, want 1", out.halts)
	}
}

func TestPlayStartError(t *testing.T) {
	boom := errors.New("no device")
	c := NewController(&fakeOutput{err: boom})

	if err := c.Play(narration(t, 1), nil); !errors.Is(err, boom) {
		t.Errorf("Play() error = %v, want %v", err, boom)
	}
	if c.IsPlaying() {
		t.Error("IsPlaying() = true after failed start")
	}
	if err := c.Play(nil, nil); !errors.Is(err, ErrNoAudio) {
		t.Errorf("Play(nil) error = %v", err)
	}
}

func TestAfter(t *testing.T) {
	tests := []struct {
		name      string
		interrupt func(c *Controller, t *testing.T)
		want      int32
	}{
		{name: "fires", interrupt: func(*Controller, *testing.T) {}, want: 1},
		{name: "stop disarms", interrupt: func(c *Controller, _ *testing.T) { c.Stop() }, want: 0},
		{name: "play disarms", interrupt: func(c *Controller, t *testing.T) { _ = c.Play(narration(t, 1), nil) }, want: 0},
		{name: "disarm", interrupt: func(c *Controller, _ *testing.T) { c.Disarm() }, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(&fakeOutput{})
			var fired atomic.Int32
			c.After(30*time.Millisecond, func() { fired.Add(1) })
			if !c.Pending() {
				t.Error("Pending() = false after After")
			}
			tt.interrupt(c, t)

			time.Sleep(80 * time.Millisecond)
			if got := fired.Load(); got != tt.want {
				t.Errorf("fired %d times, want %d", got, tt.want)
			}
		})
	}
}

func TestAfterReplacesPending(t *testing.T) {
	c := NewController(&fakeOutput{})
	var a, b atomic.Int32
	c.After(10*time.Millisecond, func() { a.Add(1) })
	c.After(20*time.Millisecond, func() { b.Add(1) })

	time.Sleep(60 * time.Millisecond)
	if a.Load() != 0 || b.Load() != 1 {
		t.Errorf("fired a=%d b=%d, want a=0 b=1", a.Load(), b.Load())
	}
	if c.Pending() {
		t.Error("Pending() = true after firing")
	}
}

func TestNullOutput(t *testing.T) {
	c := NewController(&Null{})
	done := make(chan struct{})

	// 240 frames at 24 kHz is 10ms
	if err := c.Play(narration(t, 240), func() { close(done) }); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("null output never finished")
	}
}

func TestNewOutput(t *testing.T) {
	for _, kind := range []string{"", "beep", "oto", "null"} {
		if _, err := NewOutput(kind, 0); err != nil {
			t.Errorf("NewOutput(%q) error = %v", kind, err)
		}
	}
	if _, err := NewOutput("alsa", 0); err == nil {
		t.Error("NewOutput(alsa) should fail")
	}
}
