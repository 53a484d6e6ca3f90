// Package playback plays decoded narration on one process-wide device.
package playback

import (
	"fmt"
	"sync"
	"time"

	"storyloom/internal/story/audio"
)

// Output is an audio device. Start begins playing buf from its first
// frame and must call done from another goroutine once buf has been
// played to the end. Halt silences the device before returning; done is
// not required to fire for halted playback.
type Output interface {
	Start(buf *audio.DecodedAudio, done func()) error
	Halt()
}

type Backend string

const (
	BackendBeep Backend = "beep"
	BackendOto  Backend = "oto"
	BackendNull Backend = "null"
)

// NewOutput opens the named backend. buffer is the device latency for the
// backends that take one.
func NewOutput(kind string, buffer time.Duration) (Output, error) {
	switch Backend(kind) {
	case "", BackendBeep:
		return NewSpeaker(buffer), nil
	case BackendOto:
		return &Oto{}, nil
	case BackendNull:
		return &Null{}, nil
	default:
		return nil, fmt.Errorf("unsupported audio backend: %s", kind)
	}
}

// Null plays nothing but takes as long as the buffer would.
type Null struct {
	mu    sync.Mutex
	timer *time.Timer
}

func (n *Null) Start(buf *audio.DecodedAudio, done func()) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(buf.Duration(), done)
	return nil
}

func (n *Null) Halt() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
