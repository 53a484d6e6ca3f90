package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"storyloom/internal/story/audio"
)

const otoPollInterval = 20 * time.Millisecond

// Oto plays through an oto context. Oto allows one context per process,
// so its format is fixed by the first buffer played.
type Oto struct {
	once    sync.Once
	ctx     *oto.Context
	format  audio.Format
	initErr error

	mu     sync.Mutex
	player *oto.Player
	stop   chan struct{}
}

func (o *Oto) init(f audio.Format) error {
	o.once.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   f.SampleRate,
			ChannelCount: f.Channels,
			Format:       oto.FormatFloat32LE,
		})
		if err != nil {
			o.initErr = err
			return
		}
		<-ready
		o.ctx = ctx
		o.format = f
	})
	if o.initErr != nil {
		return fmt.Errorf("failed to create audio context: %w", o.initErr)
	}
	if f != o.format {
		return fmt.Errorf("audio context is %d Hz/%d ch, cannot play %d Hz/%d ch",
			o.format.SampleRate, o.format.Channels, f.SampleRate, f.Channels)
	}
	return nil
}

func (o *Oto) Start(buf *audio.DecodedAudio, done func()) error {
	if err := o.init(buf.Format()); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.haltLocked()

	player := o.ctx.NewPlayer(buf.Reader())
	player.Play()
	stop := make(chan struct{})
	o.player = player
	o.stop = stop

	go watch(player, stop, done)
	return nil
}

// watch reports natural completion. oto has no end-of-stream callback.
func watch(player *oto.Player, stop <-chan struct{}, done func()) {
	ticker := time.NewTicker(otoPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !player.IsPlaying() {
				select {
				case <-stop:
				default:
					done()
				}
				return
			}
		}
	}
}

func (o *Oto) Halt() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.haltLocked()
}

func (o *Oto) haltLocked() {
	if o.stop != nil {
		close(o.stop)
		o.stop = nil
	}
	if o.player != nil {
		o.player.Pause()
		_ = o.player.Close()
		o.player = nil
	}
}
