package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"

	"storyloom/internal/story/audio"
)

const defaultSpeakerBuffer = 100 * time.Millisecond

// Speaker plays through the beep speaker. The speaker is initialised on
// first use with the sample rate of the first buffer and kept for the
// life of the process.
type Speaker struct {
	buffer  time.Duration
	once    sync.Once
	rate    beep.SampleRate
	initErr error
}

func NewSpeaker(buffer time.Duration) *Speaker {
	if buffer <= 0 {
		buffer = defaultSpeakerBuffer
	}
	return &Speaker{buffer: buffer}
}

func (s *Speaker) Start(buf *audio.DecodedAudio, done func()) error {
	s.once.Do(func() {
		s.rate = beep.SampleRate(buf.Format().SampleRate)
		s.initErr = speaker.Init(s.rate, s.rate.N(s.buffer))
	})
	if s.initErr != nil {
		return fmt.Errorf("failed to initialise speaker: %w", s.initErr)
	}

	var stream beep.Streamer = buf.Streamer()
	if r := beep.SampleRate(buf.Format().SampleRate); r != s.rate {
		stream = beep.Resample(4, r, s.rate, stream)
	}

	speaker.Clear()
	// the callback runs under the speaker lock
	speaker.Play(beep.Seq(stream, beep.Callback(func() {
		go done()
	})))
	return nil
}

func (s *Speaker) Halt() {
	speaker.Clear()
}
