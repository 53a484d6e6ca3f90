package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/faiface/beep"
)

// ErrInvalidFormat is returned when a Format cannot describe PCM audio.
var ErrInvalidFormat = errors.New("invalid audio format")

// Format describes linear 16-bit signed little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// Narration is the format returned by the speech service: 24 kHz mono.
var Narration = Format{SampleRate: 24000, Channels: 1}

func (f Format) validate() error {
	if f.SampleRate < 1 || f.Channels < 1 {
		return fmt.Errorf("%w: %d Hz, %d channels", ErrInvalidFormat, f.SampleRate, f.Channels)
	}
	return nil
}

// DecodedAudio is a randomly accessible buffer of normalized samples.
// Samples are stored per channel in the range [-1.0, 1.0].
type DecodedAudio struct {
	format Format
	frames int
	data   [][]float32
}

// Decode converts raw PCM bytes into a DecodedAudio.
// A trailing partial frame is dropped; empty input yields an empty buffer.
func Decode(data []byte, f Format) (*DecodedAudio, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	frames := len(data) / 2 / f.Channels
	planes := make([][]float32, f.Channels)
	for c := range planes {
		planes[c] = make([]float32, frames)
	}

	for i := 0; i < frames; i++ {
		for c := 0; c < f.Channels; c++ {
			off := (i*f.Channels + c) * 2
			v := int16(binary.LittleEndian.Uint16(data[off:]))
			planes[c][i] = float32(v) / 32768.0
		}
	}

	return &DecodedAudio{format: f, frames: frames, data: planes}, nil
}

func (a *DecodedAudio) Format() Format { return a.format }

// Frames returns the number of samples per channel.
func (a *DecodedAudio) Frames() int { return a.frames }

func (a *DecodedAudio) Empty() bool { return a.frames == 0 }

// Duration is the playing time at the buffer's sample rate.
func (a *DecodedAudio) Duration() time.Duration {
	return time.Duration(a.frames) * time.Second / time.Duration(a.format.SampleRate)
}

// Channel returns the samples of channel c. The slice must not be modified.
func (a *DecodedAudio) Channel(c int) []float32 {
	return a.data[c]
}

// Streamer returns a fresh cursor positioned at the first frame.
// Mono buffers are played on both speaker channels.
func (a *DecodedAudio) Streamer() beep.StreamSeeker {
	return &cursor{audio: a}
}

// Reader returns the buffer as interleaved float32 little-endian bytes.
func (a *DecodedAudio) Reader() io.ReadSeeker {
	buf := make([]byte, 0, a.frames*a.format.Channels*4)
	for i := 0; i < a.frames; i++ {
		for c := 0; c < a.format.Channels; c++ {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(a.data[c][i]))
		}
	}
	return bytes.NewReader(buf)
}

type cursor struct {
	audio *DecodedAudio
	pos   int
}

func (c *cursor) Stream(samples [][2]float64) (n int, ok bool) {
	a := c.audio
	if c.pos >= a.frames {
		return 0, false
	}
	right := 0
	if a.format.Channels > 1 {
		right = 1
	}
	for n < len(samples) && c.pos < a.frames {
		samples[n][0] = float64(a.data[0][c.pos])
		samples[n][1] = float64(a.data[right][c.pos])
		n++
		c.pos++
	}
	return n, true
}

func (c *cursor) Err() error { return nil }

func (c *cursor) Len() int { return c.audio.frames }

func (c *cursor) Position() int { return c.pos }

func (c *cursor) Seek(p int) error {
	if p < 0 || p > c.audio.frames {
		return fmt.Errorf("seek position %d out of range [0, %d]", p, c.audio.frames)
	}
	c.pos = p
	return nil
}
