package tts

import (
	"context"
	"encoding/binary"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	mockSampleRate = 24000
	mockPerWord    = 80 * time.Millisecond
	mockMinimum    = 400 * time.Millisecond
	mockPitch      = 440.0
	mockAmplitude  = 0.2
)

// MockEngine produces a quiet tone whose length follows the word count,
// so the player can run without any remote service.
type MockEngine struct {
	PerWord time.Duration
}

func NewMockEngine() *MockEngine {
	return &MockEngine{PerWord: mockPerWord}
}

func (m *MockEngine) Name() string { return EngineTypeMock.String() }

func (m *MockEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := len(strings.Fields(text))
	if words == 0 {
		return nil, ErrEmptyAudio
	}

	duration := time.Duration(words) * m.PerWord
	if duration < mockMinimum {
		duration = mockMinimum
	}

	logrus.WithFields(logrus.Fields{
		"words":    words,
		"duration": duration,
	}).Debug("Simulating narration")

	frames := int(int64(duration) * mockSampleRate / int64(time.Second))
	out := make([]byte, 2*frames)
	for i := 0; i < frames; i++ {
		v := mockAmplitude * math.Sin(2*math.Pi*mockPitch*float64(i)/mockSampleRate)
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v*math.MaxInt16)))
	}
	return out, nil
}
