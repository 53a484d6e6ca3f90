// internal/story/tts/tts.go
package tts

import (
	"context"
	"errors"
)

var ErrEmptyAudio = errors.New("engine returned no audio")

type Config struct {
	Type              string
	Voice             string
	LanguageCode      string
	RequestsPerMinute int
}

// Engine turns a passage of text into raw 16-bit little-endian PCM at
// 24 kHz mono.
type Engine interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Name() string
}

// VoiceInfo provides detailed information about available voices
type VoiceInfo struct {
	Name         string `json:"name"`
	LanguageCode string `json:"language_code"`
	Gender       string `json:"gender"`
	Natural      bool   `json:"natural"`
}

// VoiceLister is implemented by engines that can enumerate their voices.
type VoiceLister interface {
	Voices(ctx context.Context) ([]VoiceInfo, error)
}
