package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Synthesize reads text aloud in the storyteller voice and returns raw
// 16-bit little-endian 24 kHz mono PCM.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	resp, err := c.generate(ctx, c.cfg.SpeechModel, c.speechPrompt(text), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.cfg.Voice},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	blob := firstInline(resp, false)
	if blob == nil {
		return nil, ErrNoAudio
	}
	return blob.Data, nil
}

func (c *Client) speechPrompt(text string) string {
	return fmt.Sprintf("%s: %q", c.cfg.Tone, text)
}
