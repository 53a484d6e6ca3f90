package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"
)

type fakeModels struct {
	resp   *genai.GenerateContentResponse
	err    error
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func respWith(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func TestIllustrate(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr error
	}{
		{
			name: "inline image after text part",
			resp: respWith(
				&genai.Part{Text: "here you go"},
				&genai.Part{InlineData: &genai.Blob{Data: []byte("img"), MIMEType: "image/jpeg"}},
			),
			want: "data:image/jpeg;base64,aW1n",
		},
		{
			name: "missing mime defaults to png",
			resp: respWith(&genai.Part{InlineData: &genai.Blob{Data: []byte("img")}}),
			want: "data:image/png;base64,aW1n",
		},
		{
			name:    "no inline data",
			resp:    respWith(&genai.Part{Text: "sorry"}),
			wantErr: ErrNoImage,
		},
		{
			name:    "no candidates",
			resp:    &genai.GenerateContentResponse{},
			wantErr: ErrNoImage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeModels{resp: tt.resp}
			c := newClient(fake, Config{RequestsPerMinute: -1})

			got, err := c.Illustrate(context.Background(), "a river")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Illustrate() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Illustrate() = %q, want %q", got, tt.want)
			}
			if fake.model != DefaultImageModel {
				t.Errorf("model = %q", fake.model)
			}
			if fake.config.ImageConfig == nil || fake.config.ImageConfig.AspectRatio != "1:1" {
				t.Errorf("image config = %+v", fake.config.ImageConfig)
			}
		})
	}
}

func TestSynthesize(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	fake := &fakeModels{resp: respWith(&genai.Part{InlineData: &genai.Blob{Data: pcm, MIMEType: "audio/L16;rate=24000"}})}
	c := newClient(fake, Config{RequestsPerMinute: -1})

	got, err := c.Synthesize(context.Background(), "Fede was a curious boy.")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(got) != string(pcm) {
		t.Errorf("Synthesize() = %v, want %v", got, pcm)
	}
	if fake.model != DefaultSpeechModel {
		t.Errorf("model = %q", fake.model)
	}
	if !strings.HasPrefix(fake.prompt, DefaultTone) || !strings.Contains(fake.prompt, `"Fede was a curious boy."`) {
		t.Errorf("prompt = %q", fake.prompt)
	}
	voice := fake.config.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName
	if voice != DefaultVoice {
		t.Errorf("voice = %q, want %q", voice, DefaultVoice)
	}
}

func TestSynthesizeOnlyReadsFirstPart(t *testing.T) {
	fake := &fakeModels{resp: respWith(
		&genai.Part{Text: "no audio here"},
		&genai.Part{InlineData: &genai.Blob{Data: []byte{1, 2}}},
	)}
	c := newClient(fake, Config{RequestsPerMinute: -1})

	if _, err := c.Synthesize(context.Background(), "hello"); !errors.Is(err, ErrNoAudio) {
		t.Errorf("Synthesize() error = %v, want %v", err, ErrNoAudio)
	}
}

func TestPassesThroughAPIError(t *testing.T) {
	apiErr := genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}
	fake := &fakeModels{err: apiErr}
	c := newClient(fake, Config{RequestsPerMinute: -1})

	_, err := c.Synthesize(context.Background(), "hello")
	var got genai.APIError
	if !errors.As(err, &got) || got.Code != 429 {
		t.Errorf("Synthesize() error = %v, want APIError 429", err)
	}
}

func TestRateLimitHonoursContext(t *testing.T) {
	c := newClient(&fakeModels{resp: respWith()}, Config{RequestsPerMinute: 1})
	ctx, cancel := context.WithCancel(context.Background())

	// first call consumes the only token
	_, _ = c.Illustrate(ctx, "one")
	cancel()

	if _, err := c.Illustrate(ctx, "two"); err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("Illustrate() after cancel error = %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), Config{}); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("NewClient() error = %v, want %v", err, ErrNoAPIKey)
	}
}
