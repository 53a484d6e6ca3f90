package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	DefaultImageModel  = "gemini-2.5-flash-image"
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultVoice       = "Puck"
	DefaultTone        = "You are a charming, expressive child storyteller. Read the following passage with enthusiasm, sweetness and a very clear young voice"

	defaultRequestsPerMinute = 20
)

var (
	ErrNoImage   = errors.New("no image generated")
	ErrNoAudio   = errors.New("no audio generated")
	ErrNoAPIKey  = errors.New("gemini api key is not set")
	ErrEmptyText = errors.New("text cannot be empty")
)

type Config struct {
	APIKey            string
	ImageModel        string
	SpeechModel       string
	Voice             string
	Tone              string
	RequestsPerMinute int
}

// contentGenerator is the slice of *genai.Models the client needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client talks to the Gemini API for illustrations and narration. All
// calls share one client-side rate limiter.
type Client struct {
	models  contentGenerator
	cfg     Config
	limiter *rate.Limiter
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return newClient(gc.Models, cfg), nil
}

func newClient(models contentGenerator, cfg Config) *Client {
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultImageModel
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = DefaultSpeechModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.Tone == "" {
		cfg.Tone = DefaultTone
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = defaultRequestsPerMinute
	}
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Client{models: models, cfg: cfg, limiter: limiter}
}

func (c *Client) Voice() string { return c.cfg.Voice }

func (c *Client) generate(ctx context.Context, model, prompt string, gc *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"model":  model,
		"length": len(prompt),
	}).Debug("Calling Gemini")

	return c.models.GenerateContent(ctx, model, genai.Text(prompt), gc)
}

// firstInline returns the inline data of the first candidate's parts,
// scanning all parts when all is set and only the first otherwise.
func firstInline(resp *genai.GenerateContentResponse, all bool) *genai.Blob {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return nil
	}
	for i, part := range cand.Content.Parts {
		if !all && i > 0 {
			break
		}
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData
		}
	}
	return nil
}
