package tts

import (
	"context"
	"fmt"
	"os"

	"storyloom/internal/story/gemini"
)

type EngineType string

const (
	EngineTypeGemini        EngineType = "gemini"
	EngineTypeGoogleClassic EngineType = "googleclassic"
	EngineTypeMock          EngineType = "mock"
	EngineTypeAuto          EngineType = "auto" // choose the best available
)

func (e EngineType) String() string {
	return string(e)
}

// NewEngine creates a narration engine based on the provided config. gem
// may be nil when no Gemini key is configured.
func NewEngine(ctx context.Context, config Config, gem *gemini.Client) (Engine, error) {
	if config.Type == "" || config.Type == EngineTypeAuto.String() {
		config.Type = bestEngine(gem).String()
	}

	switch config.Type {
	case EngineTypeGemini.String():
		if gem == nil {
			return nil, fmt.Errorf("gemini engine: %w", gemini.ErrNoAPIKey)
		}
		return &GeminiEngine{client: gem}, nil

	case EngineTypeGoogleClassic.String():
		return newGoogleClassicEngine(ctx, config)

	case EngineTypeMock.String():
		return NewMockEngine(), nil

	default:
		return nil, fmt.Errorf("unsupported TTS engine type: %s", config.Type)
	}
}

func bestEngine(gem *gemini.Client) EngineType {
	if gem != nil {
		return EngineTypeGemini
	}
	if hasGoogleCredentials() {
		return EngineTypeGoogleClassic
	}
	return EngineTypeMock
}

// AvailableEngines returns the engines usable with the current environment.
func AvailableEngines(gem *gemini.Client) []EngineType {
	engines := []EngineType{EngineTypeMock}
	if gem != nil {
		engines = append(engines, EngineTypeGemini)
	}
	if hasGoogleCredentials() {
		engines = append(engines, EngineTypeGoogleClassic)
	}
	return engines
}

// hasGoogleCredentials checks if Google Cloud credentials are available
func hasGoogleCredentials() bool {
	_, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS")
	return ok
}

// GeminiEngine narrates with the Gemini speech model.
type GeminiEngine struct {
	client *gemini.Client
}

func (g *GeminiEngine) Name() string { return EngineTypeGemini.String() }

func (g *GeminiEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return g.client.Synthesize(ctx, text)
}
