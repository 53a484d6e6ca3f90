package illustrate

import (
	"context"
	"fmt"

	"storyloom/internal/story/gemini"
)

// Style selects the framing added in front of an episode's image prompt.
type Style string

const (
	StyleStorybook Style = "storybook"
	StyleCinematic Style = "cinematic"
)

const (
	storybookPrefix = "A high-quality 3D animated style children's book illustration, vibrant colors, soft lighting: "
	cinematicPrefix = "Cinematic wide shot, 3D Pixar style animation, extreme detail, environmental movement, flowing water, particles in the air, soft cinematic lighting: "
)

// ForMovie returns the style used for auto-advancing playback.
func ForMovie(movie bool) Style {
	if movie {
		return StyleCinematic
	}
	return StyleStorybook
}

// Prompt applies the style framing to prompt.
func (s Style) Prompt(prompt string) string {
	if s == StyleCinematic {
		return cinematicPrefix + prompt
	}
	return storybookPrefix + prompt
}

// Illustrator turns a finished prompt into an image URL.
type Illustrator interface {
	Illustrate(ctx context.Context, prompt string) (string, error)
}

type Type string

const (
	TypeGemini Type = "gemini"
	TypeMock   Type = "mock"
	TypeAuto   Type = "auto"
)

// New picks an illustrator. gem may be nil when no key is configured.
func New(kind string, gem *gemini.Client) (Illustrator, error) {
	switch Type(kind) {
	case "", TypeAuto:
		if gem != nil {
			return gem, nil
		}
		return Mock{}, nil
	case TypeGemini:
		if gem == nil {
			return nil, fmt.Errorf("gemini illustrator: %w", gemini.ErrNoAPIKey)
		}
		return gem, nil
	case TypeMock:
		return Mock{}, nil
	default:
		return nil, fmt.Errorf("unsupported illustrator type: %s", kind)
	}
}
