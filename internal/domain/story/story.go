package story

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CharacterPlaceholder in an image prompt is replaced by the script's
// character description.
const CharacterPlaceholder = "{{character}}"

var (
	ErrNoEpisodes    = errors.New("script has no episodes")
	ErrEmptyEpisode  = errors.New("episode has no text")
	ErrMissingPrompt = errors.New("episode has no image prompt")
)

// Episode is one page of an authored story.
type Episode struct {
	Index       int    `json:"index" yaml:"-"`
	Text        string `json:"text" yaml:"text"`
	ImagePrompt string `json:"image_prompt" yaml:"image_prompt"`
}

// Script is an ordered, fixed sequence of episodes.
type Script struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Author    string    `json:"author" yaml:"author"`
	AgeGroup  string    `json:"age_group" yaml:"age_group"`
	Character string    `json:"character" yaml:"character"`
	Episodes  []Episode `json:"episodes" yaml:"episodes"`
}

func (s Script) Len() int { return len(s.Episodes) }

// Episode returns the page at index i.
func (s Script) Episode(i int) (Episode, bool) {
	if i < 0 || i >= len(s.Episodes) {
		return Episode{}, false
	}
	return s.Episodes[i], true
}

// Prepare numbers the episodes, expands the character placeholder and
// checks that every page can be illustrated and narrated.
func (s Script) Prepare() (Script, error) {
	if len(s.Episodes) == 0 {
		return s, ErrNoEpisodes
	}

	out := s
	out.Episodes = make([]Episode, len(s.Episodes))
	for i, ep := range s.Episodes {
		ep.Index = i
		ep.Text = strings.TrimSpace(ep.Text)
		if ep.Text == "" {
			return s, fmt.Errorf("page %d: %w", i+1, ErrEmptyEpisode)
		}
		if strings.TrimSpace(ep.ImagePrompt) == "" {
			return s, fmt.Errorf("page %d: %w", i+1, ErrMissingPrompt)
		}
		ep.ImagePrompt = strings.ReplaceAll(ep.ImagePrompt, CharacterPlaceholder, s.Character)
		out.Episodes[i] = ep
	}
	return out, nil
}

// LoadScript reads a YAML script file.
func LoadScript(path string) (Script, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("failed to read script: %w", err)
	}

	var s Script
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Script{}, fmt.Errorf("failed to parse script %s: %w", path, err)
	}
	if s.ID == "" {
		s.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return s.Prepare()
}
