package story

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPrepareDefaultScript(t *testing.T) {
	s, err := Fede.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if s.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", s.Len())
	}
	for i, ep := range s.Episodes {
		if ep.Index != i {
			t.Errorf("episode %d has Index %d", i, ep.Index)
		}
		if strings.Contains(ep.ImagePrompt, CharacterPlaceholder) {
			t.Errorf("episode %d prompt still has placeholder", i)
		}
		if !strings.Contains(ep.ImagePrompt, "Fede") {
			t.Errorf("episode %d prompt lacks the character: %q", i, ep.ImagePrompt)
		}
	}
	if strings.Contains(Fede.Episodes[0].ImagePrompt, "Fede with") {
		t.Error("Prepare() mutated the source script")
	}
}

func TestPrepareRejects(t *testing.T) {
	tests := []struct {
		name   string
		script Script
		want   error
	}{
		{name: "no episodes", script: Script{ID: "x"}, want: ErrNoEpisodes},
		{name: "blank text", script: Script{Episodes: []Episode{{Text: "  ", ImagePrompt: "p"}}}, want: ErrEmptyEpisode},
		{name: "no prompt", script: Script{Episodes: []Episode{{Text: "t"}}}, want: ErrMissingPrompt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.script.Prepare(); !errors.Is(err, tt.want) {
				t.Errorf("Prepare() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEpisodeBounds(t *testing.T) {
	if _, ok := Fede.Episode(-1); ok {
		t.Error("Episode(-1) should not exist")
	}
	if _, ok := Fede.Episode(Fede.Len()); ok {
		t.Error("Episode(Len()) should not exist")
	}
	if ep, ok := Fede.Episode(0); !ok || ep.Text == "" {
		t.Error("Episode(0) missing")
	}
}

func TestLoadScriptDefaultsID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moon.yml")
	body := "title: Moon\nepisodes:\n  - text: Hello moon.\n    image_prompt: A moon.\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript() error = %v", err)
	}
	if s.ID != "moon" || s.Title != "Moon" || s.Len() != 1 {
		t.Errorf("LoadScript() = %+v", s)
	}
}
