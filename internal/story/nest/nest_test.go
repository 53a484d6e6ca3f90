package nest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"

	"storyloom/internal/config"
)

// syncBuffer is written to by session callbacks on other goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func offlineConfig() config.Config {
	return config.Config{
		TTS:          config.TTS{Type: "mock"},
		Illustration: config.Illustration{Type: "mock"},
		Audio:        config.Audio{Backend: "null"},
		Retry:        config.Retry{MaxAttempts: 1, InitialDelay: time.Millisecond},
		Playback:     config.Playback{AutoAdvanceDelay: time.Second},
		UI:           config.UI{NoticeTTL: time.Second},
		Story:        config.Story{ID: "fede"},
	}
}

func newTestNest(t *testing.T, cfg config.Config) (*StoryNest, *syncBuffer) {
	t.Helper()
	color.NoColor = true

	sn, err := NewStoryNest(cfg)
	if err != nil {
		t.Fatalf("NewStoryNest() error = %v", err)
	}
	t.Cleanup(sn.Cancel)

	out := &syncBuffer{}
	sn.Out = out
	return sn, out
}

func TestResolveScript(t *testing.T) {
	sn, _ := newTestNest(t, offlineConfig())

	s, err := sn.resolveScript("")
	if err != nil || s.ID != "fede" {
		t.Fatalf("resolveScript(\"\") = %v, %v", s.ID, err)
	}
	if _, err := sn.resolveScript("missing"); !errors.Is(err, ErrStoryNotFound) {
		t.Errorf("resolveScript(missing) error = %v", err)
	}
}

func TestResolveScriptFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moon.yaml")
	body := "title: Goodnight\nepisodes:\n  - text: Goodnight moon.\n    image_prompt: The moon.\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := offlineConfig()
	cfg.Story.Script = path
	sn, _ := newTestNest(t, cfg)

	s, err := sn.resolveScript("fede")
	if err != nil {
		t.Fatalf("resolveScript() error = %v", err)
	}
	if s.ID != "moon" || s.Len() != 1 {
		t.Errorf("resolveScript() = %+v", s)
	}
}

func TestListings(t *testing.T) {
	sn, out := newTestNest(t, offlineConfig())

	sn.ListStories(nil, nil)
	if err := sn.ListEpisodes(nil, nil); err != nil {
		t.Fatalf("ListEpisodes() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{"Fede, the Water Guardian", "ID: fede", "10 pages", "10. From that day on"} {
		if !strings.Contains(got, want) {
			t.Errorf("output lacks %q", want)
		}
	}
}

func TestOfflineSessionShowsPage(t *testing.T) {
	sn, out := newTestNest(t, offlineConfig())

	script, err := sn.resolveScript("")
	if err != nil {
		t.Fatal(err)
	}
	v := newView(sn.Out, script, time.Second)
	s, err := sn.newSession(script, v)
	if err != nil {
		t.Fatalf("newSession() error = %v", err)
	}
	v.session = s
	t.Cleanup(s.Stop)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	st := s.State()
	if st.CurrentIndex != 0 || !st.IsAudioPlaying || len(st.Cached) != 1 {
		t.Errorf("State() = %+v", st)
	}

	got := out.String()
	for _, want := range []string{"Creating magic for the 1st page", "Page 1/10", "Fede was a curious boy", "illustration"} {
		if !strings.Contains(got, want) {
			t.Errorf("output lacks %q:\n%s", want, got)
		}
	}
}

func TestPerformHidesFetchFailures(t *testing.T) {
	sn, out := newTestNest(t, offlineConfig())

	sn.perform(func(context.Context) error { return context.Canceled })
	if out.String() != "" {
		t.Errorf("cancellation was reported: %q", out.String())
	}

	sn.perform(func(context.Context) error { return errors.New("speaker unplugged") })
	if !strings.Contains(out.String(), "speaker unplugged") {
		t.Errorf("output = %q", out.String())
	}
}
