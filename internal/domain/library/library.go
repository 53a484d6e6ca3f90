package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"storyloom/internal/domain/story"
)

// StoryLibrary is a catalog of story scripts keyed by id.
type StoryLibrary struct {
	Name    string
	scripts map[string]story.Script
	order   []string
}

// New builds a library holding the given scripts, in order.
func New(name string, scripts ...story.Script) (*StoryLibrary, error) {
	lib := &StoryLibrary{Name: name, scripts: make(map[string]story.Script)}
	for _, s := range scripts {
		if err := lib.Add(s); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// Add prepares s and stores it, replacing any script with the same id.
func (l *StoryLibrary) Add(s story.Script) error {
	prepared, err := s.Prepare()
	if err != nil {
		return fmt.Errorf("script %q: %w", s.ID, err)
	}
	if _, exists := l.scripts[prepared.ID]; !exists {
		l.order = append(l.order, prepared.ID)
	}
	l.scripts[prepared.ID] = prepared
	return nil
}

// LoadDir adds every *.yaml / *.yml script in dir. Broken files are
// skipped with a warning; a missing directory is not an error.
func (l *StoryLibrary) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read library directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	loaded := 0
	for _, name := range names {
		path := filepath.Join(dir, name)
		s, err := story.LoadScript(path)
		if err != nil {
			logrus.WithError(err).WithField("file", path).Warn("Skipping story script")
			continue
		}
		if err := l.Add(s); err != nil {
			logrus.WithError(err).WithField("file", path).Warn("Skipping story script")
			continue
		}
		loaded++
	}

	logrus.WithFields(logrus.Fields{
		"dir":     dir,
		"scripts": loaded,
	}).Debug("Loaded story library")

	return loaded, nil
}

func (l *StoryLibrary) Get(id string) (story.Script, bool) {
	s, ok := l.scripts[id]
	return s, ok
}

// Stories lists the scripts in insertion order.
func (l *StoryLibrary) Stories() []story.Script {
	out := make([]story.Script, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.scripts[id])
	}
	return out
}
