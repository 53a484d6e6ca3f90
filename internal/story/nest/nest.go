package nest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"storyloom/internal/cli/scheme/colours"
	"storyloom/internal/config"
	"storyloom/internal/domain/library"
	"storyloom/internal/domain/story"
	"storyloom/internal/story/content"
	"storyloom/internal/story/gemini"
	"storyloom/internal/story/illustrate"
	"storyloom/internal/story/playback"
	"storyloom/internal/story/retry"
	"storyloom/internal/story/session"
	"storyloom/internal/story/tts"
)

var ErrStoryNotFound = errors.New("story not found")

// StoryNest main application structure
type StoryNest struct {
	cfg     config.Config
	library *library.StoryLibrary

	In  io.Reader
	Out io.Writer

	ctx    context.Context
	Cancel context.CancelFunc

	mu     sync.Mutex
	active *session.Session
}

func NewStoryNest(cfg config.Config) (*StoryNest, error) {
	lib, err := library.New("Storyloom", story.Fede)
	if err != nil {
		return nil, err
	}
	if cfg.Story.LibraryDir != "" {
		if _, err := lib.LoadDir(cfg.Story.LibraryDir); err != nil {
			logrus.WithError(err).Warn("Could not load story library")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &StoryNest{
		cfg:     cfg,
		library: lib,
		In:      os.Stdin,
		Out:     os.Stdout,
		ctx:     ctx,
		Cancel:  cancel,
	}, nil
}

func (sn *StoryNest) ShowWelcome() {
	w := sn.Out
	fmt.Fprintln(w)
	colours.Title.Fprintln(w, "🌟 Welcome to Storyloom! 🌟")
	fmt.Fprintln(w)
	colours.Info.Fprintln(w, "📚 Available commands:")
	fmt.Fprintln(w, "  • storyloom read      - Read a story page by page")
	fmt.Fprintln(w, "  • storyloom movie     - Watch a story play on its own")
	fmt.Fprintln(w, "  • storyloom episodes  - Show the pages of a story")
	fmt.Fprintln(w, "  • storyloom stories   - Browse available stories")
	fmt.Fprintln(w, "  • storyloom settings  - Show voice and engine settings")
	fmt.Fprintln(w)
	colours.Prompt.Fprintln(w, "✨ Ready for a magical story adventure? ✨")
}

func (sn *StoryNest) ListStories(cmd *cobra.Command, args []string) {
	w := sn.Out
	fmt.Fprintln(w)
	colours.Title.Fprintln(w, "📚 Available Stories 📚")
	fmt.Fprintln(w)

	stories := sn.library.Stories()
	for i, s := range stories {
		fmt.Fprintf(w, "  %d. ", i+1)
		colours.Title.Fprintf(w, "%s", s.Title)
		if s.Author != "" {
			fmt.Fprintf(w, " by ")
			colours.Author.Fprintf(w, "%s", s.Author)
		}
		fmt.Fprintf(w, "\n     🎯 Age: %s | 📄 %s\n", orDash(s.AgeGroup), pages(s.Len()))
		colours.Info.Fprintf(w, "     ID: %s\n", s.ID)
		fmt.Fprintln(w)
	}

	colours.Success.Fprintf(w, "✨ Found %d wonderful stories! ✨\n", len(stories))
}

func (sn *StoryNest) ListEpisodes(cmd *cobra.Command, args []string) error {
	script, err := sn.resolveScript(firstArg(args))
	if err != nil {
		return err
	}

	w := sn.Out
	fmt.Fprintln(w)
	colours.Title.Fprintf(w, "📖 %s\n", script.Title)
	fmt.Fprintln(w)
	for _, ep := range script.Episodes {
		colours.Info.Fprintf(w, "  %2d. ", ep.Index+1)
		fmt.Fprintln(w, ep.Text)
	}
	fmt.Fprintln(w)
	colours.Success.Fprintf(w, "✨ %s\n", pages(script.Len()))
	return nil
}

func (sn *StoryNest) ShowSettings(cmd *cobra.Command, args []string) error {
	gem := sn.geminiClient()
	w := sn.Out

	fmt.Fprintln(w)
	colours.Title.Fprintln(w, "⚙️ Settings ⚙️")
	fmt.Fprintln(w)

	colours.Prompt.Fprintln(w, "🎤 Narration:")
	fmt.Fprintf(w, "  • Engine: %s\n", sn.cfg.TTS.Type)
	fmt.Fprintf(w, "  • Gemini voice: %s\n", sn.cfg.TTS.Voice)
	fmt.Fprintf(w, "  • Cloud TTS voice: %s (%s)\n", sn.cfg.TTS.ClassicVoice, sn.cfg.TTS.LanguageCode)
	engines := make([]string, 0, 3)
	for _, e := range tts.AvailableEngines(gem) {
		engines = append(engines, e.String())
	}
	fmt.Fprintf(w, "  • Available: %s\n", strings.Join(engines, ", "))
	fmt.Fprintln(w)

	colours.Prompt.Fprintln(w, "🖼️  Illustration:")
	fmt.Fprintf(w, "  • Engine: %s\n", sn.cfg.Illustration.Type)
	fmt.Fprintf(w, "  • Model: %s\n", sn.cfg.Gemini.ImageModel)
	fmt.Fprintln(w)

	colours.Prompt.Fprintln(w, "🔊 Playback:")
	fmt.Fprintf(w, "  • Audio backend: %s\n", sn.cfg.Audio.Backend)
	fmt.Fprintf(w, "  • Movie mode by default: %v\n", sn.cfg.Playback.AutoAdvance)
	fmt.Fprintf(w, "  • Next page after: %v\n", sn.cfg.Playback.AutoAdvanceDelay)
	fmt.Fprintln(w)

	colours.Prompt.Fprintln(w, "🔑 Gemini:")
	if sn.cfg.Gemini.APIKey != "" {
		colours.Success.Fprintln(w, "  • API key: set")
	} else {
		colours.Warning.Fprintln(w, "  • API key: not set (using offline engines)")
	}
	fmt.Fprintf(w, "  • Requests per minute: %d\n", sn.cfg.Gemini.RequestsPerMinute)
	fmt.Fprintf(w, "  • Retries: %d attempts, starting at %v\n", sn.cfg.Retry.MaxAttempts, sn.cfg.Retry.InitialDelay)

	if listVoices, _ := cmd.Flags().GetBool("voices"); listVoices {
		return sn.listVoices(gem)
	}
	return nil
}

func (sn *StoryNest) listVoices(gem *gemini.Client) error {
	engine, err := tts.NewEngine(sn.ctx, sn.ttsConfig(), gem)
	if err != nil {
		return err
	}
	lister, ok := engine.(tts.VoiceLister)
	if !ok {
		colours.Info.Fprintf(sn.Out, "\n💡 The %s engine uses a fixed voice set\n", engine.Name())
		return nil
	}

	voices, err := lister.Voices(sn.ctx)
	if err != nil {
		return fmt.Errorf("failed to list voices: %w", err)
	}
	fmt.Fprintln(sn.Out)
	colours.Prompt.Fprintln(sn.Out, "🗣️  Voices:")
	for _, v := range voices {
		marker := ""
		if v.Natural {
			marker = " ✨"
		}
		fmt.Fprintf(sn.Out, "  • %s (%s, %s)%s\n", v.Name, v.LanguageCode, strings.ToLower(v.Gender), marker)
	}
	return nil
}

// Read plays a story in manual mode.
func (sn *StoryNest) Read(cmd *cobra.Command, args []string) error {
	return sn.run(firstArg(args), sn.cfg.Playback.AutoAdvance)
}

// Movie plays a story with auto-advance on.
func (sn *StoryNest) Movie(cmd *cobra.Command, args []string) error {
	return sn.run(firstArg(args), true)
}

// Stop silences the active reading, if any.
func (sn *StoryNest) Stop() {
	sn.mu.Lock()
	s := sn.active
	sn.mu.Unlock()
	if s != nil {
		s.Stop()
	}
}

func (sn *StoryNest) run(id string, movie bool) error {
	script, err := sn.resolveScript(id)
	if err != nil {
		return err
	}

	v := newView(sn.Out, script, sn.cfg.Playback.AutoAdvanceDelay)
	s, err := sn.newSession(script, v)
	if err != nil {
		return err
	}
	v.session = s
	sn.mu.Lock()
	sn.active = s
	sn.mu.Unlock()

	w := sn.Out
	fmt.Fprintln(w)
	colours.Title.Fprintf(w, "📖 %s\n", script.Title)
	if script.Author != "" {
		colours.Author.Fprintf(w, "✍️  by %s\n", script.Author)
	}
	fmt.Fprintf(w, "🎯 Age Group: %s | 📄 %s\n", orDash(script.AgeGroup), pages(script.Len()))
	fmt.Fprintln(w)
	colours.Success.Fprintln(w, "🎵 Starting story... 🎵")
	fmt.Fprintln(w, "💡 Press Ctrl+C to stop anytime")

	start := s.Start
	if movie {
		start = s.StartMovie
	}
	go sn.perform(start)

	sn.waitForUserInput(s)
	s.Stop()
	return nil
}

func (sn *StoryNest) newSession(script story.Script, v *view) (*session.Session, error) {
	gem := sn.geminiClient()

	narrator, err := tts.NewEngine(sn.ctx, sn.ttsConfig(), gem)
	if err != nil {
		return nil, fmt.Errorf("failed to create narration engine: %w", err)
	}
	illustrator, err := illustrate.New(sn.cfg.Illustration.Type, gem)
	if err != nil {
		return nil, err
	}
	out, err := playback.NewOutput(sn.cfg.Audio.Backend, sn.cfg.Audio.Buffer)
	if err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{"narrator": narrator.Name()})
	log.Debug("Session pipeline ready")

	fetcher := content.NewFetcher(illustrator, narrator, content.Options{
		Retry: retry.Policy{
			MaxAttempts:  sn.cfg.Retry.MaxAttempts,
			InitialDelay: sn.cfg.Retry.InitialDelay,
			MaxJitter:    sn.cfg.Retry.MaxJitter,
		},
		Logger: log,
	})

	return session.New(sn.ctx, script, fetcher, playback.NewController(out), session.Options{
		AdvanceDelay: sn.cfg.Playback.AutoAdvanceDelay,
		NoticeTTL:    sn.cfg.UI.NoticeTTL,
		OnChange:     v.render,
		Logger:       log,
	}), nil
}

func (sn *StoryNest) waitForUserInput(s *session.Session) {
	reader := bufio.NewReader(sn.In)
	for {
		select {
		case <-sn.ctx.Done():
			return
		default:
		}

		input, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		switch strings.TrimSpace(strings.ToLower(input)) {
		case "n", "next":
			go sn.perform(s.Next)
		case "p", "prev":
			go sn.perform(s.Prev)
		case "r", "replay":
			if err := s.Replay(); err != nil {
				colours.Error.Fprintf(sn.Out, "❌ %v\n", err)
			}
		case "m", "movie":
			if s.ToggleMovie() {
				colours.Movie.Fprintln(sn.Out, "🎬 Movie mode on")
			} else {
				colours.Info.Fprintln(sn.Out, "📖 Movie mode off")
			}
		case "s", "stop":
			s.Stop()
			colours.Warning.Fprintln(sn.Out, "⏹️  Stopped")
		case "q", "quit":
			colours.Warning.Fprintln(sn.Out, "👋 Sweet dreams! 🌙")
			return
		case "":
			continue
		default:
			colours.Info.Fprintln(sn.Out, "ℹ️  Use n/p to turn pages, r to replay, m for movie mode, s to stop, q to quit")
		}
	}
}

// perform runs a navigation and reports errors the session has not
// already shown as a notice.
func (sn *StoryNest) perform(action func(context.Context) error) {
	err := action(sn.ctx)
	if err == nil || errors.Is(err, content.ErrFetchFailed) || errors.Is(err, context.Canceled) {
		return
	}
	colours.Error.Fprintf(sn.Out, "❌ %v\n", err)
}

func (sn *StoryNest) resolveScript(id string) (story.Script, error) {
	if sn.cfg.Story.Script != "" {
		return story.LoadScript(sn.cfg.Story.Script)
	}
	if id == "" {
		id = sn.cfg.Story.ID
	}
	s, ok := sn.library.Get(id)
	if !ok {
		return story.Script{}, fmt.Errorf("%w: %s", ErrStoryNotFound, id)
	}
	return s, nil
}

// geminiClient returns nil when no API key is configured.
func (sn *StoryNest) geminiClient() *gemini.Client {
	if sn.cfg.Gemini.APIKey == "" {
		return nil
	}
	gem, err := gemini.NewClient(sn.ctx, gemini.Config{
		APIKey:            sn.cfg.Gemini.APIKey,
		ImageModel:        sn.cfg.Gemini.ImageModel,
		SpeechModel:       sn.cfg.Gemini.SpeechModel,
		Voice:             sn.cfg.TTS.Voice,
		Tone:              sn.cfg.TTS.Tone,
		RequestsPerMinute: sn.cfg.Gemini.RequestsPerMinute,
	})
	if err != nil {
		logrus.WithError(err).Warn("Gemini unavailable, falling back to offline engines")
		return nil
	}
	return gem
}

func (sn *StoryNest) ttsConfig() tts.Config {
	return tts.Config{
		Type:              sn.cfg.TTS.Type,
		Voice:             sn.cfg.TTS.ClassicVoice,
		LanguageCode:      sn.cfg.TTS.LanguageCode,
		RequestsPerMinute: sn.cfg.Gemini.RequestsPerMinute,
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func pages(n int) string {
	if n == 1 {
		return "1 page"
	}
	return humanize.Comma(int64(n)) + " pages"
}
