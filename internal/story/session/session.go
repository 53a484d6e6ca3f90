// Package session drives a reading of one story script: it caches page
// content, tracks which page is current and hands narration to the player.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storyloom/internal/domain/story"
	"storyloom/internal/story/audio"
	"storyloom/internal/story/content"
	"storyloom/internal/story/illustrate"
)

const (
	DefaultAdvanceDelay = 1500 * time.Millisecond
	DefaultNoticeTTL    = 4 * time.Second

	RestingNotice = "The storyteller is resting for a moment. Try again!"
)

var ErrIndexOutOfRange = errors.New("episode index out of range")

// Fetcher produces the content of one page.
type Fetcher interface {
	Fetch(ctx context.Context, ep story.Episode, style illustrate.Style) (*content.Page, error)
}

// Player is the playback surface the session drives. *playback.Controller
// implements it.
type Player interface {
	Play(buf *audio.DecodedAudio, onEnded func()) error
	Stop()
	After(d time.Duration, fn func())
	Disarm()
}

// State is a snapshot of the session.
type State struct {
	CurrentIndex   int
	IsGenerating   bool
	IsAudioPlaying bool
	MovieMode      bool
	Notice         string
	Cached         []int
}

type Options struct {
	AdvanceDelay time.Duration
	NoticeTTL    time.Duration
	// Movie starts the session in auto-advance mode.
	Movie bool
	// OnChange receives a snapshot after every state change. It is called
	// without any session lock held.
	OnChange func(State)
	Logger   *logrus.Entry
}

type Session struct {
	ID string

	ctx     context.Context
	script  story.Script
	fetcher Fetcher
	player  Player
	opts    Options
	log     *logrus.Entry

	mu          sync.Mutex
	current     int
	generating  bool
	playing     bool
	movie       bool
	notice      string
	noticeTimer *time.Timer
	cache       map[int]*content.Page

	// nav changes on every page request and marks fetches stale; play
	// changes on every playback start or stop and marks completions stale.
	nav  uint64
	play uint64
}

// New creates a session over a prepared script. ctx bounds the fetches the
// session starts on its own when auto-advancing.
func New(ctx context.Context, script story.Script, fetcher Fetcher, player Player, opts Options) *Session {
	if opts.AdvanceDelay <= 0 {
		opts.AdvanceDelay = DefaultAdvanceDelay
	}
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = DefaultNoticeTTL
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	id := uuid.NewString()
	return &Session{
		ID:      id,
		ctx:     ctx,
		script:  script,
		fetcher: fetcher,
		player:  player,
		opts:    opts,
		log:     opts.Logger.WithFields(logrus.Fields{"session": id, "story": script.ID}),
		movie:   opts.Movie,
		cache:   make(map[int]*content.Page),
	}
}

func (s *Session) Script() story.Script { return s.script }

// Start begins reading at the first page in manual mode.
func (s *Session) Start(ctx context.Context) error {
	s.SetMovie(false)
	return s.RequestPage(ctx, 0)
}

// StartMovie begins reading at the first page with auto-advance on.
func (s *Session) StartMovie(ctx context.Context) error {
	s.SetMovie(true)
	return s.RequestPage(ctx, 0)
}

// RequestPage makes page i current. A cached page plays at once;
// otherwise its content is fetched and played when it arrives, unless
// another page has been requested in the meantime.
func (s *Session) RequestPage(ctx context.Context, i int) error {
	s.mu.Lock()
	ep, ok := s.script.Episode(i)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}

	s.player.Stop()
	s.playing = false
	s.current = i
	s.nav++
	s.play++
	s.clearNoticeLocked()

	if page, ok := s.cache[i]; ok {
		s.generating = false
		err := s.playLocked(page)
		st := s.snapshotLocked()
		s.mu.Unlock()
		s.emit(st)
		return err
	}

	s.generating = true
	tag := s.nav
	style := illustrate.ForMovie(s.movie)
	st := s.snapshotLocked()
	s.mu.Unlock()
	s.emit(st)

	log := s.log.WithFields(logrus.Fields{"episode": i, "style": style})
	log.Debug("Fetching page")

	page, err := s.fetcher.Fetch(ctx, ep, style)

	s.mu.Lock()
	if tag != s.nav {
		s.mu.Unlock()
		log.WithError(err).Debug("Dropping stale page fetch")
		return nil
	}

	s.generating = false
	if err != nil {
		s.setNoticeLocked(RestingNotice)
		st := s.snapshotLocked()
		s.mu.Unlock()
		s.emit(st)
		log.WithError(err).Warn("Page fetch failed")
		return fmt.Errorf("page %d: %w", i+1, err)
	}

	s.cache[i] = page
	err = s.playLocked(page)
	st = s.snapshotLocked()
	s.mu.Unlock()
	s.emit(st)
	return err
}

// Next moves one page forward. It does nothing on the last page.
func (s *Session) Next(ctx context.Context) error {
	s.mu.Lock()
	target := s.current + 1
	s.mu.Unlock()
	if target >= s.script.Len() {
		return nil
	}
	return s.RequestPage(ctx, target)
}

// Prev moves one page back. It does nothing on the first page.
func (s *Session) Prev(ctx context.Context) error {
	s.mu.Lock()
	target := s.current - 1
	s.mu.Unlock()
	if target < 0 {
		return nil
	}
	return s.RequestPage(ctx, target)
}

// Replay plays the current page again if it has been loaded.
func (s *Session) Replay() error {
	s.mu.Lock()
	page, ok := s.cache[s.current]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	err := s.playLocked(page)
	st := s.snapshotLocked()
	s.mu.Unlock()
	s.emit(st)
	return err
}

// Stop silences playback and cancels a pending auto-advance. A fetch in
// flight is not abandoned.
func (s *Session) Stop() {
	s.mu.Lock()
	s.player.Stop()
	s.play++
	s.playing = false
	st := s.snapshotLocked()
	s.mu.Unlock()
	s.emit(st)
}

func (s *Session) SetMovie(on bool) {
	s.mu.Lock()
	if s.movie == on {
		s.mu.Unlock()
		return
	}
	s.movie = on
	if !on {
		s.player.Disarm()
	}
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.log.WithField("movie", on).Debug("Playback mode changed")
	s.emit(st)
}

func (s *Session) ToggleMovie() bool {
	s.mu.Lock()
	on := !s.movie
	s.mu.Unlock()
	s.SetMovie(on)
	return on
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Page returns the cached content for page i.
func (s *Session) Page(i int) (*content.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.cache[i]
	return p, ok
}

func (s *Session) playLocked(page *content.Page) error {
	s.play++
	tag := s.play
	idx := page.Index

	if err := s.player.Play(page.Audio, func() { s.ended(tag, idx) }); err != nil {
		s.playing = false
		s.log.WithError(err).WithField("episode", idx).Error("Playback failed")
		return fmt.Errorf("failed to play page %d: %w", idx+1, err)
	}
	s.playing = true
	return nil
}

func (s *Session) ended(tag uint64, idx int) {
	s.mu.Lock()
	if tag != s.play {
		s.mu.Unlock()
		return
	}
	s.playing = false
	if s.movie && idx < s.script.Len()-1 {
		s.player.After(s.opts.AdvanceDelay, func() { s.advance(tag) })
	}
	st := s.snapshotLocked()
	s.mu.Unlock()
	s.emit(st)
}

func (s *Session) advance(tag uint64) {
	s.mu.Lock()
	if tag != s.play || !s.movie {
		s.mu.Unlock()
		return
	}
	next := s.current + 1
	s.mu.Unlock()

	if err := s.RequestPage(s.ctx, next); err != nil {
		s.log.WithError(err).WithField("episode", next).Warn("Auto-advance failed")
	}
}

func (s *Session) setNoticeLocked(text string) {
	s.clearNoticeLocked()
	s.notice = text

	var t *time.Timer
	t = time.AfterFunc(s.opts.NoticeTTL, func() {
		s.mu.Lock()
		if s.noticeTimer != t {
			s.mu.Unlock()
			return
		}
		s.noticeTimer = nil
		s.notice = ""
		st := s.snapshotLocked()
		s.mu.Unlock()
		s.emit(st)
	})
	s.noticeTimer = t
}

func (s *Session) clearNoticeLocked() {
	if s.noticeTimer != nil {
		s.noticeTimer.Stop()
		s.noticeTimer = nil
	}
	s.notice = ""
}

func (s *Session) snapshotLocked() State {
	cached := make([]int, 0, len(s.cache))
	for i := range s.cache {
		cached = append(cached, i)
	}
	sort.Ints(cached)

	return State{
		CurrentIndex:   s.current,
		IsGenerating:   s.generating,
		IsAudioPlaying: s.playing,
		MovieMode:      s.movie,
		Notice:         s.notice,
		Cached:         cached,
	}
}

func (s *Session) emit(st State) {
	if s.opts.OnChange != nil {
		s.opts.OnChange(st)
	}
}
