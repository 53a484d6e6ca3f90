package nest

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"storyloom/internal/cli/scheme/colours"
	"storyloom/internal/domain/story"
	"storyloom/internal/story/session"
)

// view prints session transitions as they happen.
type view struct {
	out     io.Writer
	script  story.Script
	advance time.Duration
	session *session.Session

	mu    sync.Mutex
	last  session.State
	shown int
}

func newView(out io.Writer, script story.Script, advance time.Duration) *view {
	return &view{out: out, script: script, advance: advance, shown: -1}
}

func (v *view) render(st session.State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	prev := v.last
	v.last = st
	w := v.out

	if st.Notice != "" && st.Notice != prev.Notice {
		colours.Warning.Fprintf(w, "\n⚠️  %s\n", st.Notice)
	}

	if st.MovieMode != prev.MovieMode && st.MovieMode {
		colours.Movie.Fprintln(w, "\n🎬 Movie mode")
	}

	if st.IsGenerating && (!prev.IsGenerating || prev.CurrentIndex != st.CurrentIndex) {
		colours.Muted.Fprintf(w, "\n✨ Creating magic for the %s page...\n", humanize.Ordinal(st.CurrentIndex+1))
	}

	if st.IsAudioPlaying && (!prev.IsAudioPlaying || prev.CurrentIndex != st.CurrentIndex || v.shown != st.CurrentIndex) {
		v.showPage(st.CurrentIndex)
		return
	}

	if prev.IsAudioPlaying && !st.IsAudioPlaying && !st.IsGenerating && prev.CurrentIndex == st.CurrentIndex {
		last := st.CurrentIndex == v.script.Len()-1
		switch {
		case last:
			colours.Success.Fprintln(w, "✅ The end! 🌟")
			colours.Prompt.Fprintln(w, "😴 Sleep tight! 🌙")
		case st.MovieMode:
			colours.Muted.Fprintf(w, "⏭️  Next page in %v\n", v.advance)
		default:
			colours.Muted.Fprintln(w, "⏸️  Press n for the next page")
		}
	}
}

func (v *view) showPage(i int) {
	w := v.out
	v.shown = i
	ep, _ := v.script.Episode(i)

	fmt.Fprintln(w)
	colours.Title.Fprintf(w, "📄 Page %d/%d\n", i+1, v.script.Len())
	colours.Narration.Fprintln(w, ep.Text)

	if v.session == nil {
		return
	}
	page, ok := v.session.Page(i)
	if !ok {
		return
	}
	colours.Muted.Fprintf(w, "🖼️  %s illustration | 🔊 %v narration\n",
		humanize.Bytes(uint64(len(page.ImageURL))),
		page.Audio.Duration().Round(100*time.Millisecond))
}
