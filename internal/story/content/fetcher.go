// Package content assembles the illustration and narration for a page.
package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"storyloom/internal/domain/story"
	"storyloom/internal/story/audio"
	"storyloom/internal/story/illustrate"
	"storyloom/internal/story/retry"
	"storyloom/internal/story/tts"
)

var ErrFetchFailed = errors.New("failed to fetch page content")

// Page is the playable content of one episode. It is only ever built
// with both parts present.
type Page struct {
	Index    int
	ImageURL string
	Audio    *audio.DecodedAudio
}

type Fetcher struct {
	illustrator illustrate.Illustrator
	narrator    tts.Engine
	policy      retry.Policy
	log         *logrus.Entry
	tracer      trace.Tracer
	group       singleflight.Group
}

type Options struct {
	Retry  retry.Policy
	Logger *logrus.Entry
}

func NewFetcher(illustrator illustrate.Illustrator, narrator tts.Engine, opts Options) *Fetcher {
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Fetcher{
		illustrator: illustrator,
		narrator:    narrator,
		policy:      opts.Retry,
		log:         opts.Logger,
		tracer:      otel.Tracer("storyloom/content"),
	}
}

// Fetch requests the illustration and narration for ep concurrently. A
// failure of either part fails the whole fetch. Calls for the same
// episode and style made while one is in flight share its result.
func (f *Fetcher) Fetch(ctx context.Context, ep story.Episode, style illustrate.Style) (*Page, error) {
	key := fmt.Sprintf("%d/%s", ep.Index, style)
	v, err, shared := f.group.Do(key, func() (any, error) {
		return f.fetch(ctx, ep, style)
	})
	if shared {
		f.log.WithField("episode", ep.Index).Debug("Joined in-flight fetch")
	}
	if err != nil {
		return nil, err
	}
	return v.(*Page), nil
}

func (f *Fetcher) fetch(ctx context.Context, ep story.Episode, style illustrate.Style) (*Page, error) {
	ctx, span := f.tracer.Start(ctx, "content.Fetch", trace.WithAttributes(
		attribute.Int("episode.index", ep.Index),
		attribute.String("style", string(style)),
	))
	defer span.End()

	log := f.log.WithFields(logrus.Fields{"episode": ep.Index, "style": style})
	started := time.Now()

	var (
		imageURL string
		pcm      []byte
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		url, err := retry.Do(gctx, f.policyFor(log, "illustration"), func() (string, error) {
			return f.illustrator.Illustrate(gctx, style.Prompt(ep.ImagePrompt))
		})
		if err != nil {
			return fmt.Errorf("illustration: %w", err)
		}
		imageURL = url
		return nil
	})
	g.Go(func() error {
		data, err := retry.Do(gctx, f.policyFor(log, "narration"), func() ([]byte, error) {
			return f.narrator.Synthesize(gctx, ep.Text)
		})
		if err != nil {
			return fmt.Errorf("narration: %w", err)
		}
		pcm = data
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, f.fail(span, log, ep, err)
	}

	decoded, err := audio.Decode(pcm, audio.Narration)
	if err != nil {
		return nil, f.fail(span, log, ep, fmt.Errorf("narration: %w", err))
	}

	log.WithFields(logrus.Fields{
		"took":     time.Since(started),
		"duration": decoded.Duration(),
	}).Debug("Fetched page")

	return &Page{Index: ep.Index, ImageURL: imageURL, Audio: decoded}, nil
}

func (f *Fetcher) fail(span trace.Span, log *logrus.Entry, ep story.Episode, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.WithError(err).Debug("Page fetch failed")
	return fmt.Errorf("%w: page %d: %w", ErrFetchFailed, ep.Index+1, err)
}

func (f *Fetcher) policyFor(log *logrus.Entry, part string) retry.Policy {
	p := f.policy
	if p.Notify == nil {
		p.Notify = func(err error, attempt int, wait time.Duration) {
			log.WithFields(logrus.Fields{
				"part":    part,
				"attempt": attempt,
				"wait":    wait,
			}).WithError(err).Warn("Rate limited, retrying")
		}
	}
	return p
}
