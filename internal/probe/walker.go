package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/agleyzer/hlshealth/internal/metrics"
	"github.com/agleyzer/hlshealth/internal/parser"
	"github.com/agleyzer/hlshealth/internal/segment"
	"github.com/agleyzer/hlshealth/pkg/container"
	"golang.org/x/sync/errgroup"
)

// Fetcher returns the full payload stored at a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// MediaLoader loads the media playlist of a variant.
type MediaLoader interface {
	LoadMedia(ctx context.Context, location string) (*parser.PlaylistInfo, error)
}

// Options configures a Walker.
type Options struct {
	// Segments is the number of leading segments sampled per variant.
	// Zero or less disables sampling.
	Segments int

	// Concurrency bounds parallel fetches within a variant. Values below 2
	// fetch sequentially. Probe order does not depend on it.
	Concurrency int

	// ContinueOnError records failed segment fetches and keeps sampling
	// instead of failing the walk.
	ContinueOnError bool

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Result holds the probes of one walk in variant, then segment order.
type Result struct {
	Probes   []SegmentProbe
	Failures []Failure
}

// Walker samples the leading segments of a playlist or of each of its variants.
type Walker struct {
	fetcher Fetcher
	loader  MediaLoader
	opts    Options
	logger  *slog.Logger
}

// NewWalker creates a new Walker. loader is only used for master playlists.
func NewWalker(fetcher Fetcher, loader MediaLoader, opts Options) *Walker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Walker{
		fetcher: fetcher,
		loader:  loader,
		opts:    opts,
		logger:  logger,
	}
}

// Walk fetches and classifies up to Options.Segments leading segments.
// Without ContinueOnError the first failed fetch aborts the walk.
func (w *Walker) Walk(ctx context.Context, info *parser.PlaylistInfo) (*Result, error) {
	result := &Result{}
	if w.opts.Segments <= 0 {
		return result, nil
	}

	if !info.IsMaster {
		if err := w.sample(ctx, NoVariant, info.Segments, result); err != nil {
			return nil, err
		}
		return result, nil
	}

	for i, v := range info.Variants {
		media, err := w.loader.LoadMedia(ctx, v.PlaylistURL)
		if err != nil {
			return nil, fmt.Errorf("variant %d: %w", i, err)
		}

		w.logger.Debug("sampling variant",
			"variantIndex", i,
			"bandwidth", v.Bandwidth,
			"segments", len(media.Segments),
		)

		if err := w.sample(ctx, Variant(i), media.Segments, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// sample probes the first Options.Segments of segments and appends the
// outcome to result in segment order.
func (w *Walker) sample(ctx context.Context, vi VariantIndex, segments []segment.Segment, result *Result) error {
	n := min(w.opts.Segments, len(segments))
	probes := make([]SegmentProbe, n)
	errs := make([]error, n)

	if w.opts.Concurrency < 2 {
		for i := 0; i < n; i++ {
			probes[i], errs[i] = w.probe(ctx, vi, i, segments[i].URL)
			if errs[i] != nil && !w.opts.ContinueOnError {
				return errs[i]
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.opts.Concurrency)
		for i := 0; i < n; i++ {
			g.Go(func() error {
				probes[i], errs[i] = w.probe(gctx, vi, i, segments[i].URL)
				if w.opts.ContinueOnError {
					return nil
				}
				return errs[i]
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			w.logger.Warn("segment probe failed",
				"variant", vi.String(),
				"segmentIndex", i,
				"url", segments[i].URL,
				"error", errs[i],
			)
			result.Failures = append(result.Failures, Failure{
				VariantIndex: vi,
				SegmentIndex: i,
				URL:          segments[i].URL,
				Err:          errs[i],
			})
			continue
		}
		result.Probes = append(result.Probes, probes[i])
	}
	return nil
}

func (w *Walker) probe(ctx context.Context, vi VariantIndex, idx int, url string) (SegmentProbe, error) {
	data, err := w.fetcher.Fetch(ctx, url)
	if err != nil {
		return SegmentProbe{}, fmt.Errorf("probe variant %s segment %d: %w", vi, idx, err)
	}

	p := SegmentProbe{
		VariantIndex: vi,
		SegmentIndex: idx,
		URL:          url,
		Container:    container.Sniff(data),
		SizeBytes:    len(data),
	}
	w.opts.Metrics.ObserveProbe(p.Container.String())

	w.logger.Debug("segment probed",
		"variant", vi.String(),
		"segmentIndex", idx,
		"container", p.Container.String(),
		"bytes", p.SizeBytes,
	)
	return p, nil
}
