// Package analyzer runs a playlist health check: it loads the playlist,
// samples segments and assembles the report.
package analyzer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/agleyzer/hlshealth/internal/config"
	"github.com/agleyzer/hlshealth/internal/fetch"
	"github.com/agleyzer/hlshealth/internal/metrics"
	"github.com/agleyzer/hlshealth/internal/parser"
	"github.com/agleyzer/hlshealth/internal/probe"
	"github.com/agleyzer/hlshealth/internal/report"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Options configures a run.
type Options struct {
	Config *config.Config
	Logger *slog.Logger
	// FetchLogger receives HTTP retry logs; nil discards them.
	FetchLogger hclog.Logger
	Metrics     *metrics.Metrics
}

// Run analyzes the playlist at location. On error no report is returned.
func Run(ctx context.Context, location string, opts Options) (*report.Report, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client := fetch.New(fetch.Options{
		Timeout: cfg.Timeout,
		Policy: fetch.Policy{
			MaxRetries:    cfg.Retries,
			BackoffMin:    cfg.BackoffMin,
			BackoffMax:    cfg.BackoffMax,
			RetryStatuses: cfg.RetryStatuses,
		},
		UserAgent: cfg.UserAgent,
		Logger:    opts.FetchLogger,
		Metrics:   opts.Metrics,
	})
	defer client.Close()

	loader := parser.NewLoader(client)

	logger.Info("fetching playlist", "location", location)
	info, err := loader.Load(ctx, location)
	if err != nil {
		return nil, err
	}

	if info.IsMaster {
		logger.Info("parsed master playlist", "variants", len(info.Variants))
	} else {
		logger.Info("parsed media playlist",
			"segments", len(info.Segments),
			"targetDuration", info.TargetDuration,
			"live", info.IsLive,
		)
	}

	walker := probe.NewWalker(client, loader, probe.Options{
		Segments:        cfg.Segments,
		Concurrency:     cfg.Concurrency,
		ContinueOnError: cfg.ContinueOnError,
		Logger:          logger,
		Metrics:         opts.Metrics,
	})

	result, err := walker.Walk(ctx, info)
	if err != nil {
		return nil, fmt.Errorf("sample segments: %w", err)
	}

	if cfg.Segments > 0 {
		logger.Info("sampled segments",
			"probes", len(result.Probes),
			"failures", len(result.Failures),
		)
	}

	return &report.Report{
		RunID:         uuid.NewString(),
		GeneratedAt:   time.Now().UTC(),
		Playlist:      report.Summarize(location, info),
		Variants:      report.Variants(info),
		Sampled:       cfg.Segments > 0,
		SegmentProbes: result.Probes,
		ProbeErrors:   result.Failures,
	}, nil
}
