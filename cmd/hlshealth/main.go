// The hlshealth command inspects HLS playlists and classifies the container
// format of their leading media segments.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/agleyzer/hlshealth/internal/analyzer"
	"github.com/agleyzer/hlshealth/internal/config"
	"github.com/agleyzer/hlshealth/internal/fetch"
	"github.com/agleyzer/hlshealth/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

const (
	version = "1.0.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Stdout, os.Stderr, os.Args)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute runs the command line. Options may follow the playlist location.
func execute(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	app := newApp(stdout, stderr)
	return app.RunContext(ctx, hoistFlags(app.Flags, args))
}

// hoistFlags moves options ahead of positional arguments, since flag
// parsing stops at the first positional one. Everything after "--" stays
// positional.
func hoistFlags(flags []cli.Flag, args []string) []string {
	if len(args) == 0 {
		return args
	}

	boolFlags := map[string]bool{}
	for _, f := range flags {
		if _, ok := f.(*cli.BoolFlag); ok {
			for _, name := range f.Names() {
				boolFlags[name] = true
			}
		}
	}

	var opts, positional []string
	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		arg := rest[i]
		switch {
		case arg == "--":
			positional = append(positional, rest[i+1:]...)
			i = len(rest)
		case len(arg) > 1 && arg[0] == '-':
			opts = append(opts, arg)
			name := strings.TrimLeft(arg, "-")
			if strings.Contains(name, "=") || boolFlags[name] || !isFlag(flags, name) {
				continue
			}
			if i+1 < len(rest) {
				i++
				opts = append(opts, rest[i])
			}
		default:
			positional = append(positional, arg)
		}
	}

	out := append([]string{args[0]}, opts...)
	if len(positional) > 0 {
		out = append(out, "--")
		out = append(out, positional...)
	}
	return out
}

func isFlag(flags []cli.Flag, name string) bool {
	for _, f := range flags {
		for _, n := range f.Names() {
			if n == name {
				return true
			}
		}
	}
	return false
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:            "hlshealth",
		Usage:           "Analyze HLS playlists and sample segments for health/timing info",
		ArgsUsage:       "<playlist-url-or-path>",
		Version:         version,
		Writer:          stdout,
		ErrWriter:       stderr,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "segments",
				Aliases: []string{"s"},
				Value:   0,
				Usage:   "Number of segments per variant to sample (0 = no segment fetch)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit JSON instead of text output",
			},
			&cli.Float64Flag{
				Name:  "timeout",
				Value: 10,
				Usage: "HTTP timeout in seconds",
			},
			&cli.IntFlag{
				Name:  "retries",
				Value: 2,
				Usage: "HTTP retry attempts for transient errors",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Value: 1,
				Usage: "Parallel segment fetches per variant",
			},
			&cli.BoolFlag{
				Name:  "continue-on-error",
				Usage: "Record failed segment fetches in the report instead of aborting",
			},
			&cli.PathFlag{
				Name:  "config",
				Usage: "YAML configuration file; flags override its values",
			},
			&cli.PathFlag{
				Name:  "metrics-file",
				Usage: "Write Prometheus metrics to this file after the run",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose logging",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				cli.ShowAppHelp(c)
				return fmt.Errorf("playlist URL is required")
			}
			if c.NArg() > 1 {
				return fmt.Errorf("unexpected arguments after playlist URL: %s", strings.Join(c.Args().Tail(), " "))
			}

			cfg, err := buildConfig(c)
			if err != nil {
				return err
			}

			return run(c.Context, c.Args().First(), cfg, c.Bool("verbose"), stdout, stderr)
		},
	}
}

// buildConfig layers the config file and explicitly set flags over the defaults.
func buildConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default(version)

	if c.IsSet("config") {
		loaded, err := config.Load(c.Path("config"), cfg)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("segments") {
		cfg.Segments = c.Int("segments")
	}
	if c.IsSet("json") && c.Bool("json") {
		cfg.Format = config.FormatJSON
	}
	if c.IsSet("timeout") {
		cfg.Timeout = time.Duration(c.Float64("timeout") * float64(time.Second))
	}
	if c.IsSet("retries") {
		cfg.Retries = c.Int("retries")
	}
	if c.IsSet("concurrency") {
		cfg.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("continue-on-error") {
		cfg.ContinueOnError = c.Bool("continue-on-error")
	}
	if c.IsSet("metrics-file") {
		cfg.MetricsFile = c.Path("metrics-file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, location string, cfg *config.Config, verbose bool, stdout, stderr io.Writer) error {
	// Setup logger; stdout is reserved for the report
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	logger.Debug("hlshealth starting", "version", version, "segments", cfg.Segments)

	var (
		reg *prometheus.Registry
		m   *metrics.Metrics
	)
	if cfg.MetricsFile != "" {
		reg = prometheus.NewRegistry()
		m = metrics.New(reg)
	}

	rep, runErr := analyzer.Run(ctx, location, analyzer.Options{
		Config:      cfg,
		Logger:      logger,
		FetchLogger: fetch.NewLogger(stderr, verbose),
		Metrics:     m,
	})

	// Metrics are written for failed runs too
	if reg != nil {
		if err := metrics.WriteFile(cfg.MetricsFile, reg); err != nil {
			logger.Error("failed to write metrics", "path", cfg.MetricsFile, "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}

	if cfg.Format == config.FormatJSON {
		return rep.WriteJSON(stdout)
	}
	return rep.WriteText(stdout)
}
