package commands

import (
	"context"
	"io"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/dirprocess/internal/config"
	"git.home.luguber.info/inful/dirprocess/internal/pipeline"
	"git.home.luguber.info/inful/dirprocess/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Resync   time.Duration `help:"Run a full pass at this interval (0 disables); overrides watch.resync_interval"`
	Debounce time.Duration `help:"Wait this long for changes to settle; overrides watch.debounce"`
}

func (c *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if c.Resync > 0 {
		cfg.Watch.ResyncInterval = c.Resync
	}
	if c.Debounce > 0 {
		cfg.Watch.Debounce = c.Debounce
	}

	ctx, cancel := signalContext()
	defer cancel()
	return RunWatch(ctx, cfg, g.out(), g.Logger)
}

// RunWatch processes the input tree and keeps processing changes until ctx is
// canceled. Run failures are reported but do not stop watching.
func RunWatch(ctx context.Context, cfg *config.Config, w io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := newStack(cfg, logger)
	if err != nil {
		return err
	}

	watcher := watch.New(cfg, s.runner,
		watch.WithLogger(logger),
		watch.WithReportHandler(func(report *pipeline.Report, _ error) {
			s.writeMetrics()
			if report != nil {
				printSummary(w, report)
			}
		}),
	)
	logger.Info("Starting watch mode", slog.String("input_root", cfg.InputRoot), slog.String("process_root", cfg.ProcessRoot))
	if err := watcher.Run(ctx); err != nil {
		return err
	}
	logger.Info("Watch mode stopped")
	return nil
}
