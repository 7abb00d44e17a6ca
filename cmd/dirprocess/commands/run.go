package commands

import (
	"context"
	"io"
	"log/slog"

	"git.home.luguber.info/inful/dirprocess/internal/config"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	Workers int `short:"w" help:"Override the number of parallel workers"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if r.Workers > 0 {
		cfg.Workers = r.Workers
	}

	ctx, cancel := signalContext()
	defer cancel()
	return RunPipeline(ctx, cfg, g.out(), g.Logger)
}

// RunPipeline processes the whole input tree described by cfg.
func RunPipeline(ctx context.Context, cfg *config.Config, w io.Writer, logger *slog.Logger) error {
	s, err := newStack(cfg, logger)
	if err != nil {
		return err
	}
	report, err := s.runner.Run(ctx)
	return s.finish(w, report, err)
}
