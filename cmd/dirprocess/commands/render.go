package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/dirprocess/internal/config"
)

// RenderCmd implements the 'render' command.
type RenderCmd struct {
	Files []string `arg:"" name:"file" help:"Source files under the input root" type:"path"`
}

func (r *RenderCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	return RenderFiles(ctx, cfg, r.Files, g.out(), g.Logger)
}

// RenderFiles runs the pipeline on the given files only. Each file goes to
// the handler claiming its extension; files no handler claims are copied.
func RenderFiles(ctx context.Context, cfg *config.Config, files []string, w io.Writer, logger *slog.Logger) error {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", f, err)
		}
		paths = append(paths, abs)
	}

	s, err := newStack(cfg, logger)
	if err != nil {
		return err
	}
	report, err := s.runner.ProcessFiles(ctx, paths)
	return s.finish(w, report, err)
}
