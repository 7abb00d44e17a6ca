package normalize

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/dirprocess/internal/logfields"
)

// TidyBinary is the executable looked up on PATH.
const TidyBinary = "tidy"

// Tidy runs HTML Tidy as a subprocess in XML mode.
type Tidy struct {
	path     string
	width    int
	fallback Normalizer
	logger   *slog.Logger
}

// NewTidy creates a normalizer for the tidy executable at path. When tidy
// fails the in-process normalizer is used if it was compiled in.
func NewTidy(path string, opts ...Option) *Tidy {
	o := buildOptions(opts)
	return newTidy(path, o, inProcess(o))
}

func newTidy(path string, o options, fallback Normalizer) *Tidy {
	return &Tidy{path: path, width: o.width, fallback: fallback, logger: o.logger}
}

// Name implements Normalizer.
func (t *Tidy) Name() string { return "tidy" }

func (t *Tidy) args() []string {
	width := t.width
	if width < 1 {
		width = 0
	}
	return []string{
		"-quiet",
		"-indent",
		"-xml",
		"--output-xml", "yes",
		"--wrap", strconv.Itoa(width),
		"--char-encoding", "utf8",
		"--show-warnings", "no",
		"--tidy-mark", "no",
	}
}

// Normalize implements Normalizer. Tidy exits with 1 on warnings, which still
// produces output; 2 and above means it gave up.
func (t *Tidy) Normalize(ctx context.Context, markup string) string {
	if strings.TrimSpace(markup) == "" {
		return markup
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.path, t.args()...)
	cmd.Stdin = strings.NewReader(markup)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() >= 2 {
			t.logger.Debug("tidy failed, falling back",
				logfields.Stage("normalize"),
				slog.String("stderr", strings.TrimSpace(stderr.String())),
				logfields.Error(err))
			return t.fall(ctx, markup)
		}
	}
	if stdout.Len() == 0 {
		return t.fall(ctx, markup)
	}
	return stdout.String()
}

func (t *Tidy) fall(ctx context.Context, markup string) string {
	if t.fallback == nil {
		return markup
	}
	return t.fallback.Normalize(ctx, markup)
}
