package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// Exit codes returned by the dirprocess CLI.
const (
	ExitOK          = 0
	ExitGeneral     = 1
	ExitUsage       = 2
	ExitConfig      = 7
	ExitTemplate    = 9
	ExitInternal    = 10
	ExitOutput      = 11
	ExitRuntime     = 12
	ExitInterrupted = 130
)

// CLIErrorAdapter turns run errors into a message on stderr and a process
// exit code.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	stderr  io.Writer
	exit    func(int)
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
		stderr:  os.Stderr,
		exit:    os.Exit,
	}
}

// ExitCodeFor determines the exit code for err. Interrupted runs exit with
// 130 like a shell does for SIGINT.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case stderrors.Is(err, context.Canceled):
		return ExitInterrupted
	}

	dpe, ok := As(err)
	if !ok {
		return ExitGeneral
	}
	switch dpe.Category {
	case CategoryValidation:
		return ExitUsage
	case CategoryConfig:
		return ExitConfig
	case CategoryTemplate, CategoryRender, CategoryHandler:
		return ExitTemplate
	case CategoryFileSystem:
		return ExitOutput
	case CategoryRuntime:
		return ExitRuntime
	case CategoryInternal:
		return ExitInternal
	default:
		return ExitGeneral
	}
}

// FormatError renders err for the terminal. Configuration and validation
// errors name the offending key or path so the user can fix the file.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	dpe, ok := As(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}
	if a.verbose {
		return err.Error()
	}

	switch dpe.Category {
	case CategoryConfig, CategoryValidation:
		if detail := contextSummary(dpe.Context); detail != "" {
			return fmt.Sprintf("%s (%s)", dpe.Message, detail)
		}
		return dpe.Message
	default:
		return fmt.Sprintf("%s: %s", dpe.Category, dpe.Message)
	}
}

func contextSummary(fields ContextFields) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, ", ")
}

// HandleError reports err and exits. It is a no-op for nil.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	if a.shouldLog(err) {
		a.logError(err)
	}
	_, _ = fmt.Fprintln(a.stderr, a.FormatError(err))
	a.exit(a.ExitCodeFor(err))
}

func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	if dpe, ok := As(err); ok {
		return dpe.Category == CategoryInternal ||
			dpe.Category == CategoryRuntime ||
			dpe.Severity == SeverityFatal
	}
	return true
}

func (a *CLIErrorAdapter) logError(err error) {
	dpe, ok := As(err)
	if !ok {
		a.logger.Error("Unclassified error", "error", err)
		return
	}

	attrs := []slog.Attr{slog.String("category", string(dpe.Category))}
	for key, value := range dpe.Context {
		attrs = append(attrs, slog.Any(key, value))
	}
	if dpe.Cause != nil {
		attrs = append(attrs, slog.String("cause", dpe.Cause.Error()))
	}
	a.logger.LogAttrs(context.Background(), severityLevel(dpe.Severity), dpe.Message, attrs...)
}

func severityLevel(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
