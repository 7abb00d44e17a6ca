package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyHandler    = "handler"
	KeyPath       = "path"
	KeyOutput     = "output"
	KeyTemplate   = "template"
	KeyFilter     = "filter"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr        { return slog.String(KeyRunID, id) }
func Handler(name string) slog.Attr    { return slog.String(KeyHandler, name) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Output(p string) slog.Attr        { return slog.String(KeyOutput, p) }
func Template(id string) slog.Attr     { return slog.String(KeyTemplate, id) }
func Filter(name string) slog.Attr     { return slog.String(KeyFilter, name) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
