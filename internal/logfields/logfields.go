package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRenderID   = "render_id"
	KeyPage       = "page"
	KeyNamespace  = "namespace"
	KeyTarget     = "target"
	KeyFragment   = "fragment"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyPath       = "path"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RenderID(id string) slog.Attr    { return slog.String(KeyRenderID, id) }
func Page(name string) slog.Attr      { return slog.String(KeyPage, name) }
func Namespace(ns string) slog.Attr   { return slog.String(KeyNamespace, ns) }
func Target(t string) slog.Attr       { return slog.String(KeyTarget, t) }
func Fragment(f string) slog.Attr     { return slog.String(KeyFragment, f) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
