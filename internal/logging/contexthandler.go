package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns attributes computed at log time.
type ContextProvider func() []slog.Attr

// ZoomReporter is satisfied by *mapkit.MapView.
type ZoomReporter interface {
	IsLoaded() bool
	CurrentZoom() int
}

// ViewContext stamps records with the view's zoom once it has loaded.
func ViewContext(v ZoomReporter) ContextProvider {
	return func() []slog.Attr {
		if v == nil || !v.IsLoaded() {
			return nil
		}
		return []slog.Attr{slog.Int("zoom", v.CurrentZoom())}
	}
}

// Providers chains several providers in order. Nil entries are skipped.
func Providers(ps ...ContextProvider) ContextProvider {
	return func() []slog.Attr {
		var out []slog.Attr
		for _, p := range ps {
			if p != nil {
				out = append(out, p()...)
			}
		}
		return out
	}
}

// ContextHandler wraps another handler and injects dynamic context attributes.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		if attrs := h.provider(); len(attrs) > 0 {
			r = r.Clone()
			r.AddAttrs(attrs...)
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), provider: h.provider}
}

// WithGroup scopes the inner handler. Provider attributes land inside the group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), provider: h.provider}
}
