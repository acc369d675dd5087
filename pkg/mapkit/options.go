package mapkit

import (
	"log/slog"
	"time"

	"github.com/OCAP2/mapkit/internal/schedule"
	"github.com/OCAP2/mapkit/pkg/core"
	"github.com/OCAP2/mapkit/pkg/widget"
)

// Defaults applied when a MapView is created without overriding options.
const (
	DefaultZoom           = 8
	DefaultDebounce       = 150 * time.Millisecond
	DefaultContainerClass = "infobox"
)

// DefaultCenter is the map center used when none is given.
var DefaultCenter = core.Point{Lat: 0, Lng: 0}

// Options configure a MapView. Zero values are replaced by DefaultOptions.
type Options struct {
	Center    core.Point
	Zoom      int
	DefaultUI bool
	// Debounce is the quiet period before viewport changes are acted on.
	Debounce time.Duration
	// Scheduler runs deferred work. Nil makes New create a Loop owned by
	// the map.
	Scheduler schedule.Scheduler
	Logger    *slog.Logger
	// Widget carries the remaining widget map settings. Center, Zoom and
	// DisableDefaultUI are taken from the fields above.
	Widget widget.MapOptions
}

// DefaultOptions returns a fresh copy of the defaults.
func DefaultOptions() Options {
	return Options{
		Center:    DefaultCenter,
		Zoom:      DefaultZoom,
		DefaultUI: true,
		Debounce:  DefaultDebounce,
		Widget: widget.MapOptions{
			ScrollWheel: true,
			Draggable:   true,
			MapTypeID:   "roadmap",
		},
	}
}

// Option is a functional option for New.
type Option func(*Options)

// WithCenter sets the initial center.
func WithCenter(p core.Point) Option {
	return func(o *Options) {
		o.Center = p
	}
}

// WithZoom sets the initial zoom level.
func WithZoom(level int) Option {
	return func(o *Options) {
		o.Zoom = level
	}
}

// WithDefaultUI toggles the widget's built-in controls.
func WithDefaultUI(enabled bool) Option {
	return func(o *Options) {
		o.DefaultUI = enabled
	}
}

// WithScheduler sets the scheduler used for debounce and auto-close timers.
// Its callbacks must run on the goroutine that drives the map.
func WithScheduler(s schedule.Scheduler) Option {
	return func(o *Options) {
		if s != nil {
			o.Scheduler = s
		}
	}
}

// WithLogger sets the logger for the map and everything attached to it.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithDebounce sets the viewport debounce period.
func WithDebounce(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Debounce = d
		}
	}
}

// WithMapOptions passes extra settings through to the widget.
func WithMapOptions(m widget.MapOptions) Option {
	return func(o *Options) {
		o.Widget = m
	}
}

func (o Options) widgetOptions() widget.MapOptions {
	m := o.Widget
	m.Center = o.Center
	m.Zoom = o.Zoom
	m.DisableDefaultUI = !o.DefaultUI
	return m
}

func validZoom(level int) bool {
	return level >= core.MinZoom && level <= core.MaxZoom
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
