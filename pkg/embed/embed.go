// Package embed mounts a MapView inside a host UI container and tells the
// host when the map is ready.
package embed

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/OCAP2/mapkit/internal/events"
	"github.com/OCAP2/mapkit/internal/logging"
	"github.com/OCAP2/mapkit/pkg/binding"
	"github.com/OCAP2/mapkit/pkg/core"
	"github.com/OCAP2/mapkit/pkg/mapkit"
	"github.com/OCAP2/mapkit/pkg/widget"
)

// EventReady is dispatched on the adapter once its map is constructed.
const EventReady = "ready"

// ErrUnmounted is returned by Init after Unmount.
var ErrUnmounted = errors.New("adapter unmounted")

// Host is the UI node the map renders into.
type Host interface {
	Container() widget.Element
	Scope() binding.Scope
}

// StaticHost is a Host with fixed values.
type StaticHost struct {
	Element widget.Element
	Data    binding.Scope
}

func (h StaticHost) Container() widget.Element { return h.Element }
func (h StaticHost) Scope() binding.Scope      { return h.Data }

// Options configures Mount.
type Options struct {
	Widget widget.Widget
	// Renderer defaults to an html/template renderer.
	Renderer binding.Renderer
	// Manual defers map construction until Init is called.
	Manual bool
	Map    []mapkit.Option
	Logger *slog.Logger
}

// Adapter owns the MapView of one mounted container.
type Adapter struct {
	host   Host
	opts   Options
	base   *slog.Logger
	logger *slog.Logger
	events *events.Dispatcher

	mu        sync.Mutex
	view      *mapkit.MapView
	ready     chan struct{}
	unmounted bool
	err       error
}

// Mount attaches an adapter to host. Unless opts.Manual is set the map is
// constructed right away; a failure is logged and kept for Err.
func Mount(host Host, opts Options) *Adapter {
	base := opts.Logger
	if base == nil {
		base = slog.Default()
	}
	logger := base.With("component", "embed")
	if opts.Renderer == nil {
		opts.Renderer = binding.NewTemplateRenderer(nil)
	}

	d, err := events.New(logging.NewSlogEvents(logger))
	if err != nil {
		logger.Error("event dispatcher unavailable", "error", err)
	}

	a := &Adapter{
		host:   host,
		opts:   opts,
		base:   base,
		logger: logger,
		events: d,
		ready:  make(chan struct{}),
	}
	if !opts.Manual {
		a.Init()
	}
	return a
}

// Init constructs the map once. Later calls return the existing map.
func (a *Adapter) Init() (*mapkit.MapView, error) {
	a.mu.Lock()
	if a.unmounted {
		a.mu.Unlock()
		return nil, ErrUnmounted
	}
	if a.view != nil {
		v := a.view
		a.mu.Unlock()
		a.logger.Debug("already initialized")
		return v, nil
	}

	v, err := a.build()
	if err != nil {
		a.err = err
		a.mu.Unlock()
		a.logger.Error("map init failed", "op", "Init", "error", err)
		return nil, err
	}
	a.view, a.err = v, nil
	close(a.ready)
	a.mu.Unlock()

	a.logger.Info("map ready", "manual", a.opts.Manual)
	if a.events != nil {
		a.events.Dispatch(widget.Event{Name: EventReady, Target: a})
	}
	return v, nil
}

func (a *Adapter) build() (*mapkit.MapView, error) {
	if a.host == nil {
		return nil, fmt.Errorf("mount: no host: %w", core.ErrInvalidContainer)
	}
	opts := append([]mapkit.Option{mapkit.WithLogger(a.base)}, a.opts.Map...)
	return mapkit.New(a.opts.Widget, a.host.Container(), a.host.Scope(), a.opts.Renderer, opts...)
}

// OnReady registers fn to receive the map. If the map is already ready fn
// runs immediately.
func (a *Adapter) OnReady(fn func(*mapkit.MapView)) {
	if fn == nil {
		return
	}
	if v := a.MapView(); v != nil {
		fn(v)
		return
	}
	if a.events == nil {
		return
	}
	a.events.On(a, EventReady, func(widget.Event) { fn(a.MapView()) }, events.Once())
}

// Ready is closed once the map is constructed.
func (a *Adapter) Ready() <-chan struct{} {
	return a.ready
}

// MapView returns the constructed map, or nil.
func (a *Adapter) MapView() *mapkit.MapView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

func (a *Adapter) Manual() bool {
	return a.opts.Manual
}

// Err returns the last Init failure.
func (a *Adapter) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Unmount releases the map's listeners and drops it. Pending OnReady
// callbacks never fire.
func (a *Adapter) Unmount() {
	a.mu.Lock()
	v := a.view
	a.view = nil
	a.unmounted = true
	a.mu.Unlock()

	if v != nil {
		v.Close()
	}
	if a.events != nil {
		a.events.RemoveTarget(a)
	}
}
