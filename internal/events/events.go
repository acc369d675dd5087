// Package events routes widget events to listeners registered per target
// and event name.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OCAP2/mapkit/pkg/widget"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Handler processes a dispatched event.
type Handler func(widget.Event)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures listener registration.
type Option func(*config)

type config struct {
	logged bool
	once   bool
}

// Logged adds debug logging around the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Once removes the listener after its first call.
func Once() Option {
	return func(c *config) {
		c.once = true
	}
}

type key struct {
	target widget.EventTarget
	name   string
}

// Registration is a registered listener. It implements widget.Listener.
type Registration struct {
	d   *Dispatcher
	key key
	id  uint64
	h   Handler
}

// Remove detaches the listener. Removing twice is a no-op.
func (r *Registration) Remove() {
	r.d.remove(r.key, r.id)
}

// Dispatcher routes events to registered listeners. Targets must be
// comparable; pointers are the usual choice.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[key][]*Registration
	nextID    uint64
	logger    Logger

	// OTEL metrics
	dispatched metric.Int64Counter
	active     metric.Int64ObservableGauge
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = nopLogger{}
	}
	d := &Dispatcher{
		listeners: make(map[key][]*Registration),
		logger:    logger,
	}

	m := meter()

	var err error

	d.dispatched, err = m.Int64Counter(
		"widget.events.dispatched",
		metric.WithDescription("Total event deliveries to listeners"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dispatched counter: %w", err)
	}

	d.active, err = m.Int64ObservableGauge(
		"widget.listeners.active",
		metric.WithDescription("Current number of registered listeners"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating listeners gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(d.active, int64(d.Len()))
			return nil
		},
		d.active,
	)
	if err != nil {
		return nil, fmt.Errorf("registering listeners callback: %w", err)
	}

	return d, nil
}

// On registers h for events named name on target.
func (d *Dispatcher) On(target widget.EventTarget, name string, h Handler, opts ...Option) *Registration {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	k := key{target: target, name: name}

	d.mu.Lock()
	d.nextID++
	r := &Registration{d: d, key: k, id: d.nextID}
	d.mu.Unlock()

	handler := h
	if cfg.logged {
		handler = d.withLogging(name, handler)
	}
	if cfg.once {
		inner := handler
		handler = func(e widget.Event) {
			r.Remove()
			inner(e)
		}
	}
	r.h = handler

	d.mu.Lock()
	d.listeners[k] = append(d.listeners[k], r)
	d.mu.Unlock()

	return r
}

// Dispatch delivers e to every listener on e.Target for e.Name, in
// registration order, and returns how many were called. Listeners added or
// removed by a handler take effect from the next dispatch.
func (d *Dispatcher) Dispatch(e widget.Event) int {
	k := key{target: e.Target, name: e.Name}

	d.mu.RLock()
	snapshot := make([]*Registration, len(d.listeners[k]))
	copy(snapshot, d.listeners[k])
	d.mu.RUnlock()

	for _, r := range snapshot {
		r.h(e)
	}

	if len(snapshot) > 0 {
		d.dispatched.Add(context.Background(), int64(len(snapshot)),
			metric.WithAttributes(attribute.String("event", e.Name)))
	}
	return len(snapshot)
}

// HasListener returns true if anything listens for name on target.
func (d *Dispatcher) HasListener(target widget.EventTarget, name string) bool {
	return d.Count(target, name) > 0
}

// Count returns the number of listeners for name on target.
func (d *Dispatcher) Count(target widget.EventTarget, name string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[key{target: target, name: name}])
}

// Len returns the total number of registered listeners.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, regs := range d.listeners {
		n += len(regs)
	}
	return n
}

// RemoveTarget detaches every listener bound to target.
func (d *Dispatcher) RemoveTarget(target widget.EventTarget) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k := range d.listeners {
		if k.target == target {
			delete(d.listeners, k)
		}
	}
}

func (d *Dispatcher) remove(k key, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	regs := d.listeners[k]
	for i, r := range regs {
		if r.id == id {
			d.listeners[k] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(d.listeners[k]) == 0 {
		delete(d.listeners, k)
	}
}

func (d *Dispatcher) withLogging(name string, h Handler) Handler {
	return func(e widget.Event) {
		start := time.Now()
		d.logger.Debug("handling event", "event", name)
		h(e)
		d.logger.Debug("event complete", "event", name, "duration", time.Since(start))
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
