// internal/widget/memory/memory.go
package memory

import (
	"errors"
	"math"
	"sync"

	"github.com/OCAP2/mapkit/internal/events"
	"github.com/OCAP2/mapkit/internal/geo"
	"github.com/OCAP2/mapkit/pkg/core"
	"github.com/OCAP2/mapkit/pkg/widget"
)

// ErrNoContainer is returned by NewMap for a nil container
var ErrNoContainer = errors.New("memory widget: nil container")

// earth circumference at the equator in EPSG:3857 meters
const worldMeters = 2 * math.Pi * 6378137

const tileSize = 256

// Widget is a headless widget that keeps rendered state in memory and
// dispatches events synchronously on the calling goroutine.
type Widget struct {
	mu       sync.Mutex
	events   *events.Dispatcher
	geometry widget.Geometry
	viewport core.Size

	maps     []*Map
	markers  []*Marker
	overlays []*Overlay
	popups   []*Popup
}

// Option configures a Widget
type Option func(*Widget)

// WithoutGeometry builds a widget lacking the geodesic capability
func WithoutGeometry() Option {
	return func(w *Widget) {
		w.geometry = nil
	}
}

// WithViewport sets the pixel size used for fit-bounds zoom math
func WithViewport(size core.Size) Option {
	return func(w *Widget) {
		if size.Width > 0 && size.Height > 0 {
			w.viewport = size
		}
	}
}

// New creates a new memory widget
func New(logger events.Logger, opts ...Option) (*Widget, error) {
	d, err := events.New(logger)
	if err != nil {
		return nil, err
	}
	w := &Widget{
		events:   d,
		geometry: geo.Spherical{},
		viewport: core.Size{Width: 800, Height: 600},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// NewMap creates a map rendered into container
func (w *Widget) NewMap(container widget.Element, opts widget.MapOptions) (widget.Map, error) {
	if container == nil {
		return nil, ErrNoContainer
	}
	m := &Map{
		w:         w,
		container: container,
		opts:      opts,
		center:    opts.Center,
		zoom:      opts.Zoom,
	}
	w.mu.Lock()
	w.maps = append(w.maps, m)
	w.mu.Unlock()
	return m, nil
}

// NewMarker creates a detached marker
func (w *Widget) NewMarker(opts widget.MarkerOptions) (widget.Marker, error) {
	m := &Marker{w: w, opts: opts}
	if opts.Label != "" {
		m.label = &Label{marker: m}
	}
	w.mu.Lock()
	w.markers = append(w.markers, m)
	w.mu.Unlock()
	return m, nil
}

// NewPolygon creates a detached polygon overlay
func (w *Widget) NewPolygon(opts widget.PolygonOptions) (widget.Overlay, error) {
	o := &Overlay{
		Kind:    KindPolygon,
		Path:    append([]core.Point(nil), opts.Path...),
		Polygon: opts,
	}
	w.addOverlay(o)
	return o, nil
}

// NewGroundOverlay creates a detached image overlay
func (w *Widget) NewGroundOverlay(imageURL string, bounds core.Bounds, opts widget.GroundOverlayOptions) (widget.Overlay, error) {
	o := &Overlay{
		Kind:     KindGround,
		ImageURL: imageURL,
		Bounds:   bounds,
		Ground:   opts,
	}
	w.addOverlay(o)
	return o, nil
}

func (w *Widget) addOverlay(o *Overlay) {
	w.mu.Lock()
	w.overlays = append(w.overlays, o)
	w.mu.Unlock()
}

// NewPopup creates a closed popup
func (w *Widget) NewPopup(opts widget.PopupOptions) (widget.Popup, error) {
	p := &Popup{w: w, opts: opts}
	w.mu.Lock()
	w.popups = append(w.popups, p)
	w.mu.Unlock()
	return p, nil
}

// AddListener registers cb for event on target
func (w *Widget) AddListener(target widget.EventTarget, event string, cb func(widget.Event)) widget.Listener {
	return w.events.On(target, event, cb)
}

// Geometry returns the geodesic helpers, or nil when disabled
func (w *Widget) Geometry() widget.Geometry {
	return w.geometry
}

// Trigger dispatches a pointer or lifecycle event at target and returns
// the number of listeners called.
func (w *Widget) Trigger(target widget.EventTarget, name string) int {
	return w.events.Dispatch(widget.Event{Name: name, Target: target})
}

// Listeners returns the number of registered listeners
func (w *Widget) Listeners() int {
	return w.events.Len()
}

// Maps returns every map created so far
func (w *Widget) Maps() []*Map {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*Map(nil), w.maps...)
}

// Popups returns every popup created so far
func (w *Widget) Popups() []*Popup {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*Popup(nil), w.popups...)
}

// Rendered returns the markers currently attached to m
func (w *Widget) Rendered(m widget.Map) []*Marker {
	w.mu.Lock()
	all := append([]*Marker(nil), w.markers...)
	w.mu.Unlock()

	var out []*Marker
	for _, mk := range all {
		if mk.attachedTo(m) {
			out = append(out, mk)
		}
	}
	return out
}

// RenderedOverlays returns the overlays currently attached to m
func (w *Widget) RenderedOverlays(m widget.Map) []*Overlay {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*Overlay
	for _, o := range w.overlays {
		if o.m != nil && o.m == m {
			out = append(out, o)
		}
	}
	return out
}

// OpenPopups returns the popups currently open
func (w *Widget) OpenPopups() []*Popup {
	var out []*Popup
	for _, p := range w.Popups() {
		if p.IsOpen() {
			out = append(out, p)
		}
	}
	return out
}

func (w *Widget) fire(target widget.EventTarget, name string) {
	w.events.Dispatch(widget.Event{Name: name, Target: target})
}

// Map is a headless map
type Map struct {
	w         *Widget
	container widget.Element
	opts      widget.MapOptions

	mu     sync.Mutex
	center core.Point
	zoom   int
	fits   int
}

// Options returns the options the map was created with
func (m *Map) Options() widget.MapOptions {
	return m.opts
}

// Container returns the element the map renders into
func (m *Map) Container() widget.Element {
	return m.container
}

// SetCenter moves the map without animation
func (m *Map) SetCenter(p core.Point) {
	m.mu.Lock()
	m.center = p
	m.mu.Unlock()
	m.w.fire(m, widget.EventCenterChanged)
	m.w.fire(m, widget.EventBoundsChanged)
}

// PanTo pans the map; there is no animation to run headless
func (m *Map) PanTo(p core.Point) {
	m.SetCenter(p)
}

// Center returns the current center
func (m *Map) Center() core.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.center
}

// SetZoom changes the zoom level, firing zoom_changed only on change
func (m *Map) SetZoom(level int) {
	m.mu.Lock()
	changed := m.zoom != level
	m.zoom = level
	m.mu.Unlock()
	if changed {
		m.w.fire(m, widget.EventZoomChanged)
		m.w.fire(m, widget.EventBoundsChanged)
	}
}

// Zoom returns the current zoom level
func (m *Map) Zoom() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.zoom
}

// FitBounds picks the highest zoom at which b fits the viewport and
// centers on it. The zoom change is announced before the bounds change.
func (m *Map) FitBounds(b core.Bounds) {
	zoom := m.w.zoomFor(b)

	m.mu.Lock()
	m.fits++
	changed := m.zoom != zoom
	m.zoom = zoom
	m.center = b.Center()
	m.mu.Unlock()

	if changed {
		m.w.fire(m, widget.EventZoomChanged)
	}
	m.w.fire(m, widget.EventCenterChanged)
	m.w.fire(m, widget.EventBoundsChanged)
}

// Fits returns how many times FitBounds was called
func (m *Map) Fits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fits
}

func (w *Widget) zoomFor(b core.Bounds) int {
	x1, y1 := geo.ToMercator(b.SouthWest)
	x2, y2 := geo.ToMercator(b.NorthEast)
	dx, dy := math.Abs(x2-x1), math.Abs(y2-y1)
	width, height := float64(w.viewport.Width), float64(w.viewport.Height)

	for z := core.MaxZoom; z > core.MinZoom; z-- {
		metersPerPixel := worldMeters / (tileSize * math.Exp2(float64(z)))
		if dx/metersPerPixel <= width && dy/metersPerPixel <= height {
			return z
		}
	}
	return core.MinZoom
}

// Marker is a headless marker
type Marker struct {
	w     *Widget
	opts  widget.MarkerOptions
	label *Label

	mu   sync.Mutex
	m    widget.Map
	data any
}

// Label is the event-capture element of a labelled marker
type Label struct {
	marker *Marker
}

// Marker returns the marker the label belongs to
func (l *Label) Marker() *Marker {
	return l.marker
}

// Options returns the options the marker was created with
func (mk *Marker) Options() widget.MarkerOptions {
	return mk.opts
}

// SetMap attaches the marker to m, or detaches it when m is nil
func (mk *Marker) SetMap(m widget.Map) {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	mk.m = m
}

// Map returns the map the marker is attached to
func (mk *Marker) Map() widget.Map {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	return mk.m
}

func (mk *Marker) attachedTo(m widget.Map) bool {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	return mk.m != nil && mk.m == m
}

// Position returns the marker position
func (mk *Marker) Position() core.Point {
	return mk.opts.Position
}

// SetData stores arbitrary user data on the marker
func (mk *Marker) SetData(data any) {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	mk.data = data
}

// Data returns the user data
func (mk *Marker) Data() any {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	return mk.data
}

// EventTarget returns the label for labelled markers, else the marker
func (mk *Marker) EventTarget() widget.EventTarget {
	if mk.label != nil {
		return mk.label
	}
	return mk
}

// Overlay kinds
const (
	KindPolygon = "polygon"
	KindGround  = "ground"
)

// Overlay is a headless polygon or ground overlay
type Overlay struct {
	Kind     string
	Path     []core.Point
	ImageURL string
	Bounds   core.Bounds
	Polygon  widget.PolygonOptions
	Ground   widget.GroundOverlayOptions

	m widget.Map
}

// SetMap attaches the overlay to m, or detaches it when m is nil
func (o *Overlay) SetMap(m widget.Map) {
	o.m = m
}

// Map returns the map the overlay is attached to
func (o *Overlay) Map() widget.Map {
	return o.m
}

// Popup is a headless infobox
type Popup struct {
	w    *Widget
	opts widget.PopupOptions

	mu      sync.Mutex
	content widget.Content
	open    bool
	anchor  widget.Marker
	opened  int
}

// Options returns the options the popup was created with
func (p *Popup) Options() widget.PopupOptions {
	return p.opts
}

// SetContent replaces the popup content
func (p *Popup) SetContent(c widget.Content) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.content = c
}

// HTML renders the current content
func (p *Popup) HTML() string {
	p.mu.Lock()
	c := p.content
	p.mu.Unlock()
	if c == nil {
		return ""
	}
	return c.HTML()
}

// Open shows the popup anchored at anchor and fires domready
func (p *Popup) Open(m widget.Map, anchor widget.Marker) {
	p.mu.Lock()
	p.open = true
	p.anchor = anchor
	p.opened++
	p.mu.Unlock()
	p.w.fire(p, widget.EventDOMReady)
}

// Close hides the popup
func (p *Popup) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
	p.anchor = nil
}

// IsOpen reports whether the popup is showing
func (p *Popup) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// Anchor returns the marker the popup is open on
func (p *Popup) Anchor() widget.Marker {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.anchor
}

// Opened returns how many times the popup was opened
func (p *Popup) Opened() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opened
}

// EventTarget returns the popup itself
func (p *Popup) EventTarget() widget.EventTarget {
	return p
}

// ClickClose simulates the user pressing the close icon
func (p *Popup) ClickClose() {
	p.Close()
	p.w.fire(p, widget.EventCloseClick)
}
