// Package mapkit is a facade over an interactive mapping widget: markers
// with popups and event hooks, marker clustering, polygon and image
// overlays, and viewport control.
//
// A MapView and everything attached to it are driven from a single
// goroutine. Deferred work (debounce, auto-close) is queued on the map's
// schedule.Loop and runs when that goroutine calls Loop().RunPending or
// Loop().Run. A caller-supplied Scheduler takes the loop's place.
package mapkit

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/OCAP2/mapkit/internal/cache"
	"github.com/OCAP2/mapkit/internal/geo"
	"github.com/OCAP2/mapkit/internal/schedule"
	"github.com/OCAP2/mapkit/pkg/binding"
	"github.com/OCAP2/mapkit/pkg/core"
	"github.com/OCAP2/mapkit/pkg/widget"
)

// MapView owns a rendered widget map, the markers attached to it and its
// overlays.
type MapView struct {
	widget   widget.Widget
	handle   widget.Map
	scope    binding.Scope
	renderer binding.Renderer
	opts     Options
	logger   *slog.Logger

	markers  *cache.Registry[string, *Marker]
	overlays []*Overlay

	// set while FitBounds drives the viewport so the resulting zoom change
	// does not close popups
	fitting bool

	listeners []widget.Listener
	// loop is set when the map created its own scheduler
	loop *schedule.Loop
}

// New renders a map into container. scope and renderer are the host's
// binding context used to compile popup and label markup.
func New(w widget.Widget, container widget.Element, scope binding.Scope, renderer binding.Renderer, opts ...Option) (*MapView, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := loggerOr(o.Logger).With("component", "mapview")

	if w == nil {
		logger.Error("widget not loaded", "op", "new")
		return nil, fmt.Errorf("new map: %w", core.ErrMissingDependency)
	}
	if container == nil {
		logger.Error("no container element", "op", "new")
		return nil, fmt.Errorf("new map: %w", core.ErrInvalidContainer)
	}
	if scope == nil || renderer == nil {
		logger.Error("no binding context", "op", "new")
		return nil, fmt.Errorf("new map: %w", core.ErrMissingBindingContext)
	}
	if !validZoom(o.Zoom) {
		logger.Warn("initial zoom out of range, using default", "op", "new", "zoom", o.Zoom)
		o.Zoom = DefaultZoom
	}
	if !o.Center.Valid() {
		logger.Warn("initial center invalid, using default", "op", "new", "center", o.Center.String())
		o.Center = DefaultCenter
	}

	handle, err := w.NewMap(container, o.widgetOptions())
	if err != nil {
		logger.Error("widget failed to create map", "op", "new", "error", err)
		return nil, fmt.Errorf("new map: %w", err)
	}

	v := &MapView{
		widget:   w,
		handle:   handle,
		scope:    scope,
		renderer: renderer,
		opts:     o,
		logger:   logger.With("container", container.ID()),
		markers:  cache.NewRegistry[string, *Marker](),
	}
	if v.opts.Scheduler == nil {
		v.loop = schedule.NewLoop()
		v.opts.Scheduler = v.loop
	}
	v.bindViewport()

	v.logger.Debug("map created", "center", o.Center.String(), "zoom", o.Zoom)
	return v, nil
}

func (v *MapView) bindViewport() {
	closePopups := schedule.Debounce(v.opts.Scheduler, v.opts.Debounce, false, v.CloseAllPopups)

	v.listeners = append(v.listeners,
		v.widget.AddListener(v.handle, widget.EventBoundsChanged, func(widget.Event) {
			v.fitting = false
		}),
		v.widget.AddListener(v.handle, widget.EventZoomChanged, func(widget.Event) {
			if v.fitting {
				return
			}
			closePopups()
		}),
	)
}

// Widget returns the widget the map was created with.
func (v *MapView) Widget() widget.Widget {
	return v.widget
}

// Handle returns the widget map.
func (v *MapView) Handle() widget.Map {
	return v.handle
}

// Logger returns the map logger.
func (v *MapView) Logger() *slog.Logger {
	return v.logger
}

// Scheduler returns the scheduler used for deferred work.
func (v *MapView) Scheduler() schedule.Scheduler {
	return v.opts.Scheduler
}

// Loop returns the loop the map queues deferred work on, or nil when a
// Scheduler was supplied.
func (v *MapView) Loop() *schedule.Loop {
	return v.loop
}

// Debounce returns the configured viewport debounce period.
func (v *MapView) Debounce() time.Duration {
	return v.opts.Debounce
}

// AddMarkers attaches markers to the map. Adding a marker that is already
// attached is a no-op.
func (v *MapView) AddMarkers(markers ...*Marker) {
	for _, m := range markers {
		if m == nil {
			continue
		}
		m.AddToMap(v)
	}
}

func (v *MapView) register(m *Marker) {
	v.markers.Add(m.id, m)
}

func (v *MapView) unregister(m *Marker) bool {
	return v.markers.Delete(m.id)
}

// RemoveMarkers detaches markers from the map.
func (v *MapView) RemoveMarkers(markers ...*Marker) {
	for _, m := range markers {
		v.RemoveMarker(m)
	}
}

// RemoveMarker detaches m and reports whether it was attached to this map.
func (v *MapView) RemoveMarker(m *Marker) bool {
	if m == nil || !v.markers.Has(m.id) {
		return false
	}
	m.Remove()
	return true
}

// ClearMarkers detaches every marker.
func (v *MapView) ClearMarkers() {
	for _, m := range v.markers.Values() {
		m.Remove()
	}
	v.markers.Reset()
}

// ShowMarkers makes every attached marker visible.
func (v *MapView) ShowMarkers() {
	for _, m := range v.markers.Values() {
		m.Show()
	}
}

// HideMarkers hides every attached marker without detaching it.
func (v *MapView) HideMarkers() {
	for _, m := range v.markers.Values() {
		m.Hide()
	}
}

// Markers returns the attached markers.
func (v *MapView) Markers() []*Marker {
	return v.markers.Values()
}

// HasMarkers reports whether any marker is attached.
func (v *MapView) HasMarkers() bool {
	return v.markers.Len() > 0
}

// HasOverlays reports whether any overlay is attached.
func (v *MapView) HasOverlays() bool {
	return len(v.overlays) > 0
}

// IsLoaded reports whether the widget map exists.
func (v *MapView) IsLoaded() bool {
	return v != nil && v.handle != nil
}

// Center moves the map to p, panning when animate is set.
func (v *MapView) Center(p core.Point, animate bool) error {
	if !v.IsLoaded() {
		return fmt.Errorf("center: %w", core.ErrMissingDependency)
	}
	if !p.Valid() {
		v.logger.Error("invalid center", "op", "center", "point", p.String())
		return fmt.Errorf("center %s: %w", p, core.ErrInvalidGeometry)
	}
	if animate {
		v.handle.PanTo(p)
	} else {
		v.handle.SetCenter(p)
	}
	return nil
}

// Zoom sets the zoom level. Levels outside MinZoom..MaxZoom are rejected.
func (v *MapView) Zoom(level int) error {
	if !v.IsLoaded() {
		return fmt.Errorf("zoom: %w", core.ErrMissingDependency)
	}
	if !validZoom(level) {
		v.logger.Error("zoom out of range", "op", "zoom", "zoom", level)
		return fmt.Errorf("zoom %d: %w", level, core.ErrZoomOutOfRange)
	}
	v.handle.SetZoom(level)
	return nil
}

// CurrentZoom returns the widget's zoom level.
func (v *MapView) CurrentZoom() int {
	return v.handle.Zoom()
}

// CloseAllPopups closes the popup of every attached marker.
func (v *MapView) CloseAllPopups() {
	for _, m := range v.markers.Values() {
		m.ClosePopup()
	}
}

// FitBounds fits the viewport to the visible markers among markers, or
// among every attached marker when none are given. It reports whether the
// viewport was changed.
func (v *MapView) FitBounds(markers ...*Marker) bool {
	if len(markers) == 0 {
		markers = v.markers.Values()
	}

	var points []core.Point
	for _, m := range markers {
		if m != nil && m.visible {
			points = append(points, m.position)
		}
	}
	bounds, ok := core.BoundsOf(points...)
	if !ok {
		v.logger.Debug("nothing visible to fit", "op", "fitBounds")
		return false
	}

	v.fitting = true
	v.handle.FitBounds(bounds)
	return true
}

// Compile compiles markup in a child of the map's binding scope with data
// exposed as binding.DataKey.
func (v *MapView) Compile(markup string, data any) (*binding.Node, error) {
	if v == nil || v.scope == nil || v.renderer == nil {
		return nil, fmt.Errorf("compile: %w", core.ErrCompileUnavailable)
	}
	node, err := v.renderer.Compile(markup, v.scope.Child(data))
	if err != nil {
		v.logger.Error("compile failed", "op", "compile", "error", err)
		return nil, fmt.Errorf("compile: %w: %w", core.ErrCompileUnavailable, err)
	}
	return node, nil
}

// Overlay is a polygon or ground overlay rendered on a MapView.
type Overlay struct {
	kind     OverlayKind
	handle   widget.Overlay
	path     []core.Point
	bounds   core.Bounds
	imageURL string
}

// OverlayKind distinguishes overlay shapes.
type OverlayKind int

const (
	PolygonOverlay OverlayKind = iota
	GroundOverlay
)

func (k OverlayKind) String() string {
	if k == GroundOverlay {
		return "ground"
	}
	return "polygon"
}

// Kind returns the overlay shape.
func (o *Overlay) Kind() OverlayKind { return o.kind }

// Path returns the polygon path; empty for ground overlays.
func (o *Overlay) Path() []core.Point { return o.path }

// Bounds returns the overlay extent.
func (o *Overlay) Bounds() core.Bounds { return o.bounds }

// ImageURL returns the ground overlay image; empty for polygons.
func (o *Overlay) ImageURL() string { return o.imageURL }

// Handle returns the widget overlay.
func (o *Overlay) Handle() widget.Overlay { return o.handle }

// OverlayOption styles an overlay.
type OverlayOption func(*overlayStyle)

type overlayStyle struct {
	polygon widget.PolygonOptions
	ground  widget.GroundOverlayOptions
}

func defaultOverlayStyle() overlayStyle {
	return overlayStyle{
		polygon: widget.PolygonOptions{
			StrokeColor:   "#FF0000",
			StrokeOpacity: 0.8,
			StrokeWeight:  2,
			FillColor:     "#FF0000",
			FillOpacity:   0.35,
		},
		ground: widget.GroundOverlayOptions{
			Opacity: 1,
		},
	}
}

// WithStroke sets the polygon outline.
func WithStroke(color string, opacity, weight float64) OverlayOption {
	return func(s *overlayStyle) {
		s.polygon.StrokeColor = color
		s.polygon.StrokeOpacity = opacity
		s.polygon.StrokeWeight = weight
	}
}

// WithFill sets the polygon fill.
func WithFill(color string, opacity float64) OverlayOption {
	return func(s *overlayStyle) {
		s.polygon.FillColor = color
		s.polygon.FillOpacity = opacity
	}
}

// WithOpacity sets the ground overlay opacity.
func WithOpacity(opacity float64) OverlayOption {
	return func(s *overlayStyle) {
		s.ground.Opacity = opacity
	}
}

// WithClickable makes the overlay receive pointer events.
func WithClickable(clickable bool) OverlayOption {
	return func(s *overlayStyle) {
		s.polygon.Clickable = clickable
		s.ground.Clickable = clickable
	}
}

// WithEditable lets the user drag polygon vertices.
func WithEditable(editable bool) OverlayOption {
	return func(s *overlayStyle) {
		s.polygon.Editable = editable
	}
}

// WithZIndex sets the polygon stacking order.
func WithZIndex(z int) OverlayOption {
	return func(s *overlayStyle) {
		s.polygon.ZIndex = z
	}
}

// AddPolygonOverlay renders a closed polygon through points.
func (v *MapView) AddPolygonOverlay(points []core.Point, opts ...OverlayOption) (*Overlay, error) {
	if len(points) == 0 {
		v.logger.Error("polygon has no points", "op", "addPolygonOverlay")
		return nil, fmt.Errorf("add polygon: %w", core.ErrEmptyGeometry)
	}
	// the widget draws degenerate and self-crossing rings as given
	if err := geo.ValidatePath(points); err != nil {
		v.logger.Warn("polygon is not a simple ring", "op", "addPolygonOverlay", "points", len(points), "error", err)
	}

	style := defaultOverlayStyle()
	for _, opt := range opts {
		opt(&style)
	}
	style.polygon.Path = append([]core.Point(nil), points...)

	handle, err := v.widget.NewPolygon(style.polygon)
	if err != nil {
		v.logger.Error("widget failed to create polygon", "op", "addPolygonOverlay", "error", err)
		return nil, fmt.Errorf("add polygon: %w", err)
	}
	handle.SetMap(v.handle)

	bounds, _ := core.BoundsOf(points...)
	o := &Overlay{
		kind:   PolygonOverlay,
		handle: handle,
		path:   style.polygon.Path,
		bounds: bounds,
	}
	v.overlays = append(v.overlays, o)
	return o, nil
}

// AddGroundOverlay renders imageURL over a widthMeters by heightMeters
// rectangle centered on center.
func (v *MapView) AddGroundOverlay(imageURL string, center core.Point, widthMeters, heightMeters float64, opts ...OverlayOption) (*Overlay, error) {
	log := v.logger.With("op", "addGroundOverlay")
	if imageURL == "" || widthMeters <= 0 || heightMeters <= 0 || !center.Valid() {
		log.Error("missing or invalid arguments",
			"url", imageURL, "center", center.String(), "width", widthMeters, "height", heightMeters)
		return nil, fmt.Errorf("add ground overlay: %w", core.ErrInvalidGroundOverlayArgs)
	}

	g := v.widget.Geometry()
	if g == nil {
		log.Error("widget has no geometry capability")
		return nil, fmt.Errorf("add ground overlay: %w", core.ErrMissingGeometryCapability)
	}
	bounds, err := geo.RectangleBounds(g, center, widthMeters, heightMeters)
	if err != nil {
		log.Error("cannot compute overlay bounds", "error", err)
		return nil, fmt.Errorf("add ground overlay: %w", err)
	}

	style := defaultOverlayStyle()
	for _, opt := range opts {
		opt(&style)
	}

	handle, err := v.widget.NewGroundOverlay(imageURL, bounds, style.ground)
	if err != nil {
		log.Error("widget failed to create ground overlay", "error", err)
		return nil, fmt.Errorf("add ground overlay: %w", err)
	}
	handle.SetMap(v.handle)

	o := &Overlay{
		kind:     GroundOverlay,
		handle:   handle,
		bounds:   bounds,
		imageURL: imageURL,
	}
	v.overlays = append(v.overlays, o)
	return o, nil
}

// Overlays returns the overlays in the order they were added.
func (v *MapView) Overlays() []*Overlay {
	return append([]*Overlay(nil), v.overlays...)
}

// RemoveOverlay detaches o and reports whether it belonged to this map.
func (v *MapView) RemoveOverlay(o *Overlay) bool {
	for i, cur := range v.overlays {
		if cur == o {
			o.handle.SetMap(nil)
			v.overlays = append(v.overlays[:i], v.overlays[i+1:]...)
			return true
		}
	}
	return false
}

// Close detaches the map's viewport listeners and stops the map's own
// loop. Markers and overlays stay rendered.
func (v *MapView) Close() {
	for _, l := range v.listeners {
		l.Remove()
	}
	v.listeners = nil
	if v.loop != nil {
		v.loop.Close()
	}
}
