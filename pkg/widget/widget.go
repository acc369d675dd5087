// Package widget describes what the map facade needs from the underlying
// interactive mapping widget. Implementations wrap a real widget; the
// headless backend in internal/widget/memory is used for tests and tooling.
package widget

import "github.com/OCAP2/mapkit/pkg/core"

// Event names dispatched by widgets.
const (
	EventZoomChanged   = "zoom_changed"
	EventBoundsChanged = "bounds_changed"
	EventCenterChanged = "center_changed"
	EventMouseOver     = "mouseover"
	EventMouseOut      = "mouseout"
	EventClick         = "click"
	EventDOMReady      = "domready"
	EventCloseClick    = "closeclick"
)

// Element is an opaque host container the widget renders into.
type Element interface {
	ID() string
}

// EventTarget is anything listeners can be bound to. Implementations compare
// targets by identity.
type EventTarget any

// Event is delivered to listeners.
type Event struct {
	Name   string
	Target EventTarget
	// LatLng is set for pointer events that carry a map position.
	LatLng *core.Point
}

// Listener is a registered callback that can be detached.
type Listener interface {
	Remove()
}

// MapOptions are passed to NewMap.
type MapOptions struct {
	Center            core.Point
	Zoom              int
	DisableDefaultUI  bool
	ScrollWheel       bool
	Draggable         bool
	MapTypeControl    bool
	StreetViewControl bool
	MapTypeID         string
}

// Map is a rendered map instance.
type Map interface {
	SetCenter(p core.Point)
	PanTo(p core.Point)
	Center() core.Point
	SetZoom(level int)
	Zoom() int
	FitBounds(b core.Bounds)
}

// MarkerOptions are passed to NewMarker. A non-empty Label asks the widget
// for a marker with a label overlay.
type MarkerOptions struct {
	Position core.Point
	Icon     *core.Icon
	Label    string
	// LabelClass is the CSS class of the label overlay, when supported.
	LabelClass string
	Title      string
}

// Marker is a rendered point marker.
type Marker interface {
	SetMap(m Map)
	Map() Map
	Position() core.Point
	SetData(data any)
	Data() any
	// EventTarget returns the element pointer events should bind to. For
	// labelled markers this is the label's event-capture element.
	EventTarget() EventTarget
}

// PolygonOptions are passed to NewPolygon.
type PolygonOptions struct {
	Path          []core.Point
	StrokeColor   string
	StrokeOpacity float64
	StrokeWeight  float64
	FillColor     string
	FillOpacity   float64
	Clickable     bool
	Editable      bool
	ZIndex        int
}

// GroundOverlayOptions are passed to NewGroundOverlay.
type GroundOverlayOptions struct {
	Opacity   float64
	Clickable bool
}

// Overlay is a shape rendered on a map.
type Overlay interface {
	SetMap(m Map)
	Map() Map
}

// PopupOptions are passed to NewPopup.
type PopupOptions struct {
	CloseIcon      string
	ContainerClass string
	Offset         core.Offset
	Scrollable     bool
}

// Content is compiled markup handed to a popup.
type Content interface {
	HTML() string
}

// Popup is an infobox anchored to a marker.
type Popup interface {
	SetContent(c Content)
	Open(m Map, anchor Marker)
	Close()
	IsOpen() bool
	// EventTarget returns the popup container element.
	EventTarget() EventTarget
}

// Geometry provides geodesic helpers.
type Geometry interface {
	// Distance returns the great-circle distance between a and b in meters.
	Distance(a, b core.Point) float64
	// Offset moves p by distance meters along heading degrees clockwise from north.
	Offset(p core.Point, distance, heading float64) core.Point
}

// Widget is the mapping library the facade is built on.
type Widget interface {
	NewMap(container Element, opts MapOptions) (Map, error)
	NewMarker(opts MarkerOptions) (Marker, error)
	NewPolygon(opts PolygonOptions) (Overlay, error)
	NewGroundOverlay(imageURL string, bounds core.Bounds, opts GroundOverlayOptions) (Overlay, error)
	NewPopup(opts PopupOptions) (Popup, error)
	AddListener(target EventTarget, event string, cb func(Event)) Listener
	// Geometry returns nil when the widget was loaded without geodesic support.
	Geometry() Geometry
}
