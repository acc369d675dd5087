// pkg/core/errors.go
package core

import "errors"

// Errors reported by the map facade. Operations log them where they are
// detected and return them wrapped, together with an empty result.
var (
	// ErrMissingDependency is returned when the mapping widget is not available
	ErrMissingDependency = errors.New("mapping widget not loaded")
	// ErrInvalidContainer is returned when no container element is given
	ErrInvalidContainer = errors.New("invalid container element")
	// ErrMissingBindingContext is returned when no binding scope/renderer pair is given
	ErrMissingBindingContext = errors.New("missing binding context")
	// ErrInvalidGeometry is returned for a missing or malformed position or size
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrEmptyGeometry is returned when a shape has no points
	ErrEmptyGeometry = errors.New("empty geometry")
	// ErrUngroupableDistance is returned when the grouping distance is zero or undefined
	ErrUngroupableDistance = errors.New("ungroupable distance")
	// ErrCompileUnavailable is returned when content cannot be compiled against a binding context
	ErrCompileUnavailable = errors.New("compile unavailable")
	// ErrNoMapView is returned when an operation needs an attached map
	ErrNoMapView = errors.New("no map view")
	// ErrMissingGeometryCapability is returned when the widget exposes no geodesic helpers
	ErrMissingGeometryCapability = errors.New("widget has no geometry capability")
	// ErrInvalidGroundOverlayArgs is returned when a ground overlay argument is missing
	ErrInvalidGroundOverlayArgs = errors.New("invalid ground overlay arguments")
	// ErrZoomOutOfRange is returned for zoom levels outside MinZoom..MaxZoom
	ErrZoomOutOfRange = errors.New("zoom level out of range")
)

// Zoom range accepted by the facade, inclusive on both ends.
const (
	MinZoom = 0
	MaxZoom = 21
)
