// Package geo holds the geometry helpers used by the map facade: great-circle
// distance and offsets, rectangle bounds around a center, centroids and Web
// Mercator projection.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/OCAP2/mapkit/pkg/core"
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/wroge/wgs84"
)

// ErrInvalidCoordinates is returned when a coordinate string cannot be parsed
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Spherical implements widget.Geometry on a spherical earth model.
type Spherical struct{}

// Distance returns the haversine distance between a and b in meters.
func (Spherical) Distance(a, b core.Point) float64 {
	return orbgeo.DistanceHaversine(toOrb(a), toOrb(b))
}

// Offset moves p by distance meters along heading (degrees clockwise from north).
func (Spherical) Offset(p core.Point, distance, heading float64) core.Point {
	return fromOrb(orbgeo.PointAtBearingAndDistance(toOrb(p), heading, distance))
}

// Offsetter is the part of widget.Geometry RectangleBounds needs.
type Offsetter interface {
	Offset(p core.Point, distance, heading float64) core.Point
}

// RectangleBounds returns the bounds of a widthMeters x heightMeters rectangle
// centered on center. The half diagonal and the angle between the diagonal
// and the height axis (law of cosines) give the north-east corner; the
// south-west corner lies on the opposite heading.
func RectangleBounds(g Offsetter, center core.Point, widthMeters, heightMeters float64) (core.Bounds, error) {
	if g == nil {
		return core.Bounds{}, core.ErrMissingGeometryCapability
	}
	if !(widthMeters > 0) || !(heightMeters > 0) {
		return core.Bounds{}, fmt.Errorf("rectangle %gx%g: %w", widthMeters, heightMeters, core.ErrInvalidGeometry)
	}
	if !center.Valid() {
		return core.Bounds{}, fmt.Errorf("center %s: %w", center, core.ErrInvalidGeometry)
	}

	diagonal := math.Hypot(widthMeters, heightMeters)
	cosAngle := (heightMeters*heightMeters + diagonal*diagonal - widthMeters*widthMeters) /
		(2 * heightMeters * diagonal)
	angle := math.Acos(math.Max(-1, math.Min(1, cosAngle))) * 180 / math.Pi
	half := diagonal / 2

	return core.Bounds{
		SouthWest: g.Offset(center, half, 180+angle),
		NorthEast: g.Offset(center, half, angle),
	}, nil
}

// Centroid returns the arithmetic mean of the latitudes and longitudes.
// This is not a geodesic centroid; it is cheap and deterministic, which is
// what cluster placement needs.
func Centroid(points []core.Point) (core.Point, bool) {
	if len(points) == 0 {
		return core.Point{}, false
	}
	var sumLat, sumLng float64
	for _, p := range points {
		sumLat += p.Lat
		sumLng += p.Lng
	}
	n := float64(len(points))
	return core.Point{Lat: sumLat / n, Lng: sumLng / n}, true
}

// ToMercator projects p to EPSG:3857 meters.
func ToMercator(p core.Point) (x, y float64) {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ = f(p.Lng, p.Lat, 0)
	return x, y
}

// FromMercator converts EPSG:3857 meters back to a WGS84 point.
func FromMercator(x, y float64) core.Point {
	f := wgs84.EPSG().Transform(3857, 4326)
	lng, lat, _ := f(x, y, 0)
	return core.Point{Lat: lat, Lng: lng}
}

// PointFromString parses a "lat,lng" string.
func PointFromString(coords string) (core.Point, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) != 2 {
		return core.Point{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.Point{}, ErrInvalidCoordinates
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.Point{}, ErrInvalidCoordinates
	}
	p := core.Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return core.Point{}, ErrInvalidCoordinates
	}
	return p, nil
}

func toOrb(p core.Point) orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

func fromOrb(p orb.Point) core.Point {
	return core.Point{Lat: p.Lat(), Lng: p.Lon()}
}
