package geo

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/mapkit/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ParsePath parses a JSON array of coordinates into points.
// Input format: "[[lat1,lng1],[lat2,lng2],...]"
func ParsePath(input string) ([]core.Point, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse path JSON: %w", err)
	}

	if len(coords) == 0 {
		return nil, core.ErrEmptyGeometry
	}

	path := make([]core.Point, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		path[i] = core.Point{Lat: coord[0], Lng: coord[1]}
		if !path[i].Valid() {
			return nil, fmt.Errorf("coordinate %d %s: %w", i, path[i], ErrInvalidCoordinates)
		}
	}

	return path, nil
}

// PolygonFromPath builds a single-ring polygon from path, closing the ring if
// needed. X is longitude and Y latitude. Constructor validation applies
// unless opts relax it, e.g. geom.DisableAllValidations.
func PolygonFromPath(path []core.Point, opts ...geom.ConstructorOption) (geom.Polygon, error) {
	if len(path) == 0 {
		return geom.Polygon{}, core.ErrEmptyGeometry
	}

	flatCoords := make([]float64, 0, (len(path)+1)*2)
	for _, p := range path {
		flatCoords = append(flatCoords, p.Lng, p.Lat)
	}
	if path[0] != path[len(path)-1] {
		flatCoords = append(flatCoords, path[0].Lng, path[0].Lat)
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	ring, err := geom.NewLineString(seq, opts...)
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("polygon ring: %v: %w", err, core.ErrInvalidGeometry)
	}
	poly, err := geom.NewPolygon([]geom.LineString{ring}, opts...)
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("%v: %w", err, core.ErrInvalidGeometry)
	}
	return poly, nil
}

// ValidatePath reports whether path describes a valid simple polygon ring.
func ValidatePath(path []core.Point) error {
	_, err := PolygonFromPath(path)
	return err
}

// PointGeometry returns p as a simplefeatures geometry for GeoJSON encoding.
func PointGeometry(p core.Point) (geom.Geometry, error) {
	pt, err := geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: p.Lng, Y: p.Lat},
		Type: geom.DimXY,
	})
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("point %s: %v: %w", p, err, core.ErrInvalidGeometry)
	}
	return pt.AsGeometry(), nil
}
