package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/OCAP2/mapkit/internal/geo"
	"github.com/OCAP2/mapkit/pkg/core"
	"github.com/OCAP2/mapkit/pkg/mapkit"
	"github.com/OCAP2/mapkit/pkg/widget"
)

// pointRecord is one entry of a points file.
type pointRecord struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label,omitempty"`
	Data  any     `json:"data,omitempty"`
}

func readPoints(r io.Reader) ([]pointRecord, error) {
	var points []pointRecord
	if err := json.NewDecoder(r).Decode(&points); err != nil {
		return nil, fmt.Errorf("failed to parse points: %w", err)
	}
	return points, nil
}

// randomPoints scatters n points uniformly inside box.
func randomPoints(n int, seed int64, box core.Bounds) []pointRecord {
	rng := rand.New(rand.NewSource(seed))
	sw, ne := box.SouthWest, box.NorthEast
	points := make([]pointRecord, n)
	for i := range points {
		points[i] = pointRecord{
			Lat:  sw.Lat + rng.Float64()*(ne.Lat-sw.Lat),
			Lng:  sw.Lng + rng.Float64()*(ne.Lng-sw.Lng),
			Data: i,
		}
	}
	return points
}

// parseBBox parses "south,west,north,east".
func parseBBox(s string) (core.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return core.Bounds{}, fmt.Errorf("bbox %q: want south,west,north,east", s)
	}
	sw, err := geo.PointFromString(parts[0] + "," + parts[1])
	if err != nil {
		return core.Bounds{}, fmt.Errorf("bbox %q: %w", s, err)
	}
	ne, err := geo.PointFromString(parts[2] + "," + parts[3])
	if err != nil {
		return core.Bounds{}, fmt.Errorf("bbox %q: %w", s, err)
	}
	b, _ := core.BoundsOf(sw, ne)
	return b, nil
}

func buildMarkers(w widget.Widget, points []pointRecord) ([]*mapkit.Marker, error) {
	markers := make([]*mapkit.Marker, 0, len(points))
	for i, p := range points {
		pos := core.NewPoint(p.Lat, p.Lng)
		m, err := mapkit.NewMarker(w, mapkit.MarkerOptions{Position: &pos, Label: p.Label, Data: p.Data})
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		markers = append(markers, m)
	}
	return markers, nil
}
