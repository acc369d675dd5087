package mapkit

import (
	"maps"
	"math"

	"github.com/OCAP2/mapkit/internal/geo"
	"github.com/OCAP2/mapkit/pkg/core"
	"github.com/OCAP2/mapkit/pkg/widget"
)

// Group is a set of markers folded into one aggregate.
type Group struct {
	Members  []*Marker
	Centroid core.Point
	// Data holds each member's user data in member order.
	Data []any
}

// Count returns the number of members.
func (g Group) Count() int { return len(g.Members) }

// GroupingPolicy maps zoom levels to grouping distances in meters.
type GroupingPolicy struct {
	Default float64
	Levels  map[int]float64
}

// Distance returns the grouping distance for zoom.
func (p GroupingPolicy) Distance(zoom int) float64 {
	if d, ok := p.Levels[zoom]; ok {
		return d
	}
	return p.Default
}

// Merge returns p with other's levels layered on top. A positive
// other.Default replaces p.Default.
func (p GroupingPolicy) Merge(other GroupingPolicy) GroupingPolicy {
	out := GroupingPolicy{
		Default: p.Default,
		Levels:  make(map[int]float64, len(p.Levels)+len(other.Levels)),
	}
	maps.Copy(out.Levels, p.Levels)
	maps.Copy(out.Levels, other.Levels)
	if other.Default > 0 {
		out.Default = other.Default
	}
	return out
}

// DefaultRadiusPixels is the on-screen grouping radius behind
// DefaultGroupingPolicy.
const DefaultRadiusPixels = 40

// equatorial meters per pixel at zoom 0 for 256px tiles
const metersPerPixelZ0 = 156543.03392

// DefaultGroupingPolicy groups markers whose icons would sit within
// DefaultRadiusPixels of each other at every zoom level.
func DefaultGroupingPolicy() GroupingPolicy {
	p := GroupingPolicy{Levels: make(map[int]float64, core.MaxZoom+1)}
	for z := core.MinZoom; z <= core.MaxZoom; z++ {
		p.Levels[z] = DefaultRadiusPixels * metersPerPixelZ0 / math.Exp2(float64(z))
	}
	p.Default = p.Levels[core.MaxZoom]
	return p
}

// partition splits markers into chains where every member is within
// distance of at least one other member of its group. It works from the end
// of a scratch list and grows each group through an explicit frontier, so
// large inputs do not recurse.
func partition(g widget.Geometry, markers []*Marker, distance float64) []Group {
	scratch := append([]*Marker(nil), markers...)
	var groups []Group

	for len(scratch) > 0 {
		last := len(scratch) - 1
		seed := scratch[last]
		scratch = scratch[:last]

		members := []*Marker{seed}
		frontier := []*Marker{seed}
		for len(frontier) > 0 {
			cur := frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]

			kept := scratch[:0]
			for _, cand := range scratch {
				if g.Distance(cur.position, cand.position) <= distance {
					members = append(members, cand)
					frontier = append(frontier, cand)
				} else {
					kept = append(kept, cand)
				}
			}
			scratch = kept
		}
		groups = append(groups, newGroup(members))
	}
	return groups
}

func newGroup(members []*Marker) Group {
	points := make([]core.Point, len(members))
	data := make([]any, len(members))
	for i, m := range members {
		points[i] = m.position
		data[i] = m.data
	}
	centroid, _ := geo.Centroid(points)
	return Group{Members: members, Centroid: centroid, Data: data}
}
