package geo

import (
	"errors"
	"testing"

	"github.com/OCAP2/mapkit/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpherical_Distance(t *testing.T) {
	g := Spherical{}

	d := g.Distance(core.NewPoint(0, 0), core.NewPoint(0, 0.0001))
	assert.InDelta(t, 11.13, d, 0.05)

	assert.Zero(t, g.Distance(core.NewPoint(12.5, -3), core.NewPoint(12.5, -3)))

	far := g.Distance(core.NewPoint(0, 0), core.NewPoint(10, 10))
	assert.Greater(t, far, 1_000_000.0)
}

func TestSpherical_OffsetRoundTrip(t *testing.T) {
	g := Spherical{}
	start := core.NewPoint(48.85, 2.35)

	for _, heading := range []float64{0, 45, 90, 180, 270} {
		p := g.Offset(start, 500, heading)
		assert.InDelta(t, 500, g.Distance(start, p), 0.5, "heading %v", heading)
	}

	north := g.Offset(start, 1000, 0)
	assert.Greater(t, north.Lat, start.Lat)
	assert.InDelta(t, start.Lng, north.Lng, 1e-9)
}

func TestRectangleBounds_Square(t *testing.T) {
	b, err := RectangleBounds(Spherical{}, core.NewPoint(0, 0), 2000, 2000)
	require.NoError(t, err)

	// 1km in degrees at the equator
	const km = 0.008983
	assert.InDelta(t, km, b.NorthEast.Lat, 1e-4)
	assert.InDelta(t, km, b.NorthEast.Lng, 1e-4)
	assert.InDelta(t, -km, b.SouthWest.Lat, 1e-4)
	assert.InDelta(t, -km, b.SouthWest.Lng, 1e-4)
}

func TestRectangleBounds_Wide(t *testing.T) {
	g := Spherical{}
	center := core.NewPoint(10, 20)
	b, err := RectangleBounds(g, center, 4000, 1000)
	require.NoError(t, err)

	ne := b.NorthEast
	sw := b.SouthWest
	assert.InDelta(t, 1000, g.Distance(core.NewPoint(sw.Lat, center.Lng), core.NewPoint(ne.Lat, center.Lng)), 5)
	assert.InDelta(t, 4000, g.Distance(core.NewPoint(center.Lat, sw.Lng), core.NewPoint(center.Lat, ne.Lng)), 5)
	assert.True(t, b.Contains(center))
}

func TestRectangleBounds_InvalidSize(t *testing.T) {
	for _, size := range [][2]float64{{0, 10}, {10, 0}, {-5, 10}, {10, -1}} {
		_, err := RectangleBounds(Spherical{}, core.NewPoint(0, 0), size[0], size[1])
		assert.True(t, errors.Is(err, core.ErrInvalidGeometry), "size %v", size)
	}
}

func TestRectangleBounds_NoGeometry(t *testing.T) {
	_, err := RectangleBounds(nil, core.NewPoint(0, 0), 10, 10)
	assert.ErrorIs(t, err, core.ErrMissingGeometryCapability)
}

func TestCentroid(t *testing.T) {
	c, ok := Centroid([]core.Point{core.NewPoint(0, 0), core.NewPoint(0, 0.0001)})
	require.True(t, ok)
	assert.InDelta(t, 0, c.Lat, 1e-12)
	assert.InDelta(t, 0.00005, c.Lng, 1e-12)

	_, ok = Centroid(nil)
	assert.False(t, ok)
}

func TestCentroid_IdenticalPoints(t *testing.T) {
	p := core.NewPoint(51.5074, -0.1278)
	c, ok := Centroid([]core.Point{p, p, p})
	require.True(t, ok)
	assert.Equal(t, p, c)
}

func TestMercatorRoundTrip(t *testing.T) {
	for _, p := range []core.Point{
		core.NewPoint(0, 0),
		core.NewPoint(45, 45),
		core.NewPoint(-33.86, 151.2),
	} {
		x, y := ToMercator(p)
		back := FromMercator(x, y)
		assert.InDelta(t, p.Lat, back.Lat, 1e-6)
		assert.InDelta(t, p.Lng, back.Lng, 1e-6)
	}

	x, _ := ToMercator(core.NewPoint(0, 180))
	assert.InDelta(t, 20037508.34, x, 1)
}

func TestPointFromString(t *testing.T) {
	p, err := PointFromString("48.85, 2.35")
	require.NoError(t, err)
	assert.Equal(t, core.NewPoint(48.85, 2.35), p)

	for _, bad := range []string{"", "1", "a,b", "1,2,3", "95,0"} {
		_, err := PointFromString(bad)
		assert.ErrorIs(t, err, ErrInvalidCoordinates, "input %q", bad)
	}
}
