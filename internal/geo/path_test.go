package geo

import (
	"testing"

	"github.com/OCAP2/mapkit/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath_Valid(t *testing.T) {
	path, err := ParsePath("[[10.5,20.25],[30.75,40.5],[50,60]]")

	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.Equal(t, 10.5, path[0].Lat)
	assert.Equal(t, 20.25, path[0].Lng)
	assert.Equal(t, 50.0, path[2].Lat)
	assert.Equal(t, 60.0, path[2].Lng)
}

func TestParsePath_InvalidJSON(t *testing.T) {
	_, err := ParsePath("not valid json")
	require.Error(t, err)
}

func TestParsePath_Empty(t *testing.T) {
	_, err := ParsePath("[]")
	assert.ErrorIs(t, err, core.ErrEmptyGeometry)
}

func TestParsePath_InsufficientCoordinates(t *testing.T) {
	_, err := ParsePath("[[10],[20,30]]")
	require.Error(t, err)
}

func TestParsePath_OutOfRange(t *testing.T) {
	_, err := ParsePath("[[100,20]]")
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestValidatePath(t *testing.T) {
	triangle := []core.Point{core.NewPoint(0, 0), core.NewPoint(0, 1), core.NewPoint(1, 1)}
	assert.NoError(t, ValidatePath(triangle))

	closed := append(append([]core.Point{}, triangle...), triangle[0])
	assert.NoError(t, ValidatePath(closed))

	assert.ErrorIs(t, ValidatePath(nil), core.ErrEmptyGeometry)
	assert.ErrorIs(t, ValidatePath(triangle[:2]), core.ErrInvalidGeometry)

	bowtie := []core.Point{core.NewPoint(0, 0), core.NewPoint(1, 1), core.NewPoint(0, 1), core.NewPoint(1, 0)}
	assert.ErrorIs(t, ValidatePath(bowtie), core.ErrInvalidGeometry)
}

func TestPolygonFromPath_WithoutValidation(t *testing.T) {
	tests := []struct {
		name string
		path []core.Point
	}{
		{"single point", []core.Point{core.NewPoint(1, 1)}},
		{"segment", []core.Point{core.NewPoint(0, 0), core.NewPoint(1, 1)}},
		{"bowtie", []core.Point{core.NewPoint(0, 0), core.NewPoint(1, 1), core.NewPoint(0, 1), core.NewPoint(1, 0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poly, err := PolygonFromPath(tt.path, geom.DisableAllValidations)
			require.NoError(t, err)
			assert.Equal(t, 1, poly.NumRings())
		})
	}

	_, err := PolygonFromPath(nil, geom.DisableAllValidations)
	assert.ErrorIs(t, err, core.ErrEmptyGeometry)
}

func TestPointGeometry(t *testing.T) {
	g, err := PointGeometry(core.NewPoint(1.5, 2.5))
	require.NoError(t, err)
	p, ok := g.AsPoint()
	require.True(t, ok)
	pt, ok := p.XY()
	require.True(t, ok)
	assert.Equal(t, 2.5, pt.X)
	assert.Equal(t, 1.5, pt.Y)
}
