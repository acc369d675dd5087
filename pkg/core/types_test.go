package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoint_Valid(t *testing.T) {
	tests := []struct {
		name  string
		point Point
		want  bool
	}{
		{"origin", NewPoint(0, 0), true},
		{"corners", NewPoint(-90, 180), true},
		{"lat too high", NewPoint(90.5, 0), false},
		{"lng too low", NewPoint(0, -180.1), false},
		{"nan", NewPoint(math.NaN(), 0), false},
		{"inf", NewPoint(0, math.Inf(1)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.point.Valid())
		})
	}
}

func TestBoundsOf(t *testing.T) {
	b, ok := BoundsOf(NewPoint(1, 5), NewPoint(-2, 3), NewPoint(4, -1))
	assert.True(t, ok)
	assert.Equal(t, NewPoint(-2, -1), b.SouthWest)
	assert.Equal(t, NewPoint(4, 5), b.NorthEast)
	assert.True(t, b.Contains(NewPoint(0, 0)))
	assert.False(t, b.Contains(NewPoint(5, 0)))
	assert.Equal(t, NewPoint(1, 2), b.Center())

	_, ok = BoundsOf()
	assert.False(t, ok)
}
