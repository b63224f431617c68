package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testEps = 1e-12

func TestGridIdx(t *testing.T) {
	table := []struct {
		n, ng   [3]int
		i, j, k int
		idx     int
	}{
		{[3]int{4, 4, 4}, [3]int{0, 0, 0}, 0, 0, 0, 0},
		{[3]int{4, 4, 4}, [3]int{0, 0, 0}, 1, 2, 3, 1 + 2*4 + 3*16},
		{[3]int{4, 4, 4}, [3]int{2, 2, 2}, -2, -2, -2, 0},
		{[3]int{4, 4, 4}, [3]int{2, 2, 2}, 0, 0, 0, 2 + 2*8 + 2*64},
		{[3]int{8, 1, 1}, [3]int{3, 0, 0}, -3, 0, 0, 0},
		{[3]int{8, 1, 1}, [3]int{3, 0, 0}, 10, 0, 0, 13},
	}

	for i, test := range table {
		g := NewGrid(test.n, test.ng)
		idx, ok := g.IdxCheck(test.i, test.j, test.k)
		assert.True(t, ok, "test %d in bounds", i)
		assert.Equal(t, test.idx, idx, "test %d index", i)
	}
}

func TestGridBounds(t *testing.T) {
	g := NewGrid([3]int{4, 4, 4}, [3]int{2, 2, 2})

	assert.True(t, g.BoundsCheck(-2, 0, 5))
	assert.False(t, g.BoundsCheck(-3, 0, 0))
	assert.False(t, g.BoundsCheck(0, 6, 0))
	assert.Equal(t, 8*8*8, g.Length)
}

func TestGridWrap(t *testing.T) {
	g := NewGrid([3]int{8, 4, 1}, [3]int{2, 2, 0})

	assert.Equal(t, 7, g.Wrap(-1, 0))
	assert.Equal(t, 0, g.Wrap(8, 0))
	assert.Equal(t, 3, g.Wrap(3, 0))
	assert.Equal(t, 1, g.Wrap(5, 1))
}

func TestGeometryFrac(t *testing.T) {
	g, err := New(Dim3D, 0, [3]int{8, 8, 8},
		[3]float64{-1, -1, -1}, [3]float64{1, 1, 1})
	assert.NoError(t, err)

	u0, u1, u2 := g.Frac(-1, 0, 0.75)
	assert.InDelta(t, 0, u0, testEps)
	assert.InDelta(t, 4, u1, testEps)
	assert.InDelta(t, 7, u2, testEps)

	assert.InDelta(t, 0.25, g.CellWidth(0), testEps)
	assert.InDelta(t, 0.25*0.25*0.25, g.CellVolume(), testEps)
}

func TestGeometryFracRZ(t *testing.T) {
	g, err := New(DimRZ, 2, [3]int{10, 16, 1},
		[3]float64{0, 0, 0}, [3]float64{1, 2, 0})
	assert.NoError(t, err)
	assert.Equal(t, 3, g.Planes())

	u0, u1, _ := g.Frac(0.3, 0.4, 1)
	assert.InDelta(t, 5, u0, testEps)
	assert.InDelta(t, 8, u1, testEps)
	assert.InDelta(t, math.Atan2(0.4, 0.3), g.Theta(0.3, 0.4), testEps)
}

func TestGeometryNodeVolume(t *testing.T) {
	g, err := New(DimRZ, 1, [3]int{10, 10, 1},
		[3]float64{0, 0, 0}, [3]float64{1, 1, 0})
	assert.NoError(t, err)

	// The control volumes of nodes 0..N tile a cylinder of radius
	// R + dr/2 exactly.
	vol := 0.0
	for ir := 0; ir <= 10; ir++ {
		vol += g.NodeVolume(ir)
	}
	assert.InDelta(t, math.Pi*1.05*1.05*0.1, vol, 1e-10)
}

func TestGeometryErrors(t *testing.T) {
	_, err := New(Dim3D, 0, [3]int{0, 8, 8},
		[3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	assert.Error(t, err)

	_, err = New(Dim2D, 0, [3]int{8, 8, 1},
		[3]float64{0, 0, 0}, [3]float64{1, 0, 0})
	assert.Error(t, err)

	_, err = New(DimRZ, 0, [3]int{8, 8, 1},
		[3]float64{0, 0, 0}, [3]float64{1, 1, 0})
	assert.Error(t, err)

	_, err = New(DimRZ, 2, [3]int{8, 8, 1},
		[3]float64{0.5, 0, 0}, [3]float64{1, 1, 0})
	assert.Error(t, err)
}

func TestParseDim(t *testing.T) {
	for _, d := range []Dim{Dim1D, Dim2D, Dim3D, DimRZ} {
		out, err := ParseDim(d.String())
		assert.NoError(t, err)
		assert.Equal(t, d, out)
	}
	_, err := ParseDim("4d")
	assert.Error(t, err)
}
