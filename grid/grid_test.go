package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/pickerel/geom"
)

func testGeom(t testing.TB, dim geom.Dim, n [3]int) *geom.Geometry {
	modes := 0
	if dim == geom.DimRZ {
		modes = 2
	}
	geo, err := geom.New(dim, modes, n,
		[3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	require.NoError(t, err)
	return geo
}

func TestNewMesh(t *testing.T) {
	geo := testGeom(t, geom.Dim3D, [3]int{8, 8, 8})
	m, err := NewMesh(geo, 1, 2, false)
	require.NoError(t, err)

	assert.Equal(t, [3]int{2, 2, 2}, m.Ng)
	assert.Nil(t, m.F)
	assert.Equal(t, Offset{0.5, 0, 0}, m.Ex.Off)
	assert.Equal(t, Offset{0, 0.5, 0.5}, m.Bx.Off)
	assert.Len(t, m.All(), 11)

	m, err = NewMesh(geo, 3, 6, true)
	require.NoError(t, err)
	assert.Equal(t, [3]int{3, 3, 3}, m.Ng)
	assert.NotNil(t, m.F)
	assert.Len(t, m.All(), 13)
}

func TestNewMeshMasksInactiveAxes(t *testing.T) {
	geo := testGeom(t, geom.Dim2D, [3]int{8, 8, 1})
	m, err := NewMesh(geo, 2, 2, false)
	require.NoError(t, err)

	assert.Equal(t, 0, m.Ng[2])
	assert.Equal(t, Offset{0, 0, 0}, m.Ez.Off)
	assert.Equal(t, Offset{0.5, 0.5, 0}, m.Bz.Off)
	assert.Equal(t, Offset{0, 0.5, 0}, m.Bx.Off)

	// Cylindrical meshes remap the Cartesian z offset onto grid axis 1.
	rz, err := NewMesh(testGeom(t, geom.DimRZ, [3]int{8, 8, 1}), 2, 2, false)
	require.NoError(t, err)
	assert.Equal(t, Offset{0, 0.5, 0}, rz.Ez.Off)
	assert.Equal(t, Offset{0, 0, 0}, rz.Ey.Off)
	assert.Equal(t, Offset{0.5, 0.5, 0}, rz.By.Off)
	assert.Equal(t, 3, len(rz.Ex.M))
}

func TestNewMeshErrors(t *testing.T) {
	geo := testGeom(t, geom.Dim3D, [3]int{8, 8, 8})

	_, err := NewMesh(geo, 0, 2, false)
	assert.Error(t, err)
	_, err = NewMesh(geo, 1, 3, false)
	assert.Error(t, err)

	tiny := testGeom(t, geom.Dim3D, [3]int{2, 2, 2})
	_, err = NewMesh(tiny, 3, 2, false)
	assert.Error(t, err)
}

func TestFillGuards(t *testing.T) {
	geo := testGeom(t, geom.Dim3D, [3]int{4, 4, 4})
	m, err := NewMesh(geo, 1, 2, false)
	require.NoError(t, err)

	// Tag each interior cell with a unique value and check that guards
	// pick up their periodic images, corners included.
	f := m.Ex
	for k := 0; k < 4; k++ {
		for j := 0; j < 4; j++ {
			for i := 0; i < 4; i++ {
				f.Set(i, j, k, float64(i+10*j+100*k))
			}
		}
	}

	FillGuards([]*Field{f}, [3]bool{true, true, true})

	assert.Equal(t, f.At(3, 3, 3), f.At(-1, -1, -1))
	assert.Equal(t, f.At(0, 0, 0), f.At(4, 4, 4))
	assert.Equal(t, f.At(2, 0, 3), f.At(2, 4, -1))
	assert.Equal(t, f.At(3, 1, 2), f.At(-1, 1, 2))
}

func TestFoldGuards(t *testing.T) {
	geo := testGeom(t, geom.Dim3D, [3]int{4, 4, 4})
	m, err := NewMesh(geo, 1, 2, false)
	require.NoError(t, err)

	f := m.Jx
	f.Add(-1, -1, -1, 2)
	f.Add(4, 0, 0, 3)
	f.Add(1, 5, 2, 5)

	FoldGuards([]*Field{f}, [3]bool{true, true, true})

	assert.Equal(t, 2.0, f.At(3, 3, 3))
	assert.Equal(t, 3.0, f.At(0, 0, 0))
	assert.Equal(t, 5.0, f.At(1, 1, 2))
	assert.Equal(t, 0.0, f.At(-1, -1, -1))
	assert.Equal(t, 0.0, f.At(4, 0, 0))

	total := 0.0
	for _, v := range f.Data {
		total += v
	}
	assert.InDelta(t, 10, total, 1e-14, "folding conserves charge")
}

func TestFoldGuardsDropsNonPeriodic(t *testing.T) {
	geo := testGeom(t, geom.Dim3D, [3]int{4, 4, 4})
	m, err := NewMesh(geo, 1, 2, false)
	require.NoError(t, err)

	f := m.Jx
	f.Add(-1, 2, 2, 7)
	FoldGuards([]*Field{f}, [3]bool{false, true, true})

	assert.Equal(t, 0.0, f.At(-1, 2, 2))
	assert.Equal(t, 0.0, f.At(3, 2, 2))
}

func TestAxisFold(t *testing.T) {
	geo := testGeom(t, geom.DimRZ, [3]int{6, 6, 1})
	m, err := NewMesh(geo, 1, 2, false)
	require.NoError(t, err)

	// Jz is node centered radially: guard -1 mirrors onto node 1. Mode 0
	// keeps its sign, the m=1 planes of a z component flip by (-1)^m.
	m.RhoNew.AddP(0, -1, 2, 0, 1)
	m.RhoNew.AddP(1, -1, 2, 0, 1)
	// Jx (radial) is half staggered: guard -1 mirrors onto cell 0 with a
	// vector sign flip.
	m.Jx.AddP(0, -1, 2, 0, 1)
	m.Jx.AddP(2, -1, 2, 0, 1)

	m.AxisFold()

	assert.Equal(t, 1.0, m.RhoNew.AtP(0, 1, 2, 0))
	assert.Equal(t, -1.0, m.RhoNew.AtP(1, 1, 2, 0))
	assert.Equal(t, -1.0, m.Jx.AtP(0, 0, 2, 0))
	assert.Equal(t, 1.0, m.Jx.AtP(2, 0, 2, 0))
	assert.Equal(t, 0.0, m.RhoNew.AtP(0, -1, 2, 0))
	assert.Equal(t, 0.0, m.Jx.AtP(2, -1, 2, 0))
}

func TestAxisFill(t *testing.T) {
	geo := testGeom(t, geom.DimRZ, [3]int{6, 6, 1})
	m, err := NewMesh(geo, 1, 2, false)
	require.NoError(t, err)

	m.Ez.SetP(0, 1, 3, 0, 4)
	m.Ex.SetP(0, 0, 3, 0, 4)
	m.AxisFill()

	assert.Equal(t, 4.0, m.Ez.AtP(0, -1, 3, 0))
	assert.Equal(t, -4.0, m.Ex.AtP(0, -1, 3, 0))
}

func TestCheckFinite(t *testing.T) {
	geo := testGeom(t, geom.Dim3D, [3]int{4, 4, 4})
	m, err := NewMesh(geo, 1, 2, false)
	require.NoError(t, err)

	assert.NoError(t, m.Ex.CheckFinite())

	m.Ex.Set(1, 2, 3, math.NaN())
	err = m.Ex.CheckFinite()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ex")
}

func TestRotateRho(t *testing.T) {
	geo := testGeom(t, geom.Dim3D, [3]int{4, 4, 4})
	m, err := NewMesh(geo, 1, 2, false)
	require.NoError(t, err)

	m.RhoNew.Set(1, 1, 1, 9)
	m.RotateRho()

	assert.Equal(t, 9.0, m.RhoOld.At(1, 1, 1))
	assert.Equal(t, 0.0, m.RhoNew.At(1, 1, 1))

	m.ClearSources()
	assert.Equal(t, 9.0, m.RhoOld.At(1, 1, 1), "old density survives a clear")
}

func BenchmarkFillGuards(b *testing.B) {
	geo := testGeom(b, geom.Dim3D, [3]int{32, 32, 32})
	m, _ := NewMesh(geo, 2, 2, false)
	fs := m.EB()
	per := [3]bool{true, true, true}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FillGuards(fs, per)
	}
}
