package gather

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/pickerel/geom"
	"github.com/phil-mansfield/pickerel/grid"
)

func testMesh(t testing.TB, dim geom.Dim, order int) *grid.Mesh {
	n, modes := [3]int{12, 12, 12}, 0
	switch dim {
	case geom.Dim1D:
		n = [3]int{12, 1, 1}
	case geom.Dim2D:
		n = [3]int{12, 12, 1}
	case geom.DimRZ:
		n, modes = [3]int{12, 12, 1}, 2
	}
	geo, err := geom.New(dim, modes, n,
		[3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	require.NoError(t, err)
	m, err := grid.NewMesh(geo, order, 2, false)
	require.NoError(t, err)
	return m
}

// Gathering a spatially constant field must return exactly that constant
// at any position, for every order, scheme, and dimensionality.
func TestConstantField(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	dims := []geom.Dim{geom.Dim1D, geom.Dim2D, geom.Dim3D}
	schemes := []Scheme{MomentumConserving, EnergyConserving}

	for _, dim := range dims {
		for order := 1; order <= 3; order++ {
			for _, scheme := range schemes {
				m := testMesh(t, dim, order)
				consts := []float64{3, -1, 0.5, 2, -7, 11}
				for i, f := range m.EB() {
					f.Fill(consts[i])
				}

				g, err := New(m, order, scheme, External{})
				require.NoError(t, err)

				for trial := 0; trial < 50; trial++ {
					x := rng.Float64()
					y := rng.Float64()
					z := rng.Float64()
					ex, ey, ez, bx, by, bz := g.EB(m, x, y, z)

					assert.InDelta(t, 3, ex, 1e-13,
						"%s order %d scheme %s", dim, order, scheme)
					assert.InDelta(t, -1, ey, 1e-13)
					assert.InDelta(t, 0.5, ez, 1e-13)
					assert.InDelta(t, 2, bx, 1e-13)
					assert.InDelta(t, -7, by, 1e-13)
					assert.InDelta(t, 11, bz, 1e-13)
				}
			}
		}
	}
}

// A uniform Cartesian field on a cylindrical mesh lives in the m=1 modes.
// Gathering must rotate it back into a constant.
func TestConstantFieldRZ(t *testing.T) {
	rng := rand.New(rand.NewSource(100))
	for order := 1; order <= 3; order++ {
		m := testMesh(t, geom.DimRZ, order)

		// Uniform Ex: Er = Ex cos(theta), Etheta = -Ex sin(theta).
		exWant := 2.5
		for i := range m.Ex.M[1] {
			m.Ex.M[1][i] = exWant
		}
		for i := range m.Ey.M[2] {
			m.Ey.M[2][i] = -exWant
		}
		// Uniform Ez and Bz live in mode zero.
		m.Ez.Fill(0)
		for i := range m.Ez.M[0] {
			m.Ez.M[0][i] = -4.0
		}
		for i := range m.Bz.M[0] {
			m.Bz.M[0][i] = 1.5
		}

		g, err := New(m, order, MomentumConserving, External{})
		require.NoError(t, err)

		for trial := 0; trial < 50; trial++ {
			// Stay a guard width away from the axis and the outer edge.
			x := rng.Float64()*0.8 - 0.4
			y := rng.Float64()*0.8 - 0.4
			z := rng.Float64()
			if x*x+y*y < 0.3*0.3 {
				continue
			}
			ex, ey, ez, _, _, bz := g.EB(m, x, y, z)

			assert.InDelta(t, exWant, ex, 1e-12, "order %d", order)
			assert.InDelta(t, 0, ey, 1e-12, "order %d", order)
			assert.InDelta(t, -4.0, ez, 1e-12)
			assert.InDelta(t, 1.5, bz, 1e-12)
		}
	}
}

// Shape interpolation of any order reproduces linear fields exactly in the
// interior.
func TestLinearField(t *testing.T) {
	for order := 1; order <= 3; order++ {
		m := testMesh(t, geom.Dim3D, order)
		dx := m.Geom.CellWidth(0)

		f := m.Ex // staggered along x
		for k := -m.Ng[2]; k < 12+m.Ng[2]; k++ {
			for j := -m.Ng[1]; j < 12+m.Ng[1]; j++ {
				for i := -m.Ng[0]; i < 12+m.Ng[0]; i++ {
					f.Set(i, j, k, (float64(i)+0.5)*dx)
				}
			}
		}

		g, err := New(m, order, MomentumConserving, External{})
		require.NoError(t, err)

		for _, x := range []float64{0.3, 0.5, 0.71} {
			ex, _, _, _, _, _ := g.EB(m, x, 0.5, 0.5)
			assert.InDelta(t, x, ex, 1e-13, "order %d at x=%g", order, x)
		}
	}
}

func TestExternalField(t *testing.T) {
	m := testMesh(t, geom.Dim3D, 1)
	ext := External{Ex: 10, Ey: 20, Ez: 30, Bx: 1, By: 2, Bz: 3}
	g, err := New(m, 1, MomentumConserving, ext)
	require.NoError(t, err)

	ex, ey, ez, bx, by, bz := g.EB(m, 0.5, 0.5, 0.5)
	assert.Equal(t, 10.0, ex)
	assert.Equal(t, 20.0, ey)
	assert.Equal(t, 30.0, ez)
	assert.Equal(t, 1.0, bx)
	assert.Equal(t, 2.0, by)
	assert.Equal(t, 3.0, bz)
}

func TestEnergyConservingDropsOrder(t *testing.T) {
	// At order 1 the energy-conserving scheme gathers staggered axes with
	// nearest grid point, so Ex is piecewise constant between faces.
	m := testMesh(t, geom.Dim1D, 1)
	m.Ex.Set(3, 0, 0, 5)
	m.Ex.Set(4, 0, 0, 9)

	g, err := New(m, 1, EnergyConserving, External{})
	require.NoError(t, err)

	dx := m.Geom.CellWidth(0)
	// Faces sit at 3.5dx and 4.5dx; x = 3.8dx is nearest the first.
	ex, _, _, _, _, _ := g.EB(m, 3.8*dx, 0, 0)
	assert.InDelta(t, 5, ex, 1e-14)
	ex, _, _, _, _, _ = g.EB(m, 4.3*dx, 0, 0)
	assert.InDelta(t, 9, ex, 1e-14)
}

func TestNewErrors(t *testing.T) {
	m := testMesh(t, geom.Dim3D, 1)
	_, err := New(m, 0, MomentumConserving, External{})
	assert.Error(t, err)
	_, err = New(m, 4, MomentumConserving, External{})
	assert.Error(t, err)
}

func BenchmarkGather3D(b *testing.B) {
	m := testMesh(b, geom.Dim3D, 2)
	g, err := New(m, 2, MomentumConserving, External{})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x := float64(i%97) / 97
		sinkEx, _, _, _, _, _ = g.EB(m, x, 0.5, 0.5)
	}
}

var sinkEx float64
