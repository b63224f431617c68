package diag

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/table"

	"github.com/phil-mansfield/pickerel/geom"
	"github.com/phil-mansfield/pickerel/grid"
	"github.com/phil-mansfield/pickerel/particle"
	"github.com/phil-mansfield/pickerel/units"
)

func testMesh2D(t *testing.T) *grid.Mesh {
	geo, err := geom.New(geom.Dim2D, 0, [3]int{8, 4, 1},
		[3]float64{0, 0, 0}, [3]float64{2, 1, 1})
	require.NoError(t, err)
	m, err := grid.NewMesh(geo, 1, 2, false)
	require.NoError(t, err)
	return m
}

func TestFieldEnergy(t *testing.T) {
	m := testMesh2D(t)
	m.Ex.Fill(3.0)
	m.Bz.Fill(2.0)

	vals := NewFieldEnergy(m).Compute()
	require.Len(t, vals, 7)

	// The domain is 2 x 1, so the uniform fields integrate exactly.
	ex := units.Eps0 / 2 * 9.0 * 2.0
	bz := units.Eps0 * units.C2 / 2 * 4.0 * 2.0
	assert.InEpsilon(t, ex, vals[0], 1e-12)
	assert.InEpsilon(t, bz, vals[5], 1e-12)
	assert.InEpsilon(t, ex+bz, vals[6], 1e-12)
	for _, c := range []int{1, 2, 3, 4} {
		assert.Equal(t, 0.0, vals[c])
	}
}

func TestFieldEnergyCylindrical(t *testing.T) {
	geo, err := geom.New(geom.DimRZ, 2, [3]int{4, 4, 1},
		[3]float64{0, 0, 0}, [3]float64{0.4, 0.8, 0})
	require.NoError(t, err)
	m, err := grid.NewMesh(geo, 1, 2, false)
	require.NoError(t, err)

	// Er sits on radial faces, whose ring volumes tile the cylinder
	// exactly.
	for i := range m.Ex.Data {
		m.Ex.Data[i] = 3.0
	}
	vals := NewFieldEnergy(m).Compute()
	vol := math.Pi * 0.4 * 0.4 * 0.8
	assert.InEpsilon(t, units.Eps0/2*9.0*vol, vals[0], 1e-12)

	// A pure mode-1 coefficient carries half the angular weight. Ez is
	// node-centered in r, so the expected volume follows the node rings.
	m.Ex.Zero()
	for i := range m.Ez.M[1] {
		m.Ez.M[1][i] = 2.0
	}
	vals = NewFieldEnergy(m).Compute()
	nodeVol := 0.0
	for ir := 0; ir < 4; ir++ {
		nodeVol += geo.NodeVolume(ir)
	}
	want := units.Eps0 / 2 * 0.5 * 4.0 * nodeVol * 4
	assert.InEpsilon(t, want, vals[2], 1e-12)
	assert.Equal(t, 0.0, vals[0])
}

func TestFieldMaximum(t *testing.T) {
	m := testMesh2D(t)
	m.Ex.Set(1, 2, 0, -5.0)
	m.Ex.Set(3, 1, 0, 4.0)
	m.Ey.Set(1, 2, 0, 3.0)
	m.By.Set(0, 0, 0, -2.0)

	vals := NewFieldMaximum(m).Compute()
	require.Len(t, vals, 8)
	assert.Equal(t, 5.0, vals[0])
	assert.Equal(t, 3.0, vals[1])
	assert.Equal(t, 0.0, vals[2])
	assert.Equal(t, 2.0, vals[4])
	assert.InEpsilon(t, math.Sqrt(34.0), vals[6], 1e-12)
	assert.Equal(t, 2.0, vals[7])
}

func TestParticleEnergy(t *testing.T) {
	el, err := particle.NewSpecies("electron", -1, 2.0, particle.Periodic{})
	require.NoError(t, err)
	pr, err := particle.NewSpecies("proton", 1, 4.0, particle.Periodic{})
	require.NoError(t, err)

	// u = 0.75c gives gamma = 1.25 exactly.
	el.Add(0, 0, 0, 0.75*units.C, 0, 0, 3.0)
	el.Add(0, 0, 0, 0, 0, 0, 7.0)
	pr.Add(0, 0, 0, 0, 0, 0, 1.0)

	d := NewParticleEnergy([]*particle.Species{el, pr})
	assert.Equal(t, []string{"electron", "proton", "total"}, d.Header())

	vals := d.Compute()
	want := 3.0 * 2.0 * 0.25 * units.C2
	assert.InEpsilon(t, want, vals[0], 1e-12)
	assert.Equal(t, 0.0, vals[1])
	assert.InEpsilon(t, want, vals[2], 1e-12)
}

func TestParticleNumber(t *testing.T) {
	el, err := particle.NewSpecies("electron", -1, 1.0, particle.Periodic{})
	require.NoError(t, err)
	pr, err := particle.NewSpecies("proton", 1, 1.0, particle.Periodic{})
	require.NoError(t, err)
	for i, w := range []float64{1, 2, 3} {
		el.Add(float64(i), 0, 0, 0, 0, 0, w)
	}
	pr.Add(0, 0, 0, 0, 0, 0, 5.0)

	d := NewParticleNumber([]*particle.Species{el, pr})
	assert.Equal(t,
		[]string{"electron_n", "electron_w", "proton_n", "proton_w",
			"total_n", "total_w"},
		d.Header())
	assert.Equal(t, []float64{3, 6, 1, 5, 4, 11}, d.Compute())
}

func TestGroupWrite(t *testing.T) {
	dir := t.TempDir()
	m := testMesh2D(t)
	m.Ex.Fill(1.0)

	g, err := NewGroup(dir, "testrun", 2, false,
		NewFieldEnergy(m), NewParticleNumber(nil))
	require.NoError(t, err)
	require.NoError(t, g.Write(0, 0.0))
	require.NoError(t, g.Write(1, 0.5))
	require.NoError(t, g.Write(2, 1.0))
	require.NoError(t, g.Close())

	data, err := os.ReadFile(filepath.Join(dir, "field_energy.dat"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data),
		"# pickerel field_energy run testrun\n"+
			"# step time Ex Ey Ez Bx By Bz total\n"))

	cols, err := table.ReadTable(filepath.Join(dir, "field_energy.dat"),
		[]int{0, 1, 2}, nil)
	require.NoError(t, err)
	require.Len(t, cols[0], 2)
	assert.Equal(t, []float64{0, 2}, cols[0])
	assert.Equal(t, []float64{0, 1}, cols[1])
	assert.InEpsilon(t, units.Eps0/2*2.0, cols[2][0], 1e-12)

	_, err = os.Stat(filepath.Join(dir, "particle_number.dat"))
	assert.NoError(t, err)
}

func TestGroupResume(t *testing.T) {
	dir := t.TempDir()

	g, err := NewGroup(dir, "run-a", 1, false, NewParticleNumber(nil))
	require.NoError(t, err)
	require.NoError(t, g.Write(0, 0.0))
	require.NoError(t, g.Close())

	g, err = NewGroup(dir, "run-a", 1, true, NewParticleNumber(nil))
	require.NoError(t, err)
	require.NoError(t, g.Write(1, 0.25))
	require.NoError(t, g.Close())

	path := filepath.Join(dir, "particle_number.dat")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "#"))

	cols, err := table.ReadTable(path, []int{0}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, cols[0])
}

func TestGroupErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := NewGroup(dir, "x", 0, false, NewParticleNumber(nil))
	assert.Error(t, err)

	_, err = NewGroup(dir, "x", 1, false,
		NewParticleNumber(nil), NewParticleNumber(nil))
	assert.Error(t, err)
}
