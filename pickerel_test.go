package pickerel

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/phil-mansfield/pickerel/grid"
	"github.com/phil-mansfield/pickerel/units"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func maxAbs(f *grid.Field) float64 {
	worst := 0.0
	for _, m := range f.M {
		for _, v := range m {
			if math.Abs(v) > worst {
				worst = math.Abs(v)
			}
		}
	}
	return worst
}

func mustRun(t *testing.T, text string) *Manager {
	t.Helper()
	man, err := New(text, false)
	require.NoError(t, err)
	require.NoError(t, man.Run())
	return man
}

// A field profile with no curl must survive the update loop bitwise: the
// magnetic half adds an exact zero and the electric half sees no current.
func TestVacuumFieldStaysStatic(t *testing.T) {
	text := `
[pic]
Dim = 1d
XCells = 32
XWidth = 1
Steps = 4
Solver = fdtd
Boundary = periodic
DiagEvery = 0
CheckEvery = 1
Workers = 1
`
	man, err := New(text, false)
	require.NoError(t, err)
	defer man.Close()

	m := man.Mesh()
	for i := 0; i < m.Geom.N[0]; i++ {
		phase := 2 * math.Pi * float64(i) / float64(m.Geom.N[0])
		m.Ex.Set(i, 0, 0, 1e3*math.Sin(phase))
	}
	man.fillGuards()

	want := [][]float64{}
	for _, f := range m.EB() {
		want = append(want, append([]float64(nil), f.Data...))
	}

	for i := 0; i < 4; i++ {
		require.NoError(t, man.Step())
	}

	for fi, f := range m.EB() {
		assert.Equal(t, want[fi], f.Data, f.Name)
	}
	assert.Equal(t, 4, man.StepNumber())
}

// A particle at rest in empty space deposits no current, feels no force,
// and never moves.
func TestStationaryChargeStaysPut(t *testing.T) {
	text := `
[pic]
Dim = 1d
XCells = 32
XWidth = 1
Steps = 5
Solver = fdtd
Boundary = periodic
DiagEvery = 0
CheckEvery = 0
Workers = 1

[species "electron"]
Charge = -1.602176634e-19
Mass = 9.1093837015e-31
`
	man, err := New(text, false)
	require.NoError(t, err)
	defer man.Close()

	x0 := 0.37
	s := man.Species()[0]
	s.Add(x0, 0, 0, 0, 0, 0, 1)

	for i := 0; i < 5; i++ {
		require.NoError(t, man.Step())
	}

	tl := s.Tiles[0]
	assert.Equal(t, x0, tl.X[0])
	assert.Equal(t, 0.0, tl.Ux[0])

	m := man.Mesh()
	for _, f := range append(m.EB(), m.Jx, m.Jy, m.Jz) {
		assert.Equal(t, 0.0, maxAbs(f), f.Name)
	}
}

// The Boris rotation angle per step satisfies tan(theta/2) = qB dt/(2 gamma
// m), so a step chosen for theta = 2 pi / n closes the orbit after exactly
// n steps.
func TestGyrationReturnsToStart(t *testing.T) {
	const n = 64
	bz := 0.1
	ux0 := 0.1 * units.C
	gamma := math.Sqrt(1 + ux0*ux0/units.C2)
	dt := 2 * gamma * units.ME / (units.QE * bz) * math.Tan(math.Pi/n)

	text := fmt.Sprintf(`
[pic]
Dim = 1d
XCells = 32
XWidth = 1
Steps = %d
Solver = fdtd
Boundary = periodic
Dt = %g
DiagEvery = 0
CheckEvery = 0
Workers = 1

[species "electron"]
Charge = %g
Mass = %g
ExtBz = %g
`, n, dt, -units.QE, units.ME, bz)

	man, err := New(text, false)
	require.NoError(t, err)
	defer man.Close()

	x0, y0 := 0.5, 0.0
	s := man.Species()[0]
	s.Add(x0, y0, 0, ux0, 0, 0, 0)

	for i := 0; i < n; i++ {
		require.NoError(t, man.Step())
	}

	tl := s.Tiles[0]
	assert.InDelta(t, x0, tl.X[0], 1e-9)
	assert.InDelta(t, y0, tl.Y[0], 1e-9)
	u2 := tl.Ux[0]*tl.Ux[0] + tl.Uy[0]*tl.Uy[0]
	assert.InEpsilon(t, ux0*ux0, u2, 1e-12)

	// Zero-weight particles leave the grid untouched.
	assert.Equal(t, 0.0, maxAbs(man.Mesh().Ex))
	assert.Equal(t, 0.0, maxAbs(man.Mesh().Jx))
}

// A particle moving at the E cross B velocity of uniform crossed external
// fields stays at that velocity under the Vay pusher, step after step.
func TestVayDriftStaysUniform(t *testing.T) {
	const n = 50
	bz := 1.0
	vd := units.C / 4
	ey := vd * bz
	gamma := 1 / math.Sqrt(1-vd*vd/units.C2)
	ux0 := gamma * vd
	dt := 1e-11

	text := fmt.Sprintf(`
[pic]
Dim = 1d
XCells = 32
XWidth = 1
Steps = %d
Solver = fdtd
Boundary = periodic
Dt = %g
DiagEvery = 0
CheckEvery = 0
Workers = 1

[species "electron"]
Charge = %g
Mass = %g
Pusher = vay
ExtEy = %g
ExtBz = %g
`, n, dt, -units.QE, units.ME, ey, bz)

	man, err := New(text, false)
	require.NoError(t, err)
	defer man.Close()

	x0 := 0.2
	s := man.Species()[0]
	s.Add(x0, 0, 0, ux0, 0, 0, 0)

	for i := 0; i < n; i++ {
		require.NoError(t, man.Step())
	}

	tl := s.Tiles[0]
	assert.InEpsilon(t, ux0, tl.Ux[0], 1e-12)
	assert.InDelta(t, 0, tl.Uy[0], math.Abs(ux0)*1e-10)
	vx := ux0 / math.Sqrt(1+ux0*ux0/units.C2)
	assert.InDelta(t, x0+n*vx*dt, tl.X[0], 1e-8)
}

const thermalText = `
[pic]
Dim = 1d
XCells = 64
XWidth = 0.01
Steps = 5
Solver = fdtd
Boundary = periodic
DiagEvery = 0
CheckEvery = 0
Workers = 2

[species "electron"]
Charge = -1.602176634e-19
Mass = 9.1093837015e-31

[inject "bulk"]
Species = electron
Kind = plasma
Density = 1e12
PartPerCell = 4
UThX = 1e7
UThY = 1e7
Seed = 11
`

// Two runs of the same config with the same worker count must agree
// bitwise, injection draws and deposition reduce order included.
func TestSameConfigGivesSameRun(t *testing.T) {
	a := mustRun(t, thermalText)
	defer a.Close()
	b := mustRun(t, thermalText)
	defer b.Close()

	for fi, fa := range a.Mesh().All() {
		fb := b.Mesh().All()[fi]
		assert.Equal(t, fa.Data, fb.Data, fa.Name)
	}

	ta := a.Species()[0].Tiles[0]
	tb := b.Species()[0].Tiles[0]
	require.Equal(t, ta.Len(), tb.Len())
	assert.Equal(t, ta.X, tb.X)
	assert.Equal(t, ta.Ux, tb.Ux)
	assert.Equal(t, ta.ID, tb.ID)
}

// A run restored from its own checkpoint must land on the same state as
// the run that kept going.
func TestCheckpointRestartMatches(t *testing.T) {
	dir := t.TempDir()
	text := fmt.Sprintf(`
[pic]
Dim = 1d
XCells = 32
XWidth = 0.01
Steps = 6
Solver = psatd
Dt = 5e-13
Boundary = periodic
DiagEvery = 0
CheckEvery = 0
CheckpointEvery = 3
CheckpointDir = %s
Workers = 1

[species "electron"]
Charge = -1.602176634e-19
Mass = 9.1093837015e-31

[inject "bulk"]
Species = electron
Kind = plasma
Density = 1e12
PartPerCell = 2
UThX = 1e7
Seed = 3
`, dir)

	a := mustRun(t, text)
	defer a.Close()

	b, err := Restore(filepath.Join(dir, "ckpt-3.ckpt"), false)
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, 3, b.StepNumber())
	assert.Equal(t, a.RunID(), b.RunID())

	require.NoError(t, b.Run())
	assert.Equal(t, a.StepNumber(), b.StepNumber())
	assert.Equal(t, a.Time(), b.Time())

	for fi, fa := range a.Mesh().All() {
		fb := b.Mesh().All()[fi]
		assert.Equal(t, fa.Data, fb.Data, fa.Name)
	}
	sa, sb := a.Species()[0], b.Species()[0]
	assert.Equal(t, sa.NextID, sb.NextID)
	require.Equal(t, len(sa.Tiles), len(sb.Tiles))
	for ti := range sa.Tiles {
		assert.Equal(t, sa.Tiles[ti].X, sb.Tiles[ti].X)
		assert.Equal(t, sa.Tiles[ti].Ux, sb.Tiles[ti].Ux)
		assert.Equal(t, sa.Tiles[ti].W, sb.Tiles[ti].W)
		assert.Equal(t, sa.Tiles[ti].ID, sb.Tiles[ti].ID)
	}
}

func TestDiagnosticsWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "diags")
	text := fmt.Sprintf(`
[pic]
Dim = 1d
XCells = 32
XWidth = 0.01
Steps = 3
Solver = fdtd
Boundary = periodic
DiagEvery = 1
DiagDir = %s
CheckEvery = 0
Workers = 1

[species "electron"]
Charge = -1.602176634e-19
Mass = 9.1093837015e-31

[inject "bulk"]
Species = electron
Kind = plasma
Density = 1e12
PartPerCell = 2
Seed = 5
`, dir)

	man := mustRun(t, text)
	require.NoError(t, man.Close())

	data, err := os.ReadFile(filepath.Join(dir, "field_energy.dat"))
	require.NoError(t, err)
	lines := []string{}
	for _, l := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	// Two comment lines, then rows for steps 0 through 3.
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "#"))
	assert.Equal(t, "0", strings.Fields(lines[2])[0])
	assert.Equal(t, "3", strings.Fields(lines[5])[0])

	for _, name := range []string{
		"field_maximum", "particle_energy", "particle_number",
	} {
		_, err := os.Stat(filepath.Join(dir, name+".dat"))
		assert.NoError(t, err, name)
	}
}

// A cylindrical vacuum run exercises the axis fold and fill paths end to
// end.
func TestCylindricalSetupSteps(t *testing.T) {
	text := `
[pic]
Dim = rz
XCells = 16
XWidth = 1e-3
YCells = 32
YWidth = 2e-3
Modes = 2
Steps = 2
Solver = fdtd
Boundary = periodic
Deposition = direct
DiagEvery = 0
CheckEvery = 1
Workers = 1
`
	man, err := New(text, false)
	require.NoError(t, err)
	defer man.Close()

	require.NoError(t, man.Step())
	require.NoError(t, man.Step())
}

func TestNewRejectsBadCombos(t *testing.T) {
	base := `
[pic]
Dim = 1d
XCells = 32
XWidth = 1
Steps = 4
Solver = %s
Boundary = %s
DiagEvery = 0
CheckEvery = 0
Workers = 1
%s

[species "electron"]
Charge = -1.602176634e-19
Mass = 9.1093837015e-31
`
	table := []struct {
		name             string
		solver, boundary string
		extra            string
		want             string
	}{
		{"direct without cleaning", "fdtd", "periodic",
			"Deposition = direct", "CleanDivergence"},
		{"pml with psatd", "psatd", "pml", "", "fdtd"},
		{"pml with cleaning", "fdtd", "pml",
			"CleanDivergence = true", "cannot be combined"},
		{"multi-J with fdtd", "fdtd", "periodic", "MultiJ = 2", "psatd"},
		{"multi-J with cleaning", "psatd", "periodic",
			"MultiJ = 2\nCleanDivergence = true", "cannot be combined"},
		{"time step above the CFL bound", "fdtd", "periodic",
			"Dt = 1", "stability bound"},
		{"particle crossing a full cell", "psatd", "periodic",
			"Dt = 1e-9", "at most one"},
	}

	for _, test := range table {
		text := fmt.Sprintf(base, test.solver, test.boundary, test.extra)
		_, err := New(text, false)
		require.Error(t, err, test.name)
		assert.Contains(t, err.Error(), test.want, test.name)
	}
}

func BenchmarkStep(b *testing.B) {
	text := `
[pic]
Dim = 2d
XCells = 32
XWidth = 0.01
YCells = 32
YWidth = 0.01
Steps = 100
Solver = fdtd
Boundary = periodic
DiagEvery = 0
CheckEvery = 0

[species "electron"]
Charge = -1.602176634e-19
Mass = 9.1093837015e-31

[inject "bulk"]
Species = electron
Kind = plasma
Density = 1e12
PartPerCell = 4
UThX = 1e7
UThY = 1e7
Seed = 1
`
	man, err := New(text, false)
	if err != nil {
		b.Fatal(err)
	}
	defer man.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := man.Step(); err != nil {
			b.Fatal(err)
		}
	}
}
