/*package gather interpolates staggered grid fields to continuous particle
positions. A Gatherer is a pure reader of the mesh: it assumes the guard
cells were refreshed after the previous field update, and positions within
a guard width of the domain edge resolve to that guard data.

Gatherers carry scratch buffers, so they are not safe for concurrent use.
The step driver hands one to each worker.
*/
package gather

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/pickerel/geom"
	"github.com/phil-mansfield/pickerel/grid"
	"github.com/phil-mansfield/pickerel/shape"
)

// Scheme selects how staggered components are interpolated.
type Scheme int

const (
	// MomentumConserving uses the same shape order on every axis, which
	// suppresses self-forces between the gather and a charge-conserving
	// deposition.
	MomentumConserving Scheme = iota
	// EnergyConserving drops one shape order on each staggered axis,
	// matching the finite-difference divergence so direct deposition plus
	// divergence cleaning stays stable.
	EnergyConserving
)

// String returns the name used for the scheme in config files.
func (s Scheme) String() string {
	switch s {
	case MomentumConserving:
		return "momentum"
	case EnergyConserving:
		return "energy"
	}
	panic("Impossible gather scheme flag.")
}

// ParseScheme converts a config-file gather scheme name into a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch s {
	case "momentum":
		return MomentumConserving, nil
	case "energy":
		return EnergyConserving, nil
	}
	return 0, fmt.Errorf("The gather scheme '%s' is not recognized. It "+
		"must be 'momentum' or 'energy'.", s)
}

// External is a uniform applied field added to every gathered value, on
// top of whatever lives on the grid.
type External struct {
	Ex, Ey, Ez float64
	Bx, By, Bz float64
}

// axisWeights caches the nodal and staggered shape factors of one particle
// along one axis, so the six components don't recompute them.
type axisWeights struct {
	i0n, i0s int
	nn, ns   int
	wn, ws   [shape.MaxOrder + 1]float64
}

// Gatherer interpolates fields at particle positions for one mesh shape.
type Gatherer struct {
	geo    *geom.Geometry
	order  int
	scheme Scheme
	ext    External

	ax   [3]axisWeights
	cosM []float64 // cos(m theta) scratch for cylindrical meshes
	sinM []float64
}

// New returns a Gatherer for the mesh, or an error if the mesh's guard
// cells cannot cover the interpolation stencil.
func New(m *grid.Mesh, order int, scheme Scheme, ext External) (*Gatherer, error) {
	if order < 1 || order > shape.MaxOrder {
		return nil, fmt.Errorf("The gather order %d is outside the "+
			"supported range [1, %d].", order, shape.MaxOrder)
	}
	geo := m.Geom
	for a := 0; a < geo.Axes(); a++ {
		if m.Ng[a] < shape.GuardCells(order)-1 {
			return nil, fmt.Errorf("The mesh has %d guard cells on axis "+
				"%d, but gathering at order %d needs %d.",
				m.Ng[a], a, order, shape.GuardCells(order)-1)
		}
	}

	g := &Gatherer{geo: geo, order: order, scheme: scheme, ext: ext}
	if geo.Dim == geom.DimRZ {
		g.cosM = make([]float64, geo.Modes)
		g.sinM = make([]float64, geo.Modes)
	}
	return g, nil
}

// prep fills the per-axis weight caches for a position in fractional grid
// coordinates.
func (g *Gatherer) prep(u0, u1, u2 float64) {
	us := [3]float64{u0, u1, u2}
	sOrder := g.order
	if g.scheme == EnergyConserving {
		sOrder--
	}

	for a := 0; a < g.geo.Axes(); a++ {
		ax := &g.ax[a]
		ax.i0n = shape.Weights(g.order, us[a], &ax.wn)
		ax.nn = shape.Support(g.order)
		ax.i0s = shape.Weights(sOrder, us[a]-0.5, &ax.ws)
		ax.ns = shape.Support(sOrder)
	}
	for a := g.geo.Axes(); a < 3; a++ {
		ax := &g.ax[a]
		ax.i0n, ax.i0s = 0, 0
		ax.nn, ax.ns = 1, 1
		ax.wn[0], ax.ws[0] = 1, 1
	}
}

// sample interpolates one plane of one component using the cached weights.
func (g *Gatherer) sample(f *grid.Field, p int) float64 {
	var i0, n [3]int
	var w [3]*[shape.MaxOrder + 1]float64
	for a := 0; a < 3; a++ {
		ax := &g.ax[a]
		if f.Off[a] != 0 {
			i0[a], n[a], w[a] = ax.i0s, ax.ns, &ax.ws
		} else {
			i0[a], n[a], w[a] = ax.i0n, ax.nn, &ax.wn
		}
	}

	m := f.M[p]
	sum := 0.0
	for dk := 0; dk < n[2]; dk++ {
		wk := w[2][dk]
		for dj := 0; dj < n[1]; dj++ {
			wjk := w[1][dj] * wk
			row := f.Idx(i0[0], i0[1]+dj, i0[2]+dk)
			for di := 0; di < n[0]; di++ {
				sum += w[0][di] * wjk * m[row+di]
			}
		}
	}
	return sum
}

// EB interpolates all six field components at a position. On cylindrical
// meshes the radial and azimuthal components are summed over modes and
// rotated back into Cartesian x and y.
func (g *Gatherer) EB(m *grid.Mesh, x, y, z float64) (ex, ey, ez, bx, by, bz float64) {
	u0, u1, u2 := g.geo.Frac(x, y, z)
	g.prep(u0, u1, u2)

	if g.geo.Dim != geom.DimRZ {
		ex = g.sample(m.Ex, 0) + g.ext.Ex
		ey = g.sample(m.Ey, 0) + g.ext.Ey
		ez = g.sample(m.Ez, 0) + g.ext.Ez
		bx = g.sample(m.Bx, 0) + g.ext.Bx
		by = g.sample(m.By, 0) + g.ext.By
		bz = g.sample(m.Bz, 0) + g.ext.Bz
		return ex, ey, ez, bx, by, bz
	}

	theta := g.geo.Theta(x, y)
	cos, sin := math.Cos(theta), math.Sin(theta)
	g.trigModes(cos, sin)

	er := g.sampleModes(m.Ex)
	et := g.sampleModes(m.Ey)
	ez = g.sampleModes(m.Ez) + g.ext.Ez
	br := g.sampleModes(m.Bx)
	bt := g.sampleModes(m.By)
	bz = g.sampleModes(m.Bz) + g.ext.Bz

	ex = er*cos - et*sin + g.ext.Ex
	ey = er*sin + et*cos + g.ext.Ey
	bx = br*cos - bt*sin + g.ext.Bx
	by = br*sin + bt*cos + g.ext.By
	return ex, ey, ez, bx, by, bz
}

// trigModes fills cos(m theta) and sin(m theta) for m = 1..Modes-1 using
// the angle-addition recurrence.
func (g *Gatherer) trigModes(cos, sin float64) {
	if g.geo.Modes < 2 {
		return
	}
	g.cosM[1], g.sinM[1] = cos, sin
	for mm := 2; mm < g.geo.Modes; mm++ {
		g.cosM[mm] = g.cosM[mm-1]*cos - g.sinM[mm-1]*sin
		g.sinM[mm] = g.sinM[mm-1]*cos + g.cosM[mm-1]*sin
	}
}

// sampleModes sums a component's azimuthal planes at the cached angle.
func (g *Gatherer) sampleModes(f *grid.Field) float64 {
	sum := g.sample(f, 0)
	for mm := 1; mm < g.geo.Modes; mm++ {
		sum += g.sample(f, 2*mm-1) * g.cosM[mm]
		sum += g.sample(f, 2*mm) * g.sinM[mm]
	}
	return sum
}
