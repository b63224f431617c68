/*package deposit accumulates macroparticle charge and current onto the
staggered grid. Two schemes are supported: a charge-conserving scheme that
integrates the cell-crossing fluxes of each particle's straight-line step,
and a direct scheme that weights q*v at the half-step position and relies
on divergence cleaning or spectral current correction to repair the
continuity error.

Depositors write into per-worker Buffers rather than the shared mesh, so
concurrent particles never race on a grid cell; the step driver reduces the
buffers additively once all particles are down.
*/
package deposit

import (
	"fmt"

	"github.com/phil-mansfield/pickerel/geom"
	"github.com/phil-mansfield/pickerel/grid"
	"github.com/phil-mansfield/pickerel/shape"
)

// Scheme selects the deposition algorithm.
type Scheme int

const (
	// Esirkepov is the charge-conserving flux scheme. It works at any
	// shape order but needs the per-step displacement bounded by one cell,
	// which the setup layer guarantees through the time-step choice.
	Esirkepov Scheme = iota
	// Direct weights q*v with the staggered shape factors at the
	// half-step position. Not charge conserving on its own.
	Direct
)

// String returns the name used for the scheme in config files.
func (s Scheme) String() string {
	switch s {
	case Esirkepov:
		return "esirkepov"
	case Direct:
		return "direct"
	}
	panic("Impossible deposition scheme flag.")
}

// ParseScheme converts a config-file deposition scheme name into a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch s {
	case "esirkepov":
		return Esirkepov, nil
	case "direct":
		return Direct, nil
	}
	return 0, fmt.Errorf("The deposition scheme '%s' is not recognized. "+
		"It must be 'esirkepov' or 'direct'.", s)
}

// Buffers is one worker's private accumulation targets. They share shape
// and staggering with the mesh components they reduce into.
type Buffers struct {
	Jx, Jy, Jz, Rho *grid.Field
}

// NewBuffers allocates zeroed buffers matching the mesh.
func NewBuffers(m *grid.Mesh) *Buffers {
	return &Buffers{
		Jx:  m.Jx.CopyShape("Jx"),
		Jy:  m.Jy.CopyShape("Jy"),
		Jz:  m.Jz.CopyShape("Jz"),
		Rho: m.RhoNew.CopyShape("Rho"),
	}
}

// Zero clears the buffers for the next step.
func (b *Buffers) Zero() {
	b.Jx.Zero()
	b.Jy.Zero()
	b.Jz.Zero()
	b.Rho.Zero()
}

// AddTo reduces the buffers into the mesh's shared source fields.
func (b *Buffers) AddTo(m *grid.Mesh) {
	pairs := [][2]*grid.Field{
		{m.Jx, b.Jx}, {m.Jy, b.Jy}, {m.Jz, b.Jz}, {m.RhoNew, b.Rho},
	}
	for _, pair := range pairs {
		dst, src := pair[0], pair[1]
		for p := range dst.M {
			dm, sm := dst.M[p], src.M[p]
			for i := range dm {
				dm[i] += sm[i]
			}
		}
	}
}

// window is the per-axis shape support of one particle, with both the
// nodal and the half-staggered factor sets.
type window struct {
	i0n, i0s int
	nn, ns   int
	wn, ws   [shape.MaxOrder + 1]float64
}

// Depositor deposits particles for one mesh shape. It carries scratch
// buffers, so each worker needs its own.
type Depositor struct {
	geo    *geom.Geometry
	order  int
	scheme Scheme
	invVol float64 // Cartesian only

	ax [3]window

	// Esirkepov scratch: old and new shape factors on a common window.
	s0, s1, ds [3][shape.MaxOrder + 2]float64

	cosM, sinM []float64
}

// New returns a Depositor, or an error if the scheme, order, and geometry
// cannot work together.
func New(m *grid.Mesh, order int, scheme Scheme) (*Depositor, error) {
	if order < 1 || order > shape.MaxOrder {
		return nil, fmt.Errorf("The deposition order %d is outside the "+
			"supported range [1, %d].", order, shape.MaxOrder)
	}
	geo := m.Geom
	if scheme == Esirkepov && geo.Dim == geom.DimRZ {
		return nil, fmt.Errorf("Charge-conserving deposition is not " +
			"supported on cylindrical domains. Use the direct scheme " +
			"with current correction or divergence cleaning.")
	}
	for a := 0; a < geo.Axes(); a++ {
		if m.Ng[a] < shape.GuardCells(order) {
			return nil, fmt.Errorf("The mesh has %d guard cells on axis "+
				"%d, but depositing at order %d needs %d.",
				m.Ng[a], a, order, shape.GuardCells(order))
		}
	}

	d := &Depositor{geo: geo, order: order, scheme: scheme}
	if geo.Dim == geom.DimRZ {
		d.cosM = make([]float64, geo.Modes)
		d.sinM = make([]float64, geo.Modes)
	} else {
		d.invVol = 1 / geo.CellVolume()
	}
	return d, nil
}

// Current deposits one particle's step onto the buffers. (x0,y0,z0) and
// (x1,y1,z1) are the pre- and post-push positions and v is the post-push
// velocity; the conserving scheme integrates the trajectory between them,
// the direct scheme samples the trajectory midpoint.
func (d *Depositor) Current(b *Buffers, q, w float64,
	x0, y0, z0, x1, y1, z1, vx, vy, vz, dt float64) {

	if d.geo.Dim == geom.DimRZ {
		d.directRZ(b, q, w, x1, y1, z1, vx, vy, vz, dt)
		return
	}
	if d.scheme == Direct {
		d.directCart(b, q, w, x1, y1, z1, vx, vy, vz, dt)
		return
	}
	d.esirkepov(b, q, w, x0, y0, z0, x1, y1, z1, vx, vy, vz, dt)
}

// Charge deposits a particle's charge density at its current position with
// the nodal shape factors.
func (d *Depositor) Charge(f *grid.Field, q, w, x, y, z float64) {
	if d.geo.Dim == geom.DimRZ {
		d.chargeRZ(f, q, w, x, y, z)
		return
	}

	u0, u1, u2 := d.geo.Frac(x, y, z)
	d.prep(u0, u1, u2)
	qw := q * w * d.invVol

	ax, ay, az := &d.ax[0], &d.ax[1], &d.ax[2]
	data := f.Data
	for dk := 0; dk < az.nn; dk++ {
		for dj := 0; dj < ay.nn; dj++ {
			wjk := qw * ay.wn[dj] * az.wn[dk]
			row := f.Idx(ax.i0n, ay.i0n+dj, az.i0n+dk)
			for di := 0; di < ax.nn; di++ {
				data[row+di] += ax.wn[di] * wjk
			}
		}
	}
}

// prep fills the per-axis nodal and staggered windows at a position given
// in fractional grid coordinates.
func (d *Depositor) prep(u0, u1, u2 float64) {
	us := [3]float64{u0, u1, u2}
	for a := 0; a < d.geo.Axes(); a++ {
		ax := &d.ax[a]
		ax.i0n = shape.Weights(d.order, us[a], &ax.wn)
		ax.nn = shape.Support(d.order)
		ax.i0s = shape.Weights(d.order, us[a]-0.5, &ax.ws)
		ax.ns = shape.Support(d.order)
	}
	for a := d.geo.Axes(); a < 3; a++ {
		ax := &d.ax[a]
		ax.i0n, ax.i0s = 0, 0
		ax.nn, ax.ns = 1, 1
		ax.wn[0], ax.ws[0] = 1, 1
	}
}

// directCart deposits current at the half-step position with staggered
// shape factors.
func (d *Depositor) directCart(b *Buffers, q, w float64,
	x1, y1, z1, vx, vy, vz, dt float64) {

	xd := x1 - 0.5*dt*vx
	yd := y1 - 0.5*dt*vy
	zd := z1 - 0.5*dt*vz
	u0, u1, u2 := d.geo.Frac(xd, yd, zd)
	d.prep(u0, u1, u2)

	d.scatter(b.Jx, q*w*vx*d.invVol)
	d.scatter(b.Jy, q*w*vy*d.invVol)
	d.scatter(b.Jz, q*w*vz*d.invVol)
}

// scatter spreads a value over a component's support, using the staggered
// window on the component's staggered axes.
func (d *Depositor) scatter(f *grid.Field, val float64) {
	var i0, n [3]int
	var w [3]*[shape.MaxOrder + 1]float64
	for a := 0; a < 3; a++ {
		ax := &d.ax[a]
		if f.Off[a] != 0 {
			i0[a], n[a], w[a] = ax.i0s, ax.ns, &ax.ws
		} else {
			i0[a], n[a], w[a] = ax.i0n, ax.nn, &ax.wn
		}
	}

	data := f.Data
	for dk := 0; dk < n[2]; dk++ {
		for dj := 0; dj < n[1]; dj++ {
			wjk := val * w[1][dj] * w[2][dk]
			row := f.Idx(i0[0], i0[1]+dj, i0[2]+dk)
			for di := 0; di < n[0]; di++ {
				data[row+di] += w[0][di] * wjk
			}
		}
	}
}
