/*package maxwell advances the electromagnetic field with finite
differences on the staggered lattice. Cartesian meshes support stencil
orders 2, 4, and 6 and optional hyperbolic divergence cleaning; cylindrical
meshes use the second-order multimode solver in maxwell_rz.go.

The solver only touches interior cells. Guard cells must be refreshed
between pushes by the caller, which lets one step interleave halo exchange,
boundary conditions, and absorbing layers however it needs to.
*/
package maxwell

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/pickerel/geom"
	"github.com/phil-mansfield/pickerel/grid"
	"github.com/phil-mansfield/pickerel/units"
)

// Solver advances one mesh's fields. It is stateless apart from the
// geometry and stencil, so one Solver may serve goroutines that partition
// the mesh, though the standard driver runs it single-threaded between
// particle phases.
type Solver struct {
	geo   *geom.Geometry
	order int
	clean bool
	c     []float64
}

// New returns a field solver for the mesh. The stencil order must be 2, 4,
// or 6; cylindrical meshes support order 2 only and no cleaning.
func New(m *grid.Mesh, order int, clean bool) (*Solver, error) {
	switch order {
	case 2, 4, 6:
	default:
		return nil, fmt.Errorf("The stencil order %d is not supported. It "+
			"must be 2, 4, or 6.", order)
	}
	geo := m.Geom
	if geo.Dim == geom.DimRZ {
		if order != 2 {
			return nil, fmt.Errorf("The cylindrical field solver is " +
				"second order only.")
		}
		if clean {
			return nil, fmt.Errorf("Divergence cleaning is not supported " +
				"on cylindrical meshes.")
		}
	}
	if clean && m.F == nil {
		return nil, fmt.Errorf("Divergence cleaning was requested, but " +
			"the mesh was allocated without cleaning fields.")
	}
	for a := 0; a < geo.Axes(); a++ {
		if m.Ng[a] < order/2 {
			return nil, fmt.Errorf("The mesh has %d guard cells on axis "+
				"%d, but the order-%d stencil needs %d.",
				m.Ng[a], a, order, order/2)
		}
	}
	return &Solver{geo: geo, order: order, clean: clean, c: Stencil(order)}, nil
}

// Stencil returns the staggered difference coefficients for a supported
// order. c[s] multiplies the sample pair at distance s + 1/2 cells from
// the evaluation point. The absorbing layer reuses these so its
// zero-damping update matches the interior one.
func Stencil(order int) []float64 {
	switch order {
	case 2:
		return []float64{1}
	case 4:
		return []float64{9. / 8., -1. / 24.}
	case 6:
		return []float64{75. / 64., -25. / 384., 3. / 640.}
	}
	panic("Impossible stencil order.")
}

// MaxDt returns the largest stable time step for vacuum propagation. On
// cylindrical meshes the bound includes the semi-analytic multimode factor
// of Lehe et al.
func (s *Solver) MaxDt() float64 {
	if s.geo.Dim == geom.DimRZ {
		dr, dz := s.geo.CellWidth(0), s.geo.CellWidth(1)
		alpha := multimodeAlpha(s.geo.Modes)
		return 1 / (units.C * math.Sqrt((1+alpha)/(dr*dr)+1/(dz*dz)))
	}

	sum := 0.0
	for _, cs := range s.c {
		sum += math.Abs(cs)
	}
	k2 := 0.0
	for a := 0; a < s.geo.Axes(); a++ {
		w := s.geo.InvWidth(a)
		k2 += w * w
	}
	return 1 / (units.C * sum * math.Sqrt(k2))
}

var multimodeCoeffs = [6]float64{0.2105, 1.0, 3.5234, 8.5104, 15.5059,
	24.5037}

func multimodeAlpha(modes int) float64 {
	if modes <= 6 {
		return multimodeCoeffs[modes-1]
	}
	fm := float64(modes - 1)
	return fm*fm - 0.4
}

// PushE advances E by dt using the current B, J, and, with cleaning on,
// the F scalar. Guard cells of B, J, and F must be current.
func (s *Solver) PushE(m *grid.Mesh, dt float64) {
	if s.geo.Dim == geom.DimRZ {
		s.pushERZ(m, dt)
		return
	}
	c2dt := units.C2 * dt

	s.addDeriv(m.Ex, m.Bz, 1, c2dt)
	s.addDeriv(m.Ex, m.By, 2, -c2dt)
	s.addDeriv(m.Ey, m.Bx, 2, c2dt)
	s.addDeriv(m.Ey, m.Bz, 0, -c2dt)
	s.addDeriv(m.Ez, m.By, 0, c2dt)
	s.addDeriv(m.Ez, m.Bx, 1, -c2dt)

	jfac := -dt / units.Eps0
	s.addScaled(m.Ex, m.Jx, jfac)
	s.addScaled(m.Ey, m.Jy, jfac)
	s.addScaled(m.Ez, m.Jz, jfac)

	if s.clean {
		s.addDeriv(m.Ex, m.F, 0, c2dt)
		s.addDeriv(m.Ey, m.F, 1, c2dt)
		s.addDeriv(m.Ez, m.F, 2, c2dt)
	}
}

// PushB advances B by dt using the current E and, with cleaning on, the G
// scalar. Guard cells of E and G must be current.
func (s *Solver) PushB(m *grid.Mesh, dt float64) {
	if s.geo.Dim == geom.DimRZ {
		s.pushBRZ(m, dt)
		return
	}

	s.addDeriv(m.Bx, m.Ey, 2, dt)
	s.addDeriv(m.Bx, m.Ez, 1, -dt)
	s.addDeriv(m.By, m.Ez, 0, dt)
	s.addDeriv(m.By, m.Ex, 2, -dt)
	s.addDeriv(m.Bz, m.Ex, 1, dt)
	s.addDeriv(m.Bz, m.Ey, 0, -dt)

	if s.clean {
		s.addDeriv(m.Bx, m.G, 0, dt)
		s.addDeriv(m.By, m.G, 1, dt)
		s.addDeriv(m.Bz, m.G, 2, dt)
	}
}

// PushF advances the electric cleaning scalar by dt toward the Gauss-law
// residual div E - rho / eps0, using RhoNew for the charge density.
func (s *Solver) PushF(m *grid.Mesh, dt float64) {
	s.addDeriv(m.F, m.Ex, 0, dt)
	s.addDeriv(m.F, m.Ey, 1, dt)
	s.addDeriv(m.F, m.Ez, 2, dt)
	s.addScaled(m.F, m.RhoNew, -dt/units.Eps0)
}

// PushG advances the magnetic cleaning scalar by c^2 dt times div B.
func (s *Solver) PushG(m *grid.Mesh, dt float64) {
	c2dt := units.C2 * dt
	s.addDeriv(m.G, m.Bx, 0, c2dt)
	s.addDeriv(m.G, m.By, 1, c2dt)
	s.addDeriv(m.G, m.Bz, 2, c2dt)
}

// addDeriv adds fac times the staggered derivative of src along an axis
// into dst's interior. The direction of the half-cell shift is read off
// src's staggering: half-staggered sources difference toward the node,
// node-centered sources difference toward the face.
func (s *Solver) addDeriv(dst, src *grid.Field, a int, fac float64) {
	if a >= s.geo.Axes() {
		return
	}
	st := dst.Stride(a)
	shift := 0
	if src.Off[a] == 0 {
		shift = 1
	}
	f := fac * s.geo.InvWidth(a)
	c := s.c

	n := s.geo.N
	for p := range dst.M {
		d, m := dst.M[p], src.M[p]
		for k := 0; k < n[2]; k++ {
			for j := 0; j < n[1]; j++ {
				row := dst.Idx(0, j, k)
				for i := 0; i < n[0]; i++ {
					idx := row + i
					sum := 0.0
					for si := range c {
						sum += c[si] * (m[idx+(si+shift)*st] -
							m[idx-(si+1-shift)*st])
					}
					d[idx] += f * sum
				}
			}
		}
	}
}

// addScaled adds fac * src into dst's interior pointwise.
func (s *Solver) addScaled(dst, src *grid.Field, fac float64) {
	n := s.geo.N
	for p := range dst.M {
		d, m := dst.M[p], src.M[p]
		for k := 0; k < n[2]; k++ {
			for j := 0; j < n[1]; j++ {
				row := dst.Idx(0, j, k)
				for i := 0; i < n[0]; i++ {
					d[row+i] += fac * m[row+i]
				}
			}
		}
	}
}
