package maxwell

import (
	"github.com/phil-mansfield/pickerel/grid"
	"github.com/phil-mansfield/pickerel/units"
)

/* The cylindrical solver advances each azimuthal component pair with the
second-order staggered curl. The azimuthal derivative turns into the mode
couple (cos, sin) -> (m sin, -m cos), so cos planes read their sin partner
and vice versa.

On the axis the 1/r terms are replaced by their limits: azimuthal and
z-scalar components vanish there except for the modes the regularity
conditions allow (m = 1 for transverse components, m = 0 for z components),
Ez picks up the axisymmetric L'Hopital term 4 Bt / dr, and the m = 1 radial
derivatives use the below-axis mirror antisymmetry directly. The outer
radial guard ring is held at zero, which makes r = R a conducting wall.
*/

// thetaPair returns the partner plane index and sign of the azimuthal
// derivative for plane p: d/dtheta maps the (cos, sin) pair of mode m to
// (m sin, -m cos). Mode 0 returns a zero sign.
func thetaPair(p int) (partner int, sign float64) {
	if p == 0 {
		return 0, 0
	}
	mm := (p + 1) / 2
	if p == 2*mm-1 {
		return 2 * mm, float64(mm)
	}
	return 2*mm - 1, -float64(mm)
}

func (s *Solver) pushBRZ(m *grid.Mesh, dt float64) {
	geo := s.geo
	nr, nz := geo.N[0], geo.N[1]
	dr := geo.CellWidth(0)
	invDr, invDz := geo.InvWidth(0), geo.InvWidth(1)
	stz := m.Bx.Stride(1)

	for p := 0; p < geo.Planes(); p++ {
		pth, thSign := thetaPair(p)
		mm := (p + 1) / 2
		br, bt, bz := m.Bx.M[p], m.By.M[p], m.Bz.M[p]
		er, et, ez := m.Ex.M[p], m.Ey.M[p], m.Ez.M[p]
		erTh, ezTh := m.Ex.M[pth], m.Ez.M[pth]

		for iz := 0; iz < nz; iz++ {
			row := m.Bx.Idx(0, iz, 0)
			for ir := 0; ir < nr; ir++ {
				idx := row + ir

				// Bt at (ir+1/2, iz+1/2) carries no 1/r term.
				bt[idx] += dt * ((ez[idx+1]-ez[idx])*invDr -
					(er[idx+stz]-er[idx])*invDz)

				// Bz at (ir+1/2, iz).
				rf := (float64(ir) + 0.5) * dr
				dRdr := (float64(ir+1)*et[idx+1] - float64(ir)*et[idx]) *
					dr * invDr
				bz[idx] -= dt * dRdr / rf
				if thSign != 0 {
					bz[idx] += dt * thSign * erTh[idx] / rf
				}

				// Br at (ir, iz+1/2).
				if ir > 0 {
					br[idx] += dt * (et[idx+stz] - et[idx]) * invDz
					if thSign != 0 {
						br[idx] -= dt * thSign * ezTh[idx] /
							(float64(ir) * dr)
					}
				} else if mm == 1 {
					// Ez vanishes on axis for m = 1, so Ez / r converges
					// to the first-ring slope.
					br[idx] += dt * ((et[idx+stz]-et[idx])*invDz -
						thSign*ezTh[idx+1]*invDr)
				} else {
					br[idx] = 0
				}
			}
		}
	}
}

func (s *Solver) pushERZ(m *grid.Mesh, dt float64) {
	geo := s.geo
	nr, nz := geo.N[0], geo.N[1]
	dr := geo.CellWidth(0)
	invDr, invDz := geo.InvWidth(0), geo.InvWidth(1)
	stz := m.Ex.Stride(1)
	c2dt := units.C2 * dt
	jfac := -dt / units.Eps0

	for p := 0; p < geo.Planes(); p++ {
		pth, thSign := thetaPair(p)
		mm := (p + 1) / 2
		br, bt, bz := m.Bx.M[p], m.By.M[p], m.Bz.M[p]
		er, et, ez := m.Ex.M[p], m.Ey.M[p], m.Ez.M[p]
		jr, jt, jz := m.Jx.M[p], m.Jy.M[p], m.Jz.M[p]
		bzTh, brTh := m.Bz.M[pth], m.Bx.M[pth]

		for iz := 0; iz < nz; iz++ {
			row := m.Ex.Idx(0, iz, 0)
			for ir := 0; ir < nr; ir++ {
				idx := row + ir
				rf := (float64(ir) + 0.5) * dr

				// Er at (ir+1/2, iz).
				er[idx] += -c2dt*(bt[idx]-bt[idx-stz])*invDz +
					jfac*jr[idx]
				if thSign != 0 {
					er[idx] += c2dt * thSign * bzTh[idx] / rf
				}

				// Et at (ir, iz).
				if ir > 0 {
					et[idx] += c2dt*((br[idx]-br[idx-stz])*invDz-
						(bz[idx]-bz[idx-1])*invDr) + jfac*jt[idx]
				} else if mm == 1 {
					// Below the axis Bz flips sign for m = 1, so the
					// radial derivative closes with the first face alone.
					et[idx] += c2dt*((br[idx]-br[idx-stz])*invDz-
						2*bz[idx]*invDr) + jfac*jt[idx]
				} else {
					et[idx] = 0
				}

				// Ez at (ir, iz+1/2).
				if ir > 0 {
					r := float64(ir) * dr
					dRdr := (rf*bt[idx] - (rf-dr)*bt[idx-1]) * invDr
					ez[idx] += c2dt*dRdr/r + jfac*jz[idx]
					if thSign != 0 {
						ez[idx] -= c2dt * thSign * brTh[idx] / r
					}
				} else if mm == 0 {
					ez[idx] += c2dt*4*bt[idx]*invDr + jfac*jz[idx]
				} else {
					ez[idx] = 0
				}
			}
		}
	}
}
