package deposit

import (
	"math"

	"github.com/phil-mansfield/pickerel/grid"
)

/* Cylindrical deposition is direct only. The particle's Cartesian current
is rotated into (r, theta, z) at the trajectory midpoint, weighted onto the
(r, z) window, and spread over the azimuthal planes with the mode factors
1, 2 cos(m theta), 2 sin(m theta). Each target cell is normalized by its
own control volume, with cells below the axis taking their mirror image's
volume so that the axis fold reconstructs the physical density. */

func (d *Depositor) directRZ(b *Buffers, q, w float64,
	x1, y1, z1, vx, vy, vz, dt float64) {

	xd := x1 - 0.5*dt*vx
	yd := y1 - 0.5*dt*vy
	zd := z1 - 0.5*dt*vz

	r := math.Hypot(xd, yd)
	cos, sin := 1.0, 0.0
	if r > 0 {
		cos, sin = xd/r, yd/r
	}
	d.trigModes(cos, sin)

	vr := vx*cos + vy*sin
	vt := vy*cos - vx*sin

	u0, u1, u2 := d.geo.Frac(xd, yd, zd)
	d.prep(u0, u1, u2)

	d.scatterRZ(b.Jx, q*w*vr)
	d.scatterRZ(b.Jy, q*w*vt)
	d.scatterRZ(b.Jz, q*w*vz)
}

func (d *Depositor) chargeRZ(f *grid.Field, q, w, x, y, z float64) {
	r := math.Hypot(x, y)
	cos, sin := 1.0, 0.0
	if r > 0 {
		cos, sin = x/r, y/r
	}
	d.trigModes(cos, sin)

	u0, u1, u2 := d.geo.Frac(x, y, z)
	d.prep(u0, u1, u2)
	d.scatterRZ(f, q*w)
}

// trigModes fills cos(m theta) and sin(m theta) for m = 1..Modes-1 using
// the angle-addition recurrence.
func (d *Depositor) trigModes(cos, sin float64) {
	if d.geo.Modes < 2 {
		return
	}
	d.cosM[1], d.sinM[1] = cos, sin
	for mm := 2; mm < d.geo.Modes; mm++ {
		d.cosM[mm] = d.cosM[mm-1]*cos - d.sinM[mm-1]*sin
		d.sinM[mm] = d.sinM[mm-1]*cos + d.cosM[mm-1]*sin
	}
}

// scatterRZ spreads a value over a component's (r, z) support and azimuthal
// planes, dividing by the per-cell control volume.
func (d *Depositor) scatterRZ(f *grid.Field, val float64) {
	ar, az := &d.ax[0], &d.ax[1]

	i0r, nr, wr := ar.i0n, ar.nn, &ar.wn
	radialFace := f.Off[0] != 0
	if radialFace {
		i0r, nr, wr = ar.i0s, ar.ns, &ar.ws
	}
	i0z, nz, wz := az.i0n, az.nn, &az.wn
	if f.Off[1] != 0 {
		i0z, nz, wz = az.i0s, az.ns, &az.ws
	}

	for dj := 0; dj < nz; dj++ {
		for di := 0; di < nr; di++ {
			ir := i0r + di
			var vol float64
			if radialFace {
				iv := ir
				if iv < 0 {
					iv = -iv - 1
				}
				vol = d.geo.FaceVolume(iv)
			} else {
				iv := ir
				if iv < 0 {
					iv = -iv
				}
				vol = d.geo.NodeVolume(iv)
			}

			s := val * wr[di] * wz[dj] / vol
			idx := f.Idx(ir, i0z+dj, 0)
			f.M[0][idx] += s
			for mm := 1; mm < d.geo.Modes; mm++ {
				f.M[2*mm-1][idx] += 2 * s * d.cosM[mm]
				f.M[2*mm][idx] += 2 * s * d.sinM[mm]
			}
		}
	}
}
