package deposit

import (
	"github.com/phil-mansfield/pickerel/shape"
)

/* The charge-conserving scheme follows Esirkepov (2001): per axis, the old
and new shape factors are laid out on a common node window one cell wider
than the shape support, the per-node flux weights are assembled from the
factor differences, and the staggered current is the running sum of the
fluxes scaled by cell width over time step. Together with nodal charge
deposition at the same order this satisfies the discrete continuity
equation to rounding, so no cleaning is needed. */

// esWindow lays out the old and new factors of one axis on the common
// window and returns its base node. Displacements larger than one cell
// per step are excluded by the time-step bound checked at setup.
func (d *Depositor) esWindow(a int, uOld, uNew float64) (iMin, n int) {
	var w0, w1 [shape.MaxOrder + 1]float64
	i00 := shape.Weights(d.order, uOld, &w0)
	i01 := shape.Weights(d.order, uNew, &w1)
	if i01-i00 > 1 || i00-i01 > 1 {
		panic("Impossible: particle crossed more than one cell in a step.")
	}

	iMin = i00
	if i01 < iMin {
		iMin = i01
	}
	n = shape.Support(d.order) + 1

	s0, s1, ds := &d.s0[a], &d.s1[a], &d.ds[a]
	for i := 0; i < n; i++ {
		s0[i], s1[i] = 0, 0
	}
	for i := 0; i < shape.Support(d.order); i++ {
		s0[i00-iMin+i] = w0[i]
		s1[i01-iMin+i] = w1[i]
	}
	for i := 0; i < n; i++ {
		ds[i] = s1[i] - s0[i]
	}
	return iMin, n
}

func (d *Depositor) esirkepov(b *Buffers, q, w float64,
	x0, y0, z0, x1, y1, z1, vx, vy, vz, dt float64) {

	geo := d.geo
	u00, u01, u02 := geo.Frac(x0, y0, z0)
	u10, u11, u12 := geo.Frac(x1, y1, z1)

	uOld := [3]float64{u00, u01, u02}
	uNew := [3]float64{u10, u11, u12}
	var iMin, n [3]int
	for a := 0; a < geo.Axes(); a++ {
		iMin[a], n[a] = d.esWindow(a, uOld[a], uNew[a])
	}
	for a := geo.Axes(); a < 3; a++ {
		iMin[a], n[a] = 0, 1
		d.s0[a][0], d.s1[a][0], d.ds[a][0] = 1, 1, 0
	}

	switch geo.Axes() {
	case 3:
		d.esirkepov3D(b, q*w, dt, &iMin, &n)
	case 2:
		d.esirkepov2D(b, q*w, vz, dt, &iMin, &n)
	default:
		d.esirkepov1D(b, q*w, vy, vz, dt, &iMin, &n)
	}
}

func (d *Depositor) esirkepov3D(b *Buffers, qw, dt float64,
	iMin, n *[3]int) {

	geo := d.geo
	fx := qw * geo.CellWidth(0) / dt * d.invVol
	fy := qw * geo.CellWidth(1) / dt * d.invVol
	fz := qw * geo.CellWidth(2) / dt * d.invVol

	sx0, sy0, sz0 := &d.s0[0], &d.s0[1], &d.s0[2]
	dsx, dsy, dsz := &d.ds[0], &d.ds[1], &d.ds[2]

	// Each component takes a running flux sum along its own axis, one sum
	// per transverse node pair.
	jx := b.Jx.Data
	for dk := 0; dk < n[2]; dk++ {
		for dj := 0; dj < n[1]; dj++ {
			t := sy0[dj]*sz0[dk] + 0.5*dsy[dj]*sz0[dk] +
				0.5*sy0[dj]*dsz[dk] + dsy[dj]*dsz[dk]/3
			row := b.Jx.Idx(iMin[0], iMin[1]+dj, iMin[2]+dk)
			acc := 0.0
			for di := 0; di < n[0]; di++ {
				acc -= fx * dsx[di] * t
				jx[row+di] += acc
			}
		}
	}

	jy, strideY := b.Jy.Data, b.Jy.Stride(1)
	for dk := 0; dk < n[2]; dk++ {
		for di := 0; di < n[0]; di++ {
			t := sx0[di]*sz0[dk] + 0.5*dsx[di]*sz0[dk] +
				0.5*sx0[di]*dsz[dk] + dsx[di]*dsz[dk]/3
			idx := b.Jy.Idx(iMin[0]+di, iMin[1], iMin[2]+dk)
			acc := 0.0
			for dj := 0; dj < n[1]; dj++ {
				acc -= fy * dsy[dj] * t
				jy[idx] += acc
				idx += strideY
			}
		}
	}

	jz, strideZ := b.Jz.Data, b.Jz.Stride(2)
	for dj := 0; dj < n[1]; dj++ {
		for di := 0; di < n[0]; di++ {
			t := sx0[di]*sy0[dj] + 0.5*dsx[di]*sy0[dj] +
				0.5*sx0[di]*dsy[dj] + dsx[di]*dsy[dj]/3
			idx := b.Jz.Idx(iMin[0]+di, iMin[1]+dj, iMin[2])
			acc := 0.0
			for dk := 0; dk < n[2]; dk++ {
				acc -= fz * dsz[dk] * t
				jz[idx] += acc
				idx += strideZ
			}
		}
	}
}

func (d *Depositor) esirkepov2D(b *Buffers, qw, vz, dt float64,
	iMin, n *[3]int) {

	geo := d.geo
	fx := qw * geo.CellWidth(0) / dt * d.invVol
	fy := qw * geo.CellWidth(1) / dt * d.invVol
	fz := qw * vz * d.invVol

	sx0, sy0 := &d.s0[0], &d.s0[1]
	dsx, dsy := &d.ds[0], &d.ds[1]

	jx := b.Jx.Data
	for dj := 0; dj < n[1]; dj++ {
		t := sy0[dj] + 0.5*dsy[dj]
		row := b.Jx.Idx(iMin[0], iMin[1]+dj, 0)
		acc := 0.0
		for di := 0; di < n[0]; di++ {
			acc -= fx * dsx[di] * t
			jx[row+di] += acc
		}
	}

	jy, strideY := b.Jy.Data, b.Jy.Stride(1)
	for di := 0; di < n[0]; di++ {
		t := sx0[di] + 0.5*dsx[di]
		idx := b.Jy.Idx(iMin[0]+di, iMin[1], 0)
		acc := 0.0
		for dj := 0; dj < n[1]; dj++ {
			acc -= fy * dsy[dj] * t
			jy[idx] += acc
			idx += strideY
		}
	}

	// The out-of-plane current has no flux form in 2D. It takes the
	// trajectory-averaged node weight instead.
	jz := b.Jz.Data
	for dj := 0; dj < n[1]; dj++ {
		row := b.Jz.Idx(iMin[0], iMin[1]+dj, 0)
		for di := 0; di < n[0]; di++ {
			wz := sx0[di]*sy0[dj] + 0.5*dsx[di]*sy0[dj] +
				0.5*sx0[di]*dsy[dj] + dsx[di]*dsy[dj]/3
			jz[row+di] += fz * wz
		}
	}
}

func (d *Depositor) esirkepov1D(b *Buffers, qw, vy, vz, dt float64,
	iMin, n *[3]int) {

	geo := d.geo
	fx := qw * geo.CellWidth(0) / dt * d.invVol
	fy := qw * vy * d.invVol
	fz := qw * vz * d.invVol

	sx0, dsx := &d.s0[0], &d.ds[0]

	jx := b.Jx.Data
	row := b.Jx.Idx(iMin[0], 0, 0)
	acc := 0.0
	for di := 0; di < n[0]; di++ {
		acc -= fx * dsx[di]
		jx[row+di] += acc
	}

	jy, jz := b.Jy.Data, b.Jz.Data
	rowY := b.Jy.Idx(iMin[0], 0, 0)
	rowZ := b.Jz.Idx(iMin[0], 0, 0)
	for di := 0; di < n[0]; di++ {
		wt := sx0[di] + 0.5*dsx[di]
		jy[rowY+di] += fy * wt
		jz[rowZ+di] += fz * wt
	}
}
