/*package pml absorbs outgoing electromagnetic waves in a shell of damped
cells around the physical domain, using Berenger's split-field matched
layer.

The shell lives on an extended copy of the grid. Each field component
splits into one part per transverse derivative (Ey becomes Eyx and Eyz),
and each part decays at a rate that ramps polynomially from zero at the
physical interface to a maximum at the outer edge. With zero damping the
shell update is the interior finite-difference update, so the interface
itself is reflection-free; what remains is the residual reflection of the
discrete ramp, which is the accepted cost of the method.

Exchange operations tie the two regions together every step: the shell's
inner band is overwritten with interior values before the shell update,
and the updated shell values next to the interface are handed back as the
interior's guard data. The layer is Cartesian and finite-difference only.
*/
package pml

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/pickerel/geom"
	"github.com/phil-mansfield/pickerel/grid"
	"github.com/phil-mansfield/pickerel/maxwell"
	"github.com/phil-mansfield/pickerel/units"
)

// box is a half-open cell range.
type box struct{ lo, hi [3]int }

// boxesBetween decomposes the region inside out but outside in into
// disjoint boxes, peeling one axis at a time.
func boxesBetween(outLo, outHi, inLo, inHi [3]int) []box {
	bs := []box{}
	lo, hi := outLo, outHi
	for a := 0; a < 3; a++ {
		if outLo[a] < inLo[a] {
			b := box{lo, hi}
			b.lo[a], b.hi[a] = outLo[a], inLo[a]
			bs = append(bs, b)
		}
		if inHi[a] < outHi[a] {
			b := box{lo, hi}
			b.lo[a], b.hi[a] = inHi[a], outHi[a]
			bs = append(bs, b)
		}
		lo[a], hi[a] = inLo[a], inHi[a]
	}
	return bs
}

// Pml is the absorbing layer for one mesh. Es[c][b] and Bs[c][b] hold the
// split of component c driven by the derivative along axis b; diagonal
// entries are nil. Splits along inactive axes exist but stay zero.
type Pml struct {
	geo    *geom.Geometry
	ncell  int
	c      []float64
	inv    [3]float64
	next   [3]int
	ng     [3]int
	extOff [3]int

	sb [3]*SigmaBox
	dt float64

	Es, Bs [3][3]*grid.Field

	shell, band, guards []box
}

// New builds an absorbing layer ncell cells deep around the mesh, with a
// damping ramp of the given polynomial order sized for a target normal
// reflection coefficient, sharing the field solver's stencil order.
func New(m *grid.Mesh, ncell, ramp int, refl float64, order int) (*Pml, error) {
	geo := m.Geom
	if geo.Dim == geom.DimRZ {
		return nil, fmt.Errorf("The absorbing layer supports Cartesian " +
			"domains only.")
	}
	switch order {
	case 2, 4, 6:
	default:
		return nil, fmt.Errorf("The stencil order %d is not supported. It "+
			"must be 2, 4, or 6.", order)
	}
	if ncell < 1 {
		return nil, fmt.Errorf("The absorbing layer must be at least one "+
			"cell deep, but ncell = %d.", ncell)
	}
	if ramp < 1 {
		return nil, fmt.Errorf("The damping ramp order must be positive, "+
			"not %d.", ramp)
	}
	if refl <= 0 || refl > 1 {
		return nil, fmt.Errorf("The target reflection coefficient must "+
			"lie in (0, 1], not %g.", refl)
	}

	p := &Pml{geo: geo, ncell: ncell, c: maxwell.Stencil(order),
		next: [3]int{1, 1, 1}, dt: math.NaN()}
	for a := 0; a < geo.Axes(); a++ {
		if m.Ng[a] < order/2 {
			return nil, fmt.Errorf("The mesh has %d guard cells on axis "+
				"%d, but the order-%d stencil needs %d.",
				m.Ng[a], a, order, order/2)
		}
		if ncell < m.Ng[a] {
			return nil, fmt.Errorf("The absorbing layer is %d cells deep, "+
				"but the interior guard band needs %d cells of overlap.",
				ncell, m.Ng[a])
		}
		p.inv[a] = geo.InvWidth(a)
		p.ng[a] = m.Ng[a]
		p.next[a] = geo.N[a] + 2*ncell
		p.extOff[a] = ncell

		smax := float64(ramp+1) * units.C * math.Log(1/refl) /
			(2 * float64(ncell) * geo.CellWidth(a))
		p.sb[a] = newSigmaBox(p.next[a], ncell, ramp, smax)
	}

	eOff := [3]grid.Offset{grid.OffEx, grid.OffEy, grid.OffEz}
	bOff := [3]grid.Offset{grid.OffBx, grid.OffBy, grid.OffBz}
	xyz := "xyz"
	for c := 0; c < 3; c++ {
		oe, ob := eOff[c], bOff[c]
		for a := geo.Axes(); a < 3; a++ {
			oe[a], ob[a] = 0, 0
		}
		for b := 0; b < 3; b++ {
			if b == c {
				continue
			}
			suffix := string(xyz[c]) + string(xyz[b])
			p.Es[c][b] = grid.NewField("E"+suffix, p.next, p.ng, oe, 1)
			p.Bs[c][b] = grid.NewField("B"+suffix, p.next, p.ng, ob, 1)
		}
	}

	inLo, inHi := [3]int{0, 0, 0}, [3]int{1, 1, 1}
	outHi, bandLo, bandHi, gLo, gHi := inHi, inLo, inHi, inLo, inHi
	for a := 0; a < geo.Axes(); a++ {
		inLo[a], inHi[a] = ncell, ncell+geo.N[a]
		outHi[a] = p.next[a]
		bandLo[a], bandHi[a] = p.ng[a], geo.N[a]-p.ng[a]
		gLo[a], gHi[a] = -p.ng[a], geo.N[a]+p.ng[a]
	}
	intLo, intHi := [3]int{0, 0, 0}, [3]int{1, 1, 1}
	for a := 0; a < geo.Axes(); a++ {
		intHi[a] = geo.N[a]
	}
	p.shell = boxesBetween([3]int{0, 0, 0}, outHi, inLo, inHi)
	p.band = boxesBetween(intLo, intHi, bandLo, bandHi)
	p.guards = boxesBetween(gLo, gHi, intLo, intHi)

	return p, nil
}

// ComputeFactors refreshes the damping factors when dt changes.
func (p *Pml) ComputeFactors(dt float64) {
	if dt == p.dt {
		return
	}
	for a := 0; a < p.geo.Axes(); a++ {
		p.sb[a].computeFactors(dt)
	}
	p.dt = dt
}

// PushE advances the shell's split electric fields by dt.
func (p *Pml) PushE(dt float64) {
	p.ComputeFactors(dt)
	c2 := units.C2
	p.pushSplit(p.Es[0][1], p.Bs[2][0], p.Bs[2][1], 1, c2)
	p.pushSplit(p.Es[0][2], p.Bs[1][2], p.Bs[1][0], 2, -c2)
	p.pushSplit(p.Es[1][2], p.Bs[0][1], p.Bs[0][2], 2, c2)
	p.pushSplit(p.Es[1][0], p.Bs[2][0], p.Bs[2][1], 0, -c2)
	p.pushSplit(p.Es[2][0], p.Bs[1][2], p.Bs[1][0], 0, c2)
	p.pushSplit(p.Es[2][1], p.Bs[0][1], p.Bs[0][2], 1, -c2)
}

// PushB advances the shell's split magnetic fields by dt.
func (p *Pml) PushB(dt float64) {
	p.ComputeFactors(dt)
	p.pushSplit(p.Bs[0][2], p.Es[1][2], p.Es[1][0], 2, 1)
	p.pushSplit(p.Bs[0][1], p.Es[2][0], p.Es[2][1], 1, -1)
	p.pushSplit(p.Bs[1][0], p.Es[2][0], p.Es[2][1], 0, 1)
	p.pushSplit(p.Bs[1][2], p.Es[0][1], p.Es[0][2], 2, -1)
	p.pushSplit(p.Bs[2][1], p.Es[0][1], p.Es[0][2], 1, 1)
	p.pushSplit(p.Bs[2][0], p.Es[1][2], p.Es[1][0], 0, -1)
}

// pushSplit applies one damped stencil term over the shell:
// dst = fac dst + step scale d(s1+s2)/daxis, with fac and step read from
// the sigma profile at dst's position along the derivative axis.
func (p *Pml) pushSplit(dst, s1, s2 *grid.Field, b int, scale float64) {
	if b >= p.geo.Axes() {
		return
	}
	sb := p.sb[b]
	fac, step := sb.SigmaFac, sb.SigmaStep
	if dst.Off[b] != 0 {
		fac, step = sb.SigmaStarFac, sb.SigmaStarStep
	}
	st := dst.Stride(b)
	shift := 0
	if s1.Off[b] == 0 {
		shift = 1
	}
	f := scale * p.inv[b]
	c := p.c
	d, m1, m2 := dst.Data, s1.Data, s2.Data

	for _, bx := range p.shell {
		for k := bx.lo[2]; k < bx.hi[2]; k++ {
			for j := bx.lo[1]; j < bx.hi[1]; j++ {
				idx := dst.Idx(bx.lo[0], j, k)
				pb := j
				if b == 2 {
					pb = k
				}
				for i := bx.lo[0]; i < bx.hi[0]; i++ {
					if b == 0 {
						pb = i
					}
					sum := 0.0
					for si := range c {
						hi := idx + (si+shift)*st
						lo := idx - (si+1-shift)*st
						sum += c[si] * (m1[hi] + m2[hi] - m1[lo] - m2[lo])
					}
					d[idx] = fac[pb]*d[idx] + step[pb]*f*sum
					idx++
				}
			}
		}
	}
}

// pairs lists each interior component with its two shell splits.
func (p *Pml) pairs(m *grid.Mesh) [6][3]*grid.Field {
	return [6][3]*grid.Field{
		{m.Ex, p.Es[0][1], p.Es[0][2]},
		{m.Ey, p.Es[1][2], p.Es[1][0]},
		{m.Ez, p.Es[2][0], p.Es[2][1]},
		{m.Bx, p.Bs[0][1], p.Bs[0][2]},
		{m.By, p.Bs[1][2], p.Bs[1][0]},
		{m.Bz, p.Bs[2][0], p.Bs[2][1]},
	}
}

// CopyFromInterior overwrites the shell's inner band with the interior
// fields. The first split takes the full value and its partner is
// cleared, so band sums match the interior exactly.
func (p *Pml) CopyFromInterior(m *grid.Mesh) {
	for _, pr := range p.pairs(m) {
		src, d1, d2 := pr[0], pr[1], pr[2]
		for _, bx := range p.band {
			for k := bx.lo[2]; k < bx.hi[2]; k++ {
				for j := bx.lo[1]; j < bx.hi[1]; j++ {
					si := src.Idx(bx.lo[0], j, k)
					di := d1.Idx(bx.lo[0]+p.extOff[0], j+p.extOff[1],
						k+p.extOff[2])
					for i := bx.lo[0]; i < bx.hi[0]; i++ {
						d1.Data[di] = src.Data[si]
						d2.Data[di] = 0
						si++
						di++
					}
				}
			}
		}
	}
}

// CopyToInterior writes summed shell values into the interior guard
// frame, which gives the next interior update and gather open-boundary
// halo data in place of a periodic wrap.
func (p *Pml) CopyToInterior(m *grid.Mesh) {
	for _, pr := range p.pairs(m) {
		dst, s1, s2 := pr[0], pr[1], pr[2]
		for _, bx := range p.guards {
			for k := bx.lo[2]; k < bx.hi[2]; k++ {
				for j := bx.lo[1]; j < bx.hi[1]; j++ {
					di := dst.Idx(bx.lo[0], j, k)
					ei := s1.Idx(bx.lo[0]+p.extOff[0], j+p.extOff[1],
						k+p.extOff[2])
					for i := bx.lo[0]; i < bx.hi[0]; i++ {
						dst.Data[di] = s1.Data[ei] + s2.Data[ei]
						di++
						ei++
					}
				}
			}
		}
	}
}

// Fields returns the split components in a fixed order for checkpointing.
func (p *Pml) Fields() []*grid.Field {
	fs := make([]*grid.Field, 0, 12)
	for c := 0; c < 3; c++ {
		for b := 0; b < 3; b++ {
			if b != c {
				fs = append(fs, p.Es[c][b])
			}
		}
	}
	for c := 0; c < 3; c++ {
		for b := 0; b < 3; b++ {
			if b != c {
				fs = append(fs, p.Bs[c][b])
			}
		}
	}
	return fs
}

// Ncell returns the shell depth in cells.
func (p *Pml) Ncell() int { return p.ncell }
