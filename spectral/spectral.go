/*package spectral advances the electromagnetic field with the
pseudo-spectral analytic time-domain (PSATD) method: fields are transformed
to wavevector space, advanced with the exact vacuum-plus-source integral
over one step, and transformed back. There is no Courant bound; accuracy is
set by the source-term time dependence, which is either constant (one
current at mid-step) or linear (currents at both step ends).

The solver owns all spectral scratch, so one instance must not be shared
between goroutines. Staggered components are aligned to the nodal lattice
with half-cell phase ramps around the update, which keeps the storage
layout identical to the finite-difference solver's.
*/
package spectral

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/phil-mansfield/pickerel/geom"
	"github.com/phil-mansfield/pickerel/grid"
	"github.com/phil-mansfield/pickerel/units"
)

// Algorithm selects the assumed time dependence of the current within one
// step.
type Algorithm int

const (
	// JConstant holds the deposited current fixed over the step.
	JConstant Algorithm = iota
	// JLinear interpolates between the previous and the current deposit.
	// The solver retains the previous step's spectral current itself, so
	// the driver loop is the same for both algorithms.
	JLinear
)

// String returns the name used for the algorithm in config files.
func (a Algorithm) String() string {
	switch a {
	case JConstant:
		return "constant"
	case JLinear:
		return "linear"
	}
	panic("Impossible spectral algorithm flag.")
}

// ParseAlgorithm converts a config-file name into an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "constant":
		return JConstant, nil
	case "linear":
		return JLinear, nil
	}
	return 0, fmt.Errorf("The spectral current model '%s' is not "+
		"recognized. It must be 'constant' or 'linear'.", s)
}

// Solver is a PSATD field solver for one fully periodic Cartesian mesh.
type Solver struct {
	geo     *geom.Geometry
	alg     Algorithm
	correct bool
	average bool

	n      [3]int
	stride [3]int
	nInt   int

	fft [3]*fourier.CmplxFFT
	k   [3][]float64
	sh  [3][]complex128

	// Coefficient cache, recomputed when dt changes.
	dt                           float64
	cC, cS, cX1, cX2, cX3, cX4   []float64

	eh, bh, jh, joldh [3][]complex128
	rho0h, rho1h      []complex128
	rowIn, rowOut     []complex128
	haveOld           bool

	avgE, avgB [3][]complex128
	avgCount   int
}

// New returns a PSATD solver for the mesh. Cylindrical domains are
// rejected; so is pairing the linear-in-time current with spectral current
// correction, which assumes a single mid-step deposit.
func New(m *grid.Mesh, alg Algorithm, correct, average bool) (*Solver, error) {
	geo := m.Geom
	if geo.Dim == geom.DimRZ {
		return nil, fmt.Errorf("The spectral solver supports Cartesian " +
			"domains only. Cylindrical runs must use the finite-" +
			"difference solver.")
	}
	if alg == JLinear && correct {
		return nil, fmt.Errorf("Current correction assumes a single mid-" +
			"step deposit and cannot be combined with the linear-in-time " +
			"current. Use charge-conserving deposition instead.")
	}

	s := &Solver{geo: geo, alg: alg, correct: correct, average: average,
		n: geo.N}
	s.stride = [3]int{1, s.n[0], s.n[0] * s.n[1]}
	s.nInt = s.n[0] * s.n[1] * s.n[2]

	maxN := 0
	for a := 0; a < 3; a++ {
		la := s.n[a]
		if la > maxN {
			maxN = la
		}
		s.k[a] = make([]float64, la)
		s.sh[a] = make([]complex128, la)
		if la < 2 {
			s.sh[a][0] = 1
			continue
		}
		s.fft[a] = fourier.NewCmplxFFT(la)
		dx := geo.CellWidth(a)
		for i := 0; i < la; i++ {
			kk := 2 * math.Pi * s.fft[a].Freq(i) / dx
			s.k[a][i] = kk
			s.sh[a][i] = complex(math.Cos(kk*dx/2), -math.Sin(kk*dx/2))
		}
	}
	s.rowIn = make([]complex128, maxN)
	s.rowOut = make([]complex128, maxN)

	for c := 0; c < 3; c++ {
		s.eh[c] = make([]complex128, s.nInt)
		s.bh[c] = make([]complex128, s.nInt)
		s.jh[c] = make([]complex128, s.nInt)
		if alg == JLinear {
			s.joldh[c] = make([]complex128, s.nInt)
		}
		if average {
			s.avgE[c] = make([]complex128, s.nInt)
			s.avgB[c] = make([]complex128, s.nInt)
		}
	}
	s.rho0h = make([]complex128, s.nInt)
	s.rho1h = make([]complex128, s.nInt)

	s.cC = make([]float64, s.nInt)
	s.cS = make([]float64, s.nInt)
	s.cX1 = make([]float64, s.nInt)
	s.cX2 = make([]float64, s.nInt)
	s.cX3 = make([]float64, s.nInt)
	s.cX4 = make([]float64, s.nInt)
	s.dt = math.NaN()

	return s, nil
}

// coefficients fills the per-wavevector update coefficients for a step dt.
// The k = 0 entries take the analytic limits.
func (s *Solver) coefficients(dt float64) {
	for iz := 0; iz < s.n[2]; iz++ {
		for iy := 0; iy < s.n[1]; iy++ {
			base := iy*s.stride[1] + iz*s.stride[2]
			for ix := 0; ix < s.n[0]; ix++ {
				idx := base + ix
				kx, ky, kz := s.k[0][ix], s.k[1][iy], s.k[2][iz]
				k2 := kx*kx + ky*ky + kz*kz

				if k2 == 0 {
					s.cC[idx] = 1
					s.cS[idx] = dt
					s.cX1[idx] = dt * dt / (2 * units.Eps0)
					s.cX2[idx] = units.C2 * dt * dt / (6 * units.Eps0)
					s.cX3[idx] = -units.C2 * dt * dt / (3 * units.Eps0)
					s.cX4[idx] = -dt / units.Eps0
					continue
				}

				kn := math.Sqrt(k2)
				om := units.C * kn
				c := math.Cos(om * dt)
				sck := math.Sin(om*dt) / om
				s.cC[idx] = c
				s.cS[idx] = sck
				s.cX1[idx] = (1 - c) / (units.Eps0 * units.C2 * k2)
				s.cX2[idx] = (1 - sck/dt) / (units.Eps0 * k2)
				s.cX3[idx] = (c - sck/dt) / (units.Eps0 * k2)
				s.cX4[idx] = -sck / units.Eps0
			}
		}
	}
	s.dt = dt
}

func rmul(r float64, v complex128) complex128 {
	return complex(r*real(v), r*imag(v))
}

// imul returns i times v.
func imul(v complex128) complex128 {
	return complex(-imag(v), real(v))
}

// Push advances E and B by dt. J, RhoOld, and RhoNew must hold the step's
// deposited sources; guard cells are ignored and the result's guards must
// be refilled by the caller.
func (s *Solver) Push(m *grid.Mesh, dt float64) {
	if dt != s.dt {
		s.coefficients(dt)
	}

	es := [3]*grid.Field{m.Ex, m.Ey, m.Ez}
	bs := [3]*grid.Field{m.Bx, m.By, m.Bz}
	js := [3]*grid.Field{m.Jx, m.Jy, m.Jz}
	for c := 0; c < 3; c++ {
		s.load(es[c], s.eh[c])
		s.forward(s.eh[c], es[c].Off)
		s.load(bs[c], s.bh[c])
		s.forward(s.bh[c], bs[c].Off)
		s.load(js[c], s.jh[c])
		s.forward(s.jh[c], js[c].Off)
	}
	s.load(m.RhoOld, s.rho0h)
	s.forward(s.rho0h, m.RhoOld.Off)
	s.load(m.RhoNew, s.rho1h)
	s.forward(s.rho1h, m.RhoNew.Off)

	if s.alg == JLinear && !s.haveOld {
		for c := 0; c < 3; c++ {
			copy(s.joldh[c], s.jh[c])
		}
		s.haveOld = true
	}
	if s.correct {
		s.correctCurrent(dt)
	}

	s.update(dt)

	if s.alg == JLinear {
		s.jh, s.joldh = s.joldh, s.jh
	}

	for c := 0; c < 3; c++ {
		s.inverse(s.eh[c], es[c].Off)
		s.store(es[c], s.eh[c])
		s.inverse(s.bh[c], bs[c].Off)
		s.store(bs[c], s.bh[c])
	}
}

// correctCurrent projects the spectral current onto the subspace that
// satisfies discrete continuity with the deposited charge densities
// (Vay et al. 2013).
func (s *Solver) correctCurrent(dt float64) {
	for iz := 0; iz < s.n[2]; iz++ {
		for iy := 0; iy < s.n[1]; iy++ {
			base := iy*s.stride[1] + iz*s.stride[2]
			for ix := 0; ix < s.n[0]; ix++ {
				idx := base + ix
				kx, ky, kz := s.k[0][ix], s.k[1][iy], s.k[2][iz]
				k2 := kx*kx + ky*ky + kz*kz
				if k2 == 0 {
					continue
				}

				kdotJ := rmul(kx, s.jh[0][idx]) + rmul(ky, s.jh[1][idx]) +
					rmul(kz, s.jh[2][idx])
				want := imul(rmul(1/dt, s.rho1h[idx]-s.rho0h[idx]))
				excess := rmul(1/k2, kdotJ-want)
				s.jh[0][idx] -= rmul(kx, excess)
				s.jh[1][idx] -= rmul(ky, excess)
				s.jh[2][idx] -= rmul(kz, excess)
			}
		}
	}
}

// update applies the per-wavevector advance to the loaded spectra.
func (s *Solver) update(dt float64) {
	linear := s.alg == JLinear
	for iz := 0; iz < s.n[2]; iz++ {
		for iy := 0; iy < s.n[1]; iy++ {
			base := iy*s.stride[1] + iz*s.stride[2]
			for ix := 0; ix < s.n[0]; ix++ {
				idx := base + ix
				kx, ky, kz := s.k[0][ix], s.k[1][iy], s.k[2][iz]
				c := s.cC[idx]
				sck := s.cS[idx]
				x1, x2, x3, x4 := s.cX1[idx], s.cX2[idx], s.cX3[idx],
					s.cX4[idx]

				ex, ey, ez := s.eh[0][idx], s.eh[1][idx], s.eh[2][idx]
				bx, by, bz := s.bh[0][idx], s.bh[1][idx], s.bh[2][idx]
				jx, jy, jz := s.jh[0][idx], s.jh[1][idx], s.jh[2][idx]
				rho0, rho1 := s.rho0h[idx], s.rho1h[idx]

				j0x, j0y, j0z := jx, jy, jz
				if linear {
					j0x, j0y, j0z = s.joldh[0][idx], s.joldh[1][idx],
						s.joldh[2][idx]
				}

				// Source terms of E: X4 J0 (and the linear ramp), plus
				// the longitudinal charge term.
				jtx := rmul(x4, j0x)
				jty := rmul(x4, j0y)
				jtz := rmul(x4, j0z)
				if linear {
					f := x1 / dt
					jtx -= rmul(f, jx-j0x)
					jty -= rmul(f, jy-j0y)
					jtz -= rmul(f, jz-j0z)
				}
				q := rmul(x2, rho1) - rmul(x3, rho0)

				c2s := units.C2 * sck
				enx := rmul(c, ex) + imul(rmul(c2s, rmul(ky, bz)-rmul(kz, by))) +
					jtx - imul(rmul(kx, q))
				eny := rmul(c, ey) + imul(rmul(c2s, rmul(kz, bx)-rmul(kx, bz))) +
					jty - imul(rmul(ky, q))
				enz := rmul(c, ez) + imul(rmul(c2s, rmul(kx, by)-rmul(ky, bx))) +
					jtz - imul(rmul(kz, q))

				bnx := rmul(c, bx) - imul(rmul(sck, rmul(ky, ez)-rmul(kz, ey))) +
					imul(rmul(x1, rmul(ky, j0z)-rmul(kz, j0y)))
				bny := rmul(c, by) - imul(rmul(sck, rmul(kz, ex)-rmul(kx, ez))) +
					imul(rmul(x1, rmul(kz, j0x)-rmul(kx, j0z)))
				bnz := rmul(c, bz) - imul(rmul(sck, rmul(kx, ey)-rmul(ky, ex))) +
					imul(rmul(x1, rmul(kx, j0y)-rmul(ky, j0x)))
				if linear {
					f := x2 / units.C2
					bnx += imul(rmul(f, rmul(ky, jz-j0z)-rmul(kz, jy-j0y)))
					bny += imul(rmul(f, rmul(kz, jx-j0x)-rmul(kx, jz-j0z)))
					bnz += imul(rmul(f, rmul(kx, jy-j0y)-rmul(ky, jx-j0x)))
				}

				if s.average {
					s.avgE[0][idx] += rmul(0.5, ex+enx)
					s.avgE[1][idx] += rmul(0.5, ey+eny)
					s.avgE[2][idx] += rmul(0.5, ez+enz)
					s.avgB[0][idx] += rmul(0.5, bx+bnx)
					s.avgB[1][idx] += rmul(0.5, by+bny)
					s.avgB[2][idx] += rmul(0.5, bz+bnz)
				}

				s.eh[0][idx], s.eh[1][idx], s.eh[2][idx] = enx, eny, enz
				s.bh[0][idx], s.bh[1][idx], s.bh[2][idx] = bnx, bny, bnz
			}
		}
	}
	if s.average {
		s.avgCount++
	}
}

// ResetAverage clears the running field average.
func (s *Solver) ResetAverage() {
	for c := 0; c < 3; c++ {
		for i := range s.avgE[c] {
			s.avgE[c][i] = 0
			s.avgB[c][i] = 0
		}
	}
	s.avgCount = 0
}

// WriteAverage stores the mean of the accumulated per-push endpoint
// averages into the mesh's E and B components.
func (s *Solver) WriteAverage(m *grid.Mesh) error {
	if !s.average {
		return fmt.Errorf("The solver was built without time averaging.")
	}
	if s.avgCount == 0 {
		return fmt.Errorf("No pushes have accumulated since the last " +
			"average reset.")
	}

	es := [3]*grid.Field{m.Ex, m.Ey, m.Ez}
	bs := [3]*grid.Field{m.Bx, m.By, m.Bz}
	inv := 1 / float64(s.avgCount)
	for c := 0; c < 3; c++ {
		// The current scratch is free between pushes.
		w := s.jh[c]
		for i := range w {
			w[i] = rmul(inv, s.avgE[c][i])
		}
		s.inverse(w, es[c].Off)
		s.store(es[c], w)
		for i := range w {
			w[i] = rmul(inv, s.avgB[c][i])
		}
		s.inverse(w, bs[c].Off)
		s.store(bs[c], w)
	}
	return nil
}

// load copies a field's interior into a complex work array.
func (s *Solver) load(f *grid.Field, dst []complex128) {
	idx := 0
	for iz := 0; iz < s.n[2]; iz++ {
		for iy := 0; iy < s.n[1]; iy++ {
			row := f.Idx(0, iy, iz)
			for ix := 0; ix < s.n[0]; ix++ {
				dst[idx] = complex(f.Data[row+ix], 0)
				idx++
			}
		}
	}
}

// store copies a work array's real part back into a field's interior.
func (s *Solver) store(f *grid.Field, src []complex128) {
	idx := 0
	for iz := 0; iz < s.n[2]; iz++ {
		for iy := 0; iy < s.n[1]; iy++ {
			row := f.Idx(0, iy, iz)
			for ix := 0; ix < s.n[0]; ix++ {
				f.Data[row+ix] = real(src[idx])
				idx++
			}
		}
	}
}

// forward transforms a work array to spectral space and removes the
// component's half-cell staggering.
func (s *Solver) forward(w []complex128, off grid.Offset) {
	for a := 0; a < 3; a++ {
		s.fftAxis(w, a, false)
	}
	s.shift(w, off, false)
}

// inverse restores the staggering and transforms back to real space.
func (s *Solver) inverse(w []complex128, off grid.Offset) {
	s.shift(w, off, true)
	for a := 0; a < 3; a++ {
		s.fftAxis(w, a, true)
	}
}

func (s *Solver) fftAxis(w []complex128, a int, inv bool) {
	la := s.n[a]
	if la < 2 {
		return
	}
	ft := s.fft[a]
	st := s.stride[a]
	o1, o2 := (a+1)%3, (a+2)%3
	in, out := s.rowIn[:la], s.rowOut[:la]
	scale := 1 / float64(la)

	for i2 := 0; i2 < s.n[o2]; i2++ {
		for i1 := 0; i1 < s.n[o1]; i1++ {
			base := i1*s.stride[o1] + i2*s.stride[o2]
			for i := 0; i < la; i++ {
				in[i] = w[base+i*st]
			}
			if inv {
				ft.Sequence(out, in)
				for i := 0; i < la; i++ {
					w[base+i*st] = rmul(scale, out[i])
				}
			} else {
				ft.Coefficients(out, in)
				for i := 0; i < la; i++ {
					w[base+i*st] = out[i]
				}
			}
		}
	}
}

// shift applies the half-cell alignment phases for the staggered axes of a
// component; conj undoes them.
func (s *Solver) shift(w []complex128, off grid.Offset, conj bool) {
	if off[0] == 0 && off[1] == 0 && off[2] == 0 {
		return
	}
	idx := 0
	for iz := 0; iz < s.n[2]; iz++ {
		pz := complex(1, 0)
		if off[2] != 0 {
			pz = s.sh[2][iz]
		}
		for iy := 0; iy < s.n[1]; iy++ {
			pyz := pz
			if off[1] != 0 {
				pyz *= s.sh[1][iy]
			}
			for ix := 0; ix < s.n[0]; ix++ {
				p := pyz
				if off[0] != 0 {
					p *= s.sh[0][ix]
				}
				if conj {
					p = complex(real(p), -imag(p))
				}
				w[idx] *= p
				idx++
			}
		}
	}
}
