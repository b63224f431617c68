/*package inject fills species with macroparticles: uniform plasma blocks,
Gaussian beams, and particle tables. Every injector draws from its own
seeded source, so a run is reproducible particle for particle.
*/
package inject

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/phil-mansfield/table"

	"github.com/phil-mansfield/pickerel/geom"
	"github.com/phil-mansfield/pickerel/particle"
)

// Injector fills a species with particles.
type Injector interface {
	Inject(geo *geom.Geometry, s *particle.Species) error
}

// Plasma fills the part of a box region whose cell centers lie inside the
// domain with PartPerCell macroparticles per cell. Placement is a regular
// sub-cell lattice unless Random is set; on cylindrical grids the box
// bounds are (r, z) ranges, the lattice covers (r, z), and the azimuth is
// always drawn uniformly. Weights reproduce the target density exactly:
// Cartesian cells share their volume evenly, cylindrical particles carry
// the torus volume at their own radius.
type Plasma struct {
	Lower, Upper [3]float64
	Density      float64
	PartPerCell  int
	Random       bool
	UTh, UDrift  [3]float64
	Seed         uint64
}

// momentum draws one proper velocity from the drifting Maxwellian.
type momentum struct {
	dist  [3]distuv.Normal
	drift [3]float64
	th    [3]float64
}

func newMomentum(drift, th [3]float64, rng *rand.Rand) *momentum {
	m := &momentum{drift: drift, th: th}
	for c := 0; c < 3; c++ {
		if th[c] > 0 {
			m.dist[c] = distuv.Normal{Mu: drift[c], Sigma: th[c], Src: rng}
		}
	}
	return m
}

func (m *momentum) draw() (ux, uy, uz float64) {
	u := [3]float64{}
	for c := 0; c < 3; c++ {
		if m.th[c] > 0 {
			u[c] = m.dist[c].Rand()
		} else {
			u[c] = m.drift[c]
		}
	}
	return u[0], u[1], u[2]
}

func (p *Plasma) validate(geo *geom.Geometry) (nSub int, err error) {
	if p.Density < 0 {
		return 0, fmt.Errorf("The plasma density %g is negative.",
			p.Density)
	}
	if p.PartPerCell < 1 {
		return 0, fmt.Errorf("PartPerCell = %d, but every plasma cell "+
			"needs at least one particle.", p.PartPerCell)
	}
	for a := 0; a < geo.Axes(); a++ {
		if p.Upper[a] <= p.Lower[a] {
			return 0, fmt.Errorf("The plasma region is [%g, %g) on axis "+
				"%d, which is empty.", p.Lower[a], p.Upper[a], a)
		}
	}
	if p.Random {
		return 0, nil
	}
	d := geo.Axes()
	nSub = int(math.Round(math.Pow(float64(p.PartPerCell), 1/float64(d))))
	got := 1
	for i := 0; i < d; i++ {
		got *= nSub
	}
	if got != p.PartPerCell {
		return 0, fmt.Errorf("PartPerCell = %d cannot form a regular "+
			"lattice over %d axes. Use a perfect power or set random "+
			"placement.", p.PartPerCell, d)
	}
	return nSub, nil
}

func (p *Plasma) Inject(geo *geom.Geometry, s *particle.Species) error {
	nSub, err := p.validate(geo)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(p.Seed))
	mom := newMomentum(p.UDrift, p.UTh, rng)
	if geo.Dim == geom.DimRZ {
		p.injectRZ(geo, s, nSub, rng, mom)
		return nil
	}

	ax := geo.Axes()
	w := p.Density * geo.CellVolume() / float64(p.PartPerCell)
	var sub [][3]float64
	if !p.Random {
		sub = subPositions(ax, nSub, p.PartPerCell)
	}

	n := geo.N
	for k := 0; k < n[2]; k++ {
		for j := 0; j < n[1]; j++ {
			for i := 0; i < n[0]; i++ {
				cell := [3]int{i, j, k}
				inside := true
				for a := 0; a < ax; a++ {
					c := geo.Lower[a] +
						(float64(cell[a])+0.5)*geo.CellWidth(a)
					if c < p.Lower[a] || c >= p.Upper[a] {
						inside = false
						break
					}
				}
				if !inside {
					continue
				}
				for pi := 0; pi < p.PartPerCell; pi++ {
					pos := [3]float64{}
					for a := 0; a < ax; a++ {
						var u float64
						if p.Random {
							u = rng.Float64()
						} else {
							u = sub[pi][a]
						}
						pos[a] = geo.Lower[a] +
							(float64(cell[a])+u)*geo.CellWidth(a)
					}
					ux, uy, uz := mom.draw()
					s.Add(pos[0], pos[1], pos[2], ux, uy, uz, w)
				}
			}
		}
	}
	return nil
}

func (p *Plasma) injectRZ(geo *geom.Geometry, s *particle.Species,
	nSub int, rng *rand.Rand, mom *momentum) {

	dr, dz := geo.CellWidth(0), geo.CellWidth(1)
	var sub [][3]float64
	if !p.Random {
		sub = subPositions(2, nSub, p.PartPerCell)
	}

	for iz := 0; iz < geo.N[1]; iz++ {
		zc := geo.Lower[1] + (float64(iz)+0.5)*dz
		if zc < p.Lower[1] || zc >= p.Upper[1] {
			continue
		}
		for ir := 0; ir < geo.N[0]; ir++ {
			rc := (float64(ir) + 0.5) * dr
			if rc < p.Lower[0] || rc >= p.Upper[0] {
				continue
			}
			for pi := 0; pi < p.PartPerCell; pi++ {
				var ur, uz float64
				if p.Random {
					ur, uz = rng.Float64(), rng.Float64()
				} else {
					ur, uz = sub[pi][0], sub[pi][1]
				}
				r := (float64(ir) + ur) * dr
				z := geo.Lower[1] + (float64(iz)+uz)*dz
				theta := 2 * math.Pi * rng.Float64()
				w := p.Density * 2 * math.Pi * r * dr * dz /
					float64(p.PartPerCell)
				px, py, pz := mom.draw()
				s.Add(r*math.Cos(theta), r*math.Sin(theta), z,
					px, py, pz, w)
			}
		}
	}
}

// subPositions lays out the in-cell lattice offsets in row-major order.
func subPositions(ax, nSub, ppc int) [][3]float64 {
	dst := make([][3]float64, 0, ppc)
	idx := make([]int, ax)
	for len(dst) < ppc {
		pos := [3]float64{0.5, 0.5, 0.5}
		for a := 0; a < ax; a++ {
			pos[a] = (float64(idx[a]) + 0.5) / float64(nSub)
		}
		dst = append(dst, pos)
		for a := 0; a < ax; a++ {
			idx[a]++
			if idx[a] < nSub {
				break
			}
			idx[a] = 0
		}
	}
	return dst
}

// GaussianBeam injects a Gaussian bunch of NP macroparticles carrying a
// total charge Q, centered on Center with spatial spreads Sigma and a
// Gaussian momentum spread around the drift.
type GaussianBeam struct {
	Center  [3]float64
	Sigma   [3]float64
	Charge  float64
	NP      int
	UDrift  [3]float64
	USpread [3]float64
	Seed    uint64
}

func (b *GaussianBeam) Inject(geo *geom.Geometry, s *particle.Species) error {
	if b.NP < 1 {
		return fmt.Errorf("The beam needs at least one particle, but "+
			"NP = %d.", b.NP)
	}
	if s.Charge == 0 {
		return fmt.Errorf("The beam carries charge %g, but species '%s' "+
			"has zero charge.", b.Charge, s.Name)
	}
	for c := 0; c < 3; c++ {
		if b.Sigma[c] < 0 || b.USpread[c] < 0 {
			return fmt.Errorf("The beam spreads must not be negative.")
		}
	}

	rng := rand.New(rand.NewSource(b.Seed))
	pos := newMomentum(b.Center, b.Sigma, rng)
	mom := newMomentum(b.UDrift, b.USpread, rng)
	w := b.Charge / (s.Charge * float64(b.NP))
	for i := 0; i < b.NP; i++ {
		x, y, z := pos.draw()
		ux, uy, uz := mom.draw()
		s.Add(x, y, z, ux, uy, uz, w)
	}
	return nil
}

// FromTable reads particles from a whitespace table holding the columns
// x y z ux uy uz w.
type FromTable struct {
	Path string
}

func (ft *FromTable) Inject(geo *geom.Geometry, s *particle.Species) error {
	cols, err := table.ReadTable(ft.Path, []int{0, 1, 2, 3, 4, 5, 6}, nil)
	if err != nil {
		return fmt.Errorf("The particle table '%s' could not be read: %v",
			ft.Path, err)
	}
	for i := range cols[0] {
		s.Add(cols[0][i], cols[1][i], cols[2][i],
			cols[3][i], cols[4][i], cols[5][i], cols[6][i])
	}
	return nil
}
