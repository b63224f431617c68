/*package particle stores macroparticles in struct-of-arrays tiles. A tile
is the unit of worker ownership: the driver strides tiles across
goroutines, so nothing here locks. Particles are flagged dead by negating
their id and are physically removed by Compact, which every species runs
before the next gather.
*/
package particle

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/pickerel/geom"
)

// DefaultTileCap is the particle capacity of a freshly grown tile.
const DefaultTileCap = 1 << 14

// Tile is one struct-of-arrays block of particles. Positions are Cartesian
// even on cylindrical grids; Ux, Uy, Uz hold the proper velocity gamma v.
type Tile struct {
	X, Y, Z    []float64
	Ux, Uy, Uz []float64
	W          []float64
	ID         []int64
}

// NewTile returns an empty tile with room for capacity particles.
func NewTile(capacity int) *Tile {
	return &Tile{
		X: make([]float64, 0, capacity), Y: make([]float64, 0, capacity),
		Z: make([]float64, 0, capacity), Ux: make([]float64, 0, capacity),
		Uy: make([]float64, 0, capacity), Uz: make([]float64, 0, capacity),
		W: make([]float64, 0, capacity), ID: make([]int64, 0, capacity),
	}
}

// Len returns the particle count, dead ones included until Compact runs.
func (t *Tile) Len() int { return len(t.ID) }

func (t *Tile) append(x, y, z, ux, uy, uz, w float64, id int64) {
	t.X, t.Y, t.Z = append(t.X, x), append(t.Y, y), append(t.Z, z)
	t.Ux, t.Uy, t.Uz = append(t.Ux, ux), append(t.Uy, uy), append(t.Uz, uz)
	t.W = append(t.W, w)
	t.ID = append(t.ID, id)
}

// Kill flags particle i as dead. Killing twice is a no-op.
func (t *Tile) Kill(i int) {
	if t.ID[i] >= 0 {
		t.ID[i] = ^t.ID[i]
	}
}

// Alive reports whether particle i is still live.
func (t *Tile) Alive(i int) bool { return t.ID[i] >= 0 }

// Compact removes dead particles in place, preserving the order of the
// survivors, and returns the number removed.
func (t *Tile) Compact() int {
	n := 0
	for i, id := range t.ID {
		if id < 0 {
			continue
		}
		if i != n {
			t.X[n], t.Y[n], t.Z[n] = t.X[i], t.Y[i], t.Z[i]
			t.Ux[n], t.Uy[n], t.Uz[n] = t.Ux[i], t.Uy[i], t.Uz[i]
			t.W[n] = t.W[i]
			t.ID[n] = id
		}
		n++
	}
	removed := len(t.ID) - n
	t.X, t.Y, t.Z = t.X[:n], t.Y[:n], t.Z[:n]
	t.Ux, t.Uy, t.Uz = t.Ux[:n], t.Uy[:n], t.Uz[:n]
	t.W, t.ID = t.W[:n], t.ID[:n]
	return removed
}

// Species is one particle population: a physical charge and mass shared by
// every macroparticle, a boundary rule, an optional uniform external field
// pair added at gather time, and the tiles that hold the particles.
type Species struct {
	Name   string
	Charge float64
	Mass   float64
	Bound  Boundary

	ExtE, ExtB [3]float64

	Tiles   []*Tile
	TileCap int

	// NextID is the id the next added particle receives. Restored runs
	// overwrite it so ids never repeat across a restart.
	NextID int64
}

// NewSpecies returns an empty species. The mass must be positive; the
// charge may be zero for tracer populations.
func NewSpecies(name string, charge, mass float64, bound Boundary) (*Species, error) {
	if name == "" {
		return nil, fmt.Errorf("Every species needs a non-empty name.")
	}
	if mass <= 0 {
		return nil, fmt.Errorf("The species '%s' has mass %g, but masses "+
			"must be positive.", name, mass)
	}
	if bound == nil {
		return nil, fmt.Errorf("The species '%s' has no boundary rule.",
			name)
	}
	return &Species{Name: name, Charge: charge, Mass: mass, Bound: bound,
		TileCap: DefaultTileCap}, nil
}

// Add appends one particle, assigning it the next id in the species.
func (s *Species) Add(x, y, z, ux, uy, uz, w float64) {
	n := len(s.Tiles)
	if n == 0 || s.Tiles[n-1].Len() >= s.TileCap {
		s.Tiles = append(s.Tiles, NewTile(s.TileCap))
		n++
	}
	s.Tiles[n-1].append(x, y, z, ux, uy, uz, w, s.NextID)
	s.NextID++
}

// NP returns the particle count across all tiles.
func (s *Species) NP() int {
	n := 0
	for _, t := range s.Tiles {
		n += t.Len()
	}
	return n
}

// Compact removes dead particles from every tile and returns the total
// removed.
func (s *Species) Compact() int {
	removed := 0
	for _, t := range s.Tiles {
		removed += t.Compact()
	}
	return removed
}

// Scrape applies the species boundary to every particle in one tile. The
// driver calls it tile by tile right after the position update.
func (s *Species) Scrape(geo *geom.Geometry, t *Tile) {
	for i := 0; i < t.Len(); i++ {
		s.Bound.Apply(geo, t, i)
	}
}

// CheckFinite returns an error locating the first non-finite particle
// value in the species, or nil if there is none.
func (s *Species) CheckFinite() error {
	names := [7]string{"x", "y", "z", "ux", "uy", "uz", "w"}
	for ti, t := range s.Tiles {
		cols := [7][]float64{t.X, t.Y, t.Z, t.Ux, t.Uy, t.Uz, t.W}
		for c, col := range cols {
			for i, v := range col {
				if math.IsInf(v, 0) || math.IsNaN(v) {
					return fmt.Errorf("Particle %d of species '%s' (tile "+
						"%d, index %d) has %s = %g.",
						t.ID[i], s.Name, ti, i, names[c], v)
				}
			}
		}
	}
	return nil
}
