/*package diag computes reduced diagnostics and writes one whitespace table
per diagnostic. Tables carry the run id in a comment header and are written
so the analysis scripts can read them back column by column. Diagnostics
run after the step has finished and the species have been compacted, so
every resident particle counts.
*/
package diag

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/phil-mansfield/pickerel/geom"
	"github.com/phil-mansfield/pickerel/grid"
	"github.com/phil-mansfield/pickerel/particle"
	"github.com/phil-mansfield/pickerel/units"
)

// Diagnostic reduces simulation state to one short row of values.
type Diagnostic interface {
	// Name is the base name of the output table.
	Name() string
	// Header lists the value columns that follow step and time.
	Header() []string
	// Compute evaluates the current values, one per Header entry.
	Compute() []float64
}

// Group drives a set of diagnostics on a fixed step cadence and owns
// their output tables.
type Group struct {
	every int
	diags []Diagnostic
	files []*os.File
}

// NewGroup opens one table per diagnostic under dir. A fresh run truncates
// the tables and writes their headers; a resumed run appends instead.
func NewGroup(
	dir, runID string, every int, resume bool, diags ...Diagnostic,
) (*Group, error) {
	if every < 1 {
		return nil, fmt.Errorf("The diagnostic cadence %d is not "+
			"positive.", every)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	g := &Group{every: every, diags: diags}
	seen := map[string]bool{}
	for _, d := range diags {
		if seen[d.Name()] {
			g.Close()
			return nil, fmt.Errorf("Two diagnostics share the name '%s'.",
				d.Name())
		}
		seen[d.Name()] = true

		flags := os.O_CREATE | os.O_WRONLY
		if resume {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(filepath.Join(dir, d.Name()+".dat"),
			flags, 0644)
		if err != nil {
			g.Close()
			return nil, err
		}
		g.files = append(g.files, f)
		if !resume {
			_, err = fmt.Fprintf(f, "# pickerel %s run %s\n# step time %s\n",
				d.Name(), runID, strings.Join(d.Header(), " "))
			if err != nil {
				g.Close()
				return nil, err
			}
		}
	}
	return g, nil
}

// Write appends one row per diagnostic if step falls on the cadence.
func (g *Group) Write(step int, time float64) error {
	if step%g.every != 0 {
		return nil
	}
	for i, d := range g.diags {
		f := g.files[i]
		if _, err := fmt.Fprintf(f, "%d %.12g", step, time); err != nil {
			return err
		}
		for _, v := range d.Compute() {
			if _, err := fmt.Fprintf(f, " %.12g", v); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(f); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every table, returning the first error.
func (g *Group) Close() error {
	var err error
	for _, f := range g.files {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	g.files = nil
	return err
}

// FieldEnergy integrates the electromagnetic energy over the interior,
// split by component.
type FieldEnergy struct {
	m *grid.Mesh
}

func NewFieldEnergy(m *grid.Mesh) *FieldEnergy { return &FieldEnergy{m} }

func (d *FieldEnergy) Name() string { return "field_energy" }

func (d *FieldEnergy) Header() []string {
	return []string{"Ex", "Ey", "Ez", "Bx", "By", "Bz", "total"}
}

func (d *FieldEnergy) Compute() []float64 {
	vals := make([]float64, 7)
	for c, f := range d.m.EB() {
		u := fieldSquare(d.m.Geom, f)
		if c < 3 {
			u *= units.Eps0 / 2
		} else {
			u *= units.Eps0 * units.C2 / 2
		}
		vals[c] = u
		vals[6] += u
	}
	return vals
}

// fieldSquare integrates f^2 over the interior. Cylindrical components
// weight each value by the ring volume at its own radial position, and
// planes past the first carry half the angular weight because the modes
// store cos/sin coefficient pairs.
func fieldSquare(geo *geom.Geometry, f *grid.Field) float64 {
	n := f.N
	sum := 0.0
	if geo.Dim != geom.DimRZ {
		for iz := 0; iz < n[2]; iz++ {
			for iy := 0; iy < n[1]; iy++ {
				idx := f.Idx(0, iy, iz)
				row := f.Data[idx : idx+n[0]]
				sum += floats.Dot(row, row)
			}
		}
		return sum * geo.CellVolume()
	}

	vols := make([]float64, n[0])
	for ir := range vols {
		if f.Off[0] == 0 {
			vols[ir] = geo.NodeVolume(ir)
		} else {
			vols[ir] = geo.FaceVolume(ir)
		}
	}
	for p := range f.M {
		w := 1.0
		if p > 0 {
			w = 0.5
		}
		for iz := 0; iz < n[1]; iz++ {
			idx := f.Idx(0, iz, 0)
			for ir := 0; ir < n[0]; ir++ {
				v := f.M[p][idx+ir]
				sum += w * v * v * vols[ir]
			}
		}
	}
	return sum
}

// FieldMaximum tracks the largest absolute value of each component, plus
// index-wise |E| and |B| magnitudes. Staggered components are combined at
// equal indices, a half-cell blur; cylindrical runs reduce over the mode
// coefficient planes.
type FieldMaximum struct {
	m *grid.Mesh
}

func NewFieldMaximum(m *grid.Mesh) *FieldMaximum { return &FieldMaximum{m} }

func (d *FieldMaximum) Name() string { return "field_maximum" }

func (d *FieldMaximum) Header() []string {
	return []string{"Ex", "Ey", "Ez", "Bx", "By", "Bz", "E", "B"}
}

func (d *FieldMaximum) Compute() []float64 {
	eb := d.m.EB()
	vals := make([]float64, 8)
	n := eb[0].N
	for p := range eb[0].M {
		for iz := 0; iz < n[2]; iz++ {
			for iy := 0; iy < n[1]; iy++ {
				base := eb[0].Idx(0, iy, iz)
				for i := 0; i < n[0]; i++ {
					e2, b2 := 0.0, 0.0
					for c := 0; c < 3; c++ {
						ev := eb[c].M[p][base+i]
						bv := eb[c+3].M[p][base+i]
						if a := math.Abs(ev); a > vals[c] {
							vals[c] = a
						}
						if a := math.Abs(bv); a > vals[c+3] {
							vals[c+3] = a
						}
						e2 += ev * ev
						b2 += bv * bv
					}
					if e2 > vals[6] {
						vals[6] = e2
					}
					if b2 > vals[7] {
						vals[7] = b2
					}
				}
			}
		}
	}
	vals[6] = math.Sqrt(vals[6])
	vals[7] = math.Sqrt(vals[7])
	return vals
}

// ParticleEnergy sums the relativistic kinetic energy w (gamma - 1) m c^2
// per species.
type ParticleEnergy struct {
	species []*particle.Species
}

func NewParticleEnergy(species []*particle.Species) *ParticleEnergy {
	return &ParticleEnergy{species}
}

func (d *ParticleEnergy) Name() string { return "particle_energy" }

func (d *ParticleEnergy) Header() []string {
	h := make([]string, 0, len(d.species)+1)
	for _, s := range d.species {
		h = append(h, s.Name)
	}
	return append(h, "total")
}

func (d *ParticleEnergy) Compute() []float64 {
	vals := make([]float64, len(d.species)+1)
	for si, s := range d.species {
		sum := 0.0
		for _, t := range s.Tiles {
			for i := 0; i < t.Len(); i++ {
				u2 := t.Ux[i]*t.Ux[i] + t.Uy[i]*t.Uy[i] + t.Uz[i]*t.Uz[i]
				gamma := math.Sqrt(1 + u2/units.C2)
				// (gamma - 1) c^2 = u^2 / (gamma + 1), stable for cold
				// particles.
				sum += t.W[i] * s.Mass * u2 / (gamma + 1)
			}
		}
		vals[si] = sum
		vals[len(d.species)] += sum
	}
	return vals
}

// ParticleNumber counts macroparticles and their summed weight per
// species.
type ParticleNumber struct {
	species []*particle.Species
}

func NewParticleNumber(species []*particle.Species) *ParticleNumber {
	return &ParticleNumber{species}
}

func (d *ParticleNumber) Name() string { return "particle_number" }

func (d *ParticleNumber) Header() []string {
	h := make([]string, 0, 2*len(d.species)+2)
	for _, s := range d.species {
		h = append(h, s.Name+"_n", s.Name+"_w")
	}
	return append(h, "total_n", "total_w")
}

func (d *ParticleNumber) Compute() []float64 {
	ns := len(d.species)
	vals := make([]float64, 2*ns+2)
	for si, s := range d.species {
		w := 0.0
		for _, t := range s.Tiles {
			w += floats.Sum(t.W)
		}
		vals[2*si] = float64(s.NP())
		vals[2*si+1] = w
		vals[2*ns] += vals[2*si]
		vals[2*ns+1] += w
	}
	return vals
}
