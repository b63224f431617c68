/*package grid stores the staggered electromagnetic state of one refinement
level: the Yee-lattice field components, the deposited current and charge
densities, and the optional divergence-cleaning scalars. It also owns the
periodic halo operations that keep guard cells consistent between steps.
*/
package grid

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/pickerel/geom"
)

// Offset gives the half-cell staggering of a field component along each
// grid axis. Offsets on inactive axes are masked to zero at construction.
type Offset [3]float64

// Field is one scalar field component on the grid: a flat value buffer
// plus the index math and staggering needed to address it. Cylindrical
// meshes carry one plane per azimuthal component in M; Cartesian meshes
// have a single plane. M[0] shares its backing array with Data.
type Field struct {
	geom.Grid
	Name string
	Off  Offset
	Data []float64
	M    [][]float64
}

// NewField allocates a Field with the given interior size, guard width,
// staggering, and plane count.
func NewField(name string, n, ng [3]int, off Offset, planes int) *Field {
	f := &Field{Name: name, Off: off}
	f.Init(n, ng)
	f.M = make([][]float64, planes)
	for p := range f.M {
		f.M[p] = make([]float64, f.Length)
	}
	f.Data = f.M[0]
	return f
}

// At returns the plane-0 value at cell coordinates (i, j, k).
func (f *Field) At(i, j, k int) float64 { return f.Data[f.Idx(i, j, k)] }

// Set stores the plane-0 value at cell coordinates (i, j, k).
func (f *Field) Set(i, j, k int, v float64) { f.Data[f.Idx(i, j, k)] = v }

// Add accumulates into the plane-0 value at cell coordinates (i, j, k).
func (f *Field) Add(i, j, k int, v float64) { f.Data[f.Idx(i, j, k)] += v }

// AtP returns the value of azimuthal plane p at (i, j, k).
func (f *Field) AtP(p, i, j, k int) float64 { return f.M[p][f.Idx(i, j, k)] }

// SetP stores the value of azimuthal plane p at (i, j, k).
func (f *Field) SetP(p, i, j, k int, v float64) { f.M[p][f.Idx(i, j, k)] = v }

// AddP accumulates into azimuthal plane p at (i, j, k).
func (f *Field) AddP(p, i, j, k int, v float64) { f.M[p][f.Idx(i, j, k)] += v }

// Fill sets every value of every plane, guards included.
func (f *Field) Fill(v float64) {
	for _, m := range f.M {
		for i := range m {
			m[i] = v
		}
	}
}

// Zero clears every value of every plane.
func (f *Field) Zero() { f.Fill(0) }

// CheckFinite returns an error naming the first non-finite value found in
// the field, or nil.
func (f *Field) CheckFinite() error {
	for p, m := range f.M {
		for idx, v := range m {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				i, j, k := f.Coords(idx)
				return fmt.Errorf("The field %s has the non-finite value "+
					"%g at cell (%d, %d, %d) of plane %d.",
					f.Name, v, i, j, k, p)
			}
		}
	}
	return nil
}

// CopyShape returns a zeroed Field with the same shape, staggering, and
// plane count as f.
func (f *Field) CopyShape(name string) *Field {
	return NewField(name, f.N, f.Ng, f.Off, len(f.M))
}

// CopyData copies every plane of src into f. The two fields must share a
// shape.
func (f *Field) CopyData(src *Field) {
	if f.Length != src.Length || len(f.M) != len(src.M) {
		panic("Impossible: copying between fields of different shapes.")
	}
	for p := range f.M {
		copy(f.M[p], src.M[p])
	}
}
