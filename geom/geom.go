/*package geom describes the shape of the simulation domain: its
dimensionality, its decomposition into cells, and the mapping from physical
positions to fractional grid coordinates. Every other package reasons about
space through a Geometry value, so the dimensionality variants stay out of
the hot loops.
*/
package geom

import (
	"fmt"
	"math"
)

// Dim selects the dimensionality of the simulation domain. Particle
// positions are always three dimensional Cartesian vectors. Dim controls
// how many grid axes those positions project onto and what the axes mean.
type Dim int

const (
	// Dim1D is a one dimensional domain along x.
	Dim1D Dim = iota
	// Dim2D is a two dimensional domain in the x-y plane.
	Dim2D
	// Dim3D is a full three dimensional domain.
	Dim3D
	// DimRZ is a cylindrical domain. Grid axis 0 is the radius
	// r = sqrt(x*x + y*y), grid axis 1 is z, and the azimuthal direction
	// is expanded in modes.
	DimRZ
)

// String returns the name used for the dimensionality in config files.
func (d Dim) String() string {
	switch d {
	case Dim1D:
		return "1d"
	case Dim2D:
		return "2d"
	case Dim3D:
		return "3d"
	case DimRZ:
		return "rz"
	}
	panic("Impossible dimensionality flag.")
}

// ParseDim converts a config-file dimensionality name into a Dim.
func ParseDim(s string) (Dim, error) {
	switch s {
	case "1d":
		return Dim1D, nil
	case "2d":
		return Dim2D, nil
	case "3d":
		return Dim3D, nil
	case "rz":
		return DimRZ, nil
	}
	return 0, fmt.Errorf("The dimensionality '%s' is not recognized. It "+
		"must be one of '1d', '2d', '3d', or 'rz'.", s)
}

// Geometry describes one refinement level's domain: its dimensionality, the
// number of cells along each grid axis, and its physical bounds. Inactive
// trailing axes have one cell and zero extent in the index math, but the
// physical Lower/Upper values on those axes are still used to wrap particle
// positions periodically.
type Geometry struct {
	Dim   Dim
	Modes int // azimuthal modes for DimRZ, including m=0; 0 otherwise

	N     [3]int     // cells per grid axis; 1 on inactive axes
	Lower [3]float64 // physical lower corner
	Upper [3]float64 // physical upper corner

	dx  [3]float64
	inv [3]float64
}

// New returns a Geometry or an error describing the offending parameter.
// For DimRZ, n and the bounds refer to the (r, z) axes and the lower radial
// bound must be zero.
func New(dim Dim, modes int, n [3]int, lower, upper [3]float64) (*Geometry, error) {
	g := &Geometry{Dim: dim, Modes: modes, N: n, Lower: lower, Upper: upper}

	if dim != DimRZ {
		if modes != 0 {
			return nil, fmt.Errorf("Azimuthal modes were requested, but "+
				"the dimensionality is '%s', not 'rz'.", dim)
		}
	} else if modes < 1 {
		return nil, fmt.Errorf("An 'rz' domain needs at least one "+
			"azimuthal mode, but Modes = %d.", modes)
	}

	for a := 0; a < g.Axes(); a++ {
		if n[a] <= 0 {
			return nil, fmt.Errorf("The cell count on axis %d is %d, but "+
				"every active axis needs at least one cell.", a, n[a])
		}
		if upper[a] <= lower[a] {
			return nil, fmt.Errorf("The domain bounds on axis %d are "+
				"[%g, %g), which is empty.", a, lower[a], upper[a])
		}
		g.dx[a] = (upper[a] - lower[a]) / float64(n[a])
		g.inv[a] = 1 / g.dx[a]
	}
	for a := g.Axes(); a < 3; a++ {
		if n[a] > 1 {
			return nil, fmt.Errorf("The cell count on axis %d is %d, but "+
				"axis %d is inactive for a '%s' domain.", a, n[a], a, dim)
		}
		g.N[a] = 1
	}

	if dim == DimRZ && lower[0] != 0 {
		return nil, fmt.Errorf("The lower radial bound of an 'rz' domain "+
			"must be zero, not %g.", lower[0])
	}

	return g, nil
}

// Axes returns the number of active grid axes.
func (g *Geometry) Axes() int {
	switch g.Dim {
	case Dim1D:
		return 1
	case Dim2D, DimRZ:
		return 2
	case Dim3D:
		return 3
	}
	panic("Impossible dimensionality flag.")
}

// Planes returns the number of scalar planes each field component needs:
// one for Cartesian domains, 2*Modes - 1 for DimRZ (mode zero plus a
// cosine and sine plane per higher mode).
func (g *Geometry) Planes() int {
	if g.Dim != DimRZ {
		return 1
	}
	return 2*g.Modes - 1
}

// CellWidth returns the cell width along a grid axis.
func (g *Geometry) CellWidth(axis int) float64 { return g.dx[axis] }

// InvWidth returns 1 / CellWidth(axis).
func (g *Geometry) InvWidth(axis int) float64 { return g.inv[axis] }

// Frac maps a physical position onto fractional grid coordinates, in units
// of cells from the lower domain corner. Node i of axis a sits at
// fractional coordinate i. Inactive axes return 0.
func (g *Geometry) Frac(x, y, z float64) (u0, u1, u2 float64) {
	switch g.Dim {
	case Dim1D:
		return (x - g.Lower[0]) * g.inv[0], 0, 0
	case Dim2D:
		return (x - g.Lower[0]) * g.inv[0], (y - g.Lower[1]) * g.inv[1], 0
	case Dim3D:
		return (x - g.Lower[0]) * g.inv[0], (y - g.Lower[1]) * g.inv[1],
			(z - g.Lower[2]) * g.inv[2]
	case DimRZ:
		r := math.Hypot(x, y)
		return r * g.inv[0], (z - g.Lower[1]) * g.inv[1], 0
	}
	panic("Impossible dimensionality flag.")
}

// Theta returns the azimuthal angle of a position around the z axis. Only
// meaningful for DimRZ.
func (g *Geometry) Theta(x, y float64) float64 { return math.Atan2(y, x) }

// CellVolume returns the volume of one cell for Cartesian domains: a length
// for Dim1D, an area for Dim2D, a volume for Dim3D. Lower-dimensional
// domains treat the missing axes as unit length. For DimRZ cell volumes
// depend on radius; use NodeVolume instead.
func (g *Geometry) CellVolume() float64 {
	if g.Dim == DimRZ {
		panic("Impossible: CellVolume called on an rz geometry.")
	}
	v := 1.0
	for a := 0; a < g.Axes(); a++ {
		v *= g.dx[a]
	}
	return v
}

// NodeVolume returns the control volume around radial node ir of a DimRZ
// domain: the annulus [r - dr/2, r + dr/2) times dz, or the axis disk
// [0, dr/2) for ir = 0.
func (g *Geometry) NodeVolume(ir int) float64 {
	dr, dz := g.dx[0], g.dx[1]
	if ir == 0 {
		return math.Pi * dr * dr / 4 * dz
	}
	r := float64(ir) * dr
	return 2 * math.Pi * r * dr * dz
}

// FaceVolume returns the control volume around the radial face ir + 1/2 of
// a DimRZ domain. Faces never touch the axis, so there is no special case.
func (g *Geometry) FaceVolume(ir int) float64 {
	dr, dz := g.dx[0], g.dx[1]
	return 2 * math.Pi * (float64(ir) + 0.5) * dr * dr * dz
}

// Extent returns Upper - Lower along an axis.
func (g *Geometry) Extent(axis int) float64 { return g.Upper[axis] - g.Lower[axis] }
