package grid

import (
	"fmt"

	"github.com/phil-mansfield/pickerel/geom"
	"github.com/phil-mansfield/pickerel/shape"
)

// Yee-lattice offsets relative to cell nodes. Inactive axes are masked at
// mesh construction, which reduces these to the right 1D and 2D lattices.
var (
	OffNode   = Offset{0, 0, 0}
	OffCenter = Offset{0.5, 0.5, 0.5}
	OffEx     = Offset{0.5, 0, 0}
	OffEy     = Offset{0, 0.5, 0}
	OffEz     = Offset{0, 0, 0.5}
	OffBx     = Offset{0, 0.5, 0.5}
	OffBy     = Offset{0.5, 0, 0.5}
	OffBz     = Offset{0.5, 0.5, 0}
)

// Mesh is the full staggered field state of one refinement level. On
// cylindrical meshes the x and y components hold the radial and azimuthal
// components, and every Field carries one plane per azimuthal component.
//
// F and G are the electric and magnetic divergence-cleaning scalars; they
// are nil unless cleaning is enabled.
type Mesh struct {
	Geom *geom.Geometry
	Ng   [3]int

	Ex, Ey, Ez     *Field
	Bx, By, Bz     *Field
	Jx, Jy, Jz     *Field
	RhoOld, RhoNew *Field
	F, G           *Field
}

// NewMesh allocates the field state for a geometry. The guard width is
// sized to cover the shape-function stencil, the charge-conserving
// deposition spread, and the finite-difference stencil radius, whichever
// is widest. Incompatible parameters are reported as errors.
func NewMesh(geo *geom.Geometry, shapeOrder, stencilOrder int, clean bool) (*Mesh, error) {
	if shapeOrder < 1 || shapeOrder > shape.MaxOrder {
		return nil, fmt.Errorf("The shape order %d is outside the "+
			"supported range [1, %d].", shapeOrder, shape.MaxOrder)
	}
	switch stencilOrder {
	case 2, 4, 6:
	default:
		return nil, fmt.Errorf("The stencil order %d is not supported. It "+
			"must be 2, 4, or 6.", stencilOrder)
	}

	ngWant := shape.GuardCells(shapeOrder)
	if r := stencilOrder / 2; r > ngWant {
		ngWant = r
	}

	m := &Mesh{Geom: geo}
	for a := 0; a < geo.Axes(); a++ {
		m.Ng[a] = ngWant
		if geo.N[a] < ngWant {
			return nil, fmt.Errorf("Axis %d has %d cells, but the shape "+
				"and stencil orders need %d guard cells, which must not "+
				"exceed the interior width.", a, geo.N[a], ngWant)
		}
	}

	planes := geo.Planes()
	mk := func(name string, off Offset) *Field {
		if geo.Dim == geom.DimRZ {
			// Grid axes are (r, z), so the azimuthal offset drops out and
			// the Cartesian z offset moves to axis 1.
			off = Offset{off[0], off[2], 0}
		}
		for a := geo.Axes(); a < 3; a++ {
			off[a] = 0
		}
		return NewField(name, geo.N, m.Ng, off, planes)
	}

	m.Ex, m.Ey, m.Ez = mk("Ex", OffEx), mk("Ey", OffEy), mk("Ez", OffEz)
	m.Bx, m.By, m.Bz = mk("Bx", OffBx), mk("By", OffBy), mk("Bz", OffBz)
	m.Jx, m.Jy, m.Jz = mk("Jx", OffEx), mk("Jy", OffEy), mk("Jz", OffEz)
	m.RhoOld, m.RhoNew = mk("RhoOld", OffNode), mk("RhoNew", OffNode)
	if clean {
		m.F, m.G = mk("F", OffNode), mk("G", OffCenter)
	}

	return m, nil
}

// EB returns the six electromagnetic components.
func (m *Mesh) EB() []*Field {
	return []*Field{m.Ex, m.Ey, m.Ez, m.Bx, m.By, m.Bz}
}

// Sources returns the deposited source components.
func (m *Mesh) Sources() []*Field {
	return []*Field{m.Jx, m.Jy, m.Jz, m.RhoOld, m.RhoNew}
}

// All returns every allocated component.
func (m *Mesh) All() []*Field {
	fs := append(m.EB(), m.Sources()...)
	if m.F != nil {
		fs = append(fs, m.F, m.G)
	}
	return fs
}

// ClearSources zeroes the current and both charge-density components,
// guards included. Called before each deposition phase.
func (m *Mesh) ClearSources() {
	for _, f := range []*Field{m.Jx, m.Jy, m.Jz, m.RhoNew} {
		f.Zero()
	}
}

// RotateRho moves this step's deposited charge density into the previous
// slot by swapping the two buffers.
func (m *Mesh) RotateRho() {
	m.RhoOld.M, m.RhoNew.M = m.RhoNew.M, m.RhoOld.M
	m.RhoOld.Data, m.RhoNew.Data = m.RhoNew.Data, m.RhoOld.Data
}

// CheckFinite scans every component and returns the first non-finite
// value found, or nil.
func (m *Mesh) CheckFinite() error {
	for _, f := range m.All() {
		if err := f.CheckFinite(); err != nil {
			return err
		}
	}
	return nil
}
