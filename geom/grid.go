package geom

// Grid provides an interface for reasoning over a 1D slice as if it were a
// grid of up to three axes surrounded by guard cells. Interior indices run
// over [0, N) per axis and guard indices extend that range to [-Ng, N+Ng).
type Grid struct {
	N      [3]int // interior cells per axis
	Ng     [3]int // guard width per axis
	Span   [3]int // N + 2*Ng
	Length int    // total number of values

	stride [3]int
}

// NewGrid returns a new Grid instance with the given interior size and
// guard widths. Inactive axes should be passed as one cell, zero guards.
func NewGrid(n, ng [3]int) *Grid {
	g := &Grid{}
	g.Init(n, ng)
	return g
}

// Init initializes a Grid instance.
func (g *Grid) Init(n, ng [3]int) {
	g.N = n
	g.Ng = ng

	for a := 0; a < 3; a++ {
		g.Span[a] = n[a] + 2*ng[a]
	}
	g.stride[0] = 1
	g.stride[1] = g.Span[0]
	g.stride[2] = g.Span[0] * g.Span[1]
	g.Length = g.Span[0] * g.Span[1] * g.Span[2]
}

// Idx returns the slice index corresponding to a set of cell coordinates.
// Guard cells are addressed with negative coordinates or coordinates at or
// above N.
func (g *Grid) Idx(i, j, k int) int {
	return (i + g.Ng[0]) + (j+g.Ng[1])*g.stride[1] + (k+g.Ng[2])*g.stride[2]
}

// IdxCheck returns an index and true if the given coordinates are valid and
// false otherwise.
func (g *Grid) IdxCheck(i, j, k int) (idx int, ok bool) {
	if !g.BoundsCheck(i, j, k) {
		return -1, false
	}
	return g.Idx(i, j, k), true
}

// BoundsCheck returns true if the given coordinates fall inside the grid,
// guard cells included, and false otherwise.
func (g *Grid) BoundsCheck(i, j, k int) bool {
	return i >= -g.Ng[0] && i < g.N[0]+g.Ng[0] &&
		j >= -g.Ng[1] && j < g.N[1]+g.Ng[1] &&
		k >= -g.Ng[2] && k < g.N[2]+g.Ng[2]
}

// Wrap returns the periodic interior image of coordinate i on the given
// axis. Guard coordinates no deeper than one interior width wrap in a
// single pass.
func (g *Grid) Wrap(i, axis int) int {
	n := g.N[axis]
	if i < 0 {
		return i + n
	} else if i >= n {
		return i - n
	}
	return i
}

// Stride returns the flat-index stride of the given axis.
func (g *Grid) Stride(axis int) int { return g.stride[axis] }

// Coords inverts Idx, returning the cell coordinates of a flat index.
func (g *Grid) Coords(idx int) (i, j, k int) {
	i = idx % g.Span[0]
	j = (idx / g.stride[1]) % g.Span[1]
	k = idx / g.stride[2]
	return i - g.Ng[0], j - g.Ng[1], k - g.Ng[2]
}
