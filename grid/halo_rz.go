package grid

// Guard cells below the r = 0 axis of a cylindrical mesh hold the
// continuation of each component across the axis: crossing the axis lands
// at (r, theta+pi), so mode m picks up a factor (-1)^m, and radial and
// azimuthal vector components pick up one more sign because the unit
// vectors flip. Node-centered values mirror guard -i onto node i;
// half-staggered values mirror guard -i onto cell i-1.

// AxisFold adds source values deposited below the axis back onto their
// mirror cells and zeroes the guards. Only meaningful on cylindrical
// meshes; it must run before the periodic guard fold.
func (m *Mesh) AxisFold() {
	for _, f := range m.Sources() {
		sign := m.mirrorSign(f)
		for p, plane := range f.M {
			s := sign * modeSign(p)
			for gi := -1; gi >= -f.Ng[0]; gi-- {
				di := mirrorCoord(f, gi)
				for k := -f.Ng[2]; k < f.N[2]+f.Ng[2]; k++ {
					for j := -f.Ng[1]; j < f.N[1]+f.Ng[1]; j++ {
						src := f.Idx(gi, j, k)
						plane[f.Idx(di, j, k)] += s * plane[src]
						plane[src] = 0
					}
				}
			}
		}
	}
}

// AxisFill mirrors interior field values into the guards below the axis so
// particles near r = 0 gather valid data. The outer radial guards are
// zeroed; the domain edge owns them.
func (m *Mesh) AxisFill() {
	for _, f := range m.EB() {
		sign := m.mirrorSign(f)
		for p, plane := range f.M {
			s := sign * modeSign(p)
			for gi := -1; gi >= -f.Ng[0]; gi-- {
				si := mirrorCoord(f, gi)
				for k := -f.Ng[2]; k < f.N[2]+f.Ng[2]; k++ {
					for j := -f.Ng[1]; j < f.N[1]+f.Ng[1]; j++ {
						plane[f.Idx(gi, j, k)] = s * plane[f.Idx(si, j, k)]
					}
				}
			}
			for gi := f.N[0]; gi < f.N[0]+f.Ng[0]; gi++ {
				for k := -f.Ng[2]; k < f.N[2]+f.Ng[2]; k++ {
					for j := -f.Ng[1]; j < f.N[1]+f.Ng[1]; j++ {
						plane[f.Idx(gi, j, k)] = 0
					}
				}
			}
		}
	}
}

// mirrorSign returns the sign a component picks up from its flipped unit
// vector when continued across the axis.
func (m *Mesh) mirrorSign(f *Field) float64 {
	switch f {
	case m.Ex, m.Ey, m.Bx, m.By, m.Jx, m.Jy:
		return -1
	}
	return 1
}

// modeSign returns (-1)^m for the mode of azimuthal plane p.
func modeSign(p int) float64 {
	if (p+1)/2%2 == 1 {
		return -1
	}
	return 1
}

// mirrorCoord returns the interior radial cell that guard coordinate gi
// mirrors onto, given the field's radial staggering.
func mirrorCoord(f *Field, gi int) int {
	if f.Off[0] == 0 {
		return -gi
	}
	return -gi - 1
}
