package grid

// The halo operations sweep one axis at a time over the full span of the
// other axes, so corner and edge guards come out right after all three
// sweeps without any special casing.

// FillGuards copies interior values into the guard cells of the periodic
// axes. Guards on non-periodic axes are left untouched; the absorbing
// layer owns them.
func FillGuards(fs []*Field, periodic [3]bool) {
	for _, f := range fs {
		for _, m := range f.M {
			for a := 0; a < 3; a++ {
				if periodic[a] && f.Ng[a] > 0 {
					fillAxis(m, f, a)
				}
			}
		}
	}
}

// FoldGuards adds guard-cell values into their periodic interior images
// and zeroes the guards. Deposition spills charge and current into the
// guards; this brings it back. Guards on non-periodic axes are zeroed
// without folding.
func FoldGuards(fs []*Field, periodic [3]bool) {
	for _, f := range fs {
		for _, m := range f.M {
			for a := 2; a >= 0; a-- {
				if f.Ng[a] == 0 {
					continue
				}
				foldAxis(m, f, a, periodic[a])
			}
		}
	}
}

func fillAxis(m []float64, f *Field, a int) {
	for side := 0; side < 2; side++ {
		lo, hi, shift := guardRange(f, a, side)
		r := fullRanges(f)
		r[a] = [2]int{lo, hi}

		for k := r[2][0]; k < r[2][1]; k++ {
			for j := r[1][0]; j < r[1][1]; j++ {
				for i := r[0][0]; i < r[0][1]; i++ {
					m[f.Idx(i, j, k)] = m[imageIdx(f, a, shift, i, j, k)]
				}
			}
		}
	}
}

func foldAxis(m []float64, f *Field, a int, periodic bool) {
	for side := 0; side < 2; side++ {
		lo, hi, shift := guardRange(f, a, side)
		r := fullRanges(f)
		r[a] = [2]int{lo, hi}

		for k := r[2][0]; k < r[2][1]; k++ {
			for j := r[1][0]; j < r[1][1]; j++ {
				for i := r[0][0]; i < r[0][1]; i++ {
					dst := f.Idx(i, j, k)
					if periodic {
						m[imageIdx(f, a, shift, i, j, k)] += m[dst]
					}
					m[dst] = 0
				}
			}
		}
	}
}

// guardRange returns the guard coordinate range of one side of an axis and
// the shift that maps it onto its interior image.
func guardRange(f *Field, a, side int) (lo, hi, shift int) {
	if side == 0 {
		return -f.Ng[a], 0, f.N[a]
	}
	return f.N[a], f.N[a] + f.Ng[a], -f.N[a]
}

func fullRanges(f *Field) [3][2]int {
	return [3][2]int{
		{-f.Ng[0], f.N[0] + f.Ng[0]},
		{-f.Ng[1], f.N[1] + f.Ng[1]},
		{-f.Ng[2], f.N[2] + f.Ng[2]},
	}
}

func imageIdx(f *Field, a, shift, i, j, k int) int {
	switch a {
	case 0:
		return f.Idx(i+shift, j, k)
	case 1:
		return f.Idx(i, j+shift, k)
	}
	return f.Idx(i, j, k+shift)
}
