package particle

import (
	"math"

	"github.com/phil-mansfield/pickerel/geom"
)

// Boundary decides what happens to a particle after the position update
// leaves it outside the domain. Implementations mutate the tile in place;
// absorbing rules kill the particle and rely on the following Compact.
type Boundary interface {
	Apply(geo *geom.Geometry, t *Tile, i int)
}

// Periodic wraps positions back into the domain. On cylindrical domains
// only z wraps; the radial wall absorbs, since r has no periodic image.
type Periodic struct{}

// Absorbing kills every particle that leaves the domain.
type Absorbing struct{}

// Reflecting mirrors the position at the wall and flips the momentum
// component normal to it.
type Reflecting struct{}

func wrap(p, lo, hi float64) float64 {
	w := math.Mod(p-lo, hi-lo)
	if w < 0 {
		w += hi - lo
	}
	return lo + w
}

func (Periodic) Apply(geo *geom.Geometry, t *Tile, i int) {
	if geo.Dim == geom.DimRZ {
		if math.Hypot(t.X[i], t.Y[i]) >= geo.Upper[0] {
			t.Kill(i)
			return
		}
		t.Z[i] = wrap(t.Z[i], geo.Lower[1], geo.Upper[1])
		return
	}
	ps := [3][]float64{t.X, t.Y, t.Z}
	for a := 0; a < geo.Axes(); a++ {
		ps[a][i] = wrap(ps[a][i], geo.Lower[a], geo.Upper[a])
	}
}

func (Absorbing) Apply(geo *geom.Geometry, t *Tile, i int) {
	if geo.Dim == geom.DimRZ {
		if math.Hypot(t.X[i], t.Y[i]) >= geo.Upper[0] ||
			t.Z[i] < geo.Lower[1] || t.Z[i] >= geo.Upper[1] {
			t.Kill(i)
		}
		return
	}
	ps := [3][]float64{t.X, t.Y, t.Z}
	for a := 0; a < geo.Axes(); a++ {
		if ps[a][i] < geo.Lower[a] || ps[a][i] >= geo.Upper[a] {
			t.Kill(i)
			return
		}
	}
}

func (Reflecting) Apply(geo *geom.Geometry, t *Tile, i int) {
	if geo.Dim == geom.DimRZ {
		r := math.Hypot(t.X[i], t.Y[i])
		if rMax := geo.Upper[0]; r >= rMax && r > 0 {
			cx, cy := t.X[i]/r, t.Y[i]/r
			ur := t.Ux[i]*cx + t.Uy[i]*cy
			t.Ux[i] -= 2 * ur * cx
			t.Uy[i] -= 2 * ur * cy
			rn := 2*rMax - r
			t.X[i], t.Y[i] = rn*cx, rn*cy
		}
		t.Z[i], t.Uz[i] = mirror(t.Z[i], t.Uz[i], geo.Lower[1],
			geo.Upper[1])
		return
	}
	ps := [3][]float64{t.X, t.Y, t.Z}
	us := [3][]float64{t.Ux, t.Uy, t.Uz}
	for a := 0; a < geo.Axes(); a++ {
		ps[a][i], us[a][i] = mirror(ps[a][i], us[a][i], geo.Lower[a],
			geo.Upper[a])
	}
}

func mirror(p, u, lo, hi float64) (float64, float64) {
	if p < lo {
		return 2*lo - p, -u
	}
	if p >= hi {
		return 2*hi - p, -u
	}
	return p, u
}
