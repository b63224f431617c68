/*package shape evaluates the symmetric B-spline shape factors that spread a
macroparticle across its neighboring grid nodes. The same factors are used
by the field gather and by both deposition schemes, so their conventions
live in one place.

An order-n shape touches n+1 nodes per axis. Weights takes a position in
fractional grid coordinates (node i at coordinate i) and fills a weight
buffer, returning the index of the leftmost touched node. Staggered field
components are handled by the caller shifting the coordinate by half a cell
before evaluating.
*/
package shape

import "math"

// MaxOrder is the highest supported shape order.
const MaxOrder = 3

// Support returns the number of nodes inside the support of an order-n
// shape along one axis.
func Support(order int) int { return order + 1 }

// Weights fills w[0:order+1] with the order-n shape factors at fractional
// coordinate u and returns the leftmost touched node. The weights sum to
// one for any u.
func Weights(order int, u float64, w *[MaxOrder + 1]float64) int {
	switch order {
	case 0:
		// Nearest grid point. Not selectable as a deposition order, but
		// the energy-conserving gather drops to it on staggered axes.
		w[0] = 1
		return int(math.Floor(u + 0.5))
	case 1:
		i := int(math.Floor(u))
		t := u - float64(i)
		w[0] = 1 - t
		w[1] = t
		return i
	case 2:
		// Centered on the nearest node, d in [-1/2, 1/2).
		i := int(math.Floor(u + 0.5))
		d := u - float64(i)
		w[0] = 0.5 * (0.5 - d) * (0.5 - d)
		w[1] = 0.75 - d*d
		w[2] = 0.5 * (0.5 + d) * (0.5 + d)
		return i - 1
	case 3:
		i := int(math.Floor(u))
		t := u - float64(i)
		t2, t3 := t*t, t*t*t
		w[0] = (1 - 3*t + 3*t2 - t3) / 6
		w[1] = (4 - 6*t2 + 3*t3) / 6
		w[2] = (1 + 3*t + 3*t2 - 3*t3) / 6
		w[3] = t3 / 6
		return i - 1
	}
	panic("Impossible shape order.")
}

// GuardCells returns the guard width needed so an order-n shape evaluated
// anywhere inside the domain, staggered or not, stays on allocated nodes.
// The extra cell covers the half-cell stagger shift and the trajectory
// spread of charge-conserving deposition.
func GuardCells(order int) int { return order/2 + 2 }
