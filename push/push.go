/*package push advances relativistic macroparticle momenta. Momenta are
stored as proper velocities u = gamma*v, which stay finite and additive for
arbitrarily relativistic particles. Both pushers split the update into a
half electric kick, a magnetic rotation that cannot change |u|, and a
second half electric kick. The position update belongs to the caller, who
knows the step's trajectory is also needed for deposition.
*/
package push

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/pickerel/units"
)

// Kind selects the momentum update scheme.
type Kind int

const (
	// Boris is the classic second-order rotation scheme.
	Boris Kind = iota
	// Vay is the rotation scheme of Vay (2008), which keeps crossed-field
	// drifts exact for relativistic particles.
	Vay
)

// String returns the name used for the scheme in config files.
func (k Kind) String() string {
	switch k {
	case Boris:
		return "boris"
	case Vay:
		return "vay"
	}
	panic("Impossible pusher flag.")
}

// ParseKind converts a config-file pusher name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "boris":
		return Boris, nil
	case "vay":
		return Vay, nil
	}
	return 0, fmt.Errorf("The pusher '%s' is not recognized. It must be "+
		"'boris' or 'vay'.", s)
}

// Func applies one momentum update. qmdt2 is q*dt / (2*m) for the
// particle's species and the step size.
type Func func(ux, uy, uz, ex, ey, ez, bx, by, bz, qmdt2 float64) (nx, ny, nz float64)

// ForKind returns the update function of a scheme.
func ForKind(k Kind) Func {
	switch k {
	case Boris:
		return BorisPush
	case Vay:
		return VayPush
	}
	panic("Impossible pusher flag.")
}

// Gamma returns the Lorentz factor of a proper velocity.
func Gamma(ux, uy, uz float64) float64 {
	return math.Sqrt(1 + (ux*ux+uy*uy+uz*uz)/units.C2)
}

// Velocity converts a proper velocity into an ordinary velocity.
func Velocity(ux, uy, uz float64) (vx, vy, vz float64) {
	inv := 1 / Gamma(ux, uy, uz)
	return ux * inv, uy * inv, uz * inv
}

// BorisPush applies one Boris momentum update. With no electric field the
// update is a pure rotation of u, so |u| is preserved to rounding for any
// field strength and step size.
func BorisPush(ux, uy, uz, ex, ey, ez, bx, by, bz, qmdt2 float64) (nx, ny, nz float64) {
	umx := ux + qmdt2*ex
	umy := uy + qmdt2*ey
	umz := uz + qmdt2*ez

	gidt := qmdt2 / math.Sqrt(1+(umx*umx+umy*umy+umz*umz)/units.C2)
	tx, ty, tz := gidt*bx, gidt*by, gidt*bz
	t2 := tx*tx + ty*ty + tz*tz
	s := 2 / (1 + t2)

	upx := umx + (umy*tz - umz*ty)
	upy := umy + (umz*tx - umx*tz)
	upz := umz + (umx*ty - umy*tx)

	nx = umx + s*(upy*tz-upz*ty) + qmdt2*ex
	ny = umy + s*(upz*tx-upx*tz) + qmdt2*ey
	nz = umz + s*(upx*ty-upy*tx) + qmdt2*ez
	return nx, ny, nz
}

// VayPush applies one momentum update using the scheme of Vay (2008). It
// evaluates the magnetic rotation at the new-step Lorentz factor, which
// removes the spurious force Boris produces for particles moving at a
// crossed-field drift velocity.
func VayPush(ux, uy, uz, ex, ey, ez, bx, by, bz, qmdt2 float64) (nx, ny, nz float64) {
	invc2 := 1 / units.C2

	gi := 1 / math.Sqrt(1+(ux*ux+uy*uy+uz*uz)*invc2)
	taux, tauy, tauz := qmdt2*bx, qmdt2*by, qmdt2*bz

	upx := ux + 2*qmdt2*ex + (uy*tauz-uz*tauy)*gi
	upy := uy + 2*qmdt2*ey + (uz*taux-ux*tauz)*gi
	upz := uz + 2*qmdt2*ez + (ux*tauy-uy*taux)*gi

	tau2 := taux*taux + tauy*tauy + tauz*tauz
	ust := (upx*taux + upy*tauy + upz*tauz) / units.C
	sigma := 1 + (upx*upx+upy*upy+upz*upz)*invc2 - tau2

	g2 := 0.5 * (sigma + math.Sqrt(sigma*sigma+4*(tau2+ust*ust)))
	gi = 1 / math.Sqrt(g2)

	tx, ty, tz := taux*gi, tauy*gi, tauz*gi
	s := 1 / (1 + tau2/g2)
	ut := upx*tx + upy*ty + upz*tz

	nx = s * (upx + ut*tx + (upy*tz - upz*ty))
	ny = s * (upy + ut*ty + (upz*tx - upx*tz))
	nz = s * (upz + ut*tz + (upx*ty - upy*tx))
	return nx, ny, nz
}
