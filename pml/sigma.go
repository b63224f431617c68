package pml

import "math"

// SigmaBox holds the damping profile along one axis of the extended box:
// decay rates sampled at node and half-cell positions, plus the
// exponential update factors for the current time step. The factor pair
// (fac, step) replaces the interior update's (1, dt), and reduces to it
// exactly where the rate is zero.
type SigmaBox struct {
	Sigma, SigmaStar         []float64
	SigmaFac, SigmaStarFac   []float64
	SigmaStep, SigmaStarStep []float64
}

// newSigmaBox samples the polynomial ramp over an extended axis with next
// cells, ncell of them absorbing on each side.
func newSigmaBox(next, ncell, ramp int, sigmaMax float64) *SigmaBox {
	sb := &SigmaBox{
		Sigma:         make([]float64, next),
		SigmaStar:     make([]float64, next),
		SigmaFac:      make([]float64, next),
		SigmaStarFac:  make([]float64, next),
		SigmaStep:     make([]float64, next),
		SigmaStarStep: make([]float64, next),
	}
	for i := 0; i < next; i++ {
		sb.Sigma[i] = profile(float64(i), next, ncell, ramp, sigmaMax)
		sb.SigmaStar[i] = profile(float64(i)+0.5, next, ncell, ramp,
			sigmaMax)
	}
	return sb
}

// profile evaluates the damping rate at a position in extended cell units.
// The rate is zero across the physical region and rises as
// (depth/ncell)^ramp toward the outer edges.
func profile(p float64, next, ncell, ramp int, sigmaMax float64) float64 {
	d := float64(ncell) - p
	if dh := p - float64(next-ncell); dh > d {
		d = dh
	}
	if d <= 0 {
		return 0
	}
	return sigmaMax * math.Pow(d/float64(ncell), float64(ramp))
}

func (sb *SigmaBox) computeFactors(dt float64) {
	fill := func(sigma, fac, step []float64) {
		for i, s := range sigma {
			if s == 0 {
				fac[i], step[i] = 1, dt
				continue
			}
			f := math.Exp(-s * dt)
			fac[i] = f
			step[i] = (1 - f) / s
		}
	}
	fill(sb.Sigma, sb.SigmaFac, sb.SigmaStep)
	fill(sb.SigmaStar, sb.SigmaStarFac, sb.SigmaStarStep)
}
