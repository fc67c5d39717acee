package chronos

import "math"

const Tau = 2 * math.Pi

// policy thresholds, kept from the first engine for identical output
const (
	divEpsilon    = 1e-9
	eqEpsilon     = 1e-5
	slewStep      = 0.005 // param ramp per sample
	minFreq       = 0.1
	delaySecs     = 4
	twoInvMaxUint = 2.0 / math.MaxUint64
)

func polyBlep(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	} else if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

func hermite(x, y0, y1, y2, y3 float64) float64 {
	c0 := y1
	c1 := 0.5 * (y2 - y0)
	c2 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	c3 := 0.5*(y3-y0) + 1.5*(y1-y2)
	return ((c3*x+c2)*x+c1)*x + c0
}

// advance a [0,1) phase accumulator
func wrap(p float64) float64 {
	return p - math.Floor(p)
}

// xorshift, never seeded with zero
func (d *dspState) noise() float64 {
	n := d.seed
	n ^= n << 13
	n ^= n >> 7
	n ^= n << 17
	d.seed = n
	return float64(n)*twoInvMaxUint - 1
}

func seedFor(id NodeID) uint64 {
	return (uint64(id)+1)*0x9E3779B97F4A7C15 | 1
}

// softClip saturates above limit with a tanh knee of depth 0.5.
func softClip(x, limit float64) float64 {
	if x > limit {
		return limit + math.Tanh(x-limit)*0.5
	}
	if x < -limit {
		return -limit + math.Tanh(x+limit)*0.5
	}
	return x
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
