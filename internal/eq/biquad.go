// Package eq implements the adaptive parametric equaliser: RBJ cookbook
// peaking filters designed from genre presets, band-energy corrections
// and reference-profile matching, applied zero-phase.
package eq

import "math"

// biquad holds normalised second-order IIR coefficients (a0 == 1).
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// peakingBiquad designs an RBJ cookbook peaking EQ filter.
// Frequencies at or above Nyquist collapse to a pass-through.
func peakingBiquad(sampleRate, frequency, q, gainDB float64) biquad {
	nyquist := sampleRate / 2
	if frequency <= 0 || frequency >= nyquist || q <= 0 {
		return biquad{b0: 1}
	}

	omega := 2 * math.Pi * frequency / sampleRate
	sinW := math.Sin(omega)
	cosW := math.Cos(omega)
	a := math.Pow(10, gainDB/40)
	alpha := sinW / (2 * q)

	b0 := 1 + alpha*a
	b1 := -2 * cosW
	b2 := 1 - alpha*a
	a0 := 1 + alpha/a
	a1 := -2 * cosW
	a2 := 1 - alpha/a

	inv := 1 / a0
	return biquad{
		b0: b0 * inv,
		b1: b1 * inv,
		b2: b2 * inv,
		a1: a1 * inv,
		a2: a2 * inv,
	}
}

// processForward runs the filter over samples in place, Direct Form I.
func (f biquad) processForward(samples []float64) {
	var x1, x2, y1, y2 float64
	for i, x0 := range samples {
		y0 := f.b0*x0 + f.b1*x1 + f.b2*x2 - f.a1*y1 - f.a2*y2
		x2, x1 = x1, x0
		y2, y1 = y1, y0
		samples[i] = y0
	}
}

// processZeroPhase applies the filter forward then reversed, cancelling
// the phase shift of each pass. The magnitude response is applied twice,
// so the design gain is halved by the caller to land on the spec gain.
func (f biquad) processZeroPhase(samples []float64) {
	f.processForward(samples)
	reverse(samples)
	f.processForward(samples)
	reverse(samples)
}

func reverse(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
