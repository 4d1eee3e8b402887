package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns the magnitude of the first half of the DFT of data
// after removing its mean. Any length is accepted.
func PowerSpectrum(data []float64) []float64 {
	if len(data) < 2 {
		return nil
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	centered := make([]float64, len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	spectrum := fft.FFTReal(centered)
	ps := make([]float64, len(spectrum)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// DominantFrequency estimates the strongest oscillation in samples taken
// every dt seconds, in Hz. The estimate is refined between bins by
// parabolic interpolation. It returns 0 when nothing oscillates.
func DominantFrequency(samples []float64, dt float64) float64 {
	ps := PowerSpectrum(samples)
	if len(ps) < 2 || dt <= 0 {
		return 0
	}

	peak := 1
	for i := 2; i < len(ps); i++ {
		if ps[i] > ps[peak] {
			peak = i
		}
	}
	if ps[peak] == 0 {
		return 0
	}

	bin := float64(peak)
	if peak+1 < len(ps) {
		a, b, c := ps[peak-1], ps[peak], ps[peak+1]
		if den := a - 2*b + c; den != 0 {
			offset := 0.5 * (a - c) / den
			if math.Abs(offset) <= 0.5 {
				bin += offset
			}
		}
	}
	return bin / (float64(len(samples)) * dt)
}
