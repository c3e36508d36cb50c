package testutil

import (
	"math"
	"math/rand/v2"
)

// DeterministicNoise returns uniform noise in [-amplitude, amplitude]
// from a seeded PCG stream.
func DeterministicNoise(seed uint64, amplitude float64, length int) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	out := make([]float64, length)
	for i := range out {
		out[i] = amplitude * (2*rng.Float64() - 1)
	}

	return out
}

// GaussianNoise returns standard normal samples scaled by sigma.
func GaussianNoise(seed uint64, sigma float64, length int) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	out := make([]float64, length)
	for i := range out {
		out[i] = sigma * rng.NormFloat64()
	}

	return out
}

// Chirp returns a linear chirp from f0 to f1 Hz over length samples.
func Chirp(f0, f1, sampleRate float64, length int) []float64 {
	out := make([]float64, length)
	dur := float64(length) / sampleRate

	for i := range out {
		tt := float64(i) / sampleRate
		out[i] = math.Sin(2 * math.Pi * (f0*tt + 0.5*(f1-f0)*tt*tt/dur))
	}

	return out
}

// FlatPSD returns a white one-sided spectrum of bins values, zero at DC.
func FlatPSD(bins int, level float64) []float64 {
	out := make([]float64, bins)
	for i := 1; i < bins; i++ {
		out[i] = level
	}

	return out
}
