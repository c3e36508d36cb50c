package bcv

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned by the engine.
var (
	ErrInvalidLength      = errors.New("bcv: signal length must be even and at least 4")
	ErrInvalidFrequency   = errors.New("bcv: frequencies and sample rate must be > 0")
	ErrCutoffAboveNyquist = errors.New("bcv: lower cutoff at or above the Nyquist bin")
	ErrShortSpectrum      = errors.New("bcv: noise spectrum shorter than half the signal length")
	ErrSpectrumGrid       = errors.New("bcv: noise spectrum deltaF does not match the signal length")
	ErrBinRange           = errors.New("bcv: invalid integration bin range")
	ErrUndefinedMoments   = errors.New("bcv: noise moments undefined at the cutoff bin")
	ErrEmptyBand          = errors.New("bcv: template cutoff leaves no bins above the lower cutoff")
	ErrSectorExhausted    = errors.New("bcv: phase angle outside every maximization sector")
	ErrLengthMismatch     = errors.New("bcv: buffer length mismatch")
	ErrWindow             = errors.New("bcv: valid sample window is empty")
)

// FrequencyPower returns the n/2 values (i*deltaF)^(a/b), deltaF =
// sampleRate/n, for a signal of length n. Element 0 is zero.
func FrequencyPower(n int, sampleRate float64, a, b int) ([]float64, error) {
	if n < 4 || n%2 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}

	if !(sampleRate > 0) || b == 0 {
		return nil, ErrInvalidFrequency
	}

	deltaF := sampleRate / float64(n)
	exp := float64(a) / float64(b)

	out := make([]float64, n/2)
	for i := 1; i < len(out); i++ {
		out[i] = math.Pow(float64(i)*deltaF, exp)
	}

	return out, nil
}

// PowerVectors holds the four frequency profiles shared by every BCV filter
// of one signal length. They are immutable after construction.
type PowerVectors struct {
	FM5_3 []float64 // f^(-5/3)
	FM2_3 []float64 // f^(-2/3)
	FM7_6 []float64 // f^(-7/6)
	FM1_2 []float64 // f^(-1/2)

	N      int
	DeltaF float64
}

// NewPowerVectors builds the profiles for length n at sampleRate.
func NewPowerVectors(n int, sampleRate float64) (*PowerVectors, error) {
	pv := &PowerVectors{N: n, DeltaF: sampleRate / float64(n)}

	for _, p := range []struct {
		dst  *[]float64
		a, b int
	}{
		{&pv.FM5_3, -5, 3},
		{&pv.FM2_3, -2, 3},
		{&pv.FM7_6, -7, 6},
		{&pv.FM1_2, -1, 2},
	} {
		v, err := FrequencyPower(n, sampleRate, p.a, p.b)
		if err != nil {
			return nil, err
		}

		*p.dst = v
	}

	return pv, nil
}
