package psd

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned by spectrum constructors and estimators.
var (
	ErrInvalidLength  = errors.New("psd: invalid spectrum length")
	ErrInvalidDeltaF  = errors.New("psd: deltaF must be > 0")
	ErrNegativePower  = errors.New("psd: negative or non-finite power")
	ErrUnknownModel   = errors.New("psd: unknown noise model")
	ErrPointCount     = errors.New("psd: point count does not match spectrum length")
	ErrSegmentLength  = errors.New("psd: invalid segment length")
	ErrSeriesTooShort = errors.New("psd: time series shorter than one segment")
)

// Spectrum is a one-sided power spectral density on a uniform grid.
// It is read-only once built.
type Spectrum struct {
	F0     float64
	DeltaF float64
	Data   []float64
}

// New validates data and wraps it in a Spectrum. Data is not copied.
func New(data []float64, f0, deltaF float64) (*Spectrum, error) {
	if len(data) == 0 {
		return nil, ErrInvalidLength
	}

	if !(deltaF > 0) {
		return nil, ErrInvalidDeltaF
	}

	for k, v := range data {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: bin %d = %v", ErrNegativePower, k, v)
		}
	}

	return &Spectrum{F0: f0, DeltaF: deltaF, Data: data}, nil
}

// FromModel evaluates m on bins = n/2+1 frequencies k*deltaF for a signal
// of length n. The DC bin is zero.
func FromModel(m Model, n int, sampleRate float64) (*Spectrum, error) {
	if n < 2 || n%2 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}

	if !(sampleRate > 0) {
		return nil, ErrInvalidDeltaF
	}

	deltaF := sampleRate / float64(n)
	data := make([]float64, n/2+1)

	for k := 1; k < len(data); k++ {
		v := m(float64(k) * deltaF)
		if math.IsInf(v, 1) {
			// Seismic walls overflow at very low frequencies; treat them as
			// excluded bins rather than infinite noise.
			v = 0
		}

		data[k] = v
	}

	return New(data, 0, deltaF)
}

// Bins returns the number of frequency bins.
func (s *Spectrum) Bins() int { return len(s.Data) }

// Frequency returns the frequency of bin k.
func (s *Spectrum) Frequency(k int) float64 { return s.F0 + float64(k)*s.DeltaF }

// Bin returns the index of the bin containing frequency f, floored.
func (s *Spectrum) Bin(f float64) int { return int(math.Floor((f - s.F0) / s.DeltaF)) }
