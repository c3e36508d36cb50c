package bcv

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-bankeff/dsp/psd"
)

// Moments holds the per-bin coefficients that orthonormalize the BCV
// filter pair:
//
//	a11[k] = 1/sqrt(m7)
//	a22[k] = 1/sqrt(m3 - m5^2/m7)
//	a21[k] = -m5/m7 * a22[k]
//
// where m7, m5, m3 are the noise-weighted sums of f^(-7/3), f^(-5/3) and
// f^(-1) over [KMin, k]. Bins where the sums do not yet define an
// invertible Gram matrix are zero.
type Moments struct {
	A11, A21, A22 []float64

	KMin   int
	DeltaF float64
}

// Coefficients are the moment values at a single bin.
type Coefficients struct {
	A11, A21, A22 float64
}

// NewMoments integrates s from fLow up to the Nyquist bin of a length-n
// signal. Bins with zero power are skipped.
func NewMoments(s *psd.Spectrum, fLow, sampleRate float64, n int) (*Moments, error) {
	if n < 4 || n%2 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}

	if !(fLow > 0) || !(sampleRate > 0) {
		return nil, ErrInvalidFrequency
	}

	if err := checkGrid(s, sampleRate, n); err != nil {
		return nil, err
	}

	half := n / 2
	deltaF := s.DeltaF
	norm := sampleRate * sampleRate / 4

	kMin := max(s.Bin(fLow), 1)
	if kMin >= half {
		return nil, fmt.Errorf("%w: bin %d >= %d", ErrCutoffAboveNyquist, kMin, half)
	}

	m := &Moments{
		A11:    make([]float64, half),
		A21:    make([]float64, half),
		A22:    make([]float64, half),
		KMin:   kMin,
		DeltaF: deltaF,
	}

	var m3, m5, m7 float64

	accumulated := 0

	for k := kMin; k < half; k++ {
		shf := s.Data[k]
		if shf > 0 && !math.IsInf(shf, 0) {
			f := s.Frequency(k)
			w := deltaF / norm / shf
			m7 += math.Pow(f, -7.0/3.0) * w
			m5 += math.Pow(f, -5.0/3.0) * w
			m3 += w / f
			accumulated++
		}

		// A single bin makes m3 - m5^2/m7 vanish identically.
		if accumulated < 2 {
			continue
		}

		det := m3 - m5*m5/m7
		if !(det > 0) {
			continue
		}

		a22 := 1 / math.Sqrt(det)
		m.A11[k] = 1 / math.Sqrt(m7)
		m.A22[k] = a22
		m.A21[k] = -m5 / m7 * a22
	}

	return m, nil
}

// At returns the coefficients at bin k.
func (m *Moments) At(k int) (Coefficients, error) {
	if k < 0 || k >= len(m.A11) {
		return Coefficients{}, fmt.Errorf("%w: bin %d outside [0, %d)", ErrBinRange, k, len(m.A11))
	}

	c := Coefficients{A11: m.A11[k], A21: m.A21[k], A22: m.A22[k]}
	if c.A11 == 0 || c.A22 == 0 || !isFinite(c.A11) || !isFinite(c.A21) || !isFinite(c.A22) {
		return Coefficients{}, fmt.Errorf("%w: bin %d", ErrUndefinedMoments, k)
	}

	return c, nil
}

func checkGrid(s *psd.Spectrum, sampleRate float64, n int) error {
	if s == nil || s.Bins() < n/2 {
		return ErrShortSpectrum
	}

	want := sampleRate / float64(n)
	if math.Abs(s.DeltaF-want) > 1e-9*want {
		return fmt.Errorf("%w: %g != %g", ErrSpectrumGrid, s.DeltaF, want)
	}

	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
