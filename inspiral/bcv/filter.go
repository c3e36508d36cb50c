package bcv

import (
	"fmt"
	"math"
)

// FilterPair holds the two BCV basis filters of one template and their
// orthogonal companions, all in halfcomplex layout. The buffers are reused
// across templates; BuildFilters overwrites them completely.
type FilterPair struct {
	Filter1, Filter2 []float64
	Ortho1, Ortho2   []float64
}

// Resize makes every buffer length n, reallocating only when needed.
func (p *FilterPair) Resize(n int) {
	p.Filter1 = ensureLen(p.Filter1, n)
	p.Filter2 = ensureLen(p.Filter2, n)
	p.Ortho1 = ensureLen(p.Ortho1, n)
	p.Ortho2 = ensureLen(p.Ortho2, n)
}

// Len returns the filter length.
func (p *FilterPair) Len() int { return len(p.Filter1) }

// BuildFilters fills dst with the filters of template (psi0, psi3) over
// bins [kMin, n/2), using the moment coefficients at kMax.
func BuildFilters(dst *FilterPair, pv *PowerVectors, m *Moments, kMin, kMax int, psi0, psi3 float64) error {
	n := pv.N
	half := n / 2

	if kMin < 1 || kMax < kMin || kMax >= half {
		return fmt.Errorf("%w: [%d, %d] with n/2 = %d", ErrBinRange, kMin, kMax, half)
	}

	c, err := m.At(kMax)
	if err != nil {
		return err
	}

	dst.Resize(n)
	clear(dst.Filter1)
	clear(dst.Filter2)

	f1, f2 := dst.Filter1, dst.Filter2

	for i := kMin; i < half; i++ {
		phase := psi0*pv.FM5_3[i] + psi3*pv.FM2_3[i]
		sin, cos := math.Sincos(phase)

		amp1 := c.A11 * pv.FM7_6[i]
		amp2 := c.A21*pv.FM7_6[i] + c.A22*pv.FM1_2[i]

		f1[i] = amp1 * cos
		f1[n-i] = -amp1 * sin
		f2[i] = amp2 * cos
		f2[n-i] = -amp2 * sin
	}

	OrthogonalTo(dst.Ortho1, f1)
	OrthogonalTo(dst.Ortho2, f2)

	return nil
}

// Orthogonalize rotates every paired bin of the halfcomplex sequence f by
// 90 degrees in place: f[i], f[n-i] = -f[n-i], f[i] for 1 <= i < n/2.
// The DC and Nyquist bins are unchanged. Two applications negate the paired
// bins; four restore f.
func Orthogonalize(f []float64) {
	n := len(f)
	for i := 1; i < n/2; i++ {
		f[i], f[n-i] = -f[n-i], f[i]
	}
}

// OrthogonalTo writes the orthogonal companion of src into dst.
func OrthogonalTo(dst, src []float64) {
	n := len(src)

	dst[0] = src[0]
	for i := 1; i < n/2; i++ {
		dst[i] = -src[n-i]
		dst[n-i] = src[i]
	}

	if n > 1 {
		dst[n/2] = src[n/2]
	}
}

func ensureLen(buf []float64, n int) []float64 {
	if cap(buf) < n {
		return make([]float64, n)
	}

	return buf[:n]
}
