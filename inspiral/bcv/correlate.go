package bcv

import (
	"fmt"

	"github.com/cwbudde/algo-bankeff/dsp/fft"
	"github.com/cwbudde/algo-bankeff/dsp/psd"
)

// Correlator computes noise-weighted correlations of a halfcomplex signal
// against halfcomplex filters at every time lag. It owns a scratch buffer
// and its transformer, so it is not safe for concurrent use.
type Correlator struct {
	t      fft.Transformer
	psd    []float64
	weight float64
	buf    []float64
}

// NewCorrelator binds a transformer to the noise spectrum s.
func NewCorrelator(t fft.Transformer, s *psd.Spectrum, sampleRate float64) (*Correlator, error) {
	n := t.Len()
	if n < 4 || n%2 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}

	if err := checkGrid(s, sampleRate, n); err != nil {
		return nil, err
	}

	norm := sampleRate * sampleRate / 4

	return &Correlator{
		t:      t,
		psd:    s.Data,
		weight: s.DeltaF / (2 * norm),
		buf:    make([]float64, n),
	}, nil
}

// Len returns the correlation length.
func (c *Correlator) Len() int { return c.t.Len() }

// Correlate writes into dst the lag series of <signal, filter> restricted
// to bins [kLow, kHigh]. Bins with zero noise power are dropped. A filter
// of unit weighted norm correlated with itself gives dst[0] = 1.
func (c *Correlator) Correlate(dst, signal, filter []float64, kLow, kHigh int) error {
	n := c.t.Len()
	if len(dst) != n || len(signal) != n || len(filter) != n {
		return fmt.Errorf("%w: want %d", ErrLengthMismatch, n)
	}

	lo := max(kLow, 1)
	hi := min(kHigh, n/2-1)

	buf := c.buf
	clear(buf)

	for k := lo; k <= hi; k++ {
		shf := c.psd[k]
		if shf == 0 {
			continue
		}

		sr, si := signal[k], signal[n-k]
		fr, fi := filter[k], filter[n-k]
		w := c.weight / shf

		// s * conj(h)
		buf[k] = (sr*fr + si*fi) * w
		buf[n-k] = (si*fr - sr*fi) * w
	}

	if err := c.t.Inverse(dst, buf); err != nil {
		return fmt.Errorf("bcv: inverse transform failed: %w", err)
	}

	return nil
}

// CorrelateAll fills x with <s,F1>, <s,F2>, <s,F1perp>, <s,F2perp>.
func (c *Correlator) CorrelateAll(x [4][]float64, signal []float64, p *FilterPair, kLow, kHigh int) error {
	filters := [4][]float64{p.Filter1, p.Filter2, p.Ortho1, p.Ortho2}

	for j, f := range filters {
		if err := c.Correlate(x[j], signal, f, kLow, kHigh); err != nil {
			return err
		}
	}

	return nil
}
