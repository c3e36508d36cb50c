package psd

import (
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-bankeff/dsp/fft"
	"github.com/cwbudde/algo-bankeff/dsp/window"
)

// Average selects how segment periodograms are combined.
type Average int

const (
	// AverageMean is the arithmetic mean of the periodograms.
	AverageMean Average = iota
	// AverageMedian is the bias-corrected median, robust to glitches.
	AverageMedian
)

// WelchOption configures Estimate.
type WelchOption func(*welchConfig)

type welchConfig struct {
	window []window.Option
	typ    window.Type
}

// WithWindow selects the segment taper. The default is a periodic Hann
// window. opts are passed to window.Generate after WithPeriodic.
func WithWindow(t window.Type, opts ...window.Option) WelchOption {
	return func(c *welchConfig) {
		c.typ = t
		c.window = append(c.window[:0], opts...)
	}
}

// Estimate computes a Welch PSD of series using windowed segments of the
// transformer's length with 50% overlap. The result has Len()/2+1 bins
// with deltaF = sampleRate/Len().
func Estimate(series []float64, sampleRate float64, t fft.Transformer, avg Average, opts ...WelchOption) (*Spectrum, error) {
	n := t.Len()
	if n < 4 {
		return nil, fmt.Errorf("%w: %d", ErrSegmentLength, n)
	}

	if len(series) < n {
		return nil, fmt.Errorf("%w: %d < %d", ErrSeriesTooShort, len(series), n)
	}

	if !(sampleRate > 0) {
		return nil, ErrInvalidDeltaF
	}

	cfg := welchConfig{typ: window.TypeHann}
	for _, opt := range opts {
		opt(&cfg)
	}

	win, err := window.Generate(cfg.typ, n, append([]window.Option{window.WithPeriodic()}, cfg.window...)...)
	if err != nil {
		return nil, fmt.Errorf("psd: %w", err)
	}

	wss := window.SumSquares(win)

	bins := n/2 + 1
	stride := n / 2
	segments := (len(series)-n)/stride + 1

	seg := make([]float64, n)
	spec := make([]float64, n)
	re := make([]float64, bins)
	im := make([]float64, bins)
	pow := make([]float64, bins)
	rows := make([][]float64, 0, segments)

	for s := range segments {
		vecmath.MulBlock(seg, series[s*stride:s*stride+n], win)

		if err := t.Forward(spec, seg); err != nil {
			return nil, fmt.Errorf("psd: segment %d: %w", s, err)
		}

		re[0], im[0] = spec[0], 0
		for k := 1; k < n/2; k++ {
			re[k], im[k] = spec[k], spec[n-k]
		}

		re[n/2], im[n/2] = spec[n/2], 0

		vecmath.Power(pow, re, im)
		rows = append(rows, append([]float64(nil), pow...))
	}

	data := make([]float64, bins)

	switch avg {
	case AverageMedian:
		column := make([]float64, len(rows))
		for k := range data {
			for s, row := range rows {
				column[s] = row[k]
			}

			sort.Float64s(column)
			// The median of a chi-squared(2) variate is ln 2 times its mean.
			data[k] = stat.Quantile(0.5, stat.Empirical, column, nil) / math.Ln2
		}
	default:
		for _, row := range rows {
			vecmath.AddBlockInPlace(data, row)
		}

		vecmath.ScaleBlock(data, data, 1/float64(len(rows)))
	}

	// One-sided density: double every bin except DC and Nyquist.
	norm := 1 / (sampleRate * wss)
	for k := range data {
		scale := 2 * norm
		if k == 0 || k == n/2 {
			scale = norm
		}

		data[k] *= scale
	}

	data[0] = 0

	return New(data, 0, sampleRate/float64(n))
}
