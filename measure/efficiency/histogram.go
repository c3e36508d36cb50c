package efficiency

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/algo-bankeff/inspiral/bank"
	"github.com/cwbudde/algo-bankeff/inspiral/bcv"
)

// Default SNR histogram layout.
const (
	DefaultHistogramBins = 200
	DefaultHistogramMin  = 0.0
	DefaultHistogramMax  = 20.0
)

var errHistogram = errors.New("efficiency: histogram needs bins > 0, max > min and workers > 0")

// Histogram counts the valid per-sample SNR values of every scanned
// template. Each scan worker writes its own row; Counts reduces them.
type Histogram struct {
	dividers []float64
	width    float64
	rows     [][]float64
	over     []float64
}

// NewHistogram creates bins equal-width bins over [lo, hi) with one row
// per scan worker.
func NewHistogram(bins int, lo, hi float64, workers int) (*Histogram, error) {
	if bins <= 0 || !(hi > lo) || workers <= 0 {
		return nil, errHistogram
	}

	h := &Histogram{
		dividers: floats.Span(make([]float64, bins+1), lo, hi),
		width:    (hi - lo) / float64(bins),
		rows:     make([][]float64, workers),
		over:     make([]float64, workers),
	}

	for i := range h.rows {
		h.rows[i] = make([]float64, bins)
	}

	return h, nil
}

// Workers returns the number of worker rows.
func (h *Histogram) Workers() int { return len(h.rows) }

// Observe adds the valid samples of s to the row of worker. Values at or
// above the last divider are counted as overflow.
func (h *Histogram) Observe(worker int, _ bank.Template, s *bcv.Series) {
	row := h.rows[worker]
	lo := h.dividers[0]

	for i, ok := range s.Valid {
		if !ok {
			continue
		}

		v := s.SNR[i]
		if v < lo || math.IsNaN(v) {
			continue
		}

		idx := int((v - lo) / h.width)
		if idx >= len(row) {
			h.over[worker]++
			continue
		}

		row[idx]++
	}
}

// Counts returns the bin counts summed over workers.
func (h *Histogram) Counts() []float64 {
	out := make([]float64, len(h.rows[0]))
	for _, row := range h.rows {
		floats.Add(out, row)
	}

	return out
}

// Overflow returns the number of valid samples above the range.
func (h *Histogram) Overflow() float64 { return floats.Sum(h.over) }

// WriteASCII writes "center count" lines, one per bin.
func (h *Histogram) WriteASCII(w io.Writer) error {
	bw := bufio.NewWriter(w)

	for i, c := range h.Counts() {
		center := 0.5 * (h.dividers[i] + h.dividers[i+1])
		if _, err := fmt.Fprintf(bw, "%f %d\n", center, int64(c)); err != nil {
			return err
		}
	}

	return bw.Flush()
}
