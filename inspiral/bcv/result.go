package bcv

import "math"

// Unset is the value reported for a peak that no sample has set.
const Unset = -1.0

// Peak is the maximum of one SNR branch over the samples and templates
// scanned so far.
type Peak struct {
	SNR     float64
	Bin     int
	Phase   float64
	Alpha   float64
	FCutoff float64

	Template int
	Layer    int

	// Set is false until a valid sample has been recorded.
	Set bool
}

// Value returns the SNR, or Unset for an unset peak.
func (p Peak) Value() float64 {
	if !p.Set {
		return Unset
	}

	return p.SNR
}

// AlphaF returns the dimensionless amplitude correction alpha*fCutoff^(2/3).
func (p Peak) AlphaF() float64 {
	if !p.Set {
		return Unset
	}

	return p.Alpha * math.Pow(p.FCutoff, 2.0/3.0)
}

// beats reports whether p strictly improves on cur.
func (p Peak) beats(cur Peak) bool {
	return p.Set && (!cur.Set || p.SNR > cur.SNR)
}

// OverlapResult holds the constrained and unconstrained maxima of a scan.
// The zero value is the unset initial state.
type OverlapResult struct {
	Constrained   Peak
	Unconstrained Peak
}

// Merge replaces each branch of r with the one of c when c strictly
// improves on it. Branches are replaced whole and independently.
func (r *OverlapResult) Merge(c OverlapResult) (constrained, unconstrained bool) {
	if c.Constrained.beats(r.Constrained) {
		r.Constrained = c.Constrained
		constrained = true
	}

	if c.Unconstrained.beats(r.Unconstrained) {
		r.Unconstrained = c.Unconstrained
		unconstrained = true
	}

	return constrained, unconstrained
}

func (r *OverlapResult) annotate(template, layer int) {
	r.Constrained.Template, r.Constrained.Layer = template, layer
	r.Unconstrained.Template, r.Unconstrained.Layer = template, layer
}
