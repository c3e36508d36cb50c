package bcv

import (
	"fmt"
	"math"
)

// sectorSlack widens the +-pi sector edges against rounding in atan2.
const sectorSlack = 1e-4

// Mode selects which SNR feeds the per-sample series.
type Mode int

const (
	// ModeConstrained reports the SNR constrained to 0 <= alphaF <= 1.
	ModeConstrained Mode = iota
	// ModeUnconstrained reports the free SNR, excluding samples whose
	// amplitude correction alphaF exceeds 1.
	ModeUnconstrained
)

func (m Mode) String() string {
	switch m {
	case ModeConstrained:
		return "constrained"
	case ModeUnconstrained:
		return "unconstrained"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Series is the per-sample SNR of one template. Only samples with Valid
// set carry a value.
type Series struct {
	SNR   []float64
	Valid []bool
}

func (s *Series) reset(n int) {
	s.SNR = ensureLen(s.SNR, n)
	if cap(s.Valid) < n {
		s.Valid = make([]bool, n)
	}

	s.Valid = s.Valid[:n]
	clear(s.SNR)
	clear(s.Valid)
}

// Maximizer reduces the four correlations of a template to constrained and
// unconstrained SNR maxima.
type Maximizer struct {
	c       Coefficients
	fCutoff float64
	fp23    float64
	thetaB  float64
	mode    Mode
}

// NewMaximizer derives the boundary angle
//
//	thetaB = atan(-(a11*alphaMax) / (a22 + a21*alphaMax)),  alphaMax = fCutoff^(-2/3)
//
// separating physical from unphysical amplitude corrections.
func NewMaximizer(c Coefficients, fCutoff float64, mode Mode) (*Maximizer, error) {
	if !(fCutoff > 0) {
		return nil, fmt.Errorf("%w: fCutoff %g", ErrInvalidFrequency, fCutoff)
	}

	alphaMax := math.Pow(fCutoff, -2.0/3.0)

	return &Maximizer{
		c:       c,
		fCutoff: fCutoff,
		fp23:    math.Pow(fCutoff, 2.0/3.0),
		thetaB:  math.Atan(-(c.A11 * alphaMax) / (c.A22 + c.A21*alphaMax)),
		mode:    mode,
	}, nil
}

// ThetaB returns the boundary angle.
func (m *Maximizer) ThetaB() float64 { return m.thetaB }

// Alpha converts a template phase angle into the amplitude correction
// -(a22*tan(phase)) / (a11 + a21*tan(phase)).
func (m *Maximizer) Alpha(phase float64) float64 {
	t := math.Tan(phase)
	return -(m.c.A22 * t) / (m.c.A11 + m.c.A21*t)
}

// AlphaF returns Alpha(thetaV/2) scaled by fCutoff^(2/3).
func (m *Maximizer) AlphaF(thetaV float64) float64 {
	return m.Alpha(thetaV/2) * m.fp23
}

// Constrained returns the SNR maximized over physical amplitude
// corrections for the quadratic form (v0, v1, v2) with angle thetaV.
// rhoU is the unconstrained SNR of the same sample.
func (m *Maximizer) Constrained(v0, v1, v2, thetaV, rhoU float64) (float64, error) {
	tb := m.thetaB

	var inside, edge, boundary bool

	if tb >= 0 {
		inside = thetaV >= 0 && thetaV <= 2*tb
		edge = thetaV >= tb-math.Pi && thetaV < 0
		boundary = (thetaV > 2*tb && thetaV <= math.Pi+sectorSlack) ||
			(thetaV >= -math.Pi-sectorSlack && thetaV < -math.Pi+tb)
	} else {
		inside = thetaV >= 2*tb && thetaV <= 0
		edge = thetaV > 0 && thetaV <= math.Pi+tb
		boundary = (thetaV >= -math.Pi-sectorSlack && thetaV < 2*tb) ||
			(thetaV >= math.Pi+tb && thetaV <= math.Pi+sectorSlack)
	}

	switch {
	case inside:
		return rhoU, nil
	case edge:
		return math.Sqrt(math.Max((v0+v1)/2, 0)), nil
	case boundary:
		s2, c2 := math.Sincos(2 * tb)
		return math.Sqrt(math.Max((v0+v1*c2+v2*s2)/2, 0)), nil
	default:
		return 0, fmt.Errorf("%w: thetaV %v, thetaB %v", ErrSectorExhausted, thetaV, tb)
	}
}

// Maximize scans samples [nBegin, n-nEnd) of the correlations x (x1 = F1,
// x2 = F2, x3 = F1perp, x4 = F2perp) and returns both maxima. series, if
// not nil, receives the per-sample SNR selected by the mode.
func (m *Maximizer) Maximize(x [4][]float64, nBegin, nEnd int, series *Series) (OverlapResult, error) {
	n := len(x[0])
	for _, xi := range x[1:] {
		if len(xi) != n {
			return OverlapResult{}, ErrLengthMismatch
		}
	}

	if nBegin < 0 || nEnd < 0 || nBegin >= n-nEnd {
		return OverlapResult{}, fmt.Errorf("%w: [%d, %d)", ErrWindow, nBegin, n-nEnd)
	}

	if series != nil {
		series.reset(n)
	}

	var res OverlapResult

	x1, x2, x3, x4 := x[0], x[1], x[2], x[3]

	for i := nBegin; i < n-nEnd; i++ {
		a, b, c, d := x1[i], x2[i], x3[i], x4[i]

		v0 := a*a + b*b + c*c + d*d
		v1 := a*a + c*c - b*b - d*d
		v2 := 2 * (a*b + c*d)

		rhoU := math.Sqrt((v0 + math.Hypot(v1, v2)) / 2)
		thetaV := math.Atan2(v2, v1)

		rhoC, err := m.Constrained(v0, v1, v2, thetaV, rhoU)
		if err != nil {
			return OverlapResult{}, fmt.Errorf("sample %d: %w", i, err)
		}

		alphaF := m.AlphaF(thetaV)
		physical := alphaF <= 1

		if !res.Constrained.Set || rhoC > res.Constrained.SNR {
			res.Constrained = m.peak(rhoC, i, thetaV)
		}

		if physical && (!res.Unconstrained.Set || rhoU > res.Unconstrained.SNR) {
			res.Unconstrained = m.peak(rhoU, i, thetaV)
		}

		if series != nil {
			switch m.mode {
			case ModeUnconstrained:
				series.SNR[i], series.Valid[i] = rhoU, physical
			default:
				series.SNR[i], series.Valid[i] = rhoC, true
			}
		}
	}

	return res, nil
}

func (m *Maximizer) peak(snr float64, bin int, thetaV float64) Peak {
	phase := thetaV / 2

	return Peak{
		SNR:     snr,
		Bin:     bin,
		Phase:   phase,
		Alpha:   m.Alpha(phase),
		FCutoff: m.fCutoff,
		Set:     true,
	}
}
