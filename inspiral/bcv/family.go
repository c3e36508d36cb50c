package bcv

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-bankeff/inspiral/bank"
)

// Bounds describes where a prepared template is valid.
type Bounds struct {
	KMin, KMax   int
	FCutoff      float64
	Coefficients Coefficients
}

// Family turns template descriptors into filter pairs.
type Family interface {
	// Name identifies the family in logs and reports.
	Name() string
	// Len returns the filter length.
	Len() int
	// Prepare overwrites dst with the filters of t and returns the bin
	// range and moment coefficients the template is valid for.
	Prepare(dst *FilterPair, t bank.Template) (Bounds, error)
}

// BCV is the amplitude-corrected two-filter family.
type BCV struct {
	power   *PowerVectors
	moments *Moments
}

// NewBCV binds the family to shared power vectors and noise moments.
func NewBCV(pv *PowerVectors, m *Moments) (*BCV, error) {
	if pv == nil || m == nil {
		return nil, fmt.Errorf("bcv: nil power vectors or moments")
	}

	if len(m.A11) != pv.N/2 {
		return nil, fmt.Errorf("%w: moments %d, power vectors %d", ErrLengthMismatch, len(m.A11), pv.N/2)
	}

	return &BCV{power: pv, moments: m}, nil
}

// Name returns "BCV".
func (b *BCV) Name() string { return "BCV" }

// Len returns the signal length n.
func (b *BCV) Len() int { return b.power.N }

// Prepare builds the filters of t over [KMin, n/2) with the moments
// evaluated at the cutoff bin floor(fCutoff/deltaF). A cutoff at or
// below bin KMin, or one whose moments are undefined, is ErrEmptyBand.
func (b *BCV) Prepare(dst *FilterPair, t bank.Template) (Bounds, error) {
	if !(t.FCutoff > 0) {
		return Bounds{}, fmt.Errorf("%w: fCutoff %g", ErrInvalidFrequency, t.FCutoff)
	}

	half := b.power.N / 2
	kMin := b.moments.KMin
	kMax := min(int(math.Floor(t.FCutoff/b.power.DeltaF)), half-1)

	if kMax <= kMin {
		return Bounds{}, fmt.Errorf("%w: cutoff %g Hz is bin %d, lower bin %d", ErrEmptyBand, t.FCutoff, kMax, kMin)
	}

	if err := BuildFilters(dst, b.power, b.moments, kMin, kMax, t.Psi0, t.Psi3); err != nil {
		return Bounds{}, err
	}

	c, err := b.moments.At(kMax)
	if errors.Is(err, ErrUndefinedMoments) {
		return Bounds{}, fmt.Errorf("%w: %w", ErrEmptyBand, err)
	}

	if err != nil {
		return Bounds{}, err
	}

	return Bounds{KMin: kMin, KMax: kMax, FCutoff: t.FCutoff, Coefficients: c}, nil
}
