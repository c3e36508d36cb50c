package window

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by the package.
var (
	ErrInvalidLength = errors.New("window: length must be > 0")
	ErrUnknownType   = errors.New("window: unknown type")
	ErrAlpha         = errors.New("window: parameter out of range")
	ErrLengthMatch   = errors.New("window: samples and coefficients differ in length")
	ErrZeroGain      = errors.New("window: coherent gain is zero")
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
	// TypeTukey is flat in the middle with cosine tapers covering a
	// fraction alpha of the length.
	TypeTukey
	// TypeKaiser uses alpha as the Kaiser beta.
	TypeKaiser
)

var typeNames = []string{"rectangular", "hann", "hamming", "blackman", "tukey", "kaiser"}

// default parameters of the parametric windows
var defaultAlpha = map[Type]float64{TypeTukey: 0.5, TypeKaiser: 8.6}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}

	return typeNames[t]
}

// Names lists the window names accepted by ParseType.
func Names() []string { return append([]string(nil), typeNames...) }

// ParseType resolves a window name.
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// Option configures window generation.
type Option func(*config)

type config struct {
	alpha    float64
	hasAlpha bool
	periodic bool
}

// WithAlpha sets the Tukey taper fraction (in [0, 1]) or the Kaiser beta
// (>= 0). Other windows ignore it.
func WithAlpha(v float64) Option {
	return func(c *config) { c.alpha, c.hasAlpha = v, true }
}

// WithPeriodic selects the periodic form.
func WithPeriodic() Option {
	return func(c *config) { c.periodic = true }
}

// Generate returns n coefficients of window t.
func Generate(t Type, n int, opts ...Option) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}

	if t < 0 || int(t) >= len(typeNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}

	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	if !cfg.hasAlpha {
		cfg.alpha = defaultAlpha[t]
	}

	switch {
	case t == TypeTukey && (cfg.alpha < 0 || cfg.alpha > 1):
		return nil, fmt.Errorf("%w: tukey alpha %g not in [0, 1]", ErrAlpha, cfg.alpha)
	case t == TypeKaiser && cfg.alpha < 0:
		return nil, fmt.Errorf("%w: kaiser beta %g < 0", ErrAlpha, cfg.alpha)
	}

	den := float64(n - 1)
	if cfg.periodic {
		den = float64(n)
	}

	out := make([]float64, n)
	for i := range out {
		x := 0.0
		if den > 0 {
			x = float64(i) / den
		}

		out[i] = eval(t, x, cfg.alpha)
	}

	return out, nil
}

// Apply multiplies samples by coeffs in place.
func Apply(samples, coeffs []float64) error {
	if len(samples) != len(coeffs) {
		return fmt.Errorf("%w: %d != %d", ErrLengthMatch, len(samples), len(coeffs))
	}

	vecmath.MulBlockInPlace(samples, coeffs)

	return nil
}

// SumSquares returns sum(w[n]^2), the power normalization of a windowed
// periodogram.
func SumSquares(coeffs []float64) float64 {
	s := 0.0
	for _, c := range coeffs {
		s += c * c
	}

	return s
}

// EquivalentNoiseBandwidth returns N*sum(w^2)/sum(w)^2 in bins.
func EquivalentNoiseBandwidth(coeffs []float64) (float64, error) {
	if len(coeffs) == 0 {
		return 0, ErrInvalidLength
	}

	sum := 0.0
	for _, c := range coeffs {
		sum += c
	}

	if sum == 0 {
		return 0, ErrZeroGain
	}

	return float64(len(coeffs)) * SumSquares(coeffs) / (sum * sum), nil
}

func eval(t Type, x, alpha float64) float64 {
	switch t {
	case TypeHann:
		return cosineSum(x, 0.5, -0.5)
	case TypeHamming:
		return cosineSum(x, 0.54, -0.46)
	case TypeBlackman:
		return cosineSum(x, 0.42, -0.5, 0.08)
	case TypeTukey:
		return tukeyAt(x, alpha)
	case TypeKaiser:
		return kaiserAt(x, alpha)
	default:
		return 1
	}
}

func cosineSum(x float64, coeffs ...float64) float64 {
	phase := 2 * math.Pi * x

	sum := 0.0
	for k, c := range coeffs {
		sum += c * math.Cos(float64(k)*phase)
	}

	return sum
}

func tukeyAt(x, alpha float64) float64 {
	if alpha <= 0 {
		return 1
	}

	if alpha >= 1 {
		return cosineSum(x, 0.5, -0.5)
	}

	a := alpha / 2

	switch {
	case x < a:
		return 0.5 * (1 + math.Cos(math.Pi*(2*x/alpha-1)))
	case x <= 1-a:
		return 1
	default:
		return 0.5 * (1 + math.Cos(math.Pi*(2*x/alpha-2/alpha+1)))
	}
}

func kaiserAt(x, beta float64) float64 {
	if beta == 0 {
		return 1
	}

	r := 2*x - 1

	return besselI0(beta*math.Sqrt(math.Max(0, 1-r*r))) / besselI0(beta)
}

// besselI0 is the polynomial approximation of the modified Bessel function
// of order zero (Abramowitz and Stegun 9.8.1, 9.8.2).
func besselI0(x float64) float64 {
	ax := math.Abs(x)
	if ax < 3.75 {
		y := x / 3.75
		y *= y

		return 1.0 + y*(3.5156229+y*(3.0899424+y*(1.2067492+y*(0.2659732+y*(0.0360768+y*0.0045813)))))
	}

	y := 3.75 / ax

	return (math.Exp(ax) / math.Sqrt(ax)) *
		(0.39894228 + y*(0.01328592+y*(0.00225319+y*(-0.00157565+y*(0.00916281+y*(-0.02057706+y*(0.02635537+y*(-0.01647633+y*0.00392377))))))))
}
