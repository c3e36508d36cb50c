package inject

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/cwbudde/algo-bankeff/dsp/psd"
	"github.com/cwbudde/algo-bankeff/inspiral/bank"
	"github.com/cwbudde/algo-bankeff/inspiral/bcv"
)

// Errors returned by the generator.
var (
	ErrUnknownType      = errors.New("inject: unknown simulation type")
	ErrInvalidConfig    = errors.New("inject: invalid configuration")
	ErrNoValidInjection = errors.New("inject: no injection with a final frequency inside the band")
	ErrLengthMismatch   = errors.New("inject: buffer length mismatch")
)

const (
	// fFinalRetries bounds the final-frequency draws per (psi0, psi3).
	fFinalRetries = 10
	// psiRetries bounds the (psi0, psi3) draws per injection.
	psiRetries = 1000
)

// SimulationType selects what a trial signal contains.
type SimulationType int

const (
	SignalOnly SimulationType = iota
	NoiseOnly
	NoiseAndSignal
)

var typeNames = []string{"signal-only", "noise-only", "noise-and-signal"}

func (t SimulationType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("SimulationType(%d)", int(t))
	}

	return typeNames[t]
}

// HasSignal reports whether the trial carries an injection.
func (t SimulationType) HasSignal() bool { return t != NoiseOnly }

// HasNoise reports whether the trial carries noise.
func (t SimulationType) HasNoise() bool { return t != SignalOnly }

// ParseSimulationType accepts the String names and the numeric codes 0-2.
func ParseSimulationType(s string) (SimulationType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range typeNames {
		if s == name || s == fmt.Sprint(i) {
			return SimulationType(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Config describes the injected population.
type Config struct {
	Type SimulationType

	SignalAmplitude float64
	NoiseAmplitude  float64

	Psi0Min, Psi0Max float64
	Psi3Min, Psi3Max float64

	// Alpha is the amplitude correction of the injected chirp.
	Alpha float64

	FLower float64
	LowGM  float64
	HighGM float64

	// Fixed values replace the random draw when non-zero.
	FixedPsi0   float64
	FixedPsi3   float64
	FixedFFinal float64

	RandomPhase bool
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Type < SignalOnly || c.Type > NoiseAndSignal:
		return fmt.Errorf("%w: %d", ErrUnknownType, int(c.Type))
	case c.Type.HasSignal() && !(c.SignalAmplitude > 0):
		return fmt.Errorf("%w: signal amplitude must be > 0", ErrInvalidConfig)
	case c.Type.HasNoise() && !(c.NoiseAmplitude > 0):
		return fmt.Errorf("%w: noise amplitude must be > 0", ErrInvalidConfig)
	case c.FixedPsi0 == 0 && (!(c.Psi0Min > 0) || c.Psi0Max < c.Psi0Min):
		return fmt.Errorf("%w: psi0 range [%g, %g]", ErrInvalidConfig, c.Psi0Min, c.Psi0Max)
	case c.FixedPsi3 == 0 && (!(c.Psi3Max < 0) || c.Psi3Max < c.Psi3Min):
		return fmt.Errorf("%w: psi3 range [%g, %g]", ErrInvalidConfig, c.Psi3Min, c.Psi3Max)
	case c.FixedPsi0 < 0 || c.FixedPsi3 > 0:
		return fmt.Errorf("%w: fixed psi0 must be > 0 and psi3 < 0", ErrInvalidConfig)
	case !(c.FLower > 0):
		return fmt.Errorf("%w: lower frequency must be > 0", ErrInvalidConfig)
	case !(c.LowGM > 0) || c.LowGM > c.HighGM:
		return fmt.Errorf("%w: LowGM %g, HighGM %g", ErrInvalidConfig, c.LowGM, c.HighGM)
	}

	return nil
}

// Injection records the true parameters of a trial signal.
type Injection struct {
	Psi0       float64
	Psi3       float64
	FFinal     float64
	TotalMass  float64
	Alpha      float64
	StartPhase float64
}

// Template returns the descriptor matching the injection exactly.
func (i Injection) Template() bank.Template {
	return bank.Template{Psi0: i.Psi0, Psi3: i.Psi3, FCutoff: i.FFinal}
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed seeds the generator's PCG stream.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))
	}
}

// WithRNG makes the generator draw from rng.
func WithRNG(rng *rand.Rand) Option {
	return func(g *Generator) { g.rng = rng }
}

// Generator produces trial signals as halfcomplex spectra of length n.
// It is not safe for concurrent use.
type Generator struct {
	cfg        Config
	spectrum   *psd.Spectrum
	power      *bcv.PowerVectors
	sampleRate float64
	n          int

	// kLow is the first chirp bin. A final frequency must lie above it.
	kLow int

	rng     *rand.Rand
	uniform distuv.Uniform
	normal  distuv.Normal

	// sigma[k] is the per-component noise deviation at bin k.
	sigma []float64
}

// NewGenerator binds cfg to the run's spectrum and power vectors.
func NewGenerator(cfg Config, s *psd.Spectrum, pv *bcv.PowerVectors, sampleRate float64, opts ...Option) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := pv.N
	if s.Bins() < n/2 {
		return nil, fmt.Errorf("%w: spectrum has %d bins, want %d", ErrLengthMismatch, s.Bins(), n/2)
	}

	g := &Generator{cfg: cfg, spectrum: s, power: pv, sampleRate: sampleRate, n: n}
	g.kLow = max(int(math.Floor(cfg.FLower/pv.DeltaF)), 1)

	if cfg.FixedFFinal > 0 && !g.aboveFirstBin(cfg.FixedFFinal) {
		return nil, fmt.Errorf("%w: fixed final frequency %g Hz leaves no bins above %g Hz",
			ErrInvalidConfig, cfg.FixedFFinal, float64(g.kLow)*pv.DeltaF)
	}

	WithSeed(1)(g)

	for _, opt := range opts {
		opt(g)
	}

	g.uniform = distuv.Uniform{Min: 0, Max: 1, Src: g.rng}
	g.normal = distuv.Normal{Mu: 0, Sigma: 1, Src: g.rng}

	c := s.DeltaF / (sampleRate * sampleRate / 4)
	g.sigma = make([]float64, n/2)

	for k := 1; k < n/2; k++ {
		g.sigma[k] = cfg.NoiseAmplitude * math.Sqrt(s.Data[k]/c)
	}

	return g, nil
}

// Type returns the simulation type.
func (g *Generator) Type() SimulationType { return g.cfg.Type }

// Next fills dst with one trial and returns the injected parameters. For
// NoiseOnly trials the injection is the zero value.
func (g *Generator) Next(dst []float64) (Injection, error) {
	if len(dst) != g.n {
		return Injection{}, fmt.Errorf("%w: %d, want %d", ErrLengthMismatch, len(dst), g.n)
	}

	clear(dst)

	var inj Injection

	if g.cfg.Type.HasSignal() {
		var err error

		inj, err = g.draw()
		if err != nil {
			return Injection{}, err
		}

		if err := g.chirp(dst, inj); err != nil {
			return Injection{}, err
		}
	}

	if g.cfg.Type.HasNoise() {
		g.addNoise(dst)
	}

	return inj, nil
}

// draw picks psi0, psi3 and a final frequency between the LSO and light
// ring frequencies of the implied mass.
func (g *Generator) draw() (Injection, error) {
	nyquist := g.sampleRate / 2

	for range psiRetries {
		inj := Injection{Alpha: g.cfg.Alpha}

		inj.Psi0 = g.cfg.FixedPsi0
		if inj.Psi0 == 0 {
			inj.Psi0 = g.cfg.Psi0Min + g.uniform.Rand()*(g.cfg.Psi0Max-g.cfg.Psi0Min)
		}

		inj.Psi3 = g.cfg.FixedPsi3
		if inj.Psi3 == 0 {
			inj.Psi3 = g.cfg.Psi3Min + g.uniform.Rand()*(g.cfg.Psi3Max-g.cfg.Psi3Min)
		}

		inj.TotalMass = bank.TotalMass(inj.Psi0, inj.Psi3)

		if g.cfg.RandomPhase {
			inj.StartPhase = g.uniform.Rand() * math.Pi
		}

		if g.cfg.FixedFFinal > 0 {
			if g.cfg.FixedFFinal > nyquist {
				return Injection{}, fmt.Errorf("%w: fixed final frequency %g", ErrNoValidInjection, g.cfg.FixedFFinal)
			}

			inj.FFinal = g.cfg.FixedFFinal

			return inj, nil
		}

		fLSO := bank.CutoffFrequency(inj.TotalMass, g.cfg.HighGM)
		fLR := bank.CutoffFrequency(inj.TotalMass, g.cfg.LowGM)

		for range fFinalRetries {
			f := fLSO + (fLR-fLSO)*g.uniform.Rand()
			if g.aboveFirstBin(f) && f <= nyquist {
				inj.FFinal = f
				return inj, nil
			}
		}

		if g.cfg.FixedPsi0 != 0 && g.cfg.FixedPsi3 != 0 {
			break
		}
	}

	return Injection{}, ErrNoValidInjection
}

// aboveFirstBin reports whether f falls in a bin past kLow, so that a
// template cut off at f still integrates over a non-empty band.
func (g *Generator) aboveFirstBin(f float64) bool {
	return int(math.Floor(f/g.power.DeltaF)) > g.kLow
}

// chirp writes the normalized BCV chirp of inj into dst over
// [FLower, FFinal].
func (g *Generator) chirp(dst []float64, inj Injection) error {
	n, pv := g.n, g.power
	deltaF := pv.DeltaF
	norm := g.sampleRate * g.sampleRate / 4

	kLow := g.kLow
	kEnd := min(int(math.Floor(inj.FFinal/deltaF)), n/2-1)

	sum := 0.0

	for k := kLow; k <= kEnd; k++ {
		amp := pv.FM7_6[k] - inj.Alpha*pv.FM1_2[k]
		phase := inj.Psi0*pv.FM5_3[k] + inj.Psi3*pv.FM2_3[k] + inj.StartPhase
		sin, cos := math.Sincos(phase)

		dst[k] = amp * cos
		dst[n-k] = -amp * sin

		if shf := g.spectrum.Data[k]; shf > 0 {
			sum += amp * amp / shf * deltaF / norm
		}
	}

	if !(sum > 0) {
		return fmt.Errorf("%w: zero weighted norm for fFinal %g", ErrNoValidInjection, inj.FFinal)
	}

	scale := g.cfg.SignalAmplitude / math.Sqrt(sum)
	for k := kLow; k <= kEnd; k++ {
		dst[k] *= scale
		dst[n-k] *= scale
	}

	return nil
}

// addNoise adds Gaussian noise coloured by the spectrum. Each
// correlation against a unit-norm filter then has variance
// NoiseAmplitude^2.
func (g *Generator) addNoise(dst []float64) {
	n := g.n
	for k := 1; k < n/2; k++ {
		s := g.sigma[k]
		if s == 0 {
			continue
		}

		dst[k] += s * g.normal.Rand()
		dst[n-k] += s * g.normal.Rand()
	}
}
