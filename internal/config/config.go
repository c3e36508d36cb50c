// Package config loads and validates the YAML run configuration of
// bankeff.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-bankeff/dsp/fft"
	"github.com/cwbudde/algo-bankeff/dsp/psd"
	"github.com/cwbudde/algo-bankeff/dsp/window"
	"github.com/cwbudde/algo-bankeff/inspiral/bank"
	"github.com/cwbudde/algo-bankeff/inspiral/bcv"
	"github.com/cwbudde/algo-bankeff/inspiral/inject"
)

// Noise model names that are not analytic curves.
const (
	NoiseFile   = "file"
	NoiseStrain = "strain"
)

// Alpha constraint names.
const (
	AlphaConstrained   = "constrained"
	AlphaUnconstrained = "unconstrained"
)

// minFLower is the lowest accepted lower cutoff in Hz.
const minFLower = 10.0

// Config is the complete run configuration.
type Config struct {
	Sampling     Sampling `yaml:"sampling"`
	Bank         Bank     `yaml:"bank"`
	Signal       Signal   `yaml:"signal"`
	Noise        Noise    `yaml:"noise"`
	Filter       Filter   `yaml:"filter"`
	Output       Output   `yaml:"output"`
	Log          Log      `yaml:"log"`
	Trials       int      `yaml:"trials"`
	Faithfulness bool     `yaml:"faithfulness"`
}

// Sampling fixes the time-frequency grid.
type Sampling struct {
	Rate   float64 `yaml:"rate"`   // Hz
	Length int     `yaml:"length"` // samples, power of two
}

// Bank describes the template grid, or a bank file that replaces it.
type Bank struct {
	Psi0Min      float64 `yaml:"psi0_min"`
	Psi0Max      float64 `yaml:"psi0_max"`
	Psi3Min      float64 `yaml:"psi3_min"`
	Psi3Max      float64 `yaml:"psi3_max"`
	Psi0Step     float64 `yaml:"psi0_step"`
	Psi3Step     float64 `yaml:"psi3_step"`
	NumFcut      int     `yaml:"n_fcut"`
	LowGM        float64 `yaml:"low_gm"`
	HighGM       float64 `yaml:"high_gm"`
	FLower       float64 `yaml:"flower"`
	FUpper       float64 `yaml:"fupper"` // 0 selects rate/2-1
	File         string  `yaml:"file"`
	MaxTemplates int     `yaml:"max_templates"`
}

// Signal describes the injected population.
type Signal struct {
	Type           string  `yaml:"type"`
	Amplitude      float64 `yaml:"amplitude"`
	NoiseAmplitude float64 `yaml:"noise_amplitude"`
	Psi0Min        float64 `yaml:"psi0_min"`
	Psi0Max        float64 `yaml:"psi0_max"`
	Psi3Min        float64 `yaml:"psi3_min"`
	Psi3Max        float64 `yaml:"psi3_max"`
	FixedPsi0      float64 `yaml:"psi0"`
	FixedPsi3      float64 `yaml:"psi3"`
	FixedFFinal    float64 `yaml:"ffinal"`
	Alpha          float64 `yaml:"alpha"`
	RandomPhase    bool    `yaml:"random_phase"`
	Seed           uint64  `yaml:"seed"`
}

// Noise selects the noise spectrum.
type Noise struct {
	Model      string `yaml:"model"`
	PSDFile    string `yaml:"psd_file"`
	StrainFile string `yaml:"strain_file"`
	Average    string `yaml:"average"` // mean or median

	// Window tapers the Welch segments of a strain estimate. WindowAlpha
	// is the Tukey fraction or Kaiser beta; 0 keeps the window default.
	Window      string  `yaml:"window"`
	WindowAlpha float64 `yaml:"window_alpha"`
}

// Filter holds the matched-filter knobs.
type Filter struct {
	AlphaConstraint string `yaml:"alpha_constraint"`
	FFT             string `yaml:"fft"`
	Workers         int    `yaml:"workers"` // 0 selects GOMAXPROCS
	NBegin          int    `yaml:"n_begin"`
	NEnd            int    `yaml:"n_end"`
}

// Output names optional side files. Empty paths are skipped.
type Output struct {
	Histogram string `yaml:"histogram"`
	PSD       string `yaml:"psd"`
	Bank      string `yaml:"bank"`
}

// Log configures the logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration that validates as is.
func Default() Config {
	return Config{
		Sampling: Sampling{Rate: 2048, Length: 16384},
		Bank: Bank{
			Psi0Min:  1e4,
			Psi0Max:  2.5e5,
			Psi3Min:  -2200,
			Psi3Max:  -100,
			Psi0Step: 1e4,
			Psi3Step: 100,
			NumFcut:  5,
			LowGM:    3,
			HighGM:   6,
			FLower:   40,
		},
		Signal: Signal{
			Type:           inject.SignalOnly.String(),
			Amplitude:      10,
			NoiseAmplitude: 1,
			Psi0Min:        1e4,
			Psi0Max:        2.5e5,
			Psi3Min:        -2200,
			Psi3Max:        -100,
			RandomPhase:    true,
			Seed:           1,
		},
		Noise:  Noise{Model: "ligo-i", Average: "mean", Window: "hann"},
		Filter: Filter{AlphaConstraint: AlphaConstrained, FFT: string(fft.BackendAlgoFFT)},
		Log:    Log{Level: "info", Format: "json"},
		Trials: 1,
	}
}

// LoadFile reads path over the defaults. An empty path returns the
// defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}

	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}

	cfg.Normalize()

	return cfg, nil
}

// Normalize fills derived defaults. It is idempotent.
func (c *Config) Normalize() {
	if c.Bank.FUpper == 0 && c.Sampling.Rate > 0 {
		c.Bank.FUpper = c.Sampling.Rate/2 - 1
	}

	c.Noise.Model = strings.ToLower(strings.TrimSpace(c.Noise.Model))
	c.Noise.Average = strings.ToLower(strings.TrimSpace(c.Noise.Average))
	c.Noise.Window = strings.ToLower(strings.TrimSpace(c.Noise.Window))
	c.Filter.AlphaConstraint = strings.ToLower(strings.TrimSpace(c.Filter.AlphaConstraint))
	c.Filter.FFT = strings.ToLower(strings.TrimSpace(c.Filter.FFT))
}

// Validate reports every violated rule.
func (c Config) Validate() error {
	var errs []error

	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("config: "+format, args...))
	}

	s, b, sig := c.Sampling, c.Bank, c.Signal

	if !(s.Rate > 0) {
		add("sampling.rate must be > 0, got %g", s.Rate)
	}

	if !fft.IsPowerOfTwo(s.Length) || s.Length < 4 {
		add("sampling.length must be a power of two >= 4, got %d", s.Length)
	}

	if b.FLower < minFLower {
		add("bank.flower must be >= %g Hz, got %g", minFLower, b.FLower)
	}

	fUpper := c.fUpper()
	if !(fUpper > b.FLower) || !(fUpper < s.Rate/2) {
		add("bank.fupper must lie in (flower, rate/2), got %g", fUpper)
	}

	if b.File == "" && !c.Faithfulness {
		if !(b.Psi0Min > 0) || b.Psi0Max < b.Psi0Min {
			add("bank.psi0_min/psi0_max must be > 0 and sorted, got [%g, %g]", b.Psi0Min, b.Psi0Max)
		}

		if !(b.Psi3Max < 0) || b.Psi3Max < b.Psi3Min {
			add("bank.psi3_min/psi3_max must be < 0 and sorted, got [%g, %g]", b.Psi3Min, b.Psi3Max)
		}

		if !(b.Psi0Step > 0) || !(b.Psi3Step > 0) {
			add("bank.psi0_step and bank.psi3_step must be > 0")
		}

		if b.NumFcut <= 0 {
			add("bank.n_fcut must be > 0, got %d", b.NumFcut)
		}
	}

	if !(b.LowGM > 0) || b.LowGM > b.HighGM {
		add("bank.low_gm must be > 0 and <= bank.high_gm, got %g and %g", b.LowGM, b.HighGM)
	}

	simType, err := inject.ParseSimulationType(sig.Type)
	if err != nil {
		add("signal.type: %v", err)
	}

	if err == nil {
		if simType.HasSignal() && !(sig.Amplitude > 0) {
			add("signal.amplitude must be > 0, got %g", sig.Amplitude)
		}

		if simType.HasNoise() && !(sig.NoiseAmplitude > 0) {
			add("signal.noise_amplitude must be > 0, got %g", sig.NoiseAmplitude)
		}

		if c.Faithfulness && !simType.HasSignal() {
			add("faithfulness requires signal.type with a signal, got %q", sig.Type)
		}
	}

	if sig.FixedPsi0 == 0 && (!(sig.Psi0Min > 0) || sig.Psi0Max < sig.Psi0Min) {
		add("signal.psi0_min/psi0_max must be > 0 and sorted, got [%g, %g]", sig.Psi0Min, sig.Psi0Max)
	}

	if sig.FixedPsi3 == 0 && (!(sig.Psi3Max < 0) || sig.Psi3Max < sig.Psi3Min) {
		add("signal.psi3_min/psi3_max must be < 0 and sorted, got [%g, %g]", sig.Psi3Min, sig.Psi3Max)
	}

	if sig.FixedPsi0 < 0 || sig.FixedPsi3 > 0 {
		add("signal.psi0 must be > 0 and signal.psi3 < 0 when set")
	}

	switch c.Noise.Model {
	case "":
		add("noise.model must be set")
	case NoiseFile:
		if c.Noise.PSDFile == "" {
			add("noise.psd_file must be set for noise.model %q", NoiseFile)
		}
	case NoiseStrain:
		if c.Noise.StrainFile == "" {
			add("noise.strain_file must be set for noise.model %q", NoiseStrain)
		}
	default:
		if _, err := psd.Lookup(c.Noise.Model); err != nil {
			add("noise.model: %v (known: %s, %s, %s)", err, strings.Join(psd.ModelNames(), ", "), NoiseFile, NoiseStrain)
		}
	}

	if _, err := c.Average(); err != nil {
		add("noise.average: %v", err)
	}

	if _, err := c.WelchOptions(); err != nil {
		add("noise.window: %v", err)
	}

	if _, err := c.Mode(); err != nil {
		add("filter.alpha_constraint: %v", err)
	}

	if _, err := fft.ParseBackend(c.Filter.FFT); err != nil {
		add("filter.fft: %v", err)
	}

	if c.Filter.Workers < 0 {
		add("filter.workers must be >= 0, got %d", c.Filter.Workers)
	}

	if c.Filter.NBegin < 0 || c.Filter.NEnd < 0 || c.Filter.NBegin+c.Filter.NEnd >= s.Length {
		add("filter.n_begin and filter.n_end must be >= 0 and leave samples, got %d and %d", c.Filter.NBegin, c.Filter.NEnd)
	}

	if c.Trials <= 0 {
		add("trials must be > 0, got %d", c.Trials)
	}

	return errors.Join(errs...)
}

var (
	errAverage = errors.New("unknown average, want mean or median")
	errMode    = errors.New("unknown alpha constraint, want constrained or unconstrained")
)

// Average returns the Welch averaging method.
func (c Config) Average() (psd.Average, error) {
	switch c.Noise.Average {
	case "", "mean":
		return psd.AverageMean, nil
	case "median":
		return psd.AverageMedian, nil
	default:
		return 0, fmt.Errorf("%w: %q", errAverage, c.Noise.Average)
	}
}

// WelchOptions returns the segment window of a strain estimate.
func (c Config) WelchOptions() ([]psd.WelchOption, error) {
	name := c.Noise.Window
	if name == "" {
		name = window.TypeHann.String()
	}

	t, err := window.ParseType(name)
	if err != nil {
		return nil, err
	}

	var wopts []window.Option
	if c.Noise.WindowAlpha != 0 {
		wopts = append(wopts, window.WithAlpha(c.Noise.WindowAlpha))
	}

	// Generate checks the parameter range.
	if _, err := window.Generate(t, 8, wopts...); err != nil {
		return nil, err
	}

	return []psd.WelchOption{psd.WithWindow(t, wopts...)}, nil
}

// Mode returns the series mode selected by the alpha constraint.
func (c Config) Mode() (bcv.Mode, error) {
	switch c.Filter.AlphaConstraint {
	case "", AlphaConstrained:
		return bcv.ModeConstrained, nil
	case AlphaUnconstrained:
		return bcv.ModeUnconstrained, nil
	default:
		return 0, fmt.Errorf("%w: %q", errMode, c.Filter.AlphaConstraint)
	}
}

// GridConfig returns the bank grid parameters.
func (c Config) GridConfig() bank.GridConfig {
	b := c.Bank

	return bank.GridConfig{
		Psi0Min:      b.Psi0Min,
		Psi0Max:      b.Psi0Max,
		Psi3Min:      b.Psi3Min,
		Psi3Max:      b.Psi3Max,
		Psi0Step:     b.Psi0Step,
		Psi3Step:     b.Psi3Step,
		NumFcut:      b.NumFcut,
		LowGM:        b.LowGM,
		HighGM:       b.HighGM,
		FLower:       b.FLower,
		FUpper:       c.fUpper(),
		MaxTemplates: b.MaxTemplates,
	}
}

func (c Config) fUpper() float64 {
	if c.Bank.FUpper == 0 {
		return c.Sampling.Rate/2 - 1
	}

	return c.Bank.FUpper
}

// InjectConfig returns the generator parameters.
func (c Config) InjectConfig() (inject.Config, error) {
	sig := c.Signal

	t, err := inject.ParseSimulationType(sig.Type)
	if err != nil {
		return inject.Config{}, err
	}

	return inject.Config{
		Type:            t,
		SignalAmplitude: sig.Amplitude,
		NoiseAmplitude:  sig.NoiseAmplitude,
		Psi0Min:         sig.Psi0Min,
		Psi0Max:         sig.Psi0Max,
		Psi3Min:         sig.Psi3Min,
		Psi3Max:         sig.Psi3Max,
		Alpha:           sig.Alpha,
		FLower:          c.Bank.FLower,
		LowGM:           c.Bank.LowGM,
		HighGM:          c.Bank.HighGM,
		FixedPsi0:       sig.FixedPsi0,
		FixedPsi3:       sig.FixedPsi3,
		FixedFFinal:     sig.FixedFFinal,
		RandomPhase:     sig.RandomPhase,
	}, nil
}
