package efficiency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-bankeff/inspiral/bank"
	"github.com/cwbudde/algo-bankeff/inspiral/bcv"
	"github.com/cwbudde/algo-bankeff/inspiral/inject"
)

// Errors returned by the driver.
var (
	ErrTrials       = errors.New("efficiency: number of trials must be > 0")
	ErrFaithfulness = errors.New("efficiency: faithfulness needs an injected signal")
)

// Config holds the driver parameters.
type Config struct {
	Trials int
	// Faithfulness replaces the bank by the template of each injection.
	Faithfulness bool
}

// TrialSummary is the immutable record of one trial.
type TrialSummary struct {
	Trial     int
	Injection inject.Injection
	Result    bcv.OverlapResult

	// Templates behind each branch; zero when the branch is unset.
	Constrained   bank.Template
	Unconstrained bank.Template
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Simulation) { s.logger = l }
}

// WithHistogram feeds the per-sample SNR of every template into h.
func WithHistogram(h *Histogram) Option {
	return func(s *Simulation) { s.hist = h }
}

// Simulation is the outer Monte Carlo loop. The only state carried from
// one trial to the next is the generator's PRNG stream.
type Simulation struct {
	cfg       Config
	engine    *bcv.Engine
	gen       *inject.Generator
	simType   inject.SimulationType
	templates []bank.Template

	logger *zap.Logger
	hist   *Histogram
}

// New checks cfg against the generator and assembles the driver.
func New(cfg Config, engine *bcv.Engine, gen *inject.Generator, templates []bank.Template, opts ...Option) (*Simulation, error) {
	if cfg.Trials <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrTrials, cfg.Trials)
	}

	if cfg.Faithfulness && !gen.Type().HasSignal() {
		return nil, ErrFaithfulness
	}

	s := &Simulation{
		cfg:       cfg,
		engine:    engine,
		gen:       gen,
		simType:   gen.Type(),
		templates: templates,
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.hist != nil && s.hist.Workers() < engine.Workers() {
		return nil, fmt.Errorf("efficiency: histogram has %d worker slots, engine uses %d", s.hist.Workers(), engine.Workers())
	}

	return s, nil
}

// Run executes every trial and hands each summary to emit. It stops at the
// first error from the scan or from emit.
func (s *Simulation) Run(ctx context.Context, emit func(TrialSummary) error) error {
	start := time.Now()
	signal := make([]float64, s.engine.Len())

	var observe bcv.Observer
	if s.hist != nil {
		observe = s.hist.Observe
	}

	s.logger.Info("simulation started",
		zap.Int("trials", s.cfg.Trials),
		zap.Int("templates", len(s.templates)),
		zap.Int("workers", s.engine.Workers()),
		zap.String("family", s.engine.Family().Name()),
		zap.Stringer("mode", s.engine.Mode()),
		zap.Stringer("signal", s.simType),
		zap.Bool("faithfulness", s.cfg.Faithfulness))

	for trial := range s.cfg.Trials {
		if err := ctx.Err(); err != nil {
			return err
		}

		inj, err := s.gen.Next(signal)
		if err != nil {
			return fmt.Errorf("efficiency: trial %d: %w", trial, err)
		}

		templates := s.templates
		if s.cfg.Faithfulness {
			templates = []bank.Template{inj.Template()}
		}

		res, err := s.engine.Scan(ctx, signal, templates, observe)
		if err != nil {
			return fmt.Errorf("efficiency: trial %d: %w", trial, err)
		}

		summary := TrialSummary{Trial: trial, Injection: inj, Result: res}
		if res.Constrained.Set {
			summary.Constrained = templates[res.Constrained.Template]
		}

		if res.Unconstrained.Set {
			summary.Unconstrained = templates[res.Unconstrained.Template]
		}

		s.logger.Debug("trial finished",
			zap.Int("trial", trial),
			zap.Float64("psi0", inj.Psi0),
			zap.Float64("psi3", inj.Psi3),
			zap.Float64("rho_c", res.Constrained.Value()),
			zap.Float64("rho_u", res.Unconstrained.Value()))

		if err := emit(summary); err != nil {
			return fmt.Errorf("efficiency: emit trial %d: %w", trial, err)
		}
	}

	s.logger.Info("simulation finished",
		zap.Int("trials", s.cfg.Trials),
		zap.Duration("elapsed", time.Since(start)))

	return nil
}
