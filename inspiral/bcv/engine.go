package bcv

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-bankeff/dsp/fft"
	"github.com/cwbudde/algo-bankeff/dsp/psd"
	"github.com/cwbudde/algo-bankeff/inspiral/bank"
)

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	backend fft.Backend
	workers int
	mode    Mode
	nBegin  int
	nEnd    int
}

func defaultEngineConfig() engineConfig {
	return engineConfig{backend: fft.BackendAlgoFFT, workers: 1, mode: ModeConstrained}
}

// WithBackend selects the transform backend.
func WithBackend(b fft.Backend) EngineOption {
	return func(c *engineConfig) { c.backend = b }
}

// WithWorkers sets the number of goroutines a scan uses. Values below 1
// are ignored.
func WithWorkers(n int) EngineOption {
	return func(c *engineConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithMode selects the per-sample series mode.
func WithMode(m Mode) EngineOption {
	return func(c *engineConfig) { c.mode = m }
}

// WithPadding excludes nBegin leading and nEnd trailing lags, which carry
// circular wrap-around.
func WithPadding(nBegin, nEnd int) EngineOption {
	return func(c *engineConfig) { c.nBegin, c.nEnd = nBegin, nEnd }
}

// Engine scans template banks against signals.
type Engine struct {
	family     Family
	spectrum   *psd.Spectrum
	sampleRate float64
	cfg        engineConfig

	mu   sync.Mutex
	free []*Workspace
}

// NewEngine validates the options against the family length.
func NewEngine(family Family, s *psd.Spectrum, sampleRate float64, opts ...EngineOption) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	n := family.Len()
	if err := checkGrid(s, sampleRate, n); err != nil {
		return nil, err
	}

	if cfg.nBegin < 0 || cfg.nEnd < 0 || cfg.nBegin+cfg.nEnd >= n {
		return nil, fmt.Errorf("%w: padding %d+%d for length %d", ErrWindow, cfg.nBegin, cfg.nEnd, n)
	}

	if _, err := fft.New(cfg.backend, n); err != nil {
		return nil, err
	}

	return &Engine{family: family, spectrum: s, sampleRate: sampleRate, cfg: cfg}, nil
}

// Len returns the signal length.
func (e *Engine) Len() int { return e.family.Len() }

// Workers returns the scan parallelism.
func (e *Engine) Workers() int { return e.cfg.workers }

// Mode returns the series mode.
func (e *Engine) Mode() Mode { return e.cfg.mode }

// Family returns the template family.
func (e *Engine) Family() Family { return e.family }

// Workspace is the per-worker arena of one scan: filter pair, correlation
// outputs, per-sample series and the transformer behind them. Every buffer
// is overwritten for each template.
type Workspace struct {
	pair   FilterPair
	x      [4][]float64
	series Series
	corr   *Correlator
}

// Series returns the per-sample SNR of the last template processed.
func (w *Workspace) Series() *Series { return &w.series }

// NewWorkspace allocates an arena with its own transform plan.
func (e *Engine) NewWorkspace() (*Workspace, error) {
	n := e.family.Len()

	t, err := fft.New(e.cfg.backend, n)
	if err != nil {
		return nil, err
	}

	corr, err := NewCorrelator(t, e.spectrum, e.sampleRate)
	if err != nil {
		return nil, err
	}

	ws := &Workspace{corr: corr}
	ws.pair.Resize(n)

	for j := range ws.x {
		ws.x[j] = make([]float64, n)
	}

	return ws, nil
}

func (e *Engine) acquire() (*Workspace, error) {
	e.mu.Lock()
	if k := len(e.free); k > 0 {
		ws := e.free[k-1]
		e.free = e.free[:k-1]
		e.mu.Unlock()

		return ws, nil
	}
	e.mu.Unlock()

	return e.NewWorkspace()
}

func (e *Engine) release(ws *Workspace) {
	e.mu.Lock()
	e.free = append(e.free, ws)
	e.mu.Unlock()
}

// Overlap computes the result of a single template. index is recorded in
// the peaks as the template number.
func (e *Engine) Overlap(ws *Workspace, signal []float64, t bank.Template, index int) (OverlapResult, error) {
	n := e.family.Len()
	if len(signal) != n {
		return OverlapResult{}, fmt.Errorf("%w: signal %d, want %d", ErrLengthMismatch, len(signal), n)
	}

	b, err := e.family.Prepare(&ws.pair, t)
	if err != nil {
		return OverlapResult{}, err
	}

	if err := ws.corr.CorrelateAll(ws.x, signal, &ws.pair, b.KMin, b.KMax); err != nil {
		return OverlapResult{}, err
	}

	m, err := NewMaximizer(b.Coefficients, b.FCutoff, e.cfg.mode)
	if err != nil {
		return OverlapResult{}, err
	}

	res, err := m.Maximize(ws.x, e.cfg.nBegin, e.cfg.nEnd, &ws.series)
	if err != nil {
		return OverlapResult{}, err
	}

	res.annotate(index, t.Layer)

	return res, nil
}

// Observer receives the per-sample series of every scanned template.
// Calls for one worker index are sequential; different workers call
// concurrently.
type Observer func(worker int, t bank.Template, s *Series)

// Scan returns the best result over templates. The bank is split into
// contiguous chunks, one per worker, and the chunk results are merged in
// order, so the outcome equals a serial scan. Templates whose band is
// empty (ErrEmptyBand) are skipped and never reach observe. An empty
// bank, or one with only such templates, yields the unset result.
func (e *Engine) Scan(ctx context.Context, signal []float64, templates []bank.Template, observe Observer) (OverlapResult, error) {
	var best OverlapResult

	if len(templates) == 0 {
		return best, nil
	}

	workers := min(e.cfg.workers, len(templates))
	chunk := (len(templates) + workers - 1) / workers
	locals := make([]OverlapResult, workers)

	g, gctx := errgroup.WithContext(ctx)

	for w := range workers {
		lo := w * chunk
		hi := min(lo+chunk, len(templates))

		if lo >= hi {
			break
		}

		g.Go(func() error {
			ws, err := e.acquire()
			if err != nil {
				return err
			}
			defer e.release(ws)

			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}

				res, err := e.Overlap(ws, signal, templates[i], i)
				if errors.Is(err, ErrEmptyBand) {
					continue
				}

				if err != nil {
					return fmt.Errorf("bcv: template %d: %w", i, err)
				}

				locals[w].Merge(res)

				if observe != nil {
					observe(w, templates[i], &ws.series)
				}
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return OverlapResult{}, err
	}

	for _, l := range locals {
		best.Merge(l)
	}

	return best, nil
}
