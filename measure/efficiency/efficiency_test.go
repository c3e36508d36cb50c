package efficiency

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/algo-bankeff/dsp/psd"
	"github.com/cwbudde/algo-bankeff/inspiral/bank"
	"github.com/cwbudde/algo-bankeff/inspiral/bcv"
	"github.com/cwbudde/algo-bankeff/inspiral/inject"
	"github.com/cwbudde/algo-bankeff/internal/testutil"
)

const (
	testN     = 4096
	testFs    = 2048.0
	testFLow  = 40.0
	testAmp   = 8.0
	testTrial = 4
)

type rig struct {
	engine *bcv.Engine
	gen    *inject.Generator
}

func newRig(t *testing.T, simType inject.SimulationType, opts ...bcv.EngineOption) rig {
	t.Helper()

	s, err := psd.FromModel(psd.AdvLIGO, testN, testFs)
	if err != nil {
		t.Fatalf("FromModel: %v", err)
	}

	pv, err := bcv.NewPowerVectors(testN, testFs)
	if err != nil {
		t.Fatalf("NewPowerVectors: %v", err)
	}

	m, err := bcv.NewMoments(s, testFLow, testFs, testN)
	if err != nil {
		t.Fatalf("NewMoments: %v", err)
	}

	fam, err := bcv.NewBCV(pv, m)
	if err != nil {
		t.Fatalf("NewBCV: %v", err)
	}

	e, err := bcv.NewEngine(fam, s, testFs, opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	g, err := inject.NewGenerator(inject.Config{
		Type:            simType,
		SignalAmplitude: testAmp,
		NoiseAmplitude:  1,
		Psi0Min:         1e5,
		Psi0Max:         2e5,
		Psi3Min:         -1800,
		Psi3Max:         -1200,
		FLower:          testFLow,
		LowGM:           3,
		HighGM:          6,
		RandomPhase:     true,
	}, s, pv, testFs, inject.WithSeed(21))
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	return rig{engine: e, gen: g}
}

func collect(t *testing.T, sim *Simulation) []TrialSummary {
	t.Helper()

	var out []TrialSummary

	err := sim.Run(context.Background(), func(s TrialSummary) error {
		out = append(out, s)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	return out
}

func TestFaithfulnessRecoversAmplitude(t *testing.T) {
	r := newRig(t, inject.SignalOnly)

	sim, err := New(Config{Trials: testTrial, Faithfulness: true}, r.engine, r.gen, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	trials := collect(t, sim)
	if len(trials) != testTrial {
		t.Fatalf("got %d summaries, want %d", len(trials), testTrial)
	}

	for i, tr := range trials {
		if tr.Trial != i {
			t.Fatalf("summary %d has trial number %d", i, tr.Trial)
		}

		testutil.RequireClose(t, "rhoU", tr.Result.Unconstrained.SNR, testAmp, 1e-6)

		if tr.Constrained != tr.Injection.Template() {
			t.Fatalf("constrained template %+v, want %+v", tr.Constrained, tr.Injection.Template())
		}
	}

	st := Summarize(trials, testAmp)
	testutil.RequireClose(t, "efficiency", st.Unconstrained.Efficiency, 1, 1e-6)

	if st.Constrained.Count != testTrial {
		t.Fatalf("constrained count = %d, want %d", st.Constrained.Count, testTrial)
	}
}

func TestBankScanFindsBestTemplate(t *testing.T) {
	r := newRig(t, inject.SignalOnly, bcv.WithWorkers(3))

	grid, err := bank.Grid(bank.GridConfig{
		Psi0Min: 1e5, Psi0Max: 2e5, Psi0Step: 2.5e4,
		Psi3Min: -1800, Psi3Max: -1200, Psi3Step: 150,
		NumFcut: 3, LowGM: 3, HighGM: 6,
		FLower: testFLow, FUpper: testFs/2 - 1,
	})
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}

	sim, err := New(Config{Trials: 2}, r.engine, r.gen, grid)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, tr := range collect(t, sim) {
		c, u := tr.Result.Constrained, tr.Result.Unconstrained
		if !c.Set {
			t.Fatalf("trial %d: constrained branch unset", tr.Trial)
		}

		if c.SNR > testAmp*(1+1e-9) || (u.Set && u.SNR > testAmp*(1+1e-9)) {
			t.Fatalf("trial %d: rhoC %v rhoU %v amplitude %v", tr.Trial, c.SNR, u.SNR, testAmp)
		}

		if tr.Constrained != grid[c.Template] {
			t.Fatalf("trial %d: template mismatch", tr.Trial)
		}
	}
}

func TestBankScanSkipsEmptyBandTemplate(t *testing.T) {
	grid, err := bank.Grid(bank.GridConfig{
		Psi0Min: 1e5, Psi0Max: 2e5, Psi0Step: 5e4,
		Psi3Min: -1800, Psi3Max: -1200, Psi3Step: 300,
		NumFcut: 2, LowGM: 3, HighGM: 6,
		FLower: testFLow, FUpper: testFs/2 - 1,
	})
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}

	deltaF := testFs / testN
	mixed := append(append([]bank.Template(nil), grid...), bank.Template{Psi0: 1.5e5, Psi3: -1500, FCutoff: testFLow + deltaF/2})

	run := func(templates []bank.Template) []TrialSummary {
		r := newRig(t, inject.SignalOnly, bcv.WithWorkers(2))

		sim, err := New(Config{Trials: 2}, r.engine, r.gen, templates)
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		return collect(t, sim)
	}

	want, got := run(grid), run(mixed)

	for i := range want {
		if got[i].Result != want[i].Result {
			t.Fatalf("trial %d: result %+v, want %+v", i, got[i].Result, want[i].Result)
		}
	}
}

func TestEmptyBankLeavesUnset(t *testing.T) {
	r := newRig(t, inject.NoiseAndSignal)

	sim, err := New(Config{Trials: 1}, r.engine, r.gen, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	trials := collect(t, sim)

	res := trials[0].Result
	if res.Constrained.Value() != -1 || res.Unconstrained.Value() != -1 {
		t.Fatalf("result = %+v, want unset", res)
	}

	var buf bytes.Buffer
	if err := WriteSummary(&buf, trials[0]); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}

	fields := strings.Fields(buf.String())
	if len(fields) != len(strings.Fields(Header))-1 {
		t.Fatalf("got %d columns, header has %d", len(fields), len(strings.Fields(Header))-1)
	}

	if fields[10] != "-1.000000" || fields[15] != "-1.000000" {
		t.Fatalf("unset rho columns = %q, %q", fields[10], fields[15])
	}

	st := Summarize(trials, testAmp)
	if st.Constrained.Count != 0 || st.Unconstrained.Efficiency != 0 {
		t.Fatalf("statistics of unset run = %+v", st)
	}
}

func TestNewValidation(t *testing.T) {
	r := newRig(t, inject.NoiseOnly)

	if _, err := New(Config{Trials: 0}, r.engine, r.gen, nil); !errors.Is(err, ErrTrials) {
		t.Fatalf("error = %v, want ErrTrials", err)
	}

	if _, err := New(Config{Trials: 1, Faithfulness: true}, r.engine, r.gen, nil); !errors.Is(err, ErrFaithfulness) {
		t.Fatalf("error = %v, want ErrFaithfulness", err)
	}

	h, _ := NewHistogram(10, 0, 10, 1)
	r2 := newRig(t, inject.NoiseOnly, bcv.WithWorkers(2))

	if _, err := New(Config{Trials: 1}, r2.engine, r2.gen, nil, WithHistogram(h)); err == nil {
		t.Fatal("expected error for histogram with too few worker rows")
	}
}

func TestRunStopsOnEmitError(t *testing.T) {
	r := newRig(t, inject.SignalOnly)

	sim, err := New(Config{Trials: 5, Faithfulness: true}, r.engine, r.gen, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stop := errors.New("stop")
	calls := 0

	err = sim.Run(context.Background(), func(TrialSummary) error {
		calls++
		return stop
	})

	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("Run = %v after %d calls, want stop after 1", err, calls)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	r := newRig(t, inject.SignalOnly)

	sim, err := New(Config{Trials: 5, Faithfulness: true}, r.engine, r.gen, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sim.Run(ctx, func(TrialSummary) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestHistogramCollectsValidSamples(t *testing.T) {
	r := newRig(t, inject.NoiseOnly, bcv.WithWorkers(2), bcv.WithPadding(8, 8))

	h, err := NewHistogram(DefaultHistogramBins, DefaultHistogramMin, DefaultHistogramMax, r.engine.Workers())
	if err != nil {
		t.Fatalf("NewHistogram: %v", err)
	}

	templates := []bank.Template{
		{Psi0: 1.5e5, Psi3: -1500, FCutoff: 200},
		{Psi0: 1.2e5, Psi3: -1400, FCutoff: 250, Layer: 1},
	}

	sim, err := New(Config{Trials: 2}, r.engine, r.gen, templates, WithHistogram(h))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	collect(t, sim)

	total := floats.Sum(h.Counts()) + h.Overflow()
	want := float64(2 * len(templates) * (testN - 16))

	if total != want {
		t.Fatalf("histogram holds %v samples, want %v", total, want)
	}

	var buf bytes.Buffer
	if err := h.WriteASCII(&buf); err != nil {
		t.Fatalf("WriteASCII: %v", err)
	}

	if lines := strings.Count(buf.String(), "\n"); lines != DefaultHistogramBins {
		t.Fatalf("wrote %d lines, want %d", lines, DefaultHistogramBins)
	}
}

func TestHistogramObserve(t *testing.T) {
	h, err := NewHistogram(4, 0, 4, 2)
	if err != nil {
		t.Fatalf("NewHistogram: %v", err)
	}

	h.Observe(0, bank.Template{}, &bcv.Series{
		SNR:   []float64{0.5, 1.5, 3.9, 4.0, 2.2},
		Valid: []bool{true, true, true, true, false},
	})
	h.Observe(1, bank.Template{}, &bcv.Series{
		SNR:   []float64{0.1, math.NaN()},
		Valid: []bool{true, true},
	})

	got := h.Counts()
	testutil.RequireSliceNearlyEqual(t, got, []float64{2, 1, 0, 1}, 0)

	if h.Overflow() != 1 {
		t.Fatalf("overflow = %v, want 1", h.Overflow())
	}

	if _, err := NewHistogram(0, 0, 1, 1); err == nil {
		t.Fatal("expected error for zero bins")
	}
}

func TestSummarize(t *testing.T) {
	mk := func(rho float64) TrialSummary {
		return TrialSummary{Result: bcv.OverlapResult{
			Constrained:   bcv.Peak{SNR: rho, Set: true},
			Unconstrained: bcv.Peak{SNR: rho + 1, Set: true},
		}}
	}

	st := Summarize([]TrialSummary{mk(2), mk(4), mk(9)}, 10)

	testutil.RequireClose(t, "mean", st.Constrained.Mean, 5, 1e-12)
	testutil.RequireClose(t, "median", st.Constrained.Median, 4, 1e-12)
	testutil.RequireClose(t, "max", st.Unconstrained.Max, 10, 1e-12)
	testutil.RequireClose(t, "efficiency", st.Unconstrained.Efficiency, 0.6, 1e-12)

	var buf bytes.Buffer
	if err := WriteStatistics(&buf, st); err != nil {
		t.Fatalf("WriteStatistics: %v", err)
	}

	if !strings.Contains(buf.String(), "trials 3") {
		t.Fatalf("unexpected statistics output:\n%s", buf.String())
	}
}
