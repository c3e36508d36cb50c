package bcv

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-bankeff/dsp/fft"
	"github.com/cwbudde/algo-bankeff/dsp/psd"
	"github.com/cwbudde/algo-bankeff/inspiral/bank"
	"github.com/cwbudde/algo-bankeff/internal/testutil"
)

const (
	testN    = 4096
	testFs   = 2048.0
	testFLow = 40.0
)

type fixture struct {
	spectrum *psd.Spectrum
	power    *PowerVectors
	moments  *Moments
	family   *BCV
}

// chirp returns the halfcomplex BCV waveform of t with amplitude
// correction alpha over [KMin, n/2).
func (fx *fixture) chirp(t bank.Template, alpha float64) []float64 {
	pv := fx.power
	signal := make([]float64, testN)

	for i := fx.moments.KMin; i < testN/2; i++ {
		phase := t.Psi0*pv.FM5_3[i] + t.Psi3*pv.FM2_3[i]
		a := pv.FM7_6[i] - alpha*pv.FM1_2[i]
		signal[i] = a * math.Cos(phase)
		signal[testN-i] = -a * math.Sin(phase)
	}

	return signal
}

func newFixture(t testing.TB, model psd.Model) *fixture {
	t.Helper()

	s, err := psd.FromModel(model, testN, testFs)
	if err != nil {
		t.Fatalf("FromModel: %v", err)
	}

	return fixtureFor(t, s)
}

func fixtureFor(t testing.TB, s *psd.Spectrum) *fixture {
	t.Helper()

	pv, err := NewPowerVectors(testN, testFs)
	if err != nil {
		t.Fatalf("NewPowerVectors: %v", err)
	}

	m, err := NewMoments(s, testFLow, testFs, testN)
	if err != nil {
		t.Fatalf("NewMoments: %v", err)
	}

	fam, err := NewBCV(pv, m)
	if err != nil {
		t.Fatalf("NewBCV: %v", err)
	}

	return &fixture{spectrum: s, power: pv, moments: m, family: fam}
}

func (f *fixture) engine(t testing.TB, opts ...EngineOption) *Engine {
	t.Helper()

	e, err := NewEngine(f.family, f.spectrum, testFs, opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	return e
}

var testTemplate = bank.Template{Psi0: 1.5e5, Psi3: -1500, FCutoff: 171, Layer: 2}

func TestFrequencyPowerIdempotent(t *testing.T) {
	a, err := FrequencyPower(testN, testFs, -7, 6)
	if err != nil {
		t.Fatalf("FrequencyPower: %v", err)
	}

	b, _ := FrequencyPower(testN, testFs, -7, 6)

	if len(a) != testN/2 {
		t.Fatalf("len = %d, want %d", len(a), testN/2)
	}

	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			t.Fatalf("index %d differs: %v vs %v", i, a[i], b[i])
		}
	}

	if a[0] != 0 {
		t.Fatalf("a[0] = %v, want 0", a[0])
	}

	testutil.RequireClose(t, "a[3]", a[3], math.Pow(3*testFs/testN, -7.0/6.0), 1e-15)
}

func TestFrequencyPowerInvalid(t *testing.T) {
	if _, err := FrequencyPower(7, testFs, 1, 2); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("error = %v, want ErrInvalidLength", err)
	}

	if _, err := FrequencyPower(8, 0, 1, 2); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("error = %v, want ErrInvalidFrequency", err)
	}
}

func TestOrthogonalizeInvolution(t *testing.T) {
	const n = 64

	f := testutil.DeterministicNoise(5, 1, n)
	g := append([]float64(nil), f...)

	Orthogonalize(g)
	Orthogonalize(g)

	for i := range g {
		want := -f[i]
		if i == 0 || i == n/2 {
			want = f[i]
		}

		if g[i] != want {
			t.Fatalf("twice: index %d = %v, want %v", i, g[i], want)
		}
	}

	Orthogonalize(g)
	Orthogonalize(g)

	testutil.RequireSliceNearlyEqual(t, g, f, 0)
}

func TestOrthogonalToMatchesInPlace(t *testing.T) {
	f := testutil.DeterministicNoise(9, 1, 32)
	dst := make([]float64, 32)

	OrthogonalTo(dst, f)
	Orthogonalize(f)

	testutil.RequireSliceNearlyEqual(t, dst, f, 0)
}

func TestMomentsInvariant(t *testing.T) {
	fx := newFixture(t, psd.LIGOI)
	m := fx.moments
	s := fx.spectrum

	norm := testFs * testFs / 4
	m7 := 0.0

	for k := m.KMin; k < testN/2; k++ {
		m7 += math.Pow(s.Frequency(k), -7.0/3.0) / s.Data[k] * s.DeltaF / norm

		if k == m.KMin {
			continue
		}

		if !(m.A11[k]*m.A22[k] > 0) {
			t.Fatalf("bin %d: a11*a22 = %v, want > 0", k, m.A11[k]*m.A22[k])
		}

		testutil.RequireClose(t, "a11", m.A11[k], 1/math.Sqrt(m7), 1e-9)
	}

	for k := range m.KMin {
		if m.A11[k] != 0 || m.A21[k] != 0 || m.A22[k] != 0 {
			t.Fatalf("bin %d below cutoff is not zero", k)
		}
	}
}

func TestMomentsSkipZeroBin(t *testing.T) {
	s, err := psd.FromModel(psd.VIRGO, testN, testFs)
	if err != nil {
		t.Fatalf("FromModel: %v", err)
	}

	const zero = 200
	s.Data[zero] = 0

	fx := fixtureFor(t, s)
	m := fx.moments

	testutil.RequireFinite(t, m.A11)
	testutil.RequireFinite(t, m.A21)
	testutil.RequireFinite(t, m.A22)

	if m.A11[zero] != m.A11[zero-1] || m.A22[zero] != m.A22[zero-1] {
		t.Fatalf("zero-power bin changed the running sums")
	}
}

func TestMomentsCutoffAboveNyquist(t *testing.T) {
	s, _ := psd.FromModel(psd.Unity, testN, testFs)

	if _, err := NewMoments(s, testFs, testFs, testN); !errors.Is(err, ErrCutoffAboveNyquist) {
		t.Fatalf("error = %v, want ErrCutoffAboveNyquist", err)
	}
}

func TestMomentsGridMismatch(t *testing.T) {
	s, _ := psd.FromModel(psd.Unity, 2*testN, testFs)

	if _, err := NewMoments(s, testFLow, testFs, testN); !errors.Is(err, ErrSpectrumGrid) {
		t.Fatalf("error = %v, want ErrSpectrumGrid", err)
	}
}

func TestFiltersOrthonormal(t *testing.T) {
	fx := newFixture(t, psd.LIGOI)
	e := fx.engine(t)

	ws, err := e.NewWorkspace()
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}

	b, err := fx.family.Prepare(&ws.pair, testTemplate)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	p := &ws.pair
	out := make([]float64, testN)

	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"F1.F1", p.Filter1, p.Filter1, 1},
		{"F2.F2", p.Filter2, p.Filter2, 1},
		{"F1.F2", p.Filter1, p.Filter2, 0},
		{"F1.F1perp", p.Filter1, p.Ortho1, 0},
		{"F2.F2perp", p.Filter2, p.Ortho2, 0},
	}

	for _, tt := range tests {
		if err := ws.corr.Correlate(out, tt.a, tt.b, b.KMin, b.KMax); err != nil {
			t.Fatalf("Correlate: %v", err)
		}

		if math.Abs(out[0]-tt.want) > 1e-9 {
			t.Fatalf("%s at lag 0 = %v, want %v", tt.name, out[0], tt.want)
		}
	}
}

func TestBuildFiltersOverwritesBuffers(t *testing.T) {
	fx := newFixture(t, psd.LIGOI)

	var p FilterPair
	p.Resize(testN)

	for i := range p.Filter1 {
		p.Filter1[i], p.Filter2[i] = 7, 7
	}

	kMax := int(testTemplate.FCutoff / fx.power.DeltaF)
	if err := BuildFilters(&p, fx.power, fx.moments, fx.moments.KMin, kMax, 1e5, -1000); err != nil {
		t.Fatalf("BuildFilters: %v", err)
	}

	if p.Filter1[0] != 0 || p.Filter2[0] != 0 {
		t.Fatalf("DC bin not cleared")
	}

	for i := 1; i < fx.moments.KMin; i++ {
		if p.Filter1[i] != 0 || p.Filter2[i] != 0 || p.Filter1[testN-i] != 0 || p.Filter2[testN-i] != 0 {
			t.Fatalf("bin %d below kMin not cleared", i)
		}
	}

	if p.Filter1[testN/2] != 0 {
		t.Fatalf("Nyquist bin not cleared")
	}

	testutil.RequireFinite(t, p.Filter1)
	testutil.RequireFinite(t, p.Ortho2)
}

func TestBuildFiltersBinRange(t *testing.T) {
	fx := newFixture(t, psd.LIGOI)

	var p FilterPair
	if err := BuildFilters(&p, fx.power, fx.moments, 10, testN/2, 1e5, -1000); !errors.Is(err, ErrBinRange) {
		t.Fatalf("error = %v, want ErrBinRange", err)
	}
}

func TestExactMatchRecoversAmplitude(t *testing.T) {
	const amp = 12.5

	fx := newFixture(t, psd.LIGOI)
	e := fx.engine(t)

	ws, err := e.NewWorkspace()
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}

	if _, err := fx.family.Prepare(&ws.pair, testTemplate); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	for _, phi := range []float64{0, 0.7, 2.5} {
		signal := make([]float64, testN)
		c, s := math.Cos(phi), math.Sin(phi)

		for i := range signal {
			signal[i] = amp * (c*ws.pair.Filter1[i] + s*ws.pair.Ortho1[i])
		}

		res, err := e.Overlap(ws, signal, testTemplate, 3)
		if err != nil {
			t.Fatalf("Overlap: %v", err)
		}

		u := res.Unconstrained
		if !u.Set || u.Bin != 0 {
			t.Fatalf("phi %v: unconstrained peak %+v, want bin 0", phi, u)
		}

		testutil.RequireClose(t, "rhoU", u.SNR, amp, 1e-9)

		if u.Template != 3 || u.Layer != testTemplate.Layer || u.FCutoff != testTemplate.FCutoff {
			t.Fatalf("metadata = %+v", u)
		}
	}
}

func TestRecoversAmplitudeCorrection(t *testing.T) {
	fx := newFixture(t, psd.LIGOI)
	e := fx.engine(t, WithMode(ModeUnconstrained))

	ws, err := e.NewWorkspace()
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}

	const alphaF = 0.3
	alpha := alphaF * math.Pow(testTemplate.FCutoff, -2.0/3.0)

	signal := fx.chirp(testTemplate, alpha)

	res, err := e.Overlap(ws, signal, testTemplate, 0)
	if err != nil {
		t.Fatalf("Overlap: %v", err)
	}

	u := res.Unconstrained
	testutil.RequireClose(t, "alpha", u.Alpha, alpha, 1e-6)
	testutil.RequireClose(t, "alphaF", u.AlphaF(), alphaF, 1e-6)
	testutil.RequireClose(t, "rhoC", res.Constrained.SNR, u.SNR, 1e-9)
}

func TestConstrainedNeverExceedsUnconstrained(t *testing.T) {
	fx := newFixture(t, psd.LIGOI)
	e := fx.engine(t)

	ws, err := e.NewWorkspace()
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}

	b, err := fx.family.Prepare(&ws.pair, testTemplate)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	signal := testutil.GaussianNoise(1, 1e-20, testN)
	if err := ws.corr.CorrelateAll(ws.x, signal, &ws.pair, b.KMin, b.KMax); err != nil {
		t.Fatalf("CorrelateAll: %v", err)
	}

	m, err := NewMaximizer(b.Coefficients, b.FCutoff, ModeConstrained)
	if err != nil {
		t.Fatalf("NewMaximizer: %v", err)
	}

	for i := range testN {
		a, bb, c, d := ws.x[0][i], ws.x[1][i], ws.x[2][i], ws.x[3][i]
		v0 := a*a + bb*bb + c*c + d*d
		v1 := a*a + c*c - bb*bb - d*d
		v2 := 2 * (a*bb + c*d)
		rhoU := math.Sqrt((v0 + math.Hypot(v1, v2)) / 2)

		rhoC, err := m.Constrained(v0, v1, v2, math.Atan2(v2, v1), rhoU)
		if err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}

		if rhoC > rhoU*(1+1e-12) {
			t.Fatalf("sample %d: rhoC %v > rhoU %v", i, rhoC, rhoU)
		}
	}
}

func TestUnconstrainedAlphaConsistent(t *testing.T) {
	fx := newFixture(t, psd.LIGOI)
	e := fx.engine(t, WithMode(ModeUnconstrained), WithPadding(16, 16))

	ws, err := e.NewWorkspace()
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}

	injected := 0.6 * math.Pow(testTemplate.FCutoff, -2.0/3.0)
	signal := fx.chirp(testTemplate, injected)

	// Delay by n/2 samples so the peak lies inside the padded window.
	for i := 1; i < testN/2; i += 2 {
		signal[i], signal[testN-i] = -signal[i], -signal[testN-i]
	}

	res, err := e.Overlap(ws, signal, testTemplate, 0)
	if err != nil {
		t.Fatalf("Overlap: %v", err)
	}

	u := res.Unconstrained
	if !u.Set {
		t.Fatalf("unconstrained peak unset for a physical chirp")
	}

	testutil.RequireClose(t, "injected alpha", u.Alpha, injected, 1e-6)

	kMax := int(testTemplate.FCutoff / fx.power.DeltaF)

	c, err := fx.moments.At(kMax)
	if err != nil {
		t.Fatalf("At: %v", err)
	}

	tan := math.Tan(u.Phase)
	alpha := -(c.A22 * tan) / (c.A11 + c.A21*tan)

	testutil.RequireClose(t, "alpha", u.Alpha, alpha, 1e-12)

	if u.AlphaF() > 1 {
		t.Fatalf("alphaF = %v at the unconstrained maximum, want <= 1", u.AlphaF())
	}

	if u.Bin < 16 || u.Bin >= testN-16 {
		t.Fatalf("bin %d outside the valid window", u.Bin)
	}

	series := ws.Series()
	for i := 0; i < 16; i++ {
		if series.Valid[i] {
			t.Fatalf("padding sample %d marked valid", i)
		}
	}
}

func TestSectorExhausted(t *testing.T) {
	m, err := NewMaximizer(Coefficients{A11: 1, A21: -0.5, A22: 2}, 200, ModeConstrained)
	if err != nil {
		t.Fatalf("NewMaximizer: %v", err)
	}

	if _, err := m.Constrained(1, 0, 0, 4, 1); !errors.Is(err, ErrSectorExhausted) {
		t.Fatalf("error = %v, want ErrSectorExhausted", err)
	}

	x := [4][]float64{{math.NaN(), 0}, {0, 0}, {0, 0}, {0, 0}}
	if _, err := m.Maximize(x, 0, 0, nil); !errors.Is(err, ErrSectorExhausted) {
		t.Fatalf("Maximize error = %v, want ErrSectorExhausted", err)
	}
}

func TestSectorsCoverCircle(t *testing.T) {
	for _, c := range []Coefficients{
		{A11: 1, A21: -0.5, A22: 2},
		{A11: -1, A21: 0.5, A22: 1},
	} {
		m, err := NewMaximizer(c, 150, ModeConstrained)
		if err != nil {
			t.Fatalf("NewMaximizer: %v", err)
		}

		for theta := -math.Pi; theta <= math.Pi; theta += 1e-3 {
			if _, err := m.Constrained(1, math.Cos(theta), math.Sin(theta), theta, 1); err != nil {
				t.Fatalf("thetaB %v: theta %v not covered: %v", m.ThetaB(), theta, err)
			}
		}
	}
}

func TestMergeStrictImprovement(t *testing.T) {
	var best OverlapResult

	if best.Constrained.Value() != Unset || best.Unconstrained.Value() != Unset {
		t.Fatalf("zero result is not unset")
	}

	first := OverlapResult{
		Constrained:   Peak{SNR: 5, Bin: 1, Template: 0, Set: true},
		Unconstrained: Peak{SNR: 6, Bin: 1, Template: 0, Set: true},
	}

	if c, u := best.Merge(first); !c || !u {
		t.Fatalf("merge into unset = %v,%v, want true,true", c, u)
	}

	tie := OverlapResult{
		Constrained:   Peak{SNR: 5, Bin: 9, Template: 1, Set: true},
		Unconstrained: Peak{SNR: 7, Bin: 9, Template: 1, Set: true},
	}

	c, u := best.Merge(tie)
	if c || !u {
		t.Fatalf("merge tie = %v,%v, want false,true", c, u)
	}

	if best.Constrained.Template != 0 || best.Unconstrained.Template != 1 {
		t.Fatalf("branches not independent: %+v", best)
	}

	if c, u := best.Merge(OverlapResult{}); c || u {
		t.Fatalf("unset candidate replaced a branch")
	}
}

func TestScanEmptyBank(t *testing.T) {
	fx := newFixture(t, psd.LIGOI)
	e := fx.engine(t)

	res, err := e.Scan(context.Background(), make([]float64, testN), nil, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if res.Constrained.Value() != -1 || res.Unconstrained.Value() != -1 {
		t.Fatalf("empty scan = %+v, want unset", res)
	}
}

func scanBank() []bank.Template {
	var out []bank.Template

	for i := range 12 {
		out = append(out, bank.Template{
			Psi0:    1e5 + float64(i)*1e4,
			Psi3:    -1000 - float64(i%3)*250,
			FCutoff: 150 + float64(i)*20,
			Layer:   i % 3,
		})
	}

	return out
}

func TestParallelScanMatchesSerial(t *testing.T) {
	fx := newFixture(t, psd.LIGOI)
	signal := testutil.GaussianNoise(3, 1e-20, testN)

	serial, err := fx.engine(t).Scan(context.Background(), signal, scanBank(), nil)
	if err != nil {
		t.Fatalf("serial Scan: %v", err)
	}

	for _, backend := range fft.Backends() {
		for _, workers := range []int{2, 5, 32} {
			e := fx.engine(t, WithWorkers(workers), WithBackend(backend))

			got, err := e.Scan(context.Background(), signal, scanBank(), nil)
			if err != nil {
				t.Fatalf("Scan(%s, %d): %v", backend, workers, err)
			}

			if got.Constrained.Template != serial.Constrained.Template ||
				got.Unconstrained.Template != serial.Unconstrained.Template {
				t.Fatalf("%s/%d workers: templates %d,%d, want %d,%d", backend, workers,
					got.Constrained.Template, got.Unconstrained.Template,
					serial.Constrained.Template, serial.Unconstrained.Template)
			}

			testutil.RequireClose(t, "rhoC", got.Constrained.SNR, serial.Constrained.SNR, 1e-9)
		}
	}
}

func TestScanObserverAndErrors(t *testing.T) {
	fx := newFixture(t, psd.LIGOI)
	e := fx.engine(t, WithWorkers(3))

	counts := make([]int, e.Workers())
	observe := func(worker int, _ bank.Template, s *Series) {
		counts[worker]++
	}

	if _, err := e.Scan(context.Background(), make([]float64, testN), scanBank(), observe); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	total := 0
	for _, c := range counts {
		total += c
	}

	if total != len(scanBank()) {
		t.Fatalf("observer saw %d templates, want %d", total, len(scanBank()))
	}

	bad := append(scanBank(), bank.Template{Psi0: 1e5, Psi3: -1000, FCutoff: 0})
	if _, err := e.Scan(context.Background(), make([]float64, testN), bad, nil); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("error = %v, want ErrInvalidFrequency", err)
	}

	if _, err := e.Scan(context.Background(), make([]float64, 8), scanBank(), nil); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("error = %v, want ErrLengthMismatch", err)
	}
}

func TestBCVNameAndLen(t *testing.T) {
	fx := newFixture(t, psd.LIGOI)

	if got := fx.family.Name(); got != "BCV" {
		t.Fatalf("Name = %q, want %q", got, "BCV")
	}

	if got := fx.family.Len(); got != testN {
		t.Fatalf("Len = %d, want %d", got, testN)
	}
}

func TestScanSkipsEmptyBand(t *testing.T) {
	fx := newFixture(t, psd.LIGOI)
	e := fx.engine(t, WithWorkers(2))
	deltaF := fx.power.DeltaF
	signal := testutil.GaussianNoise(5, 1e-20, testN)

	want, err := e.Scan(context.Background(), signal, scanBank(), nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	cases := []struct {
		name    string
		fCutoff float64
	}{
		{"first bin above the lower cutoff", testFLow + deltaF/2},
		{"at the lower cutoff", testFLow},
		{"below the lower cutoff", testFLow / 2},
	}

	for _, tc := range cases {
		empty := bank.Template{Psi0: 1e5, Psi3: -1000, FCutoff: tc.fCutoff}

		ws, err := e.NewWorkspace()
		if err != nil {
			t.Fatalf("NewWorkspace: %v", err)
		}

		if _, err := e.Overlap(ws, signal, empty, 0); !errors.Is(err, ErrEmptyBand) {
			t.Fatalf("%s: Overlap error = %v, want ErrEmptyBand", tc.name, err)
		}

		observed := 0
		observe := func(int, bank.Template, *Series) { observed++ }

		lone, err := e.Scan(context.Background(), signal, []bank.Template{empty}, observe)
		if err != nil {
			t.Fatalf("%s: Scan: %v", tc.name, err)
		}

		if lone.Constrained.Set || lone.Unconstrained.Set || observed != 0 {
			t.Fatalf("%s: lone result %+v, observed %d, want unset and 0", tc.name, lone, observed)
		}

		mixed := append([]bank.Template{empty}, scanBank()...)
		mixed = append(mixed, empty)

		got, err := e.Scan(context.Background(), signal, mixed, nil)
		if err != nil {
			t.Fatalf("%s: Scan: %v", tc.name, err)
		}

		if got.Constrained.Template != want.Constrained.Template+1 {
			t.Fatalf("%s: constrained template %d, want %d", tc.name, got.Constrained.Template, want.Constrained.Template+1)
		}

		testutil.RequireClose(t, tc.name+" rhoC", got.Constrained.SNR, want.Constrained.SNR, 1e-12)
	}
}

func TestNewEngineRejectsPadding(t *testing.T) {
	fx := newFixture(t, psd.LIGOI)

	if _, err := NewEngine(fx.family, fx.spectrum, testFs, WithPadding(testN/2, testN/2)); !errors.Is(err, ErrWindow) {
		t.Fatalf("error = %v, want ErrWindow", err)
	}
}

func BenchmarkOverlap(b *testing.B) {
	fx := newFixture(b, psd.LIGOI)
	e := fx.engine(b)

	ws, err := e.NewWorkspace()
	if err != nil {
		b.Fatalf("NewWorkspace: %v", err)
	}

	signal := testutil.GaussianNoise(4, 1e-20, testN)

	for b.Loop() {
		if _, err := e.Overlap(ws, signal, testTemplate, 0); err != nil {
			b.Fatalf("Overlap: %v", err)
		}
	}
}
