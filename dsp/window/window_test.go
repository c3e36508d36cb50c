package window

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-bankeff/internal/testutil"
)

func TestGenerateAllTypes(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			typ, err := ParseType(name)
			if err != nil {
				t.Fatalf("ParseType: %v", err)
			}

			if typ.String() != name {
				t.Fatalf("String() = %q, want %q", typ.String(), name)
			}

			w, err := Generate(typ, 65)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}

			testutil.RequireFinite(t, w)

			for i := range w {
				if d := math.Abs(w[i] - w[len(w)-1-i]); d > 1e-12 {
					t.Fatalf("symmetric window not symmetric at %d: %v", i, d)
				}

				if w[i] < -1e-12 || w[i] > 1+1e-12 {
					t.Fatalf("coefficient %d = %v outside [0, 1]", i, w[i])
				}
			}

			if typ != TypeRectangular && math.Abs(w[32]-1) > 1e-6 {
				t.Fatalf("centre coefficient = %v, want 1", w[32])
			}
		})
	}
}

func TestKnownEnbw(t *testing.T) {
	tests := []struct {
		typ  Type
		want float64
	}{
		{TypeRectangular, 1},
		{TypeHann, 1.5},
		{TypeHamming, 1.3628},
		{TypeBlackman, 1.7268},
	}

	for _, tc := range tests {
		w, err := Generate(tc.typ, 4096, WithPeriodic())
		if err != nil {
			t.Fatalf("Generate(%v): %v", tc.typ, err)
		}

		got, err := EquivalentNoiseBandwidth(w)
		if err != nil {
			t.Fatalf("ENBW(%v): %v", tc.typ, err)
		}

		testutil.RequireClose(t, tc.typ.String(), got, tc.want, 1e-3)
	}
}

func TestTukeyLimits(t *testing.T) {
	rect, _ := Generate(TypeRectangular, 32)
	hann, _ := Generate(TypeHann, 32)

	t0, err := Generate(TypeTukey, 32, WithAlpha(0))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	t1, err := Generate(TypeTukey, 32, WithAlpha(1))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	testutil.RequireSliceNearlyEqual(t, t0, rect, 1e-12)
	testutil.RequireSliceNearlyEqual(t, t1, hann, 1e-12)
}

func TestKaiserZeroBetaIsRectangular(t *testing.T) {
	w, err := Generate(TypeKaiser, 16, WithAlpha(0))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for i, v := range w {
		if v != 1 {
			t.Fatalf("w[%d] = %v, want 1", i, v)
		}
	}
}

func TestErrors(t *testing.T) {
	if _, err := Generate(TypeHann, 0); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("error = %v, want ErrInvalidLength", err)
	}

	if _, err := Generate(Type(42), 8); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("error = %v, want ErrUnknownType", err)
	}

	if _, err := Generate(TypeTukey, 8, WithAlpha(1.5)); !errors.Is(err, ErrAlpha) {
		t.Fatalf("error = %v, want ErrAlpha", err)
	}

	if _, err := Generate(TypeKaiser, 8, WithAlpha(-1)); !errors.Is(err, ErrAlpha) {
		t.Fatalf("error = %v, want ErrAlpha", err)
	}

	if _, err := ParseType("flat-top"); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("error = %v, want ErrUnknownType", err)
	}

	if err := Apply(make([]float64, 3), make([]float64, 4)); !errors.Is(err, ErrLengthMatch) {
		t.Fatalf("error = %v, want ErrLengthMatch", err)
	}

	if _, err := EquivalentNoiseBandwidth(make([]float64, 4)); !errors.Is(err, ErrZeroGain) {
		t.Fatalf("error = %v, want ErrZeroGain", err)
	}
}

func TestApply(t *testing.T) {
	buf := []float64{2, 2, 2, 2}
	coeffs := []float64{0, 0.5, 1, 0.5}

	if err := Apply(buf, coeffs); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	testutil.RequireSliceNearlyEqual(t, buf, []float64{0, 1, 2, 1}, 0)

	if got := SumSquares(coeffs); got != 1.5 {
		t.Fatalf("SumSquares = %v, want 1.5", got)
	}
}

func BenchmarkGenerateKaiser(b *testing.B) {
	for b.Loop() {
		_, _ = Generate(TypeKaiser, 4096, WithPeriodic())
	}
}
