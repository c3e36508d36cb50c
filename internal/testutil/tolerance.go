package testutil

import (
	"fmt"
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails t if got and want differ in length or if
// any element pair differs by more than eps relative to the largest
// magnitude in want. An all-zero want falls back to absolute eps.
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	scale := 0.0
	for _, v := range want {
		scale = math.Max(scale, math.Abs(v))
	}

	if scale == 0 {
		scale = 1
	}

	for i := range got {
		diff := math.Abs(got[i] - want[i])
		if diff > eps*scale {
			t.Fatalf("index %d: got %v, want %v (diff %v > %v)", i, got[i], want[i], diff, eps*scale)
		}
	}
}

// RequireClose fails t if got is not within rel of want.
func RequireClose(t *testing.T, name string, got, want, rel float64) {
	t.Helper()

	tol := rel * math.Max(math.Abs(want), 1e-300)
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %v, want %v (rel tol %v)", name, got, want, rel)
	}
}

// RequireFinite fails t if any element is NaN or Inf.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()

	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// MaxAbsDiff returns the maximum absolute difference between two slices.
func MaxAbsDiff(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}

	maxDiff := 0.0
	for i := range a {
		maxDiff = math.Max(maxDiff, math.Abs(a[i]-b[i]))
	}

	return maxDiff, nil
}
