package fft

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// algoTransform wraps a complex algo-fft plan. The plan and its buffers are
// created once and reused for every call.
type algoTransform struct {
	n    int
	plan *algofft.Plan[complex128]
	in   []complex128
	out  []complex128
}

func newAlgoFFT(n int) (*algoTransform, error) {
	if !IsPowerOfTwo(n) {
		return nil, fmt.Errorf("%w: %d", ErrNotPowerOfTwo, n)
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("fft: plan creation failed: %w", err)
	}

	return &algoTransform{
		n:    n,
		plan: plan,
		in:   make([]complex128, n),
		out:  make([]complex128, n),
	}, nil
}

func (t *algoTransform) Len() int { return t.n }

func (t *algoTransform) Forward(dst, src []float64) error {
	if err := checkLen(t.n, dst, src); err != nil {
		return err
	}

	for i, v := range src {
		t.in[i] = complex(v, 0)
	}

	if err := t.plan.Forward(t.out, t.in); err != nil {
		return fmt.Errorf("fft: forward transform failed: %w", err)
	}

	return Pack(dst, t.out[:t.n/2+1])
}

func (t *algoTransform) Inverse(dst, src []float64) error {
	if err := checkLen(t.n, dst, src); err != nil {
		return err
	}

	unpackFull(t.in, src)

	if err := t.plan.Inverse(t.out, t.in); err != nil {
		return fmt.Errorf("fft: inverse transform failed: %w", err)
	}

	// algo-fft normalizes the inverse by 1/n.
	scale := float64(t.n)
	for i := range dst {
		dst[i] = real(t.out[i]) * scale
	}

	return nil
}
