package fft

import "gonum.org/v1/gonum/dsp/fourier"

type gonumTransform struct {
	n      int
	fft    *fourier.FFT
	coeffs []complex128
}

func newGonum(n int) *gonumTransform {
	return &gonumTransform{
		n:      n,
		fft:    fourier.NewFFT(n),
		coeffs: make([]complex128, n/2+1),
	}
}

func (t *gonumTransform) Len() int { return t.n }

func (t *gonumTransform) Forward(dst, src []float64) error {
	if err := checkLen(t.n, dst, src); err != nil {
		return err
	}

	t.fft.Coefficients(t.coeffs, src)

	return Pack(dst, t.coeffs)
}

// Inverse uses fourier.FFT.Sequence, which is already unnormalized.
func (t *gonumTransform) Inverse(dst, src []float64) error {
	if err := checkLen(t.n, dst, src); err != nil {
		return err
	}

	if err := Unpack(t.coeffs, src); err != nil {
		return err
	}

	t.fft.Sequence(dst, t.coeffs)

	return nil
}
