package fft

import dspfft "github.com/mjibson/go-dsp/fft"

// goDSPTransform allocates on every call; go-dsp has no plan API.
type goDSPTransform struct {
	n    int
	full []complex128
}

func newGoDSP(n int) *goDSPTransform {
	return &goDSPTransform{n: n, full: make([]complex128, n)}
}

func (t *goDSPTransform) Len() int { return t.n }

func (t *goDSPTransform) Forward(dst, src []float64) error {
	if err := checkLen(t.n, dst, src); err != nil {
		return err
	}

	spec := dspfft.FFTReal(src)

	return Pack(dst, spec[:t.n/2+1])
}

func (t *goDSPTransform) Inverse(dst, src []float64) error {
	if err := checkLen(t.n, dst, src); err != nil {
		return err
	}

	unpackFull(t.full, src)

	seq := dspfft.IFFT(t.full)

	scale := float64(t.n)
	for i := range dst {
		dst[i] = real(seq[i]) * scale
	}

	return nil
}
