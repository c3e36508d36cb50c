// Package fft provides real-input Fourier transforms in halfcomplex layout.
//
// A length-n real sequence x transforms into n real values holding the
// non-redundant half of its spectrum X:
//
//	d[0]     = Re X[0]
//	d[k]     = Re X[k]   for 1 <= k < n/2
//	d[n-k]   = Im X[k]   for 1 <= k < n/2
//	d[n/2]   = Re X[n/2]
//
// Forward computes X[k] = sum x[j] exp(-2 pi i jk/n). Inverse is the
// unnormalized adjoint, so Inverse(Forward(x)) = n*x.
//
// # Backends
//
// Three interchangeable backends implement the Transformer interface:
//
//   - BackendAlgoFFT: plan-based algo-fft transform (default, power-of-two lengths)
//   - BackendGonum:   gonum dsp/fourier real FFT
//   - BackendGoDSP:   mjibson/go-dsp mixed-radix FFT
//
// A Transformer owns scratch buffers and is not safe for concurrent use.
// Create one per goroutine.
package fft
