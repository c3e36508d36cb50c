// Package bcv implements the matched-filter overlap engine of the BCV
// (Buonanno-Chen-Vallisneri) detection template family.
//
// A BCV template is the span of two frequency-domain filters sharing the
// phase psi0*f^(-5/3) + psi3*f^(-2/3) and carrying the amplitudes f^(-7/6)
// and f^(-1/2). Noise moments orthonormalize the pair against the detector
// spectrum; each filter is paired with a companion rotated by 90 degrees,
// so four correlations x1..x4 fully describe the overlap at every time lag.
// The Maximizer reduces them to the unconstrained SNR and to the SNR
// constrained to physical amplitude corrections (alphaF in [0, 1]).
//
// Signals and filters are one-sided spectra in the halfcomplex layout of
// package fft.
//
// # Usage
//
//	pv, _ := bcv.NewPowerVectors(n, fs)
//	m, _ := bcv.NewMoments(spectrum, fLow, fs, n)
//	family, _ := bcv.NewBCV(pv, m)
//	engine, _ := bcv.NewEngine(family, spectrum, fs, bcv.WithWorkers(4))
//	best, _ := engine.Scan(ctx, signal, templates, nil)
package bcv
