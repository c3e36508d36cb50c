// Package psd provides one-sided detector noise power spectral densities.
//
// A Spectrum samples S(f) on a uniform grid f = F0 + k*DeltaF. Spectra are
// built from an analytic Model (initial and advanced LIGO, Virgo, GEO600,
// TAMA, unity), read from a two-column ASCII file, or estimated from a
// strain time series with Welch's method.
package psd
