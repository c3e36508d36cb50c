// Package window generates the tapering windows used for Welch spectral
// estimation of detector strain.
//
// Windows are evaluated on the normalized position x in [0, 1]. The
// periodic form (x = n/N) is the one an FFT segment wants; the symmetric
// form (x = n/(N-1)) is the default, matching filter design usage.
package window
