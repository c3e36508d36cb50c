// Package inject generates the trial signals of a bank efficiency run:
// BCV chirps with random or fixed phenomenological parameters, coloured
// Gaussian detector noise, or both.
//
// All randomness flows from one explicit PRNG stream owned by a
// Generator, so a run is reproduced by its seed.
package inject
