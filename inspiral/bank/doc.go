// Package bank enumerates BCV template descriptors.
//
// A Template is a point (psi0, psi3) in the phenomenological BCV phase
// space together with an upper cutoff frequency and the cutoff layer it
// belongs to. Grid lays templates out on a regular psi0/psi3 lattice with
// several cutoff layers per point; ReadASCII and WriteASCII exchange banks
// with other tools.
package bank
