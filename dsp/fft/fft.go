package fft

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by transform constructors and methods.
var (
	ErrInvalidLength  = errors.New("fft: length must be even and at least 2")
	ErrNotPowerOfTwo  = errors.New("fft: length must be a power of two")
	ErrLengthMismatch = errors.New("fft: buffer length mismatch")
	ErrUnknownBackend = errors.New("fft: unknown backend")
)

// Backend names a transform implementation.
type Backend string

const (
	BackendAlgoFFT Backend = "algofft"
	BackendGonum   Backend = "gonum"
	BackendGoDSP   Backend = "godsp"
)

// Backends lists the available backends, default first.
func Backends() []Backend {
	return []Backend{BackendAlgoFFT, BackendGonum, BackendGoDSP}
}

// ParseBackend resolves a backend name. The empty string selects the default.
func ParseBackend(name string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(name))) {
	case "", BackendAlgoFFT:
		return BackendAlgoFFT, nil
	case BackendGonum:
		return BackendGonum, nil
	case BackendGoDSP:
		return BackendGoDSP, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// Transformer is a reusable real transform of fixed length.
type Transformer interface {
	// Len returns the transform length n.
	Len() int
	// Forward transforms the real sequence src into halfcomplex dst.
	Forward(dst, src []float64) error
	// Inverse transforms halfcomplex src into the real sequence dst
	// without the 1/n normalization.
	Inverse(dst, src []float64) error
}

// New creates a transformer of length n with the given backend.
func New(backend Backend, n int) (Transformer, error) {
	if n < 2 || n%2 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}

	switch backend {
	case BackendAlgoFFT, "":
		return newAlgoFFT(n)
	case BackendGonum:
		return newGonum(n), nil
	case BackendGoDSP:
		return newGoDSP(n), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Pack writes the n/2+1 non-negative frequency coefficients into halfcomplex dst.
// Imaginary parts of the DC and Nyquist bins are discarded.
func Pack(dst []float64, coeffs []complex128) error {
	n := len(dst)
	if n < 2 || n%2 != 0 {
		return ErrInvalidLength
	}

	if len(coeffs) != n/2+1 {
		return ErrLengthMismatch
	}

	dst[0] = real(coeffs[0])
	for k := 1; k < n/2; k++ {
		dst[k] = real(coeffs[k])
		dst[n-k] = imag(coeffs[k])
	}

	dst[n/2] = real(coeffs[n/2])

	return nil
}

// Unpack expands halfcomplex src into n/2+1 coefficients.
func Unpack(dst []complex128, src []float64) error {
	n := len(src)
	if n < 2 || n%2 != 0 {
		return ErrInvalidLength
	}

	if len(dst) != n/2+1 {
		return ErrLengthMismatch
	}

	dst[0] = complex(src[0], 0)
	for k := 1; k < n/2; k++ {
		dst[k] = complex(src[k], src[n-k])
	}

	dst[n/2] = complex(src[n/2], 0)

	return nil
}

// unpackFull expands halfcomplex src into a full Hermitian spectrum of length n.
func unpackFull(dst []complex128, src []float64) {
	n := len(src)

	dst[0] = complex(src[0], 0)
	for k := 1; k < n/2; k++ {
		c := complex(src[k], src[n-k])
		dst[k] = c
		dst[n-k] = complex(real(c), -imag(c))
	}

	dst[n/2] = complex(src[n/2], 0)
}

func checkLen(n int, bufs ...[]float64) error {
	for _, b := range bufs {
		if len(b) != n {
			return fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(b), n)
		}
	}

	return nil
}
