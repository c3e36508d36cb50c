package bank

import (
	"errors"
	"fmt"
	"math"
)

// MTSun is the solar mass in seconds (G*Msun/c^3).
const MTSun = 4.925491025543576e-06

// Errors returned by bank constructors.
var (
	ErrPsi0Range        = errors.New("bank: psi0 range must be positive and ordered")
	ErrPsi3Range        = errors.New("bank: psi3 range must be negative and ordered")
	ErrStep             = errors.New("bank: grid steps must be > 0")
	ErrLayers           = errors.New("bank: number of cutoff layers must be > 0")
	ErrGMRange          = errors.New("bank: LowGM must not exceed HighGM")
	ErrFrequency        = errors.New("bank: invalid frequency band")
	ErrEmptyBank        = errors.New("bank: no template inside the frequency band")
	ErrTooManyTemplates = errors.New("bank: grid exceeds the template limit")
)

// Template describes one BCV filter.
type Template struct {
	Psi0    float64
	Psi3    float64
	FCutoff float64
	Layer   int
}

// TotalMass returns the phenomenological total mass in solar masses
// implied by psi0 and psi3.
func TotalMass(psi0, psi3 float64) float64 {
	return -psi3 / (16 * math.Pi * math.Pi * psi0) * 2 / MTSun
}

// CutoffFrequency returns 1/(pi * gm^1.5 * M) for a total mass in solar
// masses. gm = 6 gives the last stable orbit, gm = 3 the light ring.
func CutoffFrequency(totalMass, gm float64) float64 {
	return 1 / (math.Pi * math.Pow(gm, 1.5) * totalMass * MTSun)
}

// GridConfig defines a regular psi0/psi3 lattice with NumFcut cutoff
// layers spread between the HighGM and LowGM cutoff frequencies.
type GridConfig struct {
	Psi0Min, Psi0Max float64
	Psi3Min, Psi3Max float64
	Psi0Step         float64
	Psi3Step         float64
	NumFcut          int
	LowGM, HighGM    float64
	FLower           float64
	FUpper           float64
	MaxTemplates     int
}

// Validate reports the first invalid field.
func (c GridConfig) Validate() error {
	switch {
	case !(c.Psi0Min > 0) || c.Psi0Max < c.Psi0Min:
		return fmt.Errorf("%w: [%g, %g]", ErrPsi0Range, c.Psi0Min, c.Psi0Max)
	case !(c.Psi3Max < 0) || c.Psi3Max < c.Psi3Min:
		return fmt.Errorf("%w: [%g, %g]", ErrPsi3Range, c.Psi3Min, c.Psi3Max)
	case !(c.Psi0Step > 0) || !(c.Psi3Step > 0):
		return ErrStep
	case c.NumFcut <= 0:
		return ErrLayers
	case !(c.LowGM > 0) || c.LowGM > c.HighGM:
		return fmt.Errorf("%w: %g > %g", ErrGMRange, c.LowGM, c.HighGM)
	case !(c.FLower > 0) || c.FUpper <= c.FLower:
		return fmt.Errorf("%w: [%g, %g]", ErrFrequency, c.FLower, c.FUpper)
	}

	return nil
}

// Grid enumerates the lattice in psi0-major order, layers innermost.
// Layer 0 has the lowest cutoff (HighGM). Cutoffs outside
// (FLower, FUpper] are dropped.
func Grid(cfg GridConfig) ([]Template, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n0 := int(math.Floor((cfg.Psi0Max-cfg.Psi0Min)/cfg.Psi0Step)) + 1
	n3 := int(math.Floor((cfg.Psi3Max-cfg.Psi3Min)/cfg.Psi3Step)) + 1

	if cfg.MaxTemplates > 0 && n0*n3*cfg.NumFcut > cfg.MaxTemplates {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyTemplates, n0*n3*cfg.NumFcut, cfg.MaxTemplates)
	}

	out := make([]Template, 0, n0*n3*cfg.NumFcut)

	for i := range n0 {
		psi0 := cfg.Psi0Min + float64(i)*cfg.Psi0Step
		for j := range n3 {
			psi3 := cfg.Psi3Min + float64(j)*cfg.Psi3Step
			mass := TotalMass(psi0, psi3)

			for layer := range cfg.NumFcut {
				fcut := CutoffFrequency(mass, layerGM(cfg, layer))
				if fcut <= cfg.FLower || fcut > cfg.FUpper {
					continue
				}

				out = append(out, Template{Psi0: psi0, Psi3: psi3, FCutoff: fcut, Layer: layer})
			}
		}
	}

	if len(out) == 0 {
		return nil, ErrEmptyBank
	}

	return out, nil
}

func layerGM(cfg GridConfig, layer int) float64 {
	if cfg.NumFcut == 1 {
		return cfg.HighGM
	}

	frac := float64(layer) / float64(cfg.NumFcut-1)

	return cfg.HighGM - frac*(cfg.HighGM-cfg.LowGM)
}
