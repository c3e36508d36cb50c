package psd

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Model returns the one-sided noise power at frequency f in 1/Hz.
type Model func(f float64) float64

// LIGOI is the initial LIGO design curve.
func LIGOI(f float64) float64 {
	x := f / 150
	return 9e-46 * (math.Pow(4.49*x, -56) + 0.16*math.Pow(x, -4.52) + 0.52 + 0.32*x*x)
}

// AdvLIGO is the advanced LIGO design curve.
func AdvLIGO(f float64) float64 {
	x := f / 215
	x2 := x * x
	return 1e-49 * (math.Pow(x, -4.14) - 5/x2 + 111*(1-x2+0.5*x2*x2)/(1+0.5*x2))
}

// VIRGO is the Virgo design curve.
func VIRGO(f float64) float64 {
	x := f / 500
	return 10.2e-46 * (math.Pow(7.87*x, -4.8) + 6.0/17.0/x + 1 + x*x)
}

// GEO is the GEO600 design curve.
func GEO(f float64) float64 {
	x := f / 150
	x2 := x * x
	seismic := 1e-16 * math.Pow(x, -30)
	thermal := 34 / x
	shot := 20 * (1 - x2 + 0.5*x2*x2) / (1 + 0.5*x2)
	return 1e-46 * (seismic + thermal + shot)
}

// TAMA is the TAMA300 design curve.
func TAMA(f float64) float64 {
	x := f / 400
	return 75e-46 * (math.Pow(x, -5) + 13/x + 9*(1+x*x))
}

// Unity is a white spectrum of unit power.
func Unity(float64) float64 { return 1 }

var models = map[string]Model{
	"ligo-i": LIGOI,
	"ligo-a": AdvLIGO,
	"virgo":  VIRGO,
	"geo":    GEO,
	"tama":   TAMA,
	"unity":  Unity,
}

// Lookup returns the analytic model registered under name.
func Lookup(name string) (Model, error) {
	m, ok := models[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}

	return m, nil
}

// ModelNames lists the registered analytic models in sorted order.
func ModelNames() []string {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
