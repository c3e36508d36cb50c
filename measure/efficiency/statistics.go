package efficiency

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-bankeff/inspiral/bcv"
)

// BranchStatistics summarizes one SNR branch over the trials where it
// was set.
type BranchStatistics struct {
	Count  int
	Mean   float64
	StdDev float64
	Median float64
	Max    float64
	// Efficiency is Mean divided by the injected amplitude.
	Efficiency float64
}

// Statistics summarizes a run.
type Statistics struct {
	Trials        int
	Constrained   BranchStatistics
	Unconstrained BranchStatistics
}

// Summarize reduces trial records. amplitude is the injected SNR; pass 0
// for noise-only runs to leave Efficiency at zero.
func Summarize(trials []TrialSummary, amplitude float64) Statistics {
	st := Statistics{Trials: len(trials)}

	st.Constrained = branch(trials, amplitude, func(t TrialSummary) bcv.Peak { return t.Result.Constrained })
	st.Unconstrained = branch(trials, amplitude, func(t TrialSummary) bcv.Peak { return t.Result.Unconstrained })

	return st
}

func branch(trials []TrialSummary, amplitude float64, pick func(TrialSummary) bcv.Peak) BranchStatistics {
	values := make([]float64, 0, len(trials))

	for _, t := range trials {
		if p := pick(t); p.Set {
			values = append(values, p.SNR)
		}
	}

	var b BranchStatistics

	b.Count = len(values)
	if b.Count == 0 {
		return b
	}

	b.Mean, b.StdDev = stat.MeanStdDev(values, nil)
	if b.Count == 1 {
		b.StdDev = 0
	}

	b.Max = floats.Max(values)

	sort.Float64s(values)
	b.Median = stat.Quantile(0.5, stat.Empirical, values, nil)

	if amplitude > 0 {
		b.Efficiency = b.Mean / amplitude
	}

	return b
}
