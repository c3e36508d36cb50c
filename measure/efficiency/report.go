package efficiency

import (
	"fmt"
	"io"
)

// Header lists the columns written by WriteSummary.
const Header = "# psi0U psi3U psi0C psi3C psi0I psi3I fcutU fcutC fFinalI totalMassI " +
	"rhoU phaseU alphaFU layerU binU rhoC phaseC alphaFC layerC binC startPhaseI"

// WriteSummary writes one trial as a line of space-separated columns.
// Unset branches report -1.
func WriteSummary(w io.Writer, s TrialSummary) error {
	u, c := s.Result.Unconstrained, s.Result.Constrained
	inj := s.Injection

	_, err := fmt.Fprintf(w,
		"%e %e %e %e %e %e %f %f %f %f %f %f %f %d %d %f %f %f %d %d %f\n",
		s.Unconstrained.Psi0, s.Unconstrained.Psi3,
		s.Constrained.Psi0, s.Constrained.Psi3,
		inj.Psi0, inj.Psi3,
		s.Unconstrained.FCutoff, s.Constrained.FCutoff, inj.FFinal, inj.TotalMass,
		u.Value(), phase(u.Set, u.Phase), u.AlphaF(), u.Layer, u.Bin,
		c.Value(), phase(c.Set, c.Phase), c.AlphaF(), c.Layer, c.Bin,
		inj.StartPhase)

	return err
}

// String formats the branch for the statistics block.
func (b BranchStatistics) String() string {
	return fmt.Sprintf("n=%d mean=%.4f std=%.4f median=%.4f max=%.4f efficiency=%.4f",
		b.Count, b.Mean, b.StdDev, b.Median, b.Max, b.Efficiency)
}

func phase(set bool, v float64) float64 {
	if !set {
		return -1
	}

	return v
}

// WriteStatistics prints a short human-readable run summary.
func WriteStatistics(w io.Writer, st Statistics) error {
	_, err := fmt.Fprintf(w,
		"# trials %d\n"+
			"# constrained   %s\n"+
			"# unconstrained %s\n",
		st.Trials, st.Constrained, st.Unconstrained)

	return err
}
