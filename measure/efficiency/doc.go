// Package efficiency runs Monte Carlo bank efficiency simulations.
//
// Each trial draws a signal from an inject.Generator, scans the bank with a
// bcv.Engine and emits one TrialSummary holding the best constrained and
// unconstrained matches next to the injected parameters. A Histogram
// collects the per-sample SNR of every template and Summarize reduces the
// trial records to efficiency statistics.
package efficiency
