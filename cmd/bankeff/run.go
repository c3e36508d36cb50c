package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-bankeff/dsp/fft"
	"github.com/cwbudde/algo-bankeff/dsp/psd"
	"github.com/cwbudde/algo-bankeff/inspiral/bank"
	"github.com/cwbudde/algo-bankeff/inspiral/bcv"
	"github.com/cwbudde/algo-bankeff/inspiral/inject"
	"github.com/cwbudde/algo-bankeff/internal/config"
	"github.com/cwbudde/algo-bankeff/internal/logging"
	"github.com/cwbudde/algo-bankeff/measure/efficiency"
)

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	if opts.listModels {
		for _, name := range psd.ModelNames() {
			if _, err := fmt.Fprintln(stdout, name); err != nil {
				return err
			}
		}

		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := logging.New(
		logging.WithLevel(cfg.Log.Level),
		logging.WithFormat(cfg.Log.Format),
		logging.WithOutput("stderr"),
	)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	backend, _ := fft.ParseBackend(cfg.Filter.FFT)
	fs, n := cfg.Sampling.Rate, cfg.Sampling.Length

	spectrum, err := loadSpectrum(cfg, backend)
	if err != nil {
		return err
	}

	if cfg.Output.PSD != "" {
		if err := writeFile(cfg.Output.PSD, func(w io.Writer) error { return psd.WriteASCII(w, spectrum) }); err != nil {
			return err
		}
	}

	if opts.printPSD {
		return psd.WriteASCII(stdout, spectrum)
	}

	templates, err := loadBank(cfg)
	if err != nil {
		return err
	}

	if cfg.Output.Bank != "" {
		if err := writeFile(cfg.Output.Bank, func(w io.Writer) error { return bank.WriteASCII(w, templates) }); err != nil {
			return err
		}
	}

	if opts.printBank {
		return bank.WriteTable(stdout, templates)
	}

	pv, err := bcv.NewPowerVectors(n, fs)
	if err != nil {
		return err
	}

	moments, err := bcv.NewMoments(spectrum, cfg.Bank.FLower, fs, n)
	if err != nil {
		return err
	}

	family, err := bcv.NewBCV(pv, moments)
	if err != nil {
		return err
	}

	mode, _ := cfg.Mode()
	workers := cfg.Filter.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	engine, err := bcv.NewEngine(family, spectrum, fs,
		bcv.WithBackend(backend),
		bcv.WithWorkers(workers),
		bcv.WithMode(mode),
		bcv.WithPadding(cfg.Filter.NBegin, cfg.Filter.NEnd))
	if err != nil {
		return err
	}

	ic, err := cfg.InjectConfig()
	if err != nil {
		return err
	}

	gen, err := inject.NewGenerator(ic, spectrum, pv, fs, inject.WithSeed(cfg.Signal.Seed))
	if err != nil {
		return err
	}

	simOpts := []efficiency.Option{efficiency.WithLogger(logger)}

	var hist *efficiency.Histogram
	if cfg.Output.Histogram != "" {
		hist, err = efficiency.NewHistogram(efficiency.DefaultHistogramBins,
			efficiency.DefaultHistogramMin, efficiency.DefaultHistogramMax, engine.Workers())
		if err != nil {
			return err
		}

		simOpts = append(simOpts, efficiency.WithHistogram(hist))
	}

	sim, err := efficiency.New(efficiency.Config{Trials: cfg.Trials, Faithfulness: cfg.Faithfulness},
		engine, gen, templates, simOpts...)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(stdout)
	if _, err := fmt.Fprintln(out, efficiency.Header); err != nil {
		return err
	}

	trials := make([]efficiency.TrialSummary, 0, cfg.Trials)

	runErr := sim.Run(ctx, func(s efficiency.TrialSummary) error {
		trials = append(trials, s)
		return efficiency.WriteSummary(out, s)
	})

	amplitude := 0.0
	if ic.Type.HasSignal() {
		amplitude = ic.SignalAmplitude
	}

	// Completed trials are reported even when the run was interrupted.
	if err := efficiency.WriteStatistics(out, efficiency.Summarize(trials, amplitude)); err != nil {
		return err
	}

	if err := out.Flush(); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}

	if hist != nil {
		if err := writeFile(cfg.Output.Histogram, hist.WriteASCII); err != nil {
			return err
		}

		logger.Info("histogram written",
			zap.String("path", cfg.Output.Histogram),
			zap.Float64("overflow", hist.Overflow()))
	}

	return nil
}

func loadConfig(opts options) (config.Config, error) {
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return cfg, err
	}

	if opts.set("trials") {
		cfg.Trials = opts.trials
	}

	if opts.set("seed") {
		cfg.Signal.Seed = opts.seed
	}

	if opts.set("workers") {
		cfg.Filter.Workers = opts.workers
	}

	if opts.set("fft") {
		cfg.Filter.FFT = opts.backend
	}

	if opts.set("noise-model") {
		cfg.Noise.Model = opts.noiseModel
	}

	if opts.set("log-level") {
		cfg.Log.Level = opts.logLevel
	}

	if opts.set("histogram") {
		cfg.Output.Histogram = opts.histogram
	}

	if opts.set("faithfulness") {
		cfg.Faithfulness = opts.faithful
	}

	cfg.Normalize()

	return cfg, cfg.Validate()
}

func loadSpectrum(cfg config.Config, backend fft.Backend) (*psd.Spectrum, error) {
	fs, n := cfg.Sampling.Rate, cfg.Sampling.Length

	switch cfg.Noise.Model {
	case config.NoiseFile:
		f, err := os.Open(cfg.Noise.PSDFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		return psd.ReadASCII(f, n/2+1, fs/float64(n))
	case config.NoiseStrain:
		f, err := os.Open(cfg.Noise.StrainFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		series, err := psd.ReadSeries(f)
		if err != nil {
			return nil, err
		}

		t, err := fft.New(backend, n)
		if err != nil {
			return nil, err
		}

		avg, _ := cfg.Average()
		wopts, _ := cfg.WelchOptions()

		return psd.Estimate(series, fs, t, avg, wopts...)
	default:
		m, err := psd.Lookup(cfg.Noise.Model)
		if err != nil {
			return nil, err
		}

		return psd.FromModel(m, n, fs)
	}
}

func loadBank(cfg config.Config) ([]bank.Template, error) {
	if cfg.Bank.File != "" {
		f, err := os.Open(cfg.Bank.File)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		return bank.ReadASCII(f)
	}

	if cfg.Faithfulness {
		return nil, nil
	}

	return bank.Grid(cfg.GridConfig())
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return nil
}
