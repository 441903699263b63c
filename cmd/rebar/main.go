// Package main provides the rebar CLI: train a Bernoulli model on the
// built-in toy objective with the REBAR estimator, or probe the estimator's
// bias and variance at a fixed parameter point.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/rebar-ml/rebar/internal/config"
	"github.com/rebar-ml/rebar/internal/diagnostics"
	"github.com/rebar-ml/rebar/internal/estimator"
	"github.com/rebar-ml/rebar/internal/telemetry"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("rebar %s\n", version)
	case "train":
		err = runTrain(ctx, os.Args[2:])
	case "probe":
		err = runProbe(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", slog.String("command", os.Args[1]), slog.Any("error", err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: rebar <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  train      Optimize the toy objective with the REBAR estimator")
	fmt.Fprintln(os.Stderr, "  probe      Measure estimator bias and variance at the initial point")
	fmt.Fprintln(os.Stderr, "  version    Show version")
}

func loadConfig(path string, dim int) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg := config.Default()
	cfg.Dim = dim
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func buildEvaluator(cfg *config.Config) (estimator.LossEvaluator, error) {
	loss := estimator.QuadraticLoss(cfg.Vars())
	if cfg.Variant == config.VariantSurrogate {
		return estimator.NewSurrogateEvaluator(loss, cfg.Vars(), cfg.SurrogateHidden, cfg.Seed)
	}
	return &estimator.DirectEvaluator{Loss: loss}, nil
}

func buildEstimator(cfg *config.Config, seed int64) (*estimator.Estimator, error) {
	estCfg, err := cfg.EstimatorConfig()
	if err != nil {
		return nil, err
	}
	estCfg.Seed = seed
	evaluator, err := buildEvaluator(cfg)
	if err != nil {
		return nil, err
	}
	return estimator.New(estCfg, evaluator)
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML configuration file")
	dim := fs.Int("dim", 10, "latent dimension when no config file is given")
	steps := fs.Int("steps", 0, "override the number of training steps")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath, *dim)
	if err != nil {
		return err
	}
	if *steps > 0 {
		cfg.Steps = *steps
	}

	est, err := buildEstimator(cfg, cfg.Seed)
	if err != nil {
		return err
	}

	logger := slog.Default()
	sinks := telemetry.MultiSink{telemetry.NewSlogSink(logger, cfg.LogInterval)}
	if cfg.TelemetryPath != "" {
		f, err := os.Create(cfg.TelemetryPath)
		if err != nil {
			return fmt.Errorf("open telemetry file: %w", err)
		}
		defer f.Close()
		sinks = append(sinks, telemetry.NewJSONLSink(f))
	}

	trainer := estimator.NewTrainer(est, estimator.TrainerConfig{
		LearningRate:          cfg.LearningRate,
		VarianceLearningRate:  cfg.VarianceLearningRate,
		SurrogateLearningRate: cfg.SurrogateLearningRate,
		Sink:                  sinks,
	})

	logger.Info("training",
		slog.String("run_id", trainer.RunID()),
		slog.String("variant", cfg.Variant),
		slog.Int("dim", est.Dim()),
		slog.Int("steps", cfg.Steps))

	if err := trainer.Run(ctx, cfg.Steps); err != nil {
		return err
	}

	logger.Info("done",
		slog.Int("steps", trainer.StepCount()),
		slog.Any("theta", est.Theta()),
		slog.Any("temperature", est.Temperature()))
	return nil
}

func runProbe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML configuration file")
	dim := fs.Int("dim", 10, "latent dimension when no config file is given")
	draws := fs.Int("draws", 10000, "number of independent estimates")
	workers := fs.Int("workers", 0, "worker count (0 = GOMAXPROCS)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath, *dim)
	if err != nil {
		return err
	}

	report, err := diagnostics.Run(ctx, func(seed int64) (*estimator.Estimator, error) {
		return buildEstimator(cfg, seed)
	}, diagnostics.Config{
		Draws:   *draws,
		Workers: *workers,
		Seed:    cfg.Seed,
	})
	if err != nil {
		return err
	}

	slog.Info("probe",
		slog.Int("draws", report.Draws),
		slog.Float64("rebar_variance", report.MeanRebarVariance()),
		slog.Float64("reinforce_variance", report.MeanReinforceVariance()),
		slog.Any("rebar_mean", report.RebarMean),
		slog.Any("reinforce_mean", report.ReinforceMean))
	return nil
}
