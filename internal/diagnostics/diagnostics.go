// Package diagnostics measures estimator quality empirically: it draws many
// independent estimates at a fixed parameter point and reports per-coordinate
// means and variances for both the REBAR and the plain score-function
// estimator. The mean comparison probes bias; the variance comparison shows
// what the control variate buys.
package diagnostics

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/rebar-ml/rebar/internal/estimator"
)

// Factory builds an estimator replica for one worker. Replicas must be
// configured identically except for the seed; estimators are not safe for
// concurrent use, so each worker gets its own.
type Factory func(seed int64) (*estimator.Estimator, error)

// Config configures a probe run.
type Config struct {
	// Draws is the total number of independent estimates. Defaults to 1000.
	Draws int

	// Workers bounds concurrency. Defaults to GOMAXPROCS.
	Workers int

	// Seed is the base seed; worker i uses Seed + i.
	Seed int64
}

// Report summarizes a probe run. All per-coordinate slices have length dim.
type Report struct {
	Draws int

	RebarMean     []float64
	RebarVariance []float64

	ReinforceMean     []float64
	ReinforceVariance []float64
}

// MeanRebarVariance averages the per-coordinate REBAR variance.
func (r *Report) MeanRebarVariance() float64 { return meanOf(r.RebarVariance) }

// MeanReinforceVariance averages the per-coordinate score-function variance.
func (r *Report) MeanReinforceVariance() float64 { return meanOf(r.ReinforceVariance) }

// Run draws cfg.Draws estimates across a worker pool and aggregates them.
func Run(ctx context.Context, factory Factory, cfg Config) (*Report, error) {
	if factory == nil {
		return nil, fmt.Errorf("diagnostics: factory must not be nil")
	}
	if cfg.Draws == 0 {
		cfg.Draws = 1000
	}
	if cfg.Draws < 0 {
		return nil, fmt.Errorf("diagnostics: Draws must be positive, got %d", cfg.Draws)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Workers > cfg.Draws {
		cfg.Workers = cfg.Draws
	}

	var (
		mu    sync.Mutex
		total *accumulator
	)

	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(cfg.Workers)
	for w := 0; w < cfg.Workers; w++ {
		worker := w
		draws := cfg.Draws / cfg.Workers
		if worker < cfg.Draws%cfg.Workers {
			draws++
		}
		p.Go(func(ctx context.Context) error {
			est, err := factory(cfg.Seed + int64(worker))
			if err != nil {
				return fmt.Errorf("diagnostics: worker %d: %w", worker, err)
			}
			acc := newAccumulator(est.Dim())
			for i := 0; i < draws; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				e, err := est.Estimate()
				if err != nil {
					return fmt.Errorf("diagnostics: worker %d: %w", worker, err)
				}
				acc.add(e.RebarFlat.Data(), e.Reinforce.Data())
			}
			mu.Lock()
			defer mu.Unlock()
			if total == nil {
				total = acc
			} else if err := total.merge(acc); err != nil {
				return err
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	if total == nil || total.n == 0 {
		return nil, fmt.Errorf("diagnostics: no draws completed")
	}
	return total.report(), nil
}

// accumulator tracks running sums and sums of squares per coordinate.
type accumulator struct {
	n          int
	rebarSum   []float64
	rebarSumSq []float64
	reinfSum   []float64
	reinfSumSq []float64
}

func newAccumulator(dim int) *accumulator {
	return &accumulator{
		rebarSum:   make([]float64, dim),
		rebarSumSq: make([]float64, dim),
		reinfSum:   make([]float64, dim),
		reinfSumSq: make([]float64, dim),
	}
}

func (a *accumulator) add(rebar, reinforce []float64) {
	a.n++
	for i, v := range rebar {
		a.rebarSum[i] += v
		a.rebarSumSq[i] += v * v
	}
	for i, v := range reinforce {
		a.reinfSum[i] += v
		a.reinfSumSq[i] += v * v
	}
}

func (a *accumulator) merge(b *accumulator) error {
	if len(a.rebarSum) != len(b.rebarSum) {
		return fmt.Errorf("diagnostics: replica dimension mismatch: %d vs %d", len(a.rebarSum), len(b.rebarSum))
	}
	a.n += b.n
	for i := range a.rebarSum {
		a.rebarSum[i] += b.rebarSum[i]
		a.rebarSumSq[i] += b.rebarSumSq[i]
		a.reinfSum[i] += b.reinfSum[i]
		a.reinfSumSq[i] += b.reinfSumSq[i]
	}
	return nil
}

func (a *accumulator) report() *Report {
	dim := len(a.rebarSum)
	r := &Report{
		Draws:             a.n,
		RebarMean:         make([]float64, dim),
		RebarVariance:     make([]float64, dim),
		ReinforceMean:     make([]float64, dim),
		ReinforceVariance: make([]float64, dim),
	}
	n := float64(a.n)
	for i := 0; i < dim; i++ {
		rm := a.rebarSum[i] / n
		fm := a.reinfSum[i] / n
		r.RebarMean[i] = rm
		r.ReinforceMean[i] = fm
		r.RebarVariance[i] = a.rebarSumSq[i]/n - rm*rm
		r.ReinforceVariance[i] = a.reinfSumSq[i]/n - fm*fm
	}
	return r
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
