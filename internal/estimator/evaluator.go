package estimator

import (
	"fmt"

	"github.com/rebar-ml/rebar/internal/nn"
	"github.com/rebar-ml/rebar/internal/tensor"
)

// LossFunc evaluates the objective on a [rows, vars] input and returns one
// value per row as a [rows] tensor. Implementations must build their
// computation through the given backend so the relaxed evaluations stay
// differentiable.
type LossFunc func(backend tensor.Backend, x *tensor.RawTensor) *tensor.RawTensor

// LossEvaluator produces the three loss evaluations behind one estimate:
// f(b) on the hard sample and f on the two coupled relaxations. The hard
// evaluation always uses the real objective; the relaxed ones may be
// approximated.
type LossEvaluator interface {
	// Evaluate returns f_b, f_z, f_zTilde as [rows] tensors. Inputs are
	// [rows, vars]: the hard sample and the two relaxed samples.
	Evaluate(backend tensor.Backend, b, sigZ, sigZTilde *tensor.RawTensor) (fB, fZ, fZTilde *tensor.RawTensor)

	// Parameters returns trainable evaluator parameters, if any.
	Parameters() []*nn.Parameter

	// assembler selects the matching score-function term construction.
	assembler() gradientAssembler
}

// DirectEvaluator applies the real objective to the relaxed inputs. This
// requires the objective to be defined (and differentiable) on continuous
// inputs in [0, 1].
type DirectEvaluator struct {
	Loss LossFunc
}

// Evaluate applies the objective to all three inputs.
func (d *DirectEvaluator) Evaluate(backend tensor.Backend, b, sigZ, sigZTilde *tensor.RawTensor) (*tensor.RawTensor, *tensor.RawTensor, *tensor.RawTensor) {
	return d.Loss(backend, b), d.Loss(backend, sigZ), d.Loss(backend, sigZTilde)
}

// Parameters returns nil; the direct evaluator has no trainable state.
func (d *DirectEvaluator) Parameters() []*nn.Parameter { return nil }

func (d *DirectEvaluator) assembler() gradientAssembler { return directAssembler{} }

// SurrogateEvaluator keeps the real objective for the hard sample but routes
// the relaxed evaluations through a trainable surrogate network. Use it when
// the objective is only defined on binary inputs.
//
// The surrogate shares one weight set across both relaxed call sites, and its
// parameters are trained to shrink the squared estimator alongside eta and
// the temperature.
type SurrogateEvaluator struct {
	loss LossFunc
	q    *nn.Surrogate
}

// NewSurrogateEvaluator builds a surrogate evaluator for inputs with vars
// coordinates per row.
func NewSurrogateEvaluator(loss LossFunc, vars, hiddenSize int, seed int64) (*SurrogateEvaluator, error) {
	if loss == nil {
		return nil, fmt.Errorf("estimator: loss must not be nil")
	}
	q, err := nn.NewSurrogate(vars, hiddenSize, newRNG(seed))
	if err != nil {
		return nil, err
	}
	return &SurrogateEvaluator{loss: loss, q: q}, nil
}

// Evaluate applies the real objective to b and the surrogate to the
// relaxations.
func (s *SurrogateEvaluator) Evaluate(backend tensor.Backend, b, sigZ, sigZTilde *tensor.RawTensor) (*tensor.RawTensor, *tensor.RawTensor, *tensor.RawTensor) {
	fB := s.loss(backend, b)
	fZ := s.q.Forward(backend, sigZ)
	fZTilde := s.q.Forward(backend, sigZTilde)
	return fB, fZ, fZTilde
}

// Parameters returns the surrogate network parameters.
func (s *SurrogateEvaluator) Parameters() []*nn.Parameter { return s.q.Parameters() }

// Surrogate exposes the underlying network.
func (s *SurrogateEvaluator) Surrogate() *nn.Surrogate { return s.q }

func (s *SurrogateEvaluator) assembler() gradientAssembler { return surrogateAssembler{} }

// QuadraticLoss returns the toy objective sum_j (x_j - t_j)^2 per row, with
// fixed targets t_j = (j+1)/(vars+2). The targets sit strictly inside (0, 1)
// so neither the all-zeros nor the all-ones configuration is optimal.
func QuadraticLoss(vars int) LossFunc {
	targets := make([]float64, vars)
	for j := range targets {
		targets[j] = float64(j+1) / float64(vars+2)
	}
	return func(backend tensor.Backend, x *tensor.RawTensor) *tensor.RawTensor {
		t, err := tensor.FromSlice(targets, tensor.Shape{1, vars})
		if err != nil {
			panic(err)
		}
		diff := backend.Sub(x, t)
		return backend.SumDim(backend.Mul(diff, diff), 1, false)
	}
}
