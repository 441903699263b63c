// Package sampler draws the discrete Bernoulli sample b and its two coupled
// continuous relaxation variables z and z̃ via the logistic reparameterization
// trick.
package sampler

import (
	"math/rand"

	"github.com/rebar-ml/rebar/internal/stability"
	"github.com/rebar-ml/rebar/internal/tensor"
)

// Draw holds one set of coupled samples. The uniform noise and the hard
// sample are constants; z and z̃ are differentiable functions of logAlpha.
type Draw struct {
	U      *tensor.RawTensor // uniform noise behind z (constant)
	V      *tensor.RawTensor // truncated-uniform noise behind z̃
	Z      *tensor.RawTensor // unconditional logistic sample; sign(Z) ~ Bernoulli(sigmoid(logAlpha))
	B      *tensor.RawTensor // hard 0/1 sample, gradient-blocked
	ZTilde *tensor.RawTensor // logistic sample conditioned on B; sign(ZTilde) == B always
}

// Sampler produces reparameterized draws. It is deterministic given its
// seed, which is what makes a step reproducible end to end.
type Sampler struct {
	rng      *rand.Rand
	nSamples int
}

// New creates a sampler producing nSamples draws per call.
func New(seed int64, nSamples int) *Sampler {
	//nolint:gosec // math/rand is appropriate for Monte-Carlo sampling (not security-critical)
	return &Sampler{rng: rand.New(rand.NewSource(seed)), nSamples: nSamples}
}

// Sample draws b, z and z̃ for the given natural parameter row.
//
// logAlpha has shape [1, dim]; all outputs have shape [nSamples, dim].
//
// Construction (per call):
//
//  1. u ~ Uniform(0,1); z = logAlpha + log(u) - log(1-u), a logistic sample
//     shifted so that sign(z) is Bernoulli(sigmoid(logAlpha)) distributed.
//  2. b = 1[z > 0], materialized outside the tape.
//  3. u' = sigmoid(-logAlpha) is the noise location at which z crosses zero.
//     A second uniform is squeezed into [u', 1] when b = 1 and into [0, u']
//     when b = 0: inverse-CDF sampling from the logistic distribution
//     truncated to the side consistent with b.
//  4. z̃ = logAlpha + log(v) - log(1-v).
//
// The truncation guarantees sign(z̃) == b for every draw while z̃ remains a
// valid reparameterized sample of the conditional distribution given b;
// gradients flow into z̃ both directly and through u'.
func (s *Sampler) Sample(backend tensor.Backend, logAlpha *tensor.RawTensor) *Draw {
	dim := logAlpha.Shape()[len(logAlpha.Shape())-1]
	shape := tensor.Shape{s.nSamples, dim}

	u := s.uniform(shape)
	z := backend.Add(logAlpha, logit(backend, u))
	b := backend.Heaviside(z)

	uPrime := backend.Sigmoid(backend.MulScalar(logAlpha, -1))
	vRaw := s.uniform(shape)

	// v1 on [u', 1], v0 on [0, u']; select per coordinate by b.
	oneMinusUPrime := backend.AddScalar(backend.MulScalar(uPrime, -1), 1)
	v1 := backend.Add(backend.Mul(vRaw, oneMinusUPrime), uPrime)
	v0 := backend.Mul(vRaw, uPrime)
	oneMinusB := backend.AddScalar(backend.MulScalar(b, -1), 1)
	v := backend.Add(backend.Mul(b, v1), backend.Mul(oneMinusB, v0))

	zTilde := backend.Add(logAlpha, logit(backend, v))

	return &Draw{U: u, V: vRaw, Z: z, B: b, ZTilde: zTilde}
}

// uniform draws strictly positive uniforms so the truncated intervals stay
// open and sign(z̃) == b holds with zero tolerance.
func (s *Sampler) uniform(shape tensor.Shape) *tensor.RawTensor {
	t := tensor.Zeros(shape)
	data := t.Data()
	for i := range data {
		v := s.rng.Float64()
		for v == 0 {
			v = s.rng.Float64()
		}
		data[i] = v
	}
	return t
}

// logit computes log(v) - log(1-v) with safe logs; v may be constant noise
// or a differentiable graph node.
func logit(backend tensor.Backend, v *tensor.RawTensor) *tensor.RawTensor {
	oneMinusV := backend.AddScalar(backend.MulScalar(v, -1), 1)
	return backend.Sub(stability.SafeLog(backend, v), stability.SafeLog(backend, oneMinusV))
}
