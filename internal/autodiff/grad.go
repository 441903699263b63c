package autodiff

import (
	"errors"
	"fmt"

	"github.com/rebar-ml/rebar/internal/tensor"
)

// ErrNoGradient reports that a tensor has no gradient: it was not reached by
// the backward pass. This is distinct from a zero gradient; callers must
// not substitute zero for a disconnected path.
var ErrNoGradient = errors.New("autodiff: no gradient available")

// Gradients maps each reached tensor to its accumulated gradient.
type Gradients map[*tensor.RawTensor]*tensor.RawTensor

// Grad returns the gradient for t, or ErrNoGradient if the backward pass
// never reached it.
func (g Gradients) Grad(t *tensor.RawTensor) (*tensor.RawTensor, error) {
	grad, ok := g[t]
	if !ok {
		return nil, fmt.Errorf("%w for tensor %v", ErrNoGradient, t.Shape())
	}
	return grad, nil
}
