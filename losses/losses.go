// Package losses - classification and regression loss functions for training
// a single-stage object detector.
//
// Both losses consume batched anchor target tensors produced by the data
// pipeline (anchors package) and prediction tensors produced by the network,
// and reduce them to a single scalar for the optimizer. The last channel of
// every target tensor carries the anchor state; see the anchors package for
// the state values.
package losses

import (
	"gorgonia.org/tensor"
)

// Loss reduces a target tensor and a matching prediction tensor to a scalar
// training loss.
type Loss interface {
	Compute(target, prediction *tensor.Dense) (float32, error)
}
