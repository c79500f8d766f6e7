package losses

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-retina/anchors"
)

// boxChannels is the number of regression channels per anchor.
const boxChannels = 4

// SmoothL1 is the smooth L1 (Huber) box regression loss:
//
//	f(x) = 0.5 * (sigma * x)^2        if |x| < 1 / sigma^2
//	       |x| - 0.5 / sigma^2        otherwise
//
// Only positive anchors contribute; background and ignored anchors are
// excluded entirely.
type SmoothL1 struct {
	config       SmoothL1Config
	sigmaSquared float32
}

// NewSmoothL1 creates a smooth L1 loss bound to the given hyperparameters.
// A nil config selects DefaultSmoothL1Config.
func NewSmoothL1(config *SmoothL1Config) (*SmoothL1, error) {
	if config == nil {
		config = DefaultSmoothL1Config()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid smooth L1 config")
	}
	return &SmoothL1{
		config:       *config,
		sigmaSquared: config.Sigma * config.Sigma,
	}, nil
}

// Compute evaluates the loss for one batch.
//
// Arguments:
//   - target: Tensor of shape (batch, anchors, 5) from the data pipeline;
//     4 box delta channels plus the anchor state channel.
//   - prediction: Tensor of shape (batch, anchors, 4) of box deltas from the
//     network.
//
// Returns:
//   - The summed piecewise loss divided by the positive anchor count (floored
//     at 1). A batch without positive anchors yields 0.
func (s *SmoothL1) Compute(target, prediction *tensor.Dense) (float32, error) {
	channels, err := alignedShapes(target, prediction)
	if err != nil {
		return 0, err
	}
	if channels != boxChannels {
		return 0, errors.Errorf("expected %d regression channels, got %d", boxChannels, channels)
	}
	tdata, err := float32Backing(target)
	if err != nil {
		return 0, errors.Wrap(err, "target")
	}
	pdata, err := float32Backing(prediction)
	if err != nil {
		return 0, errors.Wrap(err, "prediction")
	}

	rowLen := boxChannels + 1
	selected := selectRows(tdata, rowLen, func(state float32) bool {
		return state == anchors.StatePositive
	})
	normalizer := math32.Max(1, float32(len(selected)))

	threshold := 1 / s.sigmaSquared
	var sum float32
	for _, r := range selected {
		toff := r * rowLen
		poff := r * boxChannels
		for c := 0; c < boxChannels; c++ {
			diff := math32.Abs(pdata[poff+c] - tdata[toff+c])
			if diff < threshold {
				sum += 0.5 * s.sigmaSquared * diff * diff
			} else {
				sum += diff - 0.5/s.sigmaSquared
			}
		}
	}

	return sum / normalizer, nil
}
