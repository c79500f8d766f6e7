package losses

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-retina/anchors"
)

// probEpsilon clamps probabilities away from 0 and 1 before taking logs.
const probEpsilon float32 = 1e-7

// Focal is the focal classification loss with an auxiliary center-loss term,
// as defined in https://arxiv.org/abs/1708.02002.
//
// Easy examples are downweighted by alpha*(1-p)^gamma for positive labels and
// (1-alpha)*p^gamma for negative labels; the center term pulls raw per-class
// scores toward the per-class entries of the center table.
type Focal struct {
	config FocalConfig

	// Centers is the per-class center table, zero-initialized at construction.
	// Compute reads it and never writes it; if the centers are to be trained,
	// that update belongs to the same optimizer that trains the network.
	Centers []float32
}

// NewFocal creates a focal loss bound to the given hyperparameters and a fresh
// center table of length NumClasses. A nil config selects DefaultFocalConfig.
func NewFocal(config *FocalConfig) (*Focal, error) {
	if config == nil {
		config = DefaultFocalConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid focal config")
	}
	return &Focal{
		config:  *config,
		Centers: make([]float32, config.NumClasses),
	}, nil
}

// Compute evaluates the loss for one batch.
//
// Arguments:
//   - target: Tensor of shape (batch, anchors, C+1) from the data pipeline;
//     C class label channels plus the anchor state channel.
//   - prediction: Tensor of shape (batch, anchors, C) of raw per-class scores
//     from the network.
//
// Returns:
//   - The summed focal loss plus the center term, divided by the positive
//     anchor count (floored at 1). Anchors in the ignore state contribute
//     nothing. A batch with every anchor ignored yields 0.
func (f *Focal) Compute(target, prediction *tensor.Dense) (float32, error) {
	channels, err := alignedShapes(target, prediction)
	if err != nil {
		return 0, err
	}
	tdata, err := float32Backing(target)
	if err != nil {
		return 0, errors.Wrap(err, "target")
	}
	pdata, err := float32Backing(prediction)
	if err != nil {
		return 0, errors.Wrap(err, "prediction")
	}

	rowLen := channels + 1
	selected := selectRows(tdata, rowLen, func(state float32) bool {
		return state != anchors.StateIgnore
	})
	normalizer := math32.Max(1, float32(countState(tdata, rowLen, anchors.StatePositive)))

	var classLoss float32
	var squared float32
	for _, r := range selected {
		toff := r * rowLen
		poff := r * channels
		for c := 0; c < channels; c++ {
			label := tdata[toff+c]
			feature := pdata[poff+c]
			prob := sigmoid(feature)

			weight := focalWeight(label, prob, f.config.Alpha, f.config.Gamma)
			classLoss += weight * binaryCrossEntropy(label, prob)

			index, err := ClassIndex(label, f.config.NumClasses)
			if err != nil {
				return 0, err
			}
			diff := f.Centers[index] - feature
			squared += diff * diff
		}
	}

	var centerLoss float32
	if n := len(selected) * channels; n > 0 {
		centerLoss = f.config.CenterAlpha * squared / float32(n)
	}
	return (centerLoss + classLoss) / normalizer, nil
}

// ClassIndex converts a float label value to a center-table index by
// truncation toward zero. The result must lie in [0, numClasses); anything
// else is a contract violation by the label producer.
func ClassIndex(label float32, numClasses int) (int, error) {
	index := int(label)
	if index < 0 || index >= numClasses {
		return 0, errors.Errorf("label %v truncates to class index %d, outside [0, %d)",
			label, index, numClasses)
	}
	return index, nil
}

// focalWeight is the modulating factor applied to the cross entropy of one
// class channel: alpha*(1-p)^gamma for a positive label, (1-alpha)*p^gamma
// otherwise.
func focalWeight(label, prob, alpha, gamma float32) float32 {
	if label == 1 {
		return alpha * math32.Pow(1-prob, gamma)
	}
	return (1 - alpha) * math32.Pow(prob, gamma)
}

func sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// binaryCrossEntropy computes -label*log(p) - (1-label)*log(1-p) with p
// clamped to [probEpsilon, 1-probEpsilon].
func binaryCrossEntropy(label, prob float32) float32 {
	p := math32.Min(math32.Max(prob, probEpsilon), 1-probEpsilon)
	return -(label*math32.Log(p) + (1-label)*math32.Log(1-p))
}
