package losses

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-retina/anchors"
)

// Targets built by the anchors package feed straight into both losses.
func TestLossesOverBuiltTargets(t *testing.T) {
	anchorBoxes := []anchors.Box{
		{X1: 0, Y1: 0, X2: 10, Y2: 10},   // IoU 1.0 with the annotation: positive
		{X1: 0, Y1: 4, X2: 10, Y2: 14},   // IoU ~0.43: ignored
		{X1: 20, Y1: 20, X2: 30, Y2: 30}, // IoU 0: background
	}
	annotations := []anchors.Annotation{
		{Box: anchors.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}, Class: 2},
	}

	assignment, err := anchors.Assign(anchorBoxes, annotations, nil)
	require.NoError(t, err)
	require.Equal(t, []float32{1, -1, 0}, assignment.States)

	const numClasses = 3
	batch := []*anchors.Assignment{assignment}

	clsTarget, err := anchors.ClassificationTargets(batch, numClasses)
	require.NoError(t, err)
	regTarget, err := anchors.RegressionTargets(batch, anchorBoxes)
	require.NoError(t, err)

	focal, err := NewFocal(&FocalConfig{Alpha: 0.25, Gamma: 2, CenterAlpha: 0.03, NumClasses: numClasses})
	require.NoError(t, err)
	clsLoss, err := focal.Compute(clsTarget, dense([]int{1, 3, numClasses}, make([]float32, 9)))
	require.NoError(t, err)
	assert.Greater(t, clsLoss, float32(0))

	// Predicting the encoded targets exactly zeroes the regression loss. The
	// only positive anchor coincides with its annotation, so its deltas are 0.
	smooth, err := NewSmoothL1(DefaultSmoothL1Config())
	require.NoError(t, err)
	regLoss, err := smooth.Compute(regTarget, dense([]int{1, 3, 4}, make([]float32, 12)))
	require.NoError(t, err)
	assert.Equal(t, float32(0), regLoss)
}
