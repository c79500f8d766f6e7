package anchors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxGeometry(t *testing.T) {
	a := Box{X1: 0, Y1: 0, X2: 100, Y2: 100}
	b := Box{X1: 50, Y1: 50, X2: 150, Y2: 150}

	assert.Equal(t, float32(100), a.Width())
	assert.Equal(t, float32(100), a.Height())
	assert.Equal(t, float32(10000), a.Area())
	assert.Equal(t, float32(2500), a.Intersection(b))
	assert.Equal(t, float32(17500), a.Union(b))
	assert.InDelta(t, 2500.0/17500.0, a.IoU(b), 1e-6)

	// Disjoint boxes.
	c := Box{X1: 200, Y1: 200, X2: 300, Y2: 300}
	assert.Equal(t, float32(0), a.Intersection(c))
	assert.Equal(t, float32(0), a.IoU(c))

	// Degenerate boxes never divide by zero.
	var zero Box
	assert.Equal(t, float32(0), zero.IoU(zero))
}

func TestAssignStates(t *testing.T) {
	gt := Box{X1: 0, Y1: 0, X2: 10, Y2: 10}
	anchorBoxes := []Box{
		{X1: 0, Y1: 0, X2: 10, Y2: 10},   // IoU 1.0
		{X1: 0, Y1: 4, X2: 10, Y2: 14},   // IoU ~0.43
		{X1: 5, Y1: 5, X2: 15, Y2: 15},   // IoU ~0.14
		{X1: 50, Y1: 50, X2: 60, Y2: 60}, // IoU 0
	}

	a, err := Assign(anchorBoxes, []Annotation{{Box: gt, Class: 3}}, nil)
	require.NoError(t, err)

	assert.Equal(t, []float32{StatePositive, StateIgnore, StateNegative, StateNegative}, a.States)
	assert.Equal(t, []int{3, -1, -1, -1}, a.Classes)
	assert.Equal(t, gt, a.Boxes[0])
}

func TestAssignPicksBestAnnotation(t *testing.T) {
	anchorBoxes := []Box{{X1: 0, Y1: 0, X2: 10, Y2: 10}}
	annotations := []Annotation{
		{Box: Box{X1: 0, Y1: 5, X2: 10, Y2: 15}, Class: 0}, // IoU ~0.33
		{Box: Box{X1: 0, Y1: 1, X2: 10, Y2: 11}, Class: 1}, // IoU ~0.82
	}

	a, err := Assign(anchorBoxes, annotations, nil)
	require.NoError(t, err)

	assert.Equal(t, StatePositive, a.States[0])
	assert.Equal(t, 1, a.Classes[0])
	assert.Equal(t, annotations[1].Box, a.Boxes[0])
}

func TestAssignNoAnnotations(t *testing.T) {
	a, err := Assign([]Box{{X1: 0, Y1: 0, X2: 1, Y2: 1}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []float32{StateNegative}, a.States)
	assert.Equal(t, []int{-1}, a.Classes)
}

func TestAssignConfigValidation(t *testing.T) {
	boxes := []Box{{X1: 0, Y1: 0, X2: 1, Y2: 1}}

	_, err := Assign(boxes, nil, &AssignConfig{NegativeOverlap: 0.6, PositiveOverlap: 0.5})
	assert.Error(t, err)

	_, err = Assign(boxes, nil, &AssignConfig{NegativeOverlap: -0.1, PositiveOverlap: 0.5})
	assert.Error(t, err)

	_, err = Assign(boxes, nil, &AssignConfig{NegativeOverlap: 0.4, PositiveOverlap: 1.5})
	assert.Error(t, err)
}
