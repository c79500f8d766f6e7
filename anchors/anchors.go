// Package anchors - anchor boxes, ground-truth matching, and training target
// construction for single-stage detectors.
package anchors

import (
	"github.com/pkg/errors"
)

// Anchor states as stored in the last channel of every target tensor.
const (
	// StateIgnore marks anchors excluded from the classification loss.
	StateIgnore float32 = -1
	// StateNegative marks background anchors.
	StateNegative float32 = 0
	// StatePositive marks anchors matched to an object.
	StatePositive float32 = 1
)

// Box is an axis-aligned bounding box in (x1, y1, x2, y2) corner form.
type Box struct {
	X1, Y1, X2, Y2 float32
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float32 {
	return b.X2 - b.X1
}

// Height returns the vertical extent of the box.
func (b Box) Height() float32 {
	return b.Y2 - b.Y1
}

// Area returns the area of the box, or 0 for a degenerate box.
func (b Box) Area() float32 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Intersection calculates the intersection area between two boxes.
//
// Arguments:
// - other: The other box to intersect with.
//
// Returns:
// - The area of overlap, 0 if the boxes are disjoint.
func (b Box) Intersection(other Box) float32 {
	x1 := max(b.X1, other.X1)
	y1 := max(b.Y1, other.Y1)
	x2 := min(b.X2, other.X2)
	y2 := min(b.Y2, other.Y2)
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	return (x2 - x1) * (y2 - y1)
}

// Union calculates the union area between two boxes.
func (b Box) Union(other Box) float32 {
	return b.Area() + other.Area() - b.Intersection(other)
}

// IoU calculates the Intersection over Union between two boxes.
//
// Returns:
// - The IoU value between 0 and 1. Two degenerate boxes yield 0.
func (b Box) IoU(other Box) float32 {
	union := b.Union(other)
	if union <= 0 {
		return 0
	}
	return b.Intersection(other) / union
}

// Annotation is a ground-truth object: its box and class index.
type Annotation struct {
	Box   Box
	Class int
}

// AssignConfig defines the IoU thresholds for anchor-to-ground-truth matching.
type AssignConfig struct {
	// NegativeOverlap is the IoU below which an anchor is background.
	NegativeOverlap float32
	// PositiveOverlap is the IoU at or above which an anchor is positive.
	// Anchors between the two thresholds are ignored.
	PositiveOverlap float32
}

// DefaultAssignConfig returns the standard RetinaNet matching thresholds.
func DefaultAssignConfig() *AssignConfig {
	return &AssignConfig{
		NegativeOverlap: 0.4,
		PositiveOverlap: 0.5,
	}
}

// Validate checks the threshold ordering.
func (c *AssignConfig) Validate() error {
	if c.NegativeOverlap < 0 || c.PositiveOverlap > 1 {
		return errors.Errorf("overlap thresholds must lie in [0, 1], got negative=%v positive=%v",
			c.NegativeOverlap, c.PositiveOverlap)
	}
	if c.NegativeOverlap > c.PositiveOverlap {
		return errors.Errorf("negative overlap %v exceeds positive overlap %v",
			c.NegativeOverlap, c.PositiveOverlap)
	}
	return nil
}

// Assignment holds the per-anchor matching result for one image.
// All three slices have one entry per anchor.
type Assignment struct {
	// States holds the anchor state (StateIgnore, StateNegative, StatePositive).
	States []float32
	// Classes holds the class index of the matched annotation, -1 where the
	// anchor matched nothing.
	Classes []int
	// Boxes holds the matched ground-truth box; meaningful only where the
	// state is StatePositive.
	Boxes []Box
}

// Assign matches each anchor box against the image's annotations by maximum IoU.
//
// Arguments:
// - anchorBoxes: The image's anchor boxes in corner form.
// - annotations: Ground-truth objects. May be empty; every anchor is then background.
// - config: Matching thresholds. Nil selects DefaultAssignConfig.
//
// Returns:
// - The per-anchor Assignment.
// - error if the configuration is invalid.
func Assign(anchorBoxes []Box, annotations []Annotation, config *AssignConfig) (*Assignment, error) {
	if config == nil {
		config = DefaultAssignConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid assign config")
	}

	a := &Assignment{
		States:  make([]float32, len(anchorBoxes)),
		Classes: make([]int, len(anchorBoxes)),
		Boxes:   make([]Box, len(anchorBoxes)),
	}

	for i, anchor := range anchorBoxes {
		best := -1
		var bestIoU float32
		for j := range annotations {
			if iou := anchor.IoU(annotations[j].Box); iou > bestIoU {
				bestIoU = iou
				best = j
			}
		}

		switch {
		case best >= 0 && bestIoU >= config.PositiveOverlap:
			a.States[i] = StatePositive
			a.Classes[i] = annotations[best].Class
			a.Boxes[i] = annotations[best].Box
		case best >= 0 && bestIoU >= config.NegativeOverlap:
			a.States[i] = StateIgnore
			a.Classes[i] = -1
		default:
			a.States[i] = StateNegative
			a.Classes[i] = -1
		}
	}

	return a, nil
}
