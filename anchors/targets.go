package anchors

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// deltaStd divides every encoded box delta, matching the target scaling the
// regression head is trained against.
const deltaStd float32 = 0.2

// EncodeDeltas encodes a ground-truth box as regression targets relative to an
// anchor: per-corner offsets normalized by the anchor's width/height and scaled
// by 1/deltaStd.
func EncodeDeltas(anchor, gt Box) [4]float32 {
	w := anchor.Width()
	h := anchor.Height()
	return [4]float32{
		(gt.X1 - anchor.X1) / w / deltaStd,
		(gt.Y1 - anchor.Y1) / h / deltaStd,
		(gt.X2 - anchor.X2) / w / deltaStd,
		(gt.Y2 - anchor.Y2) / h / deltaStd,
	}
}

// ClassificationTargets builds the classification target tensor for a batch.
//
// Arguments:
// - assignments: One Assignment per image, all over the same anchor set.
// - numClasses: Number of object classes C.
//
// Returns:
// - A float32 tensor of shape (batch, anchors, C+1): one-hot class channels for
//   positive anchors, zeros elsewhere, anchor state in the last channel.
// - error if the batch is empty, numClasses is not positive, an assignment
//   disagrees on anchor count, or a positive anchor carries a class outside
//   [0, C).
func ClassificationTargets(assignments []*Assignment, numClasses int) (*tensor.Dense, error) {
	if numClasses <= 0 {
		return nil, errors.Errorf("numClasses must be positive, got %d", numClasses)
	}
	n, err := anchorCount(assignments)
	if err != nil {
		return nil, err
	}

	rowLen := numClasses + 1
	data := make([]float32, len(assignments)*n*rowLen)
	for b, a := range assignments {
		for i := 0; i < n; i++ {
			row := (b*n + i) * rowLen
			if a.States[i] == StatePositive {
				class := a.Classes[i]
				if class < 0 || class >= numClasses {
					return nil, errors.Errorf("image %d anchor %d: class %d out of range [0, %d)",
						b, i, class, numClasses)
				}
				data[row+class] = 1
			}
			data[row+numClasses] = a.States[i]
		}
	}

	return tensor.New(tensor.WithShape(len(assignments), n, rowLen), tensor.WithBacking(data)), nil
}

// RegressionTargets builds the box regression target tensor for a batch.
//
// Arguments:
// - assignments: One Assignment per image, all over the same anchor set.
// - anchorBoxes: The shared anchor boxes, one per anchor.
//
// Returns:
// - A float32 tensor of shape (batch, anchors, 5): encoded deltas for positive
//   anchors, zeros elsewhere, anchor state in the last channel.
// - error if the batch is empty or anchor counts disagree.
func RegressionTargets(assignments []*Assignment, anchorBoxes []Box) (*tensor.Dense, error) {
	n, err := anchorCount(assignments)
	if err != nil {
		return nil, err
	}
	if len(anchorBoxes) != n {
		return nil, errors.Errorf("anchor count mismatch: %d boxes, %d assignment entries",
			len(anchorBoxes), n)
	}

	data := make([]float32, len(assignments)*n*5)
	for b, a := range assignments {
		for i := 0; i < n; i++ {
			row := (b*n + i) * 5
			if a.States[i] == StatePositive {
				deltas := EncodeDeltas(anchorBoxes[i], a.Boxes[i])
				copy(data[row:row+4], deltas[:])
			}
			data[row+4] = a.States[i]
		}
	}

	return tensor.New(tensor.WithShape(len(assignments), n, 5), tensor.WithBacking(data)), nil
}

func anchorCount(assignments []*Assignment) (int, error) {
	if len(assignments) == 0 {
		return 0, errors.New("empty batch")
	}
	n := len(assignments[0].States)
	for b, a := range assignments {
		if len(a.States) != n || len(a.Classes) != n || len(a.Boxes) != n {
			return 0, errors.Errorf("image %d: anchor count differs from image 0", b)
		}
	}
	return n, nil
}
