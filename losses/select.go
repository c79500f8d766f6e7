package losses

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// alignedShapes checks that target and prediction are rank-3 batches over the
// same (batch, anchor) grid, with the target carrying one extra state channel.
// It returns the prediction channel count.
func alignedShapes(target, prediction *tensor.Dense) (int, error) {
	ts := target.Shape()
	ps := prediction.Shape()
	if len(ts) != 3 || len(ps) != 3 {
		return 0, errors.Errorf("expected rank-3 tensors, got target %v and prediction %v", ts, ps)
	}
	if ts[0] != ps[0] || ts[1] != ps[1] {
		return 0, errors.Errorf("batch/anchor dimension mismatch: target %v, prediction %v", ts, ps)
	}
	if ts[2] != ps[2]+1 {
		return 0, errors.Errorf("target must carry one state channel beyond the prediction's %d channels, got %d",
			ps[2], ts[2])
	}
	return ps[2], nil
}

// float32Backing returns the dense float32 buffer behind t.
func float32Backing(t *tensor.Dense) ([]float32, error) {
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("expected a float32 tensor, got %v", t.Dtype())
	}
	return data, nil
}

// selectRows scans the trailing state channel of each rowLen-wide row in data
// and returns the flattened row indices whose state passes keep. This is the
// boolean-mask / index-gather step shared by both losses.
func selectRows(data []float32, rowLen int, keep func(state float32) bool) []int {
	var rows []int
	for i := rowLen - 1; i < len(data); i += rowLen {
		if keep(data[i]) {
			rows = append(rows, i/rowLen)
		}
	}
	return rows
}

// countState counts rows whose trailing state channel equals state.
func countState(data []float32, rowLen int, state float32) int {
	n := 0
	for i := rowLen - 1; i < len(data); i += rowLen {
		if data[i] == state {
			n++
		}
	}
	return n
}
