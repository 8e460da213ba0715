package readout

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Dataset accumulates pooled response rows and their class labels, then
// turns them into training tensors.
type Dataset struct {
	inputs  int
	classes int

	xs []float32
	ys []float32
	n  int
}

func NewDataset(inputs, classes int) *Dataset {
	return &Dataset{inputs: inputs, classes: classes}
}

// Add appends one example. The pooled slice is copied.
func (ds *Dataset) Add(pooled []float32, class int) error {
	if len(pooled) != ds.inputs {
		return errors.Errorf("dataset: row holds %d values, want %d", len(pooled), ds.inputs)
	}
	if class < 0 || class >= ds.classes {
		return errors.Errorf("dataset: class %d out of %d", class, ds.classes)
	}
	ds.xs = append(ds.xs, pooled...)
	onehot := make([]float32, ds.classes)
	onehot[class] = 1
	ds.ys = append(ds.ys, onehot...)
	ds.n++
	return nil
}

// Len returns the number of examples added so far.
func (ds *Dataset) Len() int { return ds.n }

// Tensors copies the examples into dense tensors trimmed to whole batches.
// The copies are the trainer's to shuffle; the dataset stays intact.
func (ds *Dataset) Tensors(batchSize int) (xs, ys *tensor.Dense, batches int, err error) {
	if batchSize < 1 {
		return nil, nil, 0, errors.Errorf("dataset: bad batch size %d", batchSize)
	}
	batches = ds.n / batchSize
	if batches < 1 {
		return nil, nil, 0, errors.Errorf("dataset: %d examples cannot fill a batch of %d", ds.n, batchSize)
	}
	rows := batches * batchSize

	xback := make([]float32, rows*ds.inputs)
	copy(xback, ds.xs)
	yback := make([]float32, rows*ds.classes)
	copy(yback, ds.ys)

	xs = tensor.New(tensor.WithShape(rows, ds.inputs), tensor.WithBacking(xback))
	ys = tensor.New(tensor.WithShape(rows, ds.classes), tensor.WithBacking(yback))
	return xs, ys, batches, nil
}
