package readout

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
)

// Train is a basic trainer: vanilla SGD over full batches, reshuffling the
// dataset between iterations.
func Train(r *Readout, xs, ys *tensor.Dense, batches, iterations int) error {
	var s slicer
	for i := 0; i < iterations; i++ {
		for bat := 0; bat < batches; bat++ {
			m := G.NewTapeMachine(r.g, G.BindDualValues(r.Model()...))
			model := G.NodesToValueGrads(r.Model())
			solver := G.NewVanillaSolver(G.WithLearnRate(0.1))
			batchStart := bat * r.Config.BatchSize
			batchEnd := batchStart + r.Config.BatchSize

			xs2 := s.Slice(xs, sli(batchStart, batchEnd))
			ys2 := s.Slice(ys, sli(batchStart, batchEnd))
			if s.err != nil {
				return s.err
			}

			G.Let(r.xs, xs2)
			G.Let(r.Y, ys2)
			if err := m.RunAll(); err != nil {
				return err
			}
			if err := solver.Step(model); err != nil {
				return err
			}
			tensor.ReturnTensor(xs2)
			tensor.ReturnTensor(ys2)
		}
		if err := shuffleBatch(xs, ys); err != nil {
			return err
		}
	}
	return nil
}

// shuffleBatch permutes example rows and their labels in lockstep.
func shuffleBatch(xs, ys *tensor.Dense) (err error) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	var matXs, matYs [][]float32
	if matXs, err = native.MatrixF32(xs); err != nil {
		return errors.Wrapf(err, "shuffle batch failed - xs")
	}
	if matYs, err = native.MatrixF32(ys); err != nil {
		return errors.Wrapf(err, "shuffle batch failed - ys")
	}

	tmpX := make([]float32, xs.Shape()[1])
	tmpY := make([]float32, ys.Shape()[1])
	for i := range matXs {
		j := r.Intn(i + 1)

		copy(tmpX, matXs[i])
		copy(matXs[i], matXs[j])
		copy(matXs[j], tmpX)

		copy(tmpY, matYs[i])
		copy(matYs[i], matYs[j])
		copy(matYs[j], tmpY)
	}
	return nil
}

// Predictor holds a fwd-only clone of a trained head and a VM, so inference
// does not rebuild a machine per call.
type Predictor struct {
	r *Readout
	m G.VM

	input *tensor.Dense
}

// NewPredictor clones the trained weights into a forward-only graph.
func NewPredictor(r *Readout) (*Predictor, error) {
	conf := r.Config
	conf.FwdOnly = true
	retVal := &Predictor{
		r:     New(conf),
		input: tensor.New(tensor.WithShape(conf.BatchSize, conf.Inputs), tensor.Of(Float)),
	}
	if err := retVal.r.Init(); err != nil {
		return nil, err
	}

	infModel := retVal.r.Model()
	for i, n := range r.Model() {
		original := n.Value().Data().([]float32)
		cloned := infModel[i].Value().Data().([]float32)
		copy(cloned, original)
	}

	retVal.m = G.NewTapeMachine(retVal.r.g)
	return retVal, nil
}

// Predict runs one pooled response vector through the head and returns the
// class probabilities.
func (p *Predictor) Predict(pooled []float32) ([]float32, error) {
	if len(pooled) != p.r.Inputs {
		return nil, errors.Errorf("predict: %d inputs, want %d", len(pooled), p.r.Inputs)
	}

	p.input.Zero()
	data := p.input.Data().([]float32)
	copy(data, pooled)

	p.m.Reset()
	G.Let(p.r.xs, p.input)
	if err := p.m.RunAll(); err != nil {
		return nil, err
	}
	probs := p.r.probsValue.Data().([]float32)
	retVal := make([]float32, p.r.Classes)
	copy(retVal, probs[:p.r.Classes])
	return retVal, nil
}

// Close releases the VM.
func (p *Predictor) Close() error { return p.m.Close() }
