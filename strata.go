// Package strata implements greedy layer-wise unsupervised pretraining for
// visual feature dictionaries. A Stack owns an ordered sequence of
// convolutional layers; each layer learns, by a competitive non-gradient
// rule, a small dictionary of patch templates that describe its input well,
// and once its running match score falls below a per-layer threshold the
// layer freezes and training moves one layer deeper. Forward passes convolve
// an image through the frozen dictionaries into an output response map for
// downstream consumers; a deconvolution path reconstructs an approximate
// image back out of the responses.
package strata

import (
	"math"

	rng "github.com/leesper/go_rng"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf32"

	"github.com/strataml/strata/feature"
	"github.com/strataml/strata/pooling"
)

// ewma is an exponentially weighted moving average that knows whether it has
// been seeded yet. The zero value reads as not yet sampled.
type ewma struct {
	value float32
	seen  bool
}

func (e *ewma) update(v float32) {
	if !e.seen {
		e.value = v
		e.seen = true
		return
	}
	e.value = e.value*0.99 + v*0.01
}

func (e *ewma) reset() { *e = ewma{} }

// Stack is the layer stack orchestrator. Exactly one layer is in training at
// any time (the current layer); the layers below it are frozen and only
// produce activations. Stacks are not safe for concurrent use.
type Stack struct {
	conf       Config
	layers     []Layer
	thresholds []float32

	current    int
	avg        ewma
	iterations uint32
	stats      Statistics

	outputs []float32
	history *History
	gen     *rng.UniformGenerator
}

// New builds a Stack from conf, allocating every layer buffer and randomising
// all template dictionaries from conf.Seed.
func New(conf Config) (*Stack, error) {
	if !conf.IsValid() {
		return nil, errors.Errorf("invalid config %+v", conf)
	}
	layers, err := newLayers(conf)
	if err != nil {
		return nil, err
	}

	thresholds := make([]float32, conf.Layers)
	copy(thresholds, conf.Thresholds)
	conf.Thresholds = thresholds

	gen := rng.NewUniformGenerator(conf.Seed)
	for i := range layers {
		layers[i].Dict.Init(gen)
	}

	return &Stack{
		conf:       conf,
		layers:     layers,
		thresholds: thresholds,
		stats:      makeStatistics(conf.Layers),
		outputs:    make([]float32, conf.OutputWidth*conf.OutputHeight*conf.Features),
		history:    NewHistory(HistorySize, "training error"),
		gen:        gen,
	}, nil
}

// Config returns the configuration the stack was built from.
func (s *Stack) Config() Config { return s.conf }

// Layers returns the number of layers in the stack.
func (s *Stack) Layers() int { return len(s.layers) }

// Layer returns layer l. The returned struct shares the stack's buffers.
func (s *Stack) Layer(l int) *Layer { return &s.layers[l] }

// Dictionary returns layer l's template dictionary.
func (s *Stack) Dictionary(l int) *feature.Dictionary { return s.layers[l].Dict }

// CurrentLayer returns the index of the layer currently in training. It
// equals Layers() once every layer has converged.
func (s *Stack) CurrentLayer() int { return s.current }

// TrainingComplete reports whether every layer has converged. It never
// reverts to false: the current layer index only moves forward.
func (s *Stack) TrainingComplete() bool { return s.current >= len(s.layers) }

// Iterations returns how many learning iterations the stack has absorbed.
// The counter saturates rather than wrapping.
func (s *Stack) Iterations() uint32 { return s.iterations }

// AvgScore returns the running average match score of the current layer, and
// whether any score has been folded in since the layer started training.
func (s *Stack) AvgScore() (float32, bool) { return s.avg.value, s.avg.seen }

// History returns the stack's training history recorder.
func (s *Stack) History() *History { return s.history }

// Statistics returns a copy of the per-layer progress record.
func (s *Stack) Statistics() Statistics {
	return Statistics{Layers: append([]LayerStats(nil), s.stats.Layers...)}
}

// FeedForward normalises img into layer zero's activations and convolves
// through the first through layers. Passing Layers() fills the output
// buffer. Read-only with respect to every dictionary, so it is safe to call
// whatever the training state.
func (s *Stack) FeedForward(img []uint8, through int) error {
	l0 := &s.layers[0]
	if len(img) != len(l0.Acts) {
		return errors.Errorf("feed forward: image holds %d bytes, want %dx%dx%d = %d", len(img), l0.Width, l0.Height, l0.Depth, len(l0.Acts))
	}
	for i, p := range img {
		l0.Acts[i] = float32(p)
	}
	vecf32.Scale(l0.Acts, 1.0/255)
	return s.forward(through)
}

// FeedForwardValues is FeedForward for callers that already hold normalised
// floats, such as a buffer handed over from another stack.
func (s *Stack) FeedForwardValues(vals []float32, through int) error {
	l0 := &s.layers[0]
	if len(vals) != len(l0.Acts) {
		return errors.Errorf("feed forward: buffer holds %d values, want %dx%dx%d = %d", len(vals), l0.Width, l0.Height, l0.Depth, len(l0.Acts))
	}
	copy(l0.Acts, vals)
	return s.forward(through)
}

func (s *Stack) forward(through int) error {
	if through > len(s.layers) {
		through = len(s.layers)
	}
	for l := 0; l < through; l++ {
		src := &s.layers[l]
		dst, dstW, dstH := s.outputs, s.conf.OutputWidth, s.conf.OutputHeight
		if l+1 < len(s.layers) {
			next := &s.layers[l+1]
			dst, dstW, dstH = next.Acts, next.Width, next.Height
		}
		if err := src.Dict.Convolve(src.Acts, src.Width, src.Height, dst, dstW, dstH); err != nil {
			return errors.Wrapf(err, "convolve layer %d", l)
		}
	}
	return nil
}

// Learn runs one training iteration on the current layer: feed img forward
// through the frozen layers below it, pull the current dictionary towards
// the given number of sampled patches, then fold the resulting match score
// into the running average, which may advance training to the next layer.
// Once training is complete Learn is a no-op returning zero.
//
// A degenerate (NaN) score is returned as an error and is not folded into
// the average.
func (s *Stack) Learn(img []uint8, samples int) (float32, error) {
	if s.TrainingComplete() {
		return 0, nil
	}
	if err := s.FeedForward(img, s.current); err != nil {
		return 0, err
	}
	return s.learnCurrent(samples)
}

// LearnValues is Learn for callers that already hold normalised floats.
func (s *Stack) LearnValues(vals []float32, samples int) (float32, error) {
	if s.TrainingComplete() {
		return 0, nil
	}
	if err := s.FeedForwardValues(vals, s.current); err != nil {
		return 0, err
	}
	return s.learnCurrent(samples)
}

func (s *Stack) learnCurrent(samples int) (float32, error) {
	cur := &s.layers[s.current]
	score, err := cur.Dict.Learn(cur.Acts, cur.Width, cur.Height, samples, s.conf.LearnRate, s.gen)
	if err != nil {
		return 0, errors.Wrapf(err, "learn layer %d", s.current)
	}
	s.advance(score)
	return score, nil
}

// advance folds score into the running average, records the average, and
// moves training one layer deeper once the average drops below the current
// layer's threshold. The first score after a layer change seeds the average
// and is already checked against the threshold.
func (s *Stack) advance(score float32) {
	s.avg.update(score)
	s.history.Record(s.avg.value, true)
	s.stats.update(s.current, s.avg.value)
	if s.iterations < math.MaxUint32 {
		s.iterations++
	}
	if s.avg.value < s.thresholds[s.current] {
		s.avg.reset()
		s.current++
	}
}

// OutputDims returns the geometry of the output response grid.
func (s *Stack) OutputDims() (w, h, depth int) {
	return s.conf.OutputWidth, s.conf.OutputHeight, s.conf.Features
}

// Output returns a copy of the output buffer as filled by the last full
// forward pass.
func (s *Stack) Output() []float32 {
	retVal := make([]float32, len(s.outputs))
	copy(retVal, s.outputs)
	return retVal
}

// OutputTensor returns the output buffer as a height×width×features tensor,
// backed by its own copy.
func (s *Stack) OutputTensor() *tensor.Dense {
	return tensor.New(
		tensor.WithShape(s.conf.OutputHeight, s.conf.OutputWidth, s.conf.Features),
		tensor.WithBacking(s.Output()),
	)
}

// Pooled max-pools the output buffer down to a w×h grid, the usual coupling
// into a downstream supervised consumer that wants fewer inputs than the
// full response map.
func (s *Stack) Pooled(w, h int) ([]float32, error) {
	if w < 1 || h < 1 {
		return nil, errors.Errorf("pooled: bad grid %dx%d", w, h)
	}
	retVal := make([]float32, w*h*s.conf.Features)
	if err := pooling.Pool(s.conf.Features, s.outputs, s.conf.OutputWidth, s.conf.OutputHeight, retVal, w, h); err != nil {
		return nil, err
	}
	return retVal, nil
}

// Reconstruct runs the deconvolution chain from the response feeding level
// down to an image-shaped byte buffer. Level l starts from layer l's
// activations; Layers() starts from the output buffer. Levels beyond the
// deepest layer that has seen any training are clamped, so freshly random
// dictionaries do not pollute the picture. The result is an approximation;
// the learning rule's selection step is not invertible.
func (s *Stack) Reconstruct(level int) ([]uint8, error) {
	max := s.current + 1
	if max > len(s.layers) {
		max = len(s.layers)
	}
	if level > max {
		level = max
	}
	if level < 1 {
		level = 1
	}
	if level == len(s.layers) {
		return s.reconstructFrom(s.outputs, s.conf.OutputWidth, s.conf.OutputHeight, len(s.layers)-1)
	}
	lay := &s.layers[level]
	return s.reconstructFrom(lay.Acts, lay.Width, lay.Height, level-1)
}

// ReconstructFromPooled reconstructs from a pooled output view (as returned
// by Pooled), expanding it back onto the output grid first.
func (s *Stack) ReconstructFromPooled(pooled []float32, w, h int) ([]uint8, error) {
	expanded := borrowSlab(len(s.outputs))
	defer returnSlab(expanded)
	if err := pooling.Unpool(s.conf.Features, pooled, w, h, expanded, s.conf.OutputWidth, s.conf.OutputHeight); err != nil {
		return nil, err
	}
	return s.reconstructFrom(expanded, s.conf.OutputWidth, s.conf.OutputHeight, len(s.layers)-1)
}

// reconstructFrom walks dictionaries topDict..0, each overlaying its
// templates onto the grid below, then clamps the image-shaped result to
// bytes.
func (s *Stack) reconstructFrom(resp []float32, respW, respH, topDict int) ([]uint8, error) {
	cur, curW, curH := resp, respW, respH
	borrowed := false
	for l := topDict; l >= 0; l-- {
		lay := &s.layers[l]
		dst := borrowSlab(len(lay.Acts))
		err := lay.Dict.Deconvolve(cur, curW, curH, dst, lay.Width, lay.Height)
		if borrowed {
			returnSlab(cur)
		}
		if err != nil {
			returnSlab(dst)
			return nil, errors.Wrapf(err, "deconvolve layer %d", l)
		}
		cur, curW, curH, borrowed = dst, lay.Width, lay.Height, true
	}

	retVal := make([]uint8, len(cur))
	for i, v := range cur {
		switch {
		case v <= 0:
		case v >= 1:
			retVal[i] = 255
		default:
			retVal[i] = uint8(v * 255)
		}
	}
	if borrowed {
		returnSlab(cur)
	}
	return retVal, nil
}
