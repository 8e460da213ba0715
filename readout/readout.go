// Package readout puts a small supervised classification head on top of
// pooled response vectors, so a trained dictionary stack can be scored on a
// labelling task without touching the dictionaries themselves.
package readout

import (
	"bytes"
	"encoding/gob"

	G "gorgonia.org/gorgonia"
)

var Float = G.Float32

// Readout is a two layer softmax classifier over pooled responses.
type Readout struct {
	Config

	g  *G.ExprGraph
	Y  *G.Node // one-hot labels
	xs *G.Node // pooled response rows

	probs *G.Node

	probsValue G.Value
	cost       G.Value
}

// New returns a new, uninitialized *Readout.
func New(conf Config) *Readout {
	return &Readout{
		Config: conf,
	}
}

func (r *Readout) Init() error {
	r.reset()
	r.g = G.NewGraph()
	logits := r.fwd()
	return r.bwd(logits)
}

func (r *Readout) fwd() (logits *G.Node) {
	r.xs = G.NewMatrix(r.g, Float, G.WithShape(r.BatchSize, r.Inputs), G.WithName("Pooled"))

	var m maebe
	hidden := m.rectify(m.linear(r.xs, r.Hidden, "Hidden"))
	logits = m.linear(hidden, r.Classes, "Class")

	r.probs = m.do(func() (*G.Node, error) { return G.SoftMax(logits) })
	G.Read(r.probs, &r.probsValue)
	return logits
}

func (r *Readout) bwd(logits *G.Node) error {
	if r.FwdOnly {
		return nil
	}
	r.Y = G.NewMatrix(r.g, Float, G.WithShape(r.BatchSize, r.Classes))

	var m maebe
	cost := m.xent(r.probs, r.Y)
	if m.err != nil {
		return m.err
	}
	G.Read(cost, &r.cost)

	if _, err := G.Grad(cost, r.Model()...); err != nil {
		return err
	}
	return nil
}

// Model returns the learnable nodes.
func (r *Readout) Model() G.Nodes {
	retVal := make(G.Nodes, 0, r.g.Nodes().Len())
	for _, n := range r.g.AllNodes() {
		if n.IsVar() && n != r.xs && n != r.Y {
			retVal = append(retVal, n)
		}
	}
	return retVal
}

// Cost returns the cost recorded by the last training run.
func (r *Readout) Cost() float32 {
	if r.cost == nil {
		return 0
	}
	return r.cost.Data().(float32)
}

func (r *Readout) Clone() (*Readout, error) {
	r2 := New(r.Config)
	if err := r2.Init(); err != nil {
		return nil, err
	}

	model := r.Model()
	model2 := r2.Model()
	for i, n := range model {
		if err := G.Let(model2[i], n.Value()); err != nil {
			return nil, err
		}
	}
	return r2, nil
}

func (r *Readout) reset() {
	r.g = nil
	r.Y = nil
	r.xs = nil
	r.probs = nil
}

func (r *Readout) GobEncode() (retVal []byte, err error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	for _, n := range r.Model() {
		v := n.Value()
		if err = enc.Encode(&v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (r *Readout) GobDecode(p []byte) error {
	r.reset()
	if err := r.Init(); err != nil {
		return err
	}

	buf := bytes.NewBuffer(p)
	dec := gob.NewDecoder(buf)
	for _, n := range r.Model() {
		var v G.Value
		if err := dec.Decode(&v); err != nil {
			return err
		}
		G.Let(n, v)
	}
	return nil
}
