package readout

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// maebe builds graph nodes and soaks up the first error, so the network
// definition reads straight through.
type maebe struct {
	err error
}

func (m *maebe) do(f func() (*G.Node, error)) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = f(); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

func (m *maebe) linear(input *G.Node, units int, name string) *G.Node {
	if m.err != nil {
		return nil
	}
	w := G.NewTensor(input.Graph(), Float, 2, G.WithShape(input.Shape()[1], units), G.WithInit(G.GlorotN(1.0)), G.WithName(name+"_w"))
	xw := m.do(func() (*G.Node, error) { return G.Mul(input, w) })
	if m.err != nil {
		return nil
	}
	b := G.NewTensor(xw.Graph(), Float, xw.Shape().Dims(), G.WithShape(xw.Shape().Clone()...), G.WithName(name+"_b"), G.WithInit(G.Zeroes()))
	return m.do(func() (*G.Node, error) { return G.Add(xw, b) })
}

func (m *maebe) rectify(input *G.Node) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = G.Rectify(input); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

// xent is the categorical cross entropy of softmax output against one-hot
// target, averaged over the batch.
func (m *maebe) xent(output, target *G.Node) (retVal *G.Node) {
	logp := m.do(func() (*G.Node, error) { return G.Log(output) })
	picked := m.do(func() (*G.Node, error) { return G.HadamardProd(target, logp) })
	rowsum := m.do(func() (*G.Node, error) { return G.Sum(picked, 1) })
	neg := m.do(func() (*G.Node, error) { return G.Neg(rowsum) })
	return m.do(func() (*G.Node, error) { return G.Mean(neg) })
}
