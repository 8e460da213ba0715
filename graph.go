package strata

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/awalterschulze/gographviz"
)

const layerLabel = `"layer {{.Index}}\n{{.Width}}x{{.Height}}x{{.Depth}}\n{{.Count}} templates {{.Side}}x{{.Side}}\n{{.State}}"`

var layerTmpl = template.Must(template.New("layer").Parse(layerLabel))

// ToDot dumps the stack topology as a graphviz digraph, one node per layer
// with its geometry and training state, for eyeballing a configuration.
func (s *Stack) ToDot() string {
	g := gographviz.NewGraph()
	g.SetName("strata")
	g.SetDir(true)

	var buf bytes.Buffer
	for i := range s.layers {
		l := &s.layers[i]
		state := "frozen"
		attrs := map[string]string{"shape": "box"}
		switch {
		case i == s.current:
			state = "training"
			attrs["style"] = "filled"
			attrs["fillcolor"] = "lightblue"
		case i > s.current:
			state = "waiting"
		}

		buf.Reset()
		layerTmpl.Execute(&buf, struct {
			Index, Width, Height, Depth, Count, Side int
			State                                    string
		}{i, l.Width, l.Height, l.Depth, l.Dict.Count, l.Dict.Width, state})
		attrs["label"] = buf.String()
		g.AddNode("strata", fmt.Sprintf("layer_%d", i), attrs)
		if i > 0 {
			g.AddEdge(fmt.Sprintf("layer_%d", i-1), fmt.Sprintf("layer_%d", i), true, nil)
		}
	}

	g.AddNode("strata", "outputs", map[string]string{
		"shape": "box",
		"label": fmt.Sprintf(`"outputs\n%dx%dx%d"`, s.conf.OutputWidth, s.conf.OutputHeight, s.conf.Features),
	})
	g.AddEdge(fmt.Sprintf("layer_%d", len(s.layers)-1), "outputs", true, nil)
	return g.String()
}
