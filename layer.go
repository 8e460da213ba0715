package strata

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/strataml/strata/feature"
)

// Layer is one stage of the hierarchy: an activation grid plus the template
// dictionary learned over it. Activations are overwritten on every forward
// pass; the dictionary is only mutated while this is the training layer. Both
// buffers belong exclusively to the layer.
type Layer struct {
	Width, Height, Depth int

	Acts []float32
	Dict *feature.Dictionary
}

func (l Layer) String() string {
	return fmt.Sprintf("%dx%dx%d with %d %dx%d templates", l.Width, l.Height, l.Depth, l.Dict.Count, l.Dict.Width, l.Dict.Width)
}

// newLayers derives every layer's geometry from conf and allocates its
// buffers. Dictionaries come back zeroed; the caller randomises them.
func newLayers(conf Config) ([]Layer, error) {
	retVal := make([]Layer, conf.Layers)
	for l := range retVal {
		w := conf.Width - (conf.Width-conf.OutputWidth)*l/conf.Layers
		h := conf.Height - (conf.Height-conf.OutputHeight)*l/conf.Layers
		depth := conf.Depth
		if l > 0 {
			depth = conf.Features
		}
		fw := conf.FeatureWidth * w / conf.Width
		if fw < 3 {
			fw = 3
		}
		if w < fw || h < fw {
			return nil, errors.Errorf("layer %d: %dx%d grid cannot fit %dx%d templates", l, w, h, fw, fw)
		}

		dict, err := feature.NewDictionary(conf.Features, fw, depth)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", l)
		}
		retVal[l] = Layer{
			Width:  w,
			Height: h,
			Depth:  depth,
			Acts:   make([]float32, w*h*depth),
			Dict:   dict,
		}
	}
	return retVal, nil
}
