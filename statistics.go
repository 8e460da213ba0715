package strata

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// LayerStats summarises how one layer's training went.
type LayerStats struct {
	Iterations uint32
	First      float32 // running score on the layer's first iteration
	Best       float32 // lowest running score seen
	Final      float32 // running score when the layer froze, or right now
	seen       bool
}

// Statistics is the per-layer progress record of a training run. It is
// bookkeeping derived from the run, so it is not part of the persisted state
// and starts fresh after a Load.
type Statistics struct {
	Layers []LayerStats
}

func makeStatistics(n int) Statistics {
	return Statistics{Layers: make([]LayerStats, n)}
}

func (s *Statistics) update(layer int, avg float32) {
	if layer >= len(s.Layers) {
		return
	}
	ls := &s.Layers[layer]
	ls.Iterations++
	if !ls.seen {
		ls.First = avg
		ls.Best = avg
		ls.seen = true
	}
	if avg < ls.Best {
		ls.Best = avg
	}
	ls.Final = avg
}

// Dump writes the statistics as CSV, one row per layer.
func (s Statistics) Dump(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"layer", "iterations", "first", "best", "final"}); err != nil {
		return errors.WithStack(err)
	}
	var records [][]string
	for i := range s.Layers {
		ls := s.Layers[i]
		records = append(records, []string{
			strconv.Itoa(i),
			strconv.FormatUint(uint64(ls.Iterations), 10),
			strconv.FormatFloat(float64(ls.First), 'f', 5, 32),
			strconv.FormatFloat(float64(ls.Best), 'f', 5, 32),
			strconv.FormatFloat(float64(ls.Final), 'f', 5, 32),
		})
	}
	if err := w.WriteAll(records); err != nil {
		return errors.WithStack(err)
	}
	w.Flush()
	return errors.WithStack(w.Error())
}
