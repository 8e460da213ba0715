// Package feature implements per-layer template dictionaries and the three
// operators defined over them: a competitive, non-gradient learning rule that
// pulls the best-matching templates towards sampled patches, a convolution
// that turns a source buffer into a per-cell template response map, and an
// approximate deconvolution that overlays templates back onto a source-shaped
// buffer. All buffers are flat []float32, row-major, channel innermost, with
// values nominally in [0,1].
package feature

import (
	"github.com/chewxy/math32"
	rng "github.com/leesper/go_rng"
	"github.com/pkg/errors"
)

// ErrDegenerate is returned by Learn when the accumulated match score comes
// out NaN or Inf. Folding such a score into a convergence average would
// corrupt it permanently, so the caller has to see this.
var ErrDegenerate = errors.New("degenerate match score")

const (
	// matchesPerSample is how many of the best-matching templates are pulled
	// towards each sampled patch.
	matchesPerSample = 3

	// substituteOdds in 64 is the per-slot chance that a uniformly random
	// template index replaces a selected one before the pull. Keeps otherwise
	// never-matching templates from going dead.
	substituteOdds = 8
)

// Dictionary is one layer's set of learned templates. Each template is a
// Width×Width patch with Depth channels, stored contiguously in Values.
type Dictionary struct {
	Count  int
	Width  int
	Depth  int
	Values []float32

	scores []float32
}

// NewDictionary allocates a dictionary of count templates of side width and
// channel depth depth. Template values start at zero; call Init to randomise
// them.
func NewDictionary(count, width, depth int) (*Dictionary, error) {
	if count < 1 || width < 3 || depth < 1 {
		return nil, errors.Errorf("dictionary: bad geometry: %d templates of %dx%dx%d", count, width, width, depth)
	}
	size := count * width * width * depth
	if size/count/width/width != depth {
		return nil, errors.Errorf("dictionary: %d templates of %dx%dx%d overflows", count, width, width, depth)
	}
	return &Dictionary{
		Count:  count,
		Width:  width,
		Depth:  depth,
		Values: make([]float32, size),
		scores: make([]float32, count),
	}, nil
}

// Init fills every template with uniform [0,1) values.
func (d *Dictionary) Init(gen *rng.UniformGenerator) {
	for i := range d.Values {
		d.Values[i] = gen.Float32()
	}
}

// Size returns the number of values in one template.
func (d *Dictionary) Size() int { return d.Width * d.Width * d.Depth }

// Template returns the value slice of template f, aliasing the dictionary.
func (d *Dictionary) Template(f int) []float32 {
	n := d.Size()
	return d.Values[f*n : (f+1)*n]
}

func (d *Dictionary) checkSource(src []float32, srcW, srcH int) error {
	if srcW < d.Width || srcH < d.Width {
		return errors.Errorf("dictionary: %dx%d source cannot fit a %dx%d template", srcW, srcH, d.Width, d.Width)
	}
	if len(src) != srcW*srcH*d.Depth {
		return errors.Errorf("dictionary: source holds %d values, want %dx%dx%d = %d", len(src), srcW, srcH, d.Depth, srcW*srcH*d.Depth)
	}
	return nil
}

// Learn runs the competitive update for the given number of sampled patches:
// pick a random anchor where a template-sized patch fits, score every
// template by summed absolute difference against the patch, pull the three
// lowest-scoring templates one fixed step towards the patch (the winner
// twice), occasionally substituting a random template index for a selected
// one. The step is rate/255, snapping to the patch value rather than
// overshooting it, so templates stay inside [0,1] for sources inside [0,1].
//
// The returned score is the sum of the selected templates' pre-substitution
// match scores across all samples. It is not monotone call to call but trends
// downward as the dictionary adapts; a NaN or Inf total returns
// ErrDegenerate.
func (d *Dictionary) Learn(src []float32, srcW, srcH, samples int, rate float32, gen *rng.UniformGenerator) (retVal float32, err error) {
	if err = d.checkSource(src, srcW, srcH); err != nil {
		return 0, err
	}
	if len(d.scores) != d.Count {
		d.scores = make([]float32, d.Count)
	}
	step := rate / 255

	var sel [matchesPerSample]int
	for s := 0; s < samples; s++ {
		ax := int(gen.Int32n(int32(srcW - d.Width + 1)))
		ay := int(gen.Int32n(int32(srcH - d.Width + 1)))
		d.matchAll(src, srcW, ax, ay)
		n := pickLowest(d.scores, sel[:])
		for k := 0; k < n; k++ {
			f := sel[k]
			retVal += d.scores[f]
			if gen.Int32n(64) < substituteOdds {
				f = int(gen.Int32n(int32(d.Count)))
			}
			d.nudge(src, srcW, ax, ay, f, step)
			if k == 0 {
				// strongest pull for the winner; the second pass re-compares
				// value by value, so it never passes the patch
				d.nudge(src, srcW, ax, ay, f, step)
			}
		}
	}
	if math32.IsNaN(retVal) || math32.IsInf(retVal, 0) {
		return 0, errors.WithStack(ErrDegenerate)
	}
	return retVal, nil
}

// matchAll fills d.scores with the summed absolute difference between every
// template and the patch anchored at (ax, ay).
func (d *Dictionary) matchAll(src []float32, srcW, ax, ay int) {
	rowLen := d.Width * d.Depth
	for f := 0; f < d.Count; f++ {
		t := d.Template(f)
		var sum float32
		for yy := 0; yy < d.Width; yy++ {
			row := ((ay+yy)*srcW + ax) * d.Depth
			trow := yy * rowLen
			for xx := 0; xx < rowLen; xx++ {
				sum += math32.Abs(src[row+xx] - t[trow+xx])
			}
		}
		d.scores[f] = sum
	}
}

// nudge moves every value of template f one step towards the patch anchored
// at (ax, ay), snapping exactly onto the patch value when closer than a step.
func (d *Dictionary) nudge(src []float32, srcW, ax, ay, f int, step float32) {
	t := d.Template(f)
	rowLen := d.Width * d.Depth
	for yy := 0; yy < d.Width; yy++ {
		row := ((ay+yy)*srcW + ax) * d.Depth
		trow := yy * rowLen
		for xx := 0; xx < rowLen; xx++ {
			p := src[row+xx]
			switch v := t[trow+xx]; {
			case v < p:
				if v+step >= p {
					t[trow+xx] = p
				} else {
					t[trow+xx] = v + step
				}
			case v > p:
				if v-step <= p {
					t[trow+xx] = p
				} else {
					t[trow+xx] = v - step
				}
			}
		}
	}
}

// pickLowest writes the indices of the len(sel) lowest scores into sel,
// lowest first, ties kept in first-found order, and returns how many entries
// were filled (short only when there are fewer scores than slots).
func pickLowest(scores []float32, sel []int) int {
	n := 0
	for i, s := range scores {
		j := n
		for j > 0 && s < scores[sel[j-1]] {
			j--
		}
		if j >= len(sel) {
			continue
		}
		if n < len(sel) {
			n++
		}
		copy(sel[j+1:n], sel[j:n-1])
		sel[j] = i
	}
	return n
}

// Convolve fills dst, a dstW×dstH grid of Count-channel response vectors,
// with the similarity of every template to the source patch anchored at each
// cell's proportionally scaled position. Similarity is 1 minus the
// root-mean-square difference, so a perfect match responds 1 and responses
// stay in [0,1] for sources inside [0,1]. Anchors are clamped so the patch
// always fits; no cell is skipped.
func (d *Dictionary) Convolve(src []float32, srcW, srcH int, dst []float32, dstW, dstH int) error {
	if err := d.checkSource(src, srcW, srcH); err != nil {
		return err
	}
	if dstW < 1 || dstH < 1 || len(dst) != dstW*dstH*d.Count {
		return errors.Errorf("convolve: response holds %d values, want %dx%dx%d = %d", len(dst), dstW, dstH, d.Count, dstW*dstH*d.Count)
	}

	norm := float32(d.Size())
	rowLen := d.Width * d.Depth
	for cy := 0; cy < dstH; cy++ {
		ay := cy * srcH / dstH
		if ay > srcH-d.Width {
			ay = srcH - d.Width
		}
		for cx := 0; cx < dstW; cx++ {
			ax := cx * srcW / dstW
			if ax > srcW-d.Width {
				ax = srcW - d.Width
			}
			out := (cy*dstW + cx) * d.Count
			for f := 0; f < d.Count; f++ {
				t := d.Template(f)
				var sum float32
				for yy := 0; yy < d.Width; yy++ {
					row := ((ay+yy)*srcW + ax) * d.Depth
					trow := yy * rowLen
					for xx := 0; xx < rowLen; xx++ {
						diff := src[row+xx] - t[trow+xx]
						sum += diff * diff
					}
				}
				dst[out+f] = 1 - math32.Sqrt(sum/norm)
			}
		}
	}
	return nil
}

// Deconvolve approximately inverts Convolve: dst is zeroed, then for every
// response cell whose centred patch box lies inside the dst grid, every
// template's values are accumulated onto that box weighted by the cell's
// response to it. Cells whose box falls outside the grid contribute nothing.
// The result is a recognisable reconstruction, not an exact inverse; the
// winner-take-most selection during learning is not invertible.
func (d *Dictionary) Deconvolve(resp []float32, respW, respH int, dst []float32, dstW, dstH int) error {
	if respW < 1 || respH < 1 || len(resp) != respW*respH*d.Count {
		return errors.Errorf("deconvolve: response holds %d values, want %dx%dx%d = %d", len(resp), respW, respH, d.Count, respW*respH*d.Count)
	}
	if dstW < 1 || dstH < 1 || len(dst) != dstW*dstH*d.Depth {
		return errors.Errorf("deconvolve: target holds %d values, want %dx%dx%d = %d", len(dst), dstW, dstH, d.Depth, dstW*dstH*d.Depth)
	}

	for i := range dst {
		dst[i] = 0
	}
	radius := d.Width / 2
	for cy := 0; cy < respH; cy++ {
		for cx := 0; cx < respW; cx++ {
			r, ok := PatchBounds(cx, cy, respW, respH, radius, dstW, dstH)
			if !ok {
				continue
			}
			base := (cy*respW + cx) * d.Count
			for f := 0; f < d.Count; f++ {
				w := resp[base+f]
				if w == 0 {
					continue
				}
				t := d.Template(f)
				for yy := r.Y0; yy < r.Y1; yy++ {
					drow := (yy*dstW + r.X0) * d.Depth
					trow := (yy - r.Y0) * d.Width * d.Depth
					for xx := 0; xx < r.Width()*d.Depth; xx++ {
						dst[drow+xx] += w * t[trow+xx]
					}
				}
			}
		}
	}
	return nil
}
