// Package pooling provides spatial max-pooling and its nearest-neighbour
// inverse between two layer buffers that share a channel depth. Grids are
// row-major, depth innermost, and cells map between grids by proportional
// index scaling, so the two grids do not need to divide evenly.
package pooling

import (
	"github.com/pkg/errors"
	"gorgonia.org/vecf32"
)

// Pool max-reduces src (srcW×srcH cells) into dst (dstW×dstH cells). The
// destination area must not exceed the source area. Equal areas degrade to a
// straight copy. Otherwise dst is zeroed and every source cell folds into its
// scaled destination cell, keeping the per-channel maximum, so inputs are
// assumed non-negative.
func Pool(depth int, src []float32, srcW, srcH int, dst []float32, dstW, dstH int) error {
	if err := checkGrid(depth, src, srcW, srcH, "pool src"); err != nil {
		return err
	}
	if err := checkGrid(depth, dst, dstW, dstH, "pool dst"); err != nil {
		return err
	}
	if dstW*dstH > srcW*srcH {
		return errors.Errorf("pool: destination %dx%d larger than source %dx%d", dstW, dstH, srcW, srcH)
	}
	if dstW*dstH == srcW*srcH {
		copy(dst, src)
		return nil
	}

	for i := range dst {
		dst[i] = 0
	}
	for y0 := 0; y0 < srcH; y0++ {
		y1 := y0 * dstH / srcH
		for x0 := 0; x0 < srcW; x0++ {
			x1 := x0 * dstW / srcW
			n0 := (y0*srcW + x0) * depth
			n1 := (y1*dstW + x1) * depth
			vecf32.Max(dst[n1:n1+depth], src[n0:n0+depth])
		}
	}
	return nil
}

// Unpool expands src (srcW×srcH cells) into dst (dstW×dstH cells) by
// nearest-neighbour upsampling: every destination cell copies the channel
// vector of the source cell it scales down to. The destination area must be
// at least the source area; equal areas degrade to a straight copy. Which
// sub-cell held a pooled maximum is not recovered.
func Unpool(depth int, src []float32, srcW, srcH int, dst []float32, dstW, dstH int) error {
	if err := checkGrid(depth, src, srcW, srcH, "unpool src"); err != nil {
		return err
	}
	if err := checkGrid(depth, dst, dstW, dstH, "unpool dst"); err != nil {
		return err
	}
	if dstW*dstH < srcW*srcH {
		return errors.Errorf("unpool: destination %dx%d smaller than source %dx%d", dstW, dstH, srcW, srcH)
	}
	if dstW*dstH == srcW*srcH {
		copy(dst, src)
		return nil
	}

	for y1 := 0; y1 < dstH; y1++ {
		y0 := y1 * srcH / dstH
		for x1 := 0; x1 < dstW; x1++ {
			x0 := x1 * srcW / dstW
			n0 := (y0*srcW + x0) * depth
			n1 := (y1*dstW + x1) * depth
			copy(dst[n1:n1+depth], src[n0:n0+depth])
		}
	}
	return nil
}

func checkGrid(depth int, buf []float32, w, h int, what string) error {
	if depth < 1 || w < 1 || h < 1 {
		return errors.Errorf("%s: bad geometry %dx%dx%d", what, w, h, depth)
	}
	if len(buf) != w*h*depth {
		return errors.Errorf("%s: buffer holds %d values, geometry %dx%dx%d needs %d", what, len(buf), w, h, depth, w*h*depth)
	}
	return nil
}
